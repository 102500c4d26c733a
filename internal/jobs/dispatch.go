package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"coursedesk/internal/models"
	"coursedesk/internal/notify"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DispatchEngine claims due pending reminders and delivers them through the
// channel senders.
//
// State machine: pending --claim--> queued --dispatch--> sent|failed. The
// claim is persisted before any send starts, so an overlapping run cannot
// select the same rows. Failures are terminal; the poll only ever picks up
// pending rows.
//
// Caveat: a crash between claim and finalize leaves rows stuck in queued.
// There is no reclaim path; such rows need a manual reset to pending.
type DispatchEngine struct {
	db        *gorm.DB
	log       *zap.Logger
	runner    *TenantRunner
	email     notify.EmailSender
	sms       notify.SMSSender
	batchSize int
}

func NewDispatchEngine(db *gorm.DB, log *zap.Logger, email notify.EmailSender, sms notify.SMSSender, batchSize int) *DispatchEngine {
	return &DispatchEngine{
		db:        db,
		log:       log,
		runner:    NewTenantRunner(db, log),
		email:     email,
		sms:       sms,
		batchSize: batchSize,
	}
}

// DispatchSummary reports one dispatch run across all tenants.
type DispatchSummary struct {
	SweepSummary
	Claimed int
	Sent    int
	Failed  int
}

// dispatchPayload is an immutable snapshot of one claimed reminder plus the
// student contacts it resolves to. Workers only ever see these, never the
// gorm entities.
type dispatchPayload struct {
	ReminderID uuid.UUID
	Channel    models.ReminderChannel
	Email      string
	Phone      string
	Title      string
	Message    string
}

type dispatchOutcome struct {
	ReminderID uuid.UUID
	Err        error
}

func (e *DispatchEngine) RunOnce(ctx context.Context) (DispatchSummary, error) {
	var summary DispatchSummary

	sweep, err := e.runner.RunAcrossTenants(ctx, "reminder_dispatch", func(ctx context.Context, scope TenantScope) error {
		claimed, sent, failed, err := e.dispatchTenant(ctx, scope)
		summary.Claimed += claimed
		summary.Sent += sent
		summary.Failed += failed
		return err
	})
	summary.SweepSummary = sweep
	if err != nil {
		JobRunsTotal.WithLabelValues("reminder_dispatch", "error").Inc()
		return summary, err
	}

	JobRunsTotal.WithLabelValues("reminder_dispatch", "ok").Inc()
	RemindersDispatchedTotal.WithLabelValues("sent").Add(float64(summary.Sent))
	RemindersDispatchedTotal.WithLabelValues("failed").Add(float64(summary.Failed))
	return summary, nil
}

func (e *DispatchEngine) dispatchTenant(ctx context.Context, scope TenantScope) (claimed, sent, failed int, err error) {
	now := time.Now()

	// Earliest-first keeps late reminders from starving; the batch bound
	// caps per-run latency.
	var reminders []models.Reminder
	if err := e.db.WithContext(ctx).
		Where("tenant_id = ? AND status = 'pending' AND scheduled_at <= ?", scope.TenantID, now).
		Order("scheduled_at ASC").
		Limit(e.batchSize).
		Find(&reminders).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("fetch due reminders: %w", err)
	}
	if len(reminders) == 0 {
		return 0, 0, 0, nil
	}

	// Claim: the write barrier. Nothing is dispatched until every fetched
	// row is marked queued.
	ids := make([]uuid.UUID, len(reminders))
	for i, r := range reminders {
		ids[i] = r.ID
	}
	if err := e.db.WithContext(ctx).
		Model(&models.Reminder{}).
		Where("id IN ? AND status = ?", ids, models.ReminderPending).
		Update("status", models.ReminderQueued).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("claim reminders: %w", err)
	}
	claimed = len(reminders)

	payloads, err := e.buildPayloads(ctx, scope, reminders)
	if err != nil {
		return claimed, 0, 0, err
	}

	outcomes := e.dispatchAll(ctx, payloads)

	// Finalize sequentially; no entity write happened inside the parallel
	// region above.
	finalizedAt := time.Now()
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, o := range outcomes {
			updates := map[string]interface{}{}
			if o.Err == nil {
				updates["status"] = models.ReminderSent
				updates["sent_at"] = finalizedAt
			} else {
				updates["status"] = models.ReminderFailed
				updates["error"] = o.Err.Error()
			}
			if err := tx.Model(&models.Reminder{}).Where("id = ?", o.ReminderID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return claimed, 0, 0, fmt.Errorf("finalize reminders: %w", err)
	}

	for _, o := range outcomes {
		if o.Err == nil {
			sent++
		} else {
			failed++
			e.log.Warn("reminder dispatch failed",
				zap.String("tenant_id", scope.TenantID.String()),
				zap.String("reminder_id", o.ReminderID.String()),
				zap.Error(o.Err),
			)
		}
	}
	return claimed, sent, failed, nil
}

func (e *DispatchEngine) buildPayloads(ctx context.Context, scope TenantScope, reminders []models.Reminder) ([]dispatchPayload, error) {
	studentIDs := make([]uuid.UUID, 0, len(reminders))
	for _, r := range reminders {
		if r.StudentID != nil {
			studentIDs = append(studentIDs, *r.StudentID)
		}
	}

	studentByID := make(map[uuid.UUID]models.Student)
	if len(studentIDs) > 0 {
		var students []models.Student
		if err := e.db.WithContext(ctx).
			Where("tenant_id = ? AND id IN ?", scope.TenantID, studentIDs).
			Find(&students).Error; err != nil {
			return nil, fmt.Errorf("load students: %w", err)
		}
		for _, st := range students {
			studentByID[st.ID] = st
		}
	}

	payloads := make([]dispatchPayload, len(reminders))
	for i, r := range reminders {
		p := dispatchPayload{
			ReminderID: r.ID,
			Channel:    r.Channel,
			Title:      r.Title,
			Message:    r.Message,
		}
		if r.StudentID != nil {
			if st, ok := studentByID[*r.StudentID]; ok {
				p.Email = st.Email
				p.Phone = st.Phone
			}
		}
		payloads[i] = p
	}
	return payloads, nil
}

func (e *DispatchEngine) dispatchAll(ctx context.Context, payloads []dispatchPayload) []dispatchOutcome {
	workers := workerCount()
	if workers > len(payloads) {
		workers = len(payloads)
	}

	work := make(chan dispatchPayload)
	results := make(chan dispatchOutcome, len(payloads))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range work {
				results <- dispatchOutcome{ReminderID: p.ReminderID, Err: e.dispatchOne(ctx, p)}
			}
		}()
	}
	for _, p := range payloads {
		work <- p
	}
	close(work)
	wg.Wait()
	close(results)

	outcomes := make([]dispatchOutcome, 0, len(payloads))
	for o := range results {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// dispatchOne delivers a single reminder. Single-channel reminders are strict
// about their contact field; both-channel reminders attempt whichever contacts
// exist and only fail when neither does.
func (e *DispatchEngine) dispatchOne(ctx context.Context, p dispatchPayload) error {
	switch p.Channel {
	case models.ChannelEmail:
		if p.Email == "" {
			return notify.ErrMissingEmail
		}
		return e.sendEmail(ctx, p)

	case models.ChannelSMS:
		if p.Phone == "" {
			return notify.ErrMissingPhone
		}
		return e.sendSMS(ctx, p)

	case models.ChannelBoth:
		hasEmail := p.Email != ""
		hasPhone := p.Phone != "" && e.sms != nil
		if !hasEmail && !hasPhone {
			return notify.ErrNoChannelAvailable
		}
		var errs []error
		if hasEmail {
			if err := e.sendEmail(ctx, p); err != nil {
				errs = append(errs, err)
			}
		}
		if hasPhone {
			if err := e.sendSMS(ctx, p); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)

	default:
		return fmt.Errorf("unknown channel %q", p.Channel)
	}
}

func (e *DispatchEngine) sendEmail(ctx context.Context, p dispatchPayload) error {
	timer := prometheus.NewTimer(NotificationSendDuration.WithLabelValues("email"))
	defer timer.ObserveDuration()

	html := fmt.Sprintf("<p>%s</p>", p.Message)
	return e.email.SendEmail(ctx, p.Email, p.Title, p.Message, html)
}

func (e *DispatchEngine) sendSMS(ctx context.Context, p dispatchPayload) error {
	if e.sms == nil {
		return notify.ErrMissingPhone
	}
	timer := prometheus.NewTimer(NotificationSendDuration.WithLabelValues("sms"))
	defer timer.ObserveDuration()

	return e.sms.SendSMS(ctx, p.Phone, p.Message)
}
