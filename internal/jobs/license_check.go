package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"coursedesk/internal/events"
	"coursedesk/internal/models"
	"coursedesk/internal/notify"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LicenseEvaluator notifies tenant contacts when the days remaining on the
// tenant license exactly equal a configured threshold.
//
// The ledger row written per (tenant, threshold) pair is append-only: a
// crossing is evaluated once and never retried, even when the outcome was
// skipped or failed. A tenant not observed on the exact day misses that
// threshold's notification for good; this is accepted behavior.
type LicenseEvaluator struct {
	db         *gorm.DB
	log        *zap.Logger
	runner     *TenantRunner
	email      notify.EmailSender
	sms        notify.SMSSender
	publisher  events.Publisher
	thresholds []int
	smsEnabled bool
}

func NewLicenseEvaluator(db *gorm.DB, log *zap.Logger, email notify.EmailSender, sms notify.SMSSender, publisher events.Publisher, thresholds []int, smsEnabled bool) *LicenseEvaluator {
	return &LicenseEvaluator{
		db:         db,
		log:        log,
		runner:     NewTenantRunner(db, log),
		email:      email,
		sms:        sms,
		publisher:  publisher,
		thresholds: normalizeThresholds(thresholds),
		smsEnabled: smsEnabled,
	}
}

// normalizeThresholds drops negatives and duplicates and orders largest-first.
func normalizeThresholds(in []int) []int {
	seen := make(map[int]bool)
	out := make([]int, 0, len(in))
	for _, t := range in {
		if t < 0 || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// LicenseRunSummary reports one evaluator run across all tenants.
type LicenseRunSummary struct {
	SweepSummary
	Sent    int
	Failed  int
	Skipped int
}

func (e *LicenseEvaluator) RunOnce(ctx context.Context) (LicenseRunSummary, error) {
	var summary LicenseRunSummary

	sweep, err := e.runner.RunAcrossTenants(ctx, "license_check", func(ctx context.Context, scope TenantScope) error {
		sent, failed, skipped, err := e.evaluateTenant(ctx, scope)
		summary.Sent += sent
		summary.Failed += failed
		summary.Skipped += skipped
		return err
	})
	summary.SweepSummary = sweep
	if err != nil {
		JobRunsTotal.WithLabelValues("license_check", "error").Inc()
		return summary, err
	}

	JobRunsTotal.WithLabelValues("license_check", "ok").Inc()
	return summary, nil
}

func (e *LicenseEvaluator) evaluateTenant(ctx context.Context, scope TenantScope) (sent, failed, skipped int, err error) {
	tenant := scope.Tenant
	if tenant.ExpireDate == nil {
		return 0, 0, 0, nil
	}

	daysRemaining := daysUntil(time.Now(), *tenant.ExpireDate)

	for _, threshold := range e.thresholds {
		// Exact-day match only. A missed day is a missed notification.
		if daysRemaining != threshold {
			continue
		}

		var count int64
		if err := e.db.WithContext(ctx).
			Model(&models.LicenseReminderLog{}).
			Where("tenant_id = ? AND threshold_days = ?", scope.TenantID, threshold).
			Count(&count).Error; err != nil {
			return sent, failed, skipped, fmt.Errorf("check license ledger: %w", err)
		}
		if count > 0 {
			continue
		}

		outcome := e.notifyThreshold(ctx, scope, threshold, daysRemaining)
		switch outcome {
		case models.LicenseReminderSent:
			sent++
		case models.LicenseReminderFailed:
			failed++
		case models.LicenseReminderSkipped:
			skipped++
		}
		LicenseNotificationsTotal.WithLabelValues(string(outcome)).Inc()
	}
	return sent, failed, skipped, nil
}

// notifyThreshold sends for one matched (tenant, threshold) pair and writes
// its ledger row in the same pass. Send failures land in the row, never in the
// returned control flow, so remaining pairs keep evaluating.
func (e *LicenseEvaluator) notifyThreshold(ctx context.Context, scope TenantScope, threshold, daysRemaining int) models.LicenseReminderStatus {
	tenant := scope.Tenant
	decision := notify.DecideChannel(tenant.ContactEmail, tenant.ContactPhone, e.smsEnabled && e.sms != nil)

	if decision.Kind == notify.KindNone {
		row := models.LicenseReminderLog{
			TenantID:      scope.TenantID,
			ThresholdDays: threshold,
			Status:        models.LicenseReminderSkipped,
		}
		if err := e.db.WithContext(ctx).Create(&row).Error; err != nil {
			e.log.Error("failed to write skipped license ledger row",
				zap.String("tenant_id", scope.TenantID.String()),
				zap.Int("threshold_days", threshold),
				zap.Error(err),
			)
		}
		e.log.Warn("license reminder skipped, tenant has no contact info",
			zap.String("tenant_id", scope.TenantID.String()),
			zap.Int("threshold_days", threshold),
		)
		return models.LicenseReminderSkipped
	}

	subject := fmt.Sprintf("License for %s expires in %d days", tenant.Name, daysRemaining)
	body := fmt.Sprintf("The license for %s expires on %s (%d days from now). Renew it to avoid interruption.",
		tenant.Name, tenant.ExpireDate.Format("Jan 2, 2006"), daysRemaining)

	sendErr := e.sendOverChannels(ctx, decision, subject, body)

	now := time.Now()
	row := models.LicenseReminderLog{
		TenantID:      scope.TenantID,
		ThresholdDays: threshold,
		Channel:       string(decision.Kind),
		Recipient:     recipientLabel(decision),
		Status:        models.LicenseReminderSent,
		SentAt:        &now,
	}
	eventType := events.LicenseReminderSent
	if sendErr != nil {
		row.Status = models.LicenseReminderFailed
		row.Error = sendErr.Error()
		row.SentAt = nil
		eventType = events.LicenseReminderFailed
		e.log.Warn("license reminder send failed",
			zap.String("tenant_id", scope.TenantID.String()),
			zap.Int("threshold_days", threshold),
			zap.Error(sendErr),
		)
	}

	if err := e.db.WithContext(ctx).Create(&row).Error; err != nil {
		e.log.Error("failed to write license ledger row",
			zap.String("tenant_id", scope.TenantID.String()),
			zap.Int("threshold_days", threshold),
			zap.Error(err),
		)
	}

	if err := e.publisher.Publish(ctx, eventType, map[string]interface{}{
		"tenant_id":      scope.TenantID.String(),
		"threshold_days": threshold,
		"channel":        string(decision.Kind),
		"recipient":      recipientLabel(decision),
	}); err != nil {
		e.log.Warn("failed to publish license event", zap.String("event", eventType), zap.Error(err))
	}

	return row.Status
}

// sendOverChannels fans the message out to the one or two resolved channels
// concurrently and joins their errors.
func (e *LicenseEvaluator) sendOverChannels(ctx context.Context, decision notify.ChannelDecision, subject, body string) error {
	var wg sync.WaitGroup
	errs := make([]error, 2)

	if decision.Email != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			html := fmt.Sprintf("<p>%s</p>", body)
			errs[0] = e.email.SendEmail(ctx, decision.Email, subject, body, html)
		}()
	}
	if decision.Phone != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[1] = e.sms.SendSMS(ctx, decision.Phone, body)
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

func recipientLabel(decision notify.ChannelDecision) string {
	parts := make([]string, 0, 2)
	if decision.Email != "" {
		parts = append(parts, decision.Email)
	}
	if decision.Phone != "" {
		parts = append(parts, decision.Phone)
	}
	return strings.Join(parts, ",")
}
