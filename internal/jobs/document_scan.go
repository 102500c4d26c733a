package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coursedesk/internal/models"
	"coursedesk/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// pastDueClamp is how far into the future a reminder is pushed when its
// computed schedule date has already passed.
const pastDueClamp = 5 * time.Minute

// DocumentScanner finds student documents nearing expiry and creates pending
// reminders for them. Dedup reads complete before the parallel payload build
// begins, and the build performs no writes; all created reminders become
// visible in a single bulk insert at the end of the tenant pass.
type DocumentScanner struct {
	db         *gorm.DB
	log        *zap.Logger
	runner     *TenantRunner
	windowDays int
	leadDays   int
	smsEnabled bool
}

func NewDocumentScanner(db *gorm.DB, log *zap.Logger, windowDays, leadDays int, smsEnabled bool) *DocumentScanner {
	return &DocumentScanner{
		db:         db,
		log:        log,
		runner:     NewTenantRunner(db, log),
		windowDays: windowDays,
		leadDays:   leadDays,
		smsEnabled: smsEnabled,
	}
}

// ScanSummary reports one scanner run across all tenants.
type ScanSummary struct {
	SweepSummary
	Created          int
	SkippedScheduled int
	SkippedNoContact int
}

// scanCandidate pairs a document with the student it belongs to.
type scanCandidate struct {
	doc      models.StudentDocument
	student  models.Student
	decision notify.ChannelDecision
}

func (s *DocumentScanner) RunOnce(ctx context.Context) (ScanSummary, error) {
	var summary ScanSummary

	sweep, err := s.runner.RunAcrossTenants(ctx, "document_scan", func(ctx context.Context, scope TenantScope) error {
		created, skippedScheduled, skippedNoContact, err := s.scanTenant(ctx, scope)
		summary.Created += created
		summary.SkippedScheduled += skippedScheduled
		summary.SkippedNoContact += skippedNoContact
		return err
	})
	summary.SweepSummary = sweep
	if err != nil {
		JobRunsTotal.WithLabelValues("document_scan", "error").Inc()
		return summary, err
	}

	JobRunsTotal.WithLabelValues("document_scan", "ok").Inc()
	RemindersCreatedTotal.Add(float64(summary.Created))
	return summary, nil
}

func (s *DocumentScanner) scanTenant(ctx context.Context, scope TenantScope) (created, skippedScheduled, skippedNoContact int, err error) {
	now := time.Now()
	today := startOfDay(now)
	windowEnd := today.AddDate(0, 0, s.windowDays+1)

	var docs []models.StudentDocument
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND doc_date >= ? AND doc_date < ?", scope.TenantID, today, windowEnd).
		Find(&docs).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("load expiring documents: %w", err)
	}
	if len(docs) == 0 {
		return 0, 0, 0, nil
	}

	docIDs := make([]uuid.UUID, 0, len(docs))
	studentIDs := make([]uuid.UUID, 0, len(docs))
	for _, d := range docs {
		docIDs = append(docIDs, d.ID)
		studentIDs = append(studentIDs, d.StudentID)
	}

	// Snapshot of existing reminders, taken before any fan-out. A row only
	// blocks regeneration while it is still active: pending or queued with a
	// schedule date no earlier than today. Sent rows are excluded by the
	// query; failed and cancelled rows never block.
	var existing []models.Reminder
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND type = ? AND status <> ? AND student_document_id IN ?",
			scope.TenantID, models.ReminderTypeDocumentExpiry, models.ReminderSent, docIDs).
		Find(&existing).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("load existing reminders: %w", err)
	}

	blocked := make(map[uuid.UUID]bool)
	for _, r := range existing {
		if r.StudentDocumentID == nil {
			continue
		}
		active := r.Status == models.ReminderPending || r.Status == models.ReminderQueued
		if active && !startOfDay(r.ScheduledAt).Before(today) {
			blocked[*r.StudentDocumentID] = true
		}
	}

	// Get all students in one query
	var students []models.Student
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", scope.TenantID, studentIDs).
		Find(&students).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("load students: %w", err)
	}
	studentByID := make(map[uuid.UUID]models.Student, len(students))
	for _, st := range students {
		studentByID[st.ID] = st
	}

	var candidates []scanCandidate
	for _, doc := range docs {
		if blocked[doc.ID] {
			skippedScheduled++
			continue
		}
		student, ok := studentByID[doc.StudentID]
		if !ok {
			continue
		}
		decision := notify.DecideChannel(student.Email, student.Phone, s.smsEnabled)
		if decision.Kind == notify.KindNone {
			skippedNoContact++
			s.log.Warn("document reminder skipped, student has no contact info",
				zap.String("tenant_id", scope.TenantID.String()),
				zap.String("student_id", student.ID.String()),
				zap.String("document_id", doc.ID.String()),
			)
			continue
		}
		candidates = append(candidates, scanCandidate{doc: doc, student: student, decision: decision})
	}
	if len(candidates) == 0 {
		return 0, skippedScheduled, skippedNoContact, nil
	}

	// Bounded-parallel payload build. Workers only compute values into their
	// own slot; the single bulk insert below is the only write.
	reminders := make([]models.Reminder, len(candidates))
	workers := workerCount()
	if workers > len(candidates) {
		workers = len(candidates)
	}

	work := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				reminders[i] = s.buildReminder(scope, candidates[i], now)
			}
		}()
	}
	for i := range candidates {
		work <- i
	}
	close(work)
	wg.Wait()

	if err := s.db.WithContext(ctx).Create(&reminders).Error; err != nil {
		return 0, skippedScheduled, skippedNoContact, fmt.Errorf("insert reminders: %w", err)
	}

	s.log.Info("document scan completed for tenant",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.Int("created", len(reminders)),
		zap.Int("already_scheduled", skippedScheduled),
	)
	return len(reminders), skippedScheduled, skippedNoContact, nil
}

func (s *DocumentScanner) buildReminder(scope TenantScope, c scanCandidate, now time.Time) models.Reminder {
	docDate := *c.doc.DocDate

	scheduledAt := docDate.AddDate(0, 0, -s.leadDays)
	if scheduledAt.Before(now) {
		scheduledAt = now.Add(pastDueClamp)
	}

	title := fmt.Sprintf("%s expires on %s", c.doc.DocumentType, docDate.Format("Jan 2, 2006"))
	message := fmt.Sprintf("Hello %s, your %s document expires on %s. Please renew it before the deadline.",
		c.student.FullName, c.doc.DocumentType, docDate.Format("Jan 2, 2006"))

	studentID := c.student.ID
	docID := c.doc.ID
	return models.Reminder{
		TenantID:          scope.TenantID,
		StudentID:         &studentID,
		StudentDocumentID: &docID,
		Type:              models.ReminderTypeDocumentExpiry,
		Channel:           reminderChannel(c.decision.Kind),
		Title:             title,
		Message:           message,
		Status:            models.ReminderPending,
		ScheduledAt:       scheduledAt,
	}
}

func reminderChannel(kind notify.ChannelKind) models.ReminderChannel {
	switch kind {
	case notify.KindBoth:
		return models.ChannelBoth
	case notify.KindSMS:
		return models.ChannelSMS
	default:
		return models.ChannelEmail
	}
}
