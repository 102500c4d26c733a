package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coursedesk/internal/audit"
	"coursedesk/internal/events"
	"coursedesk/internal/models"
	"coursedesk/internal/notify"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SummaryDigest composes a periodic aggregate license report and mails it to
// the configured recipients.
type SummaryDigest struct {
	db         *gorm.DB
	log        *zap.Logger
	email      notify.EmailSender
	audit      *audit.Logger
	publisher  events.Publisher
	recipients []string
}

func NewSummaryDigest(db *gorm.DB, log *zap.Logger, email notify.EmailSender, auditLogger *audit.Logger, publisher events.Publisher, recipients []string) *SummaryDigest {
	return &SummaryDigest{
		db:         db,
		log:        log,
		email:      email,
		audit:      auditLogger,
		publisher:  publisher,
		recipients: recipients,
	}
}

// DigestSummary reports one digest run.
type DigestSummary struct {
	Recipients int
	Failures   int
}

type digestStats struct {
	TotalTenants     int64
	ExpiringSoon     int64
	Expired          int64
	Imports24h       int64
	Exports24h       int64
	ReminderFails24h int64
	Soonest          []models.Tenant
}

func (d *SummaryDigest) RunOnce(ctx context.Context) (DigestSummary, error) {
	stats, err := d.collect(ctx)
	if err != nil {
		JobRunsTotal.WithLabelValues("summary_digest", "error").Inc()
		return DigestSummary{}, err
	}

	subject := fmt.Sprintf("License summary — %s", time.Now().Format("Jan 2, 2006"))
	body := composeDigest(stats)
	html := "<pre>" + body + "</pre>"

	summary := DigestSummary{Recipients: len(d.recipients)}
	for _, recipient := range d.recipients {
		if err := d.email.SendEmail(ctx, recipient, subject, body, html); err != nil {
			summary.Failures++
			d.log.Warn("digest send failed",
				zap.String("recipient", recipient),
				zap.Error(err),
			)
		}
	}

	if err := d.audit.Log(ctx, audit.ActionLicenseSummarySent, "tenant", nil, models.Metadata{
		"total_tenants":         stats.TotalTenants,
		"expiring_within_7d":    stats.ExpiringSoon,
		"expired":               stats.Expired,
		"recipients":            summary.Recipients,
		"failed_recipients":     summary.Failures,
		"reminder_failures_24h": stats.ReminderFails24h,
	}); err != nil {
		d.log.Error("failed to write digest audit entry", zap.Error(err))
	}

	if err := d.publisher.Publish(ctx, events.LicenseSummarySent, map[string]interface{}{
		"total_tenants":      stats.TotalTenants,
		"expiring_within_7d": stats.ExpiringSoon,
		"expired":            stats.Expired,
	}); err != nil {
		d.log.Warn("failed to publish digest event", zap.Error(err))
	}

	JobRunsTotal.WithLabelValues("summary_digest", "ok").Inc()
	return summary, nil
}

func (d *SummaryDigest) collect(ctx context.Context) (digestStats, error) {
	var stats digestStats
	now := time.Now()
	today := startOfDay(now)
	weekOut := today.AddDate(0, 0, 8)
	dayAgo := now.Add(-24 * time.Hour)

	db := d.db.WithContext(ctx)

	if err := db.Model(&models.Tenant{}).
		Where("is_active = ?", true).
		Count(&stats.TotalTenants).Error; err != nil {
		return stats, fmt.Errorf("count tenants: %w", err)
	}
	if err := db.Model(&models.Tenant{}).
		Where("is_active = ? AND expire_date >= ? AND expire_date < ?", true, today, weekOut).
		Count(&stats.ExpiringSoon).Error; err != nil {
		return stats, fmt.Errorf("count expiring tenants: %w", err)
	}
	if err := db.Model(&models.Tenant{}).
		Where("is_active = ? AND expire_date < ?", true, today).
		Count(&stats.Expired).Error; err != nil {
		return stats, fmt.Errorf("count expired tenants: %w", err)
	}
	if err := db.Model(&models.AuditLog{}).
		Where("action = ? AND created_at > ?", "import", dayAgo).
		Count(&stats.Imports24h).Error; err != nil {
		return stats, fmt.Errorf("count imports: %w", err)
	}
	if err := db.Model(&models.AuditLog{}).
		Where("action = ? AND created_at > ?", "export", dayAgo).
		Count(&stats.Exports24h).Error; err != nil {
		return stats, fmt.Errorf("count exports: %w", err)
	}
	if err := db.Model(&models.Reminder{}).
		Where("status = ? AND updated_at > ?", models.ReminderFailed, dayAgo).
		Count(&stats.ReminderFails24h).Error; err != nil {
		return stats, fmt.Errorf("count reminder failures: %w", err)
	}
	if err := db.
		Where("is_active = ? AND expire_date IS NOT NULL AND expire_date >= ?", true, today).
		Order("expire_date ASC").
		Limit(10).
		Find(&stats.Soonest).Error; err != nil {
		return stats, fmt.Errorf("load soonest-expiring tenants: %w", err)
	}

	return stats, nil
}

func composeDigest(stats digestStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Active tenants: %d\n", stats.TotalTenants)
	fmt.Fprintf(&b, "Expiring within 7 days: %d\n", stats.ExpiringSoon)
	fmt.Fprintf(&b, "Already expired: %d\n", stats.Expired)
	fmt.Fprintf(&b, "\nLast 24 hours:\n")
	fmt.Fprintf(&b, "  Imports: %d\n", stats.Imports24h)
	fmt.Fprintf(&b, "  Exports: %d\n", stats.Exports24h)
	fmt.Fprintf(&b, "  Reminder failures: %d\n", stats.ReminderFails24h)

	if len(stats.Soonest) > 0 {
		fmt.Fprintf(&b, "\nSoonest expiring:\n")
		for _, t := range stats.Soonest {
			fmt.Fprintf(&b, "  %s — %s\n", t.Name, t.ExpireDate.Format("Jan 2, 2006"))
		}
	}
	return b.String()
}
