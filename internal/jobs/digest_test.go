package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"coursedesk/internal/audit"
	"coursedesk/internal/events"
	"coursedesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryDigestAggregatesAndSends(t *testing.T) {
	db := setupTestDB(t)

	soon := startOfDay(time.Now()).AddDate(0, 0, 3)
	past := startOfDay(time.Now()).AddDate(0, 0, -2)
	seedTenant(t, db, "Alpha Academy", &soon, "a@example.com", "")
	seedTenant(t, db, "Beta College", &past, "b@example.com", "")
	seedTenant(t, db, "Gamma School", nil, "", "")
	inactive := seedTenant(t, db, "Closed Branch", nil, "", "")
	require.NoError(t, db.Model(&models.Tenant{}).Where("id = ?", inactive.ID).Update("is_active", false).Error)

	require.NoError(t, db.Create(&models.AuditLog{
		Action:     "import",
		EntityType: "student",
		Metadata:   models.Metadata{"rows": 12},
	}).Error)

	email := &fakeEmailSender{}
	publisher := &recordingPublisher{}
	digest := NewSummaryDigest(db, testLogger(), email, audit.NewLogger(db), publisher,
		[]string{"ops@example.com", "director@example.com"})

	summary, err := digest.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Recipients)
	assert.Equal(t, 0, summary.Failures)
	require.Equal(t, 2, email.count())

	body := email.sent[0].Body
	assert.Contains(t, body, "Active tenants: 3")
	assert.Contains(t, body, "Expiring within 7 days: 1")
	assert.Contains(t, body, "Already expired: 1")
	assert.Contains(t, body, "Imports: 1")
	assert.Contains(t, body, "Alpha Academy")

	var auditRow models.AuditLog
	require.NoError(t, db.Where("action = ?", audit.ActionLicenseSummarySent).First(&auditRow).Error)
	assert.Equal(t, "tenant", auditRow.EntityType)

	assert.Equal(t, []string{events.LicenseSummarySent}, publisher.eventTypes())
}

func TestSummaryDigestIsolatesRecipientFailures(t *testing.T) {
	db := setupTestDB(t)
	seedTenant(t, db, "Alpha Academy", nil, "", "")

	email := &fakeEmailSender{err: errors.New("mailbox full")}
	digest := NewSummaryDigest(db, testLogger(), email, audit.NewLogger(db), &recordingPublisher{},
		[]string{"ops@example.com", "director@example.com"})

	summary, err := digest.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Recipients)
	assert.Equal(t, 2, summary.Failures)

	// The audit entry is still written even when every send failed.
	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).
		Where("action = ?", audit.ActionLicenseSummarySent).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
