package jobs

import (
	"context"
	"testing"
	"time"

	"coursedesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentScannerCreatesReminderWithLeadTime(t *testing.T) {
	db := setupTestDB(t)
	tenant := seedTenant(t, db, "Alpha Academy", nil, "", "")
	student := seedStudent(t, db, tenant.ID, "Ada Kaya", "ada@example.com", "+905321112233")
	docDate := startOfDay(time.Now()).AddDate(0, 0, 20)
	doc := seedDocument(t, db, tenant.ID, student.ID, "health_report", docDate)

	scanner := NewDocumentScanner(db, testLogger(), 30, 7, true)
	summary, err := scanner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)

	var reminder models.Reminder
	require.NoError(t, db.Where("student_document_id = ?", doc.ID).First(&reminder).Error)
	assert.Equal(t, models.ReminderPending, reminder.Status)
	assert.Equal(t, models.ChannelBoth, reminder.Channel)
	assert.Equal(t, models.ReminderTypeDocumentExpiry, reminder.Type)
	assert.WithinDuration(t, docDate.AddDate(0, 0, -7), reminder.ScheduledAt, time.Second)
	assert.Contains(t, reminder.Message, "Ada Kaya")
	assert.Contains(t, reminder.Message, "health_report")
}

func TestDocumentScannerClampsPastSchedule(t *testing.T) {
	db := setupTestDB(t)
	tenant := seedTenant(t, db, "Alpha Academy", nil, "", "")
	student := seedStudent(t, db, tenant.ID, "Ada Kaya", "ada@example.com", "")
	docDate := startOfDay(time.Now()).AddDate(0, 0, 5)
	doc := seedDocument(t, db, tenant.ID, student.ID, "residence_permit", docDate)

	before := time.Now()
	scanner := NewDocumentScanner(db, testLogger(), 30, 7, true)
	_, err := scanner.RunOnce(context.Background())
	require.NoError(t, err)

	var reminder models.Reminder
	require.NoError(t, db.Where("student_document_id = ?", doc.ID).First(&reminder).Error)
	assert.True(t, reminder.ScheduledAt.After(before), "clamped schedule must not be in the past")
	assert.True(t, reminder.ScheduledAt.Before(time.Now().Add(pastDueClamp+time.Second)))
}

func TestDocumentScannerIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	tenant := seedTenant(t, db, "Alpha Academy", nil, "", "")
	student := seedStudent(t, db, tenant.ID, "Ada Kaya", "ada@example.com", "")
	docDate := startOfDay(time.Now()).AddDate(0, 0, 20)
	doc := seedDocument(t, db, tenant.ID, student.ID, "health_report", docDate)

	scanner := NewDocumentScanner(db, testLogger(), 30, 7, true)
	_, err := scanner.RunOnce(context.Background())
	require.NoError(t, err)

	summary, err := scanner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 1, summary.SkippedScheduled)

	var count int64
	require.NoError(t, db.Model(&models.Reminder{}).
		Where("student_document_id = ? AND status IN ?", doc.ID, []string{"pending", "queued"}).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDocumentScannerRegeneratesAfterFailure(t *testing.T) {
	db := setupTestDB(t)
	tenant := seedTenant(t, db, "Alpha Academy", nil, "", "")
	student := seedStudent(t, db, tenant.ID, "Ada Kaya", "ada@example.com", "")
	docDate := startOfDay(time.Now()).AddDate(0, 0, 20)
	doc := seedDocument(t, db, tenant.ID, student.ID, "health_report", docDate)

	// A failed reminder is terminal and must not block a fresh one.
	docID := doc.ID
	studentID := student.ID
	failed := models.Reminder{
		TenantID:          tenant.ID,
		StudentID:         &studentID,
		StudentDocumentID: &docID,
		Type:              models.ReminderTypeDocumentExpiry,
		Channel:           models.ChannelEmail,
		Title:             "old",
		Message:           "old",
		Status:            models.ReminderFailed,
		ScheduledAt:       time.Now().AddDate(0, 0, -1),
	}
	require.NoError(t, db.Create(&failed).Error)

	scanner := NewDocumentScanner(db, testLogger(), 30, 7, true)
	summary, err := scanner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)

	var pending int64
	require.NoError(t, db.Model(&models.Reminder{}).
		Where("student_document_id = ? AND status = ?", doc.ID, models.ReminderPending).
		Count(&pending).Error)
	assert.EqualValues(t, 1, pending)
}

func TestDocumentScannerIgnoresDocumentsOutsideWindow(t *testing.T) {
	db := setupTestDB(t)
	tenant := seedTenant(t, db, "Alpha Academy", nil, "", "")
	student := seedStudent(t, db, tenant.ID, "Ada Kaya", "ada@example.com", "")
	today := startOfDay(time.Now())
	seedDocument(t, db, tenant.ID, student.ID, "health_report", today.AddDate(0, 0, 45))
	seedDocument(t, db, tenant.ID, student.ID, "residence_permit", today.AddDate(0, 0, -3))

	scanner := NewDocumentScanner(db, testLogger(), 30, 7, true)
	summary, err := scanner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
}

func TestDocumentScannerSkipsStudentsWithoutContacts(t *testing.T) {
	db := setupTestDB(t)
	tenant := seedTenant(t, db, "Alpha Academy", nil, "", "")
	student := seedStudent(t, db, tenant.ID, "Ada Kaya", "", "")
	seedDocument(t, db, tenant.ID, student.ID, "health_report", startOfDay(time.Now()).AddDate(0, 0, 20))

	scanner := NewDocumentScanner(db, testLogger(), 30, 7, true)
	summary, err := scanner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 1, summary.SkippedNoContact)
}

func TestDocumentScannerSkipsInactiveTenants(t *testing.T) {
	db := setupTestDB(t)
	tenant := seedTenant(t, db, "Closed Branch", nil, "", "")
	require.NoError(t, db.Model(&models.Tenant{}).Where("id = ?", tenant.ID).Update("is_active", false).Error)
	student := seedStudent(t, db, tenant.ID, "Ada Kaya", "ada@example.com", "")
	seedDocument(t, db, tenant.ID, student.ID, "health_report", startOfDay(time.Now()).AddDate(0, 0, 20))

	scanner := NewDocumentScanner(db, testLogger(), 30, 7, true)
	summary, err := scanner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Tenants)
	assert.Equal(t, 0, summary.Created)
}
