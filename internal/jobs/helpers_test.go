package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"coursedesk/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Tenant{},
		&models.Student{},
		&models.StudentDocument{},
		&models.Reminder{},
		&models.LicenseReminderLog{},
		&models.AuditLog{},
	))
	return db
}

func seedTenant(t *testing.T, db *gorm.DB, name string, expireDate *time.Time, email, phone string) models.Tenant {
	t.Helper()

	tenant := models.Tenant{
		Name:         name,
		IsActive:     true,
		ExpireDate:   expireDate,
		ContactEmail: email,
		ContactPhone: phone,
	}
	require.NoError(t, db.Create(&tenant).Error)
	return tenant
}

func seedStudent(t *testing.T, db *gorm.DB, tenantID uuid.UUID, name, email, phone string) models.Student {
	t.Helper()

	student := models.Student{
		TenantID: tenantID,
		FullName: name,
		Email:    email,
		Phone:    phone,
		IsActive: true,
	}
	require.NoError(t, db.Create(&student).Error)
	return student
}

func seedDocument(t *testing.T, db *gorm.DB, tenantID, studentID uuid.UUID, docType string, docDate time.Time) models.StudentDocument {
	t.Helper()

	doc := models.StudentDocument{
		TenantID:     tenantID,
		StudentID:    studentID,
		DocumentType: docType,
		DocDate:      &docDate,
	}
	require.NoError(t, db.Create(&doc).Error)
	return doc
}

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeEmailSender) SendEmail(ctx context.Context, to, subject, plainContent, htmlContent string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{To: to, Subject: subject, Body: plainContent})
	return nil
}

func (f *fakeEmailSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type sentSMS struct {
	To   string
	Body string
}

type fakeSMSSender struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

func (f *fakeSMSSender) SendSMS(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentSMS{To: to, Body: body})
	return nil
}

func (f *fakeSMSSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type publishedEvent struct {
	EventType string
	Payload   interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{EventType: eventType, Payload: payload})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.EventType
	}
	return types
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
