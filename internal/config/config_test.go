package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())

	return tmpFile.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `
email:
  provider: sendgrid
  sendgrid:
    api_key: "test-key"
    from_email: "noreply@coursedesk.test"
    from_name: "Coursedesk"
sms:
  provider: twilio
  enabled: true
  twilio:
    account_sid: "AC123"
    auth_token: "secret"
    from_number: "+15551230000"
license:
  threshold_days: [30, 14, 7]
digest:
  recipients:
    - "ops@coursedesk.test"
jobs:
  dispatch:
    interval_minutes: 15
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sendgrid", cfg.Email.Provider)
	assert.Equal(t, "noreply@coursedesk.test", cfg.Email.SendGrid.FromEmail)
	assert.True(t, cfg.SMS.Enabled)
	assert.Equal(t, "AC123", cfg.SMS.Twilio.AccountSID)
	assert.Equal(t, []int{30, 14, 7}, cfg.License.ThresholdDays)
	assert.Equal(t, []string{"ops@coursedesk.test"}, cfg.Digest.Recipients)
	assert.Equal(t, 15, cfg.Jobs.Dispatch.IntervalMinutes)

	// Unset tuning values fall back to defaults.
	assert.Equal(t, 30, cfg.Jobs.Scan.WindowDays)
	assert.Equal(t, 7, cfg.Jobs.Scan.LeadDays)
	assert.Equal(t, 50, cfg.Jobs.Dispatch.BatchSize)
	assert.Equal(t, 24, cfg.Digest.IntervalHours)
}

func TestBuildMailerRequiresProviderConfig(t *testing.T) {
	cfg := &Config{Email: EmailConfig{Provider: "sendgrid"}}
	_, err := BuildMailer(cfg)
	assert.Error(t, err)

	cfg.Email.SendGrid = &SendGridConfig{APIKey: "k", FromEmail: "a@b.c", FromName: "n"}
	mailer, err := BuildMailer(cfg)
	require.NoError(t, err)
	assert.NotNil(t, mailer)
}

func TestBuildMailerRejectsUnknownProvider(t *testing.T) {
	cfg := &Config{Email: EmailConfig{Provider: "pigeon"}}
	_, err := BuildMailer(cfg)
	assert.Error(t, err)
}

func TestBuildSMSSenderDisabled(t *testing.T) {
	cfg := &Config{SMS: SMSConfig{Provider: "twilio", Enabled: false}}
	sender, err := BuildSMSSender(cfg)
	require.NoError(t, err)
	assert.Nil(t, sender)
}

func TestBuildSMSSenderEnabled(t *testing.T) {
	cfg := &Config{SMS: SMSConfig{
		Provider: "twilio",
		Enabled:  true,
		Twilio:   &TwilioConfig{AccountSID: "AC123", AuthToken: "secret", FromNumber: "+15551230000"},
	}}
	sender, err := BuildSMSSender(cfg)
	require.NoError(t, err)
	assert.NotNil(t, sender)
}
