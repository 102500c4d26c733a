package config

import (
	"fmt"
	"os"

	"coursedesk/internal/notify"

	"gopkg.in/yaml.v3"
)

// Config is the yaml-backed runtime configuration for the notifier daemon.
// Database credentials stay in the environment (see internal/database).
type Config struct {
	Email   EmailConfig   `yaml:"email"`
	SMS     SMSConfig     `yaml:"sms"`
	Jobs    JobsConfig    `yaml:"jobs"`
	License LicenseConfig `yaml:"license"`
	Digest  DigestConfig  `yaml:"digest"`
}

type EmailConfig struct {
	Provider string          `yaml:"provider"`
	SendGrid *SendGridConfig `yaml:"sendgrid,omitempty"`
}

type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

type SMSConfig struct {
	Provider string        `yaml:"provider"`
	Enabled  bool          `yaml:"enabled"`
	Twilio   *TwilioConfig `yaml:"twilio,omitempty"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type JobsConfig struct {
	Scan     ScanConfig     `yaml:"scan"`
	Dispatch DispatchConfig `yaml:"dispatch"`
}

type ScanConfig struct {
	WindowDays    int `yaml:"window_days"`
	LeadDays      int `yaml:"lead_days"`
	IntervalHours int `yaml:"interval_hours"`
}

type DispatchConfig struct {
	BatchSize       int `yaml:"batch_size"`
	IntervalMinutes int `yaml:"interval_minutes"`
}

type LicenseConfig struct {
	ThresholdDays []int `yaml:"threshold_days"`
	IntervalHours int   `yaml:"interval_hours"`
}

type DigestConfig struct {
	Recipients    []string `yaml:"recipients"`
	IntervalHours int      `yaml:"interval_hours"`
}

// LoadConfig reads and validates the yaml configuration file, applying
// defaults for unset job tuning values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Jobs.Scan.WindowDays == 0 {
		c.Jobs.Scan.WindowDays = 30
	}
	if c.Jobs.Scan.LeadDays == 0 {
		c.Jobs.Scan.LeadDays = 7
	}
	if c.Jobs.Scan.IntervalHours == 0 {
		c.Jobs.Scan.IntervalHours = 24
	}
	if c.Jobs.Dispatch.BatchSize == 0 {
		c.Jobs.Dispatch.BatchSize = 50
	}
	if c.Jobs.Dispatch.IntervalMinutes == 0 {
		c.Jobs.Dispatch.IntervalMinutes = 10
	}
	if c.License.IntervalHours == 0 {
		c.License.IntervalHours = 24
	}
	if len(c.License.ThresholdDays) == 0 {
		c.License.ThresholdDays = []int{30, 14, 7, 3, 1}
	}
	if c.Digest.IntervalHours == 0 {
		c.Digest.IntervalHours = 24
	}
}

// BuildMailer constructs the configured email sender.
func BuildMailer(cfg *Config) (notify.EmailSender, error) {
	switch cfg.Email.Provider {
	case "sendgrid":
		if cfg.Email.SendGrid == nil {
			return nil, fmt.Errorf("missing sendgrid config for email provider")
		}
		return notify.NewSendGridMailer(
			cfg.Email.SendGrid.APIKey,
			cfg.Email.SendGrid.FromEmail,
			cfg.Email.SendGrid.FromName,
		), nil
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Email.Provider)
	}
}

// BuildSMSSender constructs the configured SMS sender, or nil when SMS is
// disabled.
func BuildSMSSender(cfg *Config) (notify.SMSSender, error) {
	if !cfg.SMS.Enabled {
		return nil, nil
	}
	switch cfg.SMS.Provider {
	case "twilio":
		if cfg.SMS.Twilio == nil {
			return nil, fmt.Errorf("missing twilio config for sms provider")
		}
		return notify.NewTwilioSender(
			cfg.SMS.Twilio.AccountSID,
			cfg.SMS.Twilio.AuthToken,
			cfg.SMS.Twilio.FromNumber,
		), nil
	default:
		return nil, fmt.Errorf("unsupported sms provider: %s", cfg.SMS.Provider)
	}
}
