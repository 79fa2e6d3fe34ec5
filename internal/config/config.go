// Package config loads service configuration from a YAML file with
// ${ENV_VAR} placeholder support.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port   int    `yaml:"port"`
		APIKey string `yaml:"api_key"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		BlackoutDays   []int `yaml:"blackout_days"`
		MaxAdvanceDays int   `yaml:"max_advance_days"`
		QueryTimeoutMS int   `yaml:"query_timeout_ms"`
	} `yaml:"booking"`

	Telegram struct {
		BotToken    string `yaml:"bot_token"`
		AdminChatID int64  `yaml:"admin_chat_id"`
		Debug       bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsFile string `yaml:"credentials_file"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		SheetName       string `yaml:"sheet_name"`
		IntervalSeconds int    `yaml:"interval_seconds"`
	} `yaml:"sheets"`

	Audit struct {
		Enabled       bool   `yaml:"enabled"`
		ExportDir     string `yaml:"export_dir"`
		ExportOnStart bool   `yaml:"export_on_start"`
	} `yaml:"audit"`

	// Admins are requester UIDs with administrative rights, seeded into
	// the admins table on startup.
	Admins []string `yaml:"admins"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/slotbook.db"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Sheets.SheetName == "" {
		cfg.Sheets.SheetName = "Bookings"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// BlackoutDays returns the configured maintenance days of month, with
// the reference default of the 22nd and 23rd.
func (c *Config) BlackoutDays() []int {
	if len(c.Booking.BlackoutDays) == 0 {
		return []int{22, 23}
	}
	return c.Booking.BlackoutDays
}

// QueryTimeout bounds every store call issued by the core.
func (c *Config) QueryTimeout() time.Duration {
	if c.Booking.QueryTimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Booking.QueryTimeoutMS) * time.Millisecond
}

// BookingMaxAdvance is how far into the future a slot may be reserved.
func (c *Config) BookingMaxAdvance() time.Duration {
	if c.Booking.MaxAdvanceDays <= 0 {
		return 90 * 24 * time.Hour
	}
	return time.Duration(c.Booking.MaxAdvanceDays) * 24 * time.Hour
}

// CacheTTL is the lifetime of cached calendar aggregates.
func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

// SheetsInterval is the polling interval of the sheet sync worker.
func (c *Config) SheetsInterval() time.Duration {
	if c.Sheets.IntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Sheets.IntervalSeconds) * time.Second
}
