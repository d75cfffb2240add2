// Package config defines the bot configuration and how it is loaded.
//
// Conventions:
// - New returns a Config holding every default.
// - Load layers a YAML file and the environment over those defaults.
// - Validate reports problems wrapped in ErrInvalidConfig.
package config

import (
	"time"
)

// Calendar backends.
const (
	CalendarGoogle = "google"
	CalendarICS    = "ics"
	CalendarMemory = "memory"
)

// Idempotency store backends.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the ops HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// DiscordToken is the bot token.
	DiscordToken string `koanf:"discord_token" validate:"required"`

	// ChannelID is the announcement channel the bot listens to.
	ChannelID string `koanf:"channel_id" validate:"required,numeric"`

	// CalendarBackend selects where events are written.
	CalendarBackend string `koanf:"calendar_backend" validate:"oneof=google ics memory"`

	// CalendarID and GoogleCredentials configure the Google backend.
	CalendarID        string `koanf:"calendar_id" validate:"required_if=CalendarBackend google"`
	GoogleCredentials string `koanf:"google_credentials" validate:"required_if=CalendarBackend google"`

	// ICSPath is the calendar file of the ics backend.
	ICSPath string `koanf:"ics_path" validate:"required_if=CalendarBackend ics"`

	// Timezone is the IANA zone announcements are written in.
	Timezone string `koanf:"timezone" validate:"required,timezone"`

	// Categories maps recognized mentions to calendar colour ids. Empty keeps
	// the built-in set.
	Categories map[string]string `koanf:"categories" validate:"dive,keys,startswith=@,endkeys,required"`

	// StoreBackend and StorePath configure processed message persistence.
	StoreBackend string `koanf:"store_backend" validate:"oneof=json sqlite"`
	StorePath    string `koanf:"store_path" validate:"required"`

	// Retention is how long a processed message id is remembered.
	Retention time.Duration `koanf:"retention" validate:"gt=0s"`

	// SyncInterval is the period of the background sweep.
	SyncInterval time.Duration `koanf:"sync_interval" validate:"gte=1s"`

	// CatchUpWindow and CatchUpLimit bound the history fetched per sweep.
	CatchUpWindow time.Duration `koanf:"catchup_window" validate:"gt=0s"`
	CatchUpLimit  int           `koanf:"catchup_limit" validate:"min=1,max=100"`

	// ReconcileHorizon is how far ahead duplicates are looked for.
	ReconcileHorizon time.Duration `koanf:"reconcile_horizon" validate:"gt=0s"`

	// QueueSize bounds the job queue.
	QueueSize int `koanf:"queue_size" validate:"min=1"`

	// WorkerCount sets the number of pipeline workers.
	WorkerCount int `koanf:"worker_count" validate:"min=1"`
}

// New creates a Config holding the defaults. Credentials and the channel id
// have no default.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		CalendarBackend:  CalendarGoogle,
		Timezone:         "Europe/Stockholm",
		StoreBackend:     StoreJSON,
		StorePath:        "processed_messages.json",
		Retention:        time.Hour,
		SyncInterval:     5 * time.Minute,
		CatchUpWindow:    time.Hour,
		CatchUpLimit:     50,
		ReconcileHorizon: 72 * time.Hour,
		QueueSize:        256,
		WorkerCount:      1,
	}
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
