package config

import "time"

// Config holds runtime settings for the spendsync client.
//
// Units: intervals are time.Duration values; AlertRetentionDays is in days.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	DatabasePath        string

	// SettleDelay is waited after coming online before an automatic sync.
	SettleDelay time.Duration
	// SyncInterval enables periodic sync while online when positive.
	SyncInterval time.Duration

	AlertWindow        time.Duration
	AlertRetentionDays int

	// AMQPURL enables publishing alerts to a broker when set.
	AMQPURL   string
	AMQPQueue string

	// HTTPAddr enables the local HTTP API when set.
	HTTPAddr string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.DatabasePath = "spendsync.db"
	c.SettleDelay = time.Second
	c.SyncInterval = 0
	c.AlertWindow = 24 * time.Hour
	c.AlertRetentionDays = 90
	c.AMQPURL = ""
	c.AMQPQueue = "budget_alerts"
	c.HTTPAddr = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
