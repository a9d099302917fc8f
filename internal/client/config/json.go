package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/spendsync/internal/flagx"
	"github.com/dmitrijs2005/spendsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals use
// timex.Duration so they can be written as "3s" or integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	DatabasePath        string         `json:"database_path"`
	SettleDelay         timex.Duration `json:"settle_delay"`
	SyncInterval        timex.Duration `json:"sync_interval"`
	AlertWindow         timex.Duration `json:"alert_window"`
	AlertRetentionDays  int            `json:"alert_retention_days"`
	AMQPURL             string         `json:"amqp_url"`
	AMQPQueue           string         `json:"amqp_queue"`
	HTTPAddr            string         `json:"http_addr"`
}

// parseJson overlays Config with the non-zero values of the JSON file named
// by -c or -config. It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.AMQPURL, jc.AMQPURL)
	setString(&cfg.AMQPQueue, jc.AMQPQueue)
	setString(&cfg.HTTPAddr, jc.HTTPAddr)

	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.SettleDelay.Duration != 0 {
		cfg.SettleDelay = jc.SettleDelay.Duration
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.AlertWindow.Duration != 0 {
		cfg.AlertWindow = jc.AlertWindow.Duration
	}
	if jc.AlertRetentionDays != 0 {
		cfg.AlertRetentionDays = jc.AlertRetentionDays
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
