package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/flagx"
)

// parseFlags populates Config fields from command-line flags. os.Args is
// filtered down to the flags handled here so that other components can
// parse their own.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-d", "-s", "-p", "-w", "-r", "-q", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.DurationVar(&cfg.SettleDelay, "s", cfg.SettleDelay, "delay before syncing after reconnect")
	fs.DurationVar(&cfg.SyncInterval, "p", cfg.SyncInterval, "periodic sync interval, 0 disables")
	fs.DurationVar(&cfg.AlertWindow, "w", cfg.AlertWindow, "budget alert recency window")
	fs.IntVar(&cfg.AlertRetentionDays, "r", cfg.AlertRetentionDays, "alert retention in days")
	fs.StringVar(&cfg.AMQPURL, "q", cfg.AMQPURL, "AMQP URL for alert publishing")
	fs.StringVar(&cfg.HTTPAddr, "l", cfg.HTTPAddr, "local HTTP API listen address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
