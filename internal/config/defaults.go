package config

import "time"

const (
	DefaultInterval       = time.Minute
	DefaultHTTPAddr       = ":9464"
	DefaultDataDir        = "./buildveto-data"
	DefaultReloadDebounce = 2 * time.Second
	DefaultNotifySubject  = "buildveto.inconsistency"
	DefaultNotifyTimeout  = 5 * time.Second
)

func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.Daemon.Interval <= 0 {
		cfg.Daemon.Interval = DefaultInterval
	}
	if cfg.Daemon.HTTPAddr == "" {
		cfg.Daemon.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Daemon.DataDir == "" {
		cfg.Daemon.DataDir = DefaultDataDir
	}
	if cfg.Daemon.ReloadDebounce <= 0 {
		cfg.Daemon.ReloadDebounce = DefaultReloadDebounce
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	if cfg.Notify.Timeout <= 0 {
		cfg.Notify.Timeout = DefaultNotifyTimeout
	}
}
