// Package config loads the daemon's flat key/value configuration file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level static configuration, loaded from a flat
// `key = value` properties file (not YAML — the file has no sections).
type Config struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`

	WeatherlinkAPIv2Key    string `mapstructure:"weatherlink-apiv2-key"`
	WeatherlinkAPIv2Secret string `mapstructure:"weatherlink-apiv2-secret"`
	FieldClimateKey        string `mapstructure:"fieldclimate-key"`
	FieldClimateSecret     string `mapstructure:"fieldclimate-secret"`
	ObjeniousKey           string `mapstructure:"objenious-key"`

	Threads int `mapstructure:"threads"`

	Control  ControlConfig  `mapstructure:"control"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Store    StoreConfig    `mapstructure:"store"`
	Liveness LivenessConfig `mapstructure:"-"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`

	Disabled ClassSelection `mapstructure:"-"`
}

// ControlConfig configures the control-plane UNIX socket server.
type ControlConfig struct {
	Socket  string `mapstructure:"socket"`
	PIDFile string `mapstructure:"pid_file"`
}

// LogConfig configures structured logging and rotation.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig configures the Prometheus HTTP endpoint.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
	Path   string `mapstructure:"path"`
}

// StoreConfig configures the wide-column and relational sinks.
type StoreConfig struct {
	RelationalDSN string `mapstructure:"relational_dsn"`
}

// LivenessConfig configures the systemd watchdog notifier.
// WatchdogUsec is read from the environment (WATCHDOG_USEC), never from
// this file, matching the original daemon's behavior.
type LivenessConfig struct{}

// ClassSelection records which connector classes are enabled, derived from
// the --no-<class>/--only-<class> CLI flags (spec.md §6), not from the
// config file.
type ClassSelection struct {
	enabled map[string]bool
}

// Classes this daemon recognizes for --no-<class>/--only-<class> flags.
var Classes = []string{
	"mqtt", "synop", "ship", "static", "weatherlink",
	"fieldclimate", "mbdata", "rest", "vp2", "objenious",
}

// NewClassSelection builds a selection from --no-* and --only-* flag sets.
// An --only-<class> flag, if any is set, disables every class except the
// first one encountered in Classes order (matching the original daemon's
// if/else-if chain, where only the first matching --only flag wins).
func NewClassSelection(no map[string]bool, only map[string]bool) ClassSelection {
	enabled := make(map[string]bool, len(Classes))
	for _, c := range Classes {
		enabled[c] = true
	}
	onlySelected := ""
	for _, c := range Classes {
		if only[c] {
			onlySelected = c
			break
		}
	}
	if onlySelected != "" {
		for _, c := range Classes {
			enabled[c] = c == onlySelected
		}
	} else {
		for _, c := range Classes {
			if no[c] {
				enabled[c] = false
			}
		}
	}
	return ClassSelection{enabled: enabled}
}

// Enabled reports whether the named connector class should run.
func (s ClassSelection) Enabled(class string) bool {
	if s.enabled == nil {
		return true
	}
	return s.enabled[class]
}

// Load reads a flat properties-style configuration file (key = value,
// one per line, '#' comments) via viper's "properties" config type.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("properties")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("control.socket", "/var/run/meteodata/control.sock")
	v.SetDefault("control.pid_file", "/var/run/meteodata/meteodata.pid")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "/var/log/meteodata/meteodata.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.compress", true)

	v.SetDefault("metrics.listen", ":9117")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("threads", 1)
	v.SetDefault("shutdown_grace", "10s")
}

func (cfg *Config) validate() error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level: %s", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log.format: %s", cfg.Log.Format)
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	return nil
}
