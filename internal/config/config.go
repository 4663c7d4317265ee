package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/slot-sniper/internal/luxmed"
	"github.com/jwalitptl/slot-sniper/internal/model"
	"github.com/jwalitptl/slot-sniper/internal/notify"
	"github.com/jwalitptl/slot-sniper/internal/sniper"
)

// Config is the full daemon configuration, merged from one or more
// YAML files with credential overrides taken from the environment.
type Config struct {
	Luxmed  luxmed.Config `mapstructure:"luxmed"`
	Sniper  SniperConfig  `mapstructure:"sniper"`
	History HistoryConfig `mapstructure:"history"`
	Notify  notify.Config `mapstructure:"notify"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type SniperConfig struct {
	LookupDays  int             `mapstructure:"lookup_days" validate:"required,min=1"`
	FailOpen    bool            `mapstructure:"fail_open"`
	Interval    time.Duration   `mapstructure:"interval"`
	FacilityIDs []int           `mapstructure:"facility_ids"`
	Locators    []model.Locator `mapstructure:"locators" validate:"required,min=1,dive"`
}

// Engine returns the engine-facing slice of the sniper section.
func (c SniperConfig) Engine() sniper.Config {
	return sniper.Config{
		LookupDays:  c.LookupDays,
		FailOpen:    c.FailOpen,
		FacilityIDs: c.FacilityIDs,
	}
}

type HistoryConfig struct {
	// Backend selects the identity store implementation.
	Backend string `mapstructure:"backend" validate:"omitempty,oneof=file redis postgres"`

	// Path is the file backend's location; "{email}" is replaced with
	// the portal account so accounts never share a namespace.
	Path string `mapstructure:"path"`

	RedisURL    string `mapstructure:"redis_url"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// envOverrides lets credentials stay out of the YAML files.
type envOverrides struct {
	LuxmedEmail    string `envconfig:"LUXMED_EMAIL"`
	LuxmedPassword string `envconfig:"LUXMED_PASSWORD"`
}

// Load reads and merges the given YAML files in order. Sections merge
// deeply; later files win on scalar conflicts.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one configuration file is required")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	v.SetConfigFile(paths[0])
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", paths[0], err)
	}
	for _, path := range paths[1:] {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to merge config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process("sniper", &env); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}
	if env.LuxmedEmail != "" {
		cfg.Luxmed.Email = env.LuxmedEmail
	}
	if env.LuxmedPassword != "" {
		cfg.Luxmed.Password = env.LuxmedPassword
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Sniper.Interval <= 0 {
		cfg.Sniper.Interval = 30 * time.Minute
	}
	if cfg.History.Backend == "" {
		cfg.History.Backend = "file"
	}
	if cfg.History.Path == "" {
		cfg.History.Path = "sniper-history-{email}.json"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":8081"
	}
	if len(cfg.Notify.Providers) == 0 {
		cfg.Notify.Providers = []string{"console"}
	}
}

func validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	seen := make(map[string]struct{}, len(cfg.Sniper.Locators))
	for _, loc := range cfg.Sniper.Locators {
		name := strings.TrimSpace(loc.Name)
		if _, dup := seen[name]; dup {
			return fmt.Errorf("invalid configuration: duplicate locator name %q", name)
		}
		seen[name] = struct{}{}
	}

	switch cfg.History.Backend {
	case "redis":
		if cfg.History.RedisURL == "" {
			return fmt.Errorf("invalid configuration: history.redis_url is required for the redis backend")
		}
	case "postgres":
		if cfg.History.PostgresDSN == "" {
			return fmt.Errorf("invalid configuration: history.postgres_dsn is required for the postgres backend")
		}
	}
	return nil
}
