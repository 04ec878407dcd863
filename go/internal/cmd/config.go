package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mcdev12/timekeep/go/internal/dbconfig"
	"github.com/mcdev12/timekeep/go/internal/expiry"
	"gopkg.in/yaml.v3"
)

// Config is read from TIMEKEEP_* variables (after .env is loaded) and
// refined by the YAML file at ConfigFile.
type Config struct {
	Port            string        `env:"PORT"                        envDefault:"8080"`
	LogLevel        string        `env:"TIMEKEEP_LOG_LEVEL"          envDefault:"info"`
	Store           string        `env:"TIMEKEEP_STORE"              envDefault:"postgres"`
	SQLitePath      string        `env:"TIMEKEEP_SQLITE_PATH"        envDefault:"data/timekeep.db"`
	ConfigFile      string        `env:"TIMEKEEP_CONFIG"             envDefault:"config.yaml"`
	DirectoryFile   string        `env:"TIMEKEEP_DIRECTORY"          envDefault:"teams.yaml"`
	Timezone        string        `env:"TIMEKEEP_TIMEZONE"`
	MonitorInterval time.Duration `env:"TIMEKEEP_MONITOR_INTERVAL"   envDefault:"60s"`
	AdvisorTick     time.Duration `env:"TIMEKEEP_ADVISOR_TICK"       envDefault:"1s"`
	NATSURL         string        `env:"NATS_URL"`
	TicketURL       string        `env:"TIMEKEEP_TICKET_URL_TEMPLATE"`

	database dbconfig.Config
	policy   expiry.Policy
}

// fileConfig is the YAML layout of ConfigFile.
type fileConfig struct {
	Timezone          string        `yaml:"timezone"`
	TicketURLTemplate string        `yaml:"ticket_url_template"`
	Policy            expiry.Policy `yaml:"policy"`
}

func loadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	dbCfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.database = dbCfg
	cfg.policy = expiry.DefaultPolicy()

	file, err := readConfigFile(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	if file != nil {
		if file.Policy.Cap > 0 {
			cfg.policy.Cap = file.Policy.Cap
		}
		if file.Policy.WarnBefore > 0 {
			cfg.policy.WarnBefore = file.Policy.WarnBefore
		}
		if cfg.Timezone == "" {
			cfg.Timezone = file.Timezone
		}
		if cfg.TicketURL == "" {
			cfg.TicketURL = file.TicketURLTemplate
		}
	}

	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
		}
		cfg.policy.Location = loc
	}

	switch cfg.Store {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unknown store %q (want postgres or sqlite)", cfg.Store)
	}
	return &cfg, nil
}

// readConfigFile returns nil without error when the file does not exist.
func readConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &file, nil
}
