// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the line server configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Messenger MessengerConfig `mapstructure:"messenger"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP gateway settings
type ServerConfig struct {
	HTTPPort int `mapstructure:"http_port"`
	// APIToken, when set, must be presented by the front-end on every request
	// except the health check.
	APIToken string `mapstructure:"api_token"`
}

// DatabaseConfig selects the durable store
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // sqlite3 or mysql
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// RedisConfig holds the optional redis connection
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// QueueConfig controls persistence of the waiting lines
type QueueConfig struct {
	PersistenceMode string `mapstructure:"persistence_mode"` // snapshot or incremental
	ClearOnShutdown bool   `mapstructure:"clear_on_shutdown"`
}

// ReminderConfig controls the first-in-line reminder
type ReminderConfig struct {
	Delay time.Duration `mapstructure:"delay"`
}

// JobsConfig controls the background job queue and its workers
type JobsConfig struct {
	Backend     string `mapstructure:"backend"` // memory or redis
	Key         string `mapstructure:"key"`
	Capacity    int    `mapstructure:"capacity"`
	Workers     int    `mapstructure:"workers"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

// MessengerConfig selects the outbound messaging transport
type MessengerConfig struct {
	Kind string `mapstructure:"kind"` // websocket, desktop or log
}

// LogConfig controls the logger
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

const envPrefix = "LINE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.api_token", "")
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "./line.db?_foreign_keys=on")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("queue.persistence_mode", "incremental")
	v.SetDefault("queue.clear_on_shutdown", true)
	v.SetDefault("reminder.delay", "60s")
	v.SetDefault("jobs.backend", "memory")
	v.SetDefault("jobs.key", "jobs:line")
	v.SetDefault("jobs.capacity", 256)
	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.max_attempts", 3)
	v.SetDefault("messenger.kind", "websocket")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// LoadConfig loads configuration from .env, the config file and LINE_*
// environment variables, in increasing order of precedence. An empty
// configPath means defaults plus environment only. A configPath that does not
// exist yet is created with the default contents.
func LoadConfig(configPath string) (*Config, *viper.Viper, error) {
	if err := godotenv.Load(); err == nil {
		log.Printf("LoadConfig: loaded .env")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			if err := generateDefaultConfig(configPath); err != nil {
				return nil, nil, fmt.Errorf("failed to generate default config: %w", err)
			}
			log.Printf("LoadConfig: wrote default config to %s", configPath)
		}
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Queue.PersistenceMode {
	case "snapshot", "incremental":
	default:
		return fmt.Errorf("unsupported queue.persistence_mode %q", c.Queue.PersistenceMode)
	}
	switch c.Jobs.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported jobs.backend %q", c.Jobs.Backend)
	}
	if c.Jobs.Backend == "redis" && !c.Redis.Enabled {
		return errors.New("jobs.backend redis requires redis.enabled")
	}
	if c.Reminder.Delay <= 0 {
		return fmt.Errorf("reminder.delay must be positive, got %s", c.Reminder.Delay)
	}
	if c.Jobs.Workers < 1 {
		c.Jobs.Workers = 1
	}
	if c.Jobs.MaxAttempts < 1 {
		c.Jobs.MaxAttempts = 1
	}
	return nil
}

// Watch re-reads the config file whenever it changes on disk and passes the
// decoded result to onChange. Invalid edits are logged and ignored.
func Watch(v *viper.Viper, onChange func(*Config)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			log.Printf("Watch: ignoring invalid config change in %s: %v", e.Name, err)
			return
		}
		log.Printf("Watch: config reloaded from %s", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
}

func generateDefaultConfig(configFile string) error {
	defaultConfig := `# the-line server configuration
server:
  http_port: 8080
  api_token: ""              # shared secret for the front-end, LINE_SERVER_API_TOKEN

database:
  driver: sqlite3            # sqlite3 or mysql
  dsn: "./line.db?_foreign_keys=on"
  max_open_conns: 4

redis:
  enabled: false
  addr: "127.0.0.1:6379"

queue:
  persistence_mode: incremental   # snapshot rewrites the whole queue table per change
  clear_on_shutdown: true

reminder:
  delay: 60s

jobs:
  backend: memory            # memory or redis
  capacity: 256
  workers: 2
  max_attempts: 3

messenger:
  kind: websocket            # websocket, desktop or log

log:
  level: info
  file: ""
`

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return err
	}
	return os.WriteFile(configFile, []byte(defaultConfig), 0644)
}
