// Package config loads process configuration: hard-coded defaults, then an
// optional YAML file, then PORTCULLIS_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "PORTCULLIS_"

type Config struct {
	// Env is "dev" or "prod". Dev seeds demo data at startup.
	Env string `yaml:"env" env:"ENV"`

	HTTP      HTTPConfig      `yaml:"http" envPrefix:"HTTP_"`
	GRPC      GRPCConfig      `yaml:"grpc" envPrefix:"GRPC_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"DB_"`
	MQTT      MQTTConfig      `yaml:"mqtt" envPrefix:"MQTT_"`
	Bridge    BridgeConfig    `yaml:"bridge" envPrefix:"BRIDGE_"`
	Events    EventsConfig    `yaml:"events" envPrefix:"EVENTS_"`
	Logging   LoggingConfig   `yaml:"logging" envPrefix:"LOG_"`
	Commands  CommandsConfig  `yaml:"commands" envPrefix:"COMMANDS_"`
	Dashboard DashboardConfig `yaml:"dashboard" envPrefix:"DASHBOARD_"`
}

type HTTPConfig struct {
	Addr              string        `yaml:"addr" env:"ADDR"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
}

type GRPCConfig struct {
	Enabled       bool          `yaml:"enabled" env:"ENABLED"`
	Addr          string        `yaml:"addr" env:"ADDR"`
	CheckInterval time.Duration `yaml:"check_interval" env:"CHECK_INTERVAL"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" env:"DRIVER"`
	Path   string `yaml:"path" env:"PATH"`
	DSN    string `yaml:"dsn" env:"DSN"`
}

type MQTTConfig struct {
	// Enabled runs the bridge inside `serve`.
	Enabled      bool          `yaml:"enabled" env:"ENABLED"`
	Host         string        `yaml:"host" env:"HOST"`
	Port         int           `yaml:"port" env:"PORT"`
	TLS          bool          `yaml:"tls" env:"TLS"`
	ClientID     string        `yaml:"client_id" env:"CLIENT_ID"`
	Username     string        `yaml:"username" env:"USERNAME"`
	Password     string        `yaml:"password" env:"PASSWORD"`
	QoS          int           `yaml:"qos" env:"QOS"`
	TopicPrefix  string        `yaml:"topic_prefix" env:"TOPIC_PREFIX"`
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	PullBatch    int           `yaml:"pull_batch" env:"PULL_BATCH"`
}

type BridgeConfig struct {
	// Mode is how the standalone bridge reaches the core: "http" through
	// APIURL, or "inprocess" against the database directly.
	Mode    string        `yaml:"mode" env:"MODE"`
	APIURL  string        `yaml:"api_url" env:"API_URL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// EventsConfig enables the Redis event stream when RedisAddr is set.
type EventsConfig struct {
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
	Stream        string `yaml:"stream" env:"STREAM"`
	MaxLen        int64  `yaml:"max_len" env:"MAX_LEN"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type CommandsConfig struct {
	UnlockTTL time.Duration `yaml:"unlock_ttl" env:"UNLOCK_TTL"`
	PullLimit int           `yaml:"pull_limit" env:"PULL_LIMIT"`
}

type DashboardConfig struct {
	OnlineWindow time.Duration `yaml:"online_window" env:"ONLINE_WINDOW"`
}

func Default() *Config {
	return &Config{
		Env: "dev",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
		},
		GRPC: GRPCConfig{
			Enabled:       true,
			Addr:          ":9090",
			CheckInterval: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "./data/portcullis.db",
		},
		MQTT: MQTTConfig{
			Host:         "localhost",
			Port:         1883,
			ClientID:     "portcullis-bridge",
			QoS:          0,
			TopicPrefix:  "door",
			PollInterval: time.Second,
			PullBatch:    5,
		},
		Bridge: BridgeConfig{
			Mode:    "http",
			APIURL:  "http://localhost:8080",
			Timeout: 10 * time.Second,
		},
		Events: EventsConfig{
			Stream: "portcullis:events",
			MaxLen: 10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Commands: CommandsConfig{
			UnlockTTL: 30 * time.Second,
			PullLimit: 10,
		},
		Dashboard: DashboardConfig{
			OnlineWindow: 2 * time.Minute,
		},
	}
}

// Load reads path (skipped when empty) over the defaults, applies the
// environment and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Env != "dev" && c.Env != "prod" {
		errs = append(errs, "env must be dev or prod")
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, "http.addr is required")
	}
	if c.GRPC.Enabled && c.GRPC.Addr == "" {
		errs = append(errs, "grpc.addr is required when grpc is enabled")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, "database.dsn is required for postgres")
		}
	default:
		errs = append(errs, "database.driver must be sqlite or postgres")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
		errs = append(errs, "mqtt.port must be between 1 and 65535")
	}
	if c.MQTT.PullBatch < 1 || c.MQTT.PullBatch > 50 {
		errs = append(errs, "mqtt.pull_batch must be between 1 and 50")
	}

	switch c.Bridge.Mode {
	case "http":
		if c.Bridge.APIURL == "" {
			errs = append(errs, "bridge.api_url is required in http mode")
		}
	case "inprocess":
	default:
		errs = append(errs, "bridge.mode must be http or inprocess")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, "logging.format must be json or console")
	}

	if c.Commands.UnlockTTL <= 0 {
		errs = append(errs, "commands.unlock_ttl must be positive")
	}
	if c.Commands.PullLimit < 1 || c.Commands.PullLimit > 50 {
		errs = append(errs, "commands.pull_limit must be between 1 and 50")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
