package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Store backends
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all configuration for a POS terminal
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Store    StoreConfig    `mapstructure:"store"`
	Session  SessionConfig  `mapstructure:"session"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RabbitMQConfig holds RabbitMQ connection configuration.
// An empty host disables broker notifications.
type RabbitMQConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`
}

type StoreConfig struct {
	Backend      string        `mapstructure:"backend"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type SessionConfig struct {
	Terminal string        `mapstructure:"terminal"`
	Timezone string        `mapstructure:"timezone"`
	OrderTTL time.Duration `mapstructure:"order_ttl"`
}

type CatalogConfig struct {
	File string `mapstructure:"file"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "pos",
			Password: "pos",
			Database: "pizzas",
			MaxConns: 25,
			MinConns: 5,
		},
		RabbitMQ: RabbitMQConfig{
			Port:  5672,
			User:  "guest",
			VHost: "/",
		},
		Store: StoreConfig{
			Backend:      BackendPostgres,
			WriteTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			Terminal: "bar",
			Timezone: "Local",
			OrderTTL: 30 * time.Minute,
		},
		Catalog: CatalogConfig{
			File: "catalog.yaml",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// SetDefaults registers Default() with viper so unset keys resolve
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.database", d.Database.Database)
	v.SetDefault("database.max_conns", d.Database.MaxConns)
	v.SetDefault("database.min_conns", d.Database.MinConns)
	v.SetDefault("rabbitmq.host", d.RabbitMQ.Host)
	v.SetDefault("rabbitmq.port", d.RabbitMQ.Port)
	v.SetDefault("rabbitmq.user", d.RabbitMQ.User)
	v.SetDefault("rabbitmq.password", d.RabbitMQ.Password)
	v.SetDefault("rabbitmq.vhost", d.RabbitMQ.VHost)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.write_timeout", d.Store.WriteTimeout)
	v.SetDefault("session.terminal", d.Session.Terminal)
	v.SetDefault("session.timezone", d.Session.Timezone)
	v.SetDefault("session.order_ttl", d.Session.OrderTTL)
	v.SetDefault("catalog.file", d.Catalog.File)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// NewViper returns a viper instance with defaults and POS_ environment overrides.
// If path is empty, config.yaml is searched in the working directory.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from path (or ./config.yaml) and the environment.
// A missing default config file is not an error.
func Load(path string) (*Config, error) {
	v := NewViper(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("store.backend must be one of %s, %s; got %q", BackendPostgres, BackendMemory, c.Store.Backend)
	}
	if c.Store.WriteTimeout <= 0 {
		return fmt.Errorf("store.write_timeout must be positive")
	}
	if c.Session.OrderTTL <= 0 {
		return fmt.Errorf("session.order_ttl must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves session.timezone
func (c *Config) Location() (*time.Location, error) {
	if c.Session.Timezone == "" || c.Session.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Session.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid session.timezone %q: %w", c.Session.Timezone, err)
	}
	return loc, nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	vhost := strings.TrimPrefix(c.RabbitMQ.VHost, "/")
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.RabbitMQ.User, c.RabbitMQ.Password),
		Host:   fmt.Sprintf("%s:%d", c.RabbitMQ.Host, c.RabbitMQ.Port),
		Path:   "/" + vhost,
	}
	return u.String()
}

// NotificationsEnabled reports whether a broker is configured
func (c *Config) NotificationsEnabled() bool {
	return c.RabbitMQ.Host != ""
}
