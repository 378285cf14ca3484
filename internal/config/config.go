// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Orders   OrdersConfig   `mapstructure:"orders"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // seconds
}

// DatabaseConfig holds connection settings. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"name"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
	Debug      bool   `mapstructure:"debug"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev bool `mapstructure:"dev"`
	// Migrations runs gorm AutoMigrate at startup.
	Migrations bool `mapstructure:"migrations"`
	// SQLMigrations runs the embedded SQL migrations instead (postgres only).
	SQLMigrations bool `mapstructure:"sql_migrations"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"env"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Prefix string `mapstructure:"prefix"`
}

// PricingConfig names the price table used when an order does not pick one.
type PricingConfig struct {
	DefaultTable string `mapstructure:"default_table"`
}

// JobsConfig sizes the background job pool.
type JobsConfig struct {
	Workers     int           `mapstructure:"workers"`
	QueueSize   int           `mapstructure:"queue_size"`
	StepDelay   time.Duration `mapstructure:"step_delay"`
	LaunchRate  float64       `mapstructure:"launch_rate"` // per caller per second, 0 disables
	LaunchBurst int           `mapstructure:"launch_burst"`
}

// AuthConfig holds identity settings.
type AuthConfig struct {
	SessionSecret  string        `mapstructure:"session_secret"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	CallerCacheTTL time.Duration `mapstructure:"caller_cache_ttl"`
}

// OrdersConfig holds order numbering settings.
type OrdersConfig struct {
	NodeID int64 `mapstructure:"node_id"`
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "sales"),
			Password:   getEnv("DB_PASSWORD", "sales123"),
			DBName:     getEnv("DB_NAME", "sales"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "sales.db"),
			Debug:      getEnvBool("DB_DEBUG", false),
		},
		App: AppConfig{
			Dev:           getEnvBool("DEV", true),
			Migrations:    getEnvBool("MIGRATIONS", false),
			SQLMigrations: getEnvBool("SQL_MIGRATIONS", false),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Environment: getEnv("LOG_ENV", "development"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "sales"),
		},
		Pricing: PricingConfig{
			DefaultTable: getEnv("DEFAULT_PRICE_TABLE", "Default"),
		},
		Jobs: JobsConfig{
			Workers:     getEnvInt("JOB_WORKERS", 4),
			QueueSize:   getEnvInt("JOB_QUEUE_SIZE", 64),
			StepDelay:   getEnvDuration("JOB_STEP_DELAY", time.Second),
			LaunchRate:  getEnvFloat("JOB_LAUNCH_RATE", 1),
			LaunchBurst: getEnvInt("JOB_LAUNCH_BURST", 5),
		},
		Auth: AuthConfig{
			SessionSecret:  getEnv("SESSION_SECRET", ""),
			JWTSecret:      getEnv("JWT_SECRET", ""),
			CallerCacheTTL: getEnvDuration("CALLER_CACHE_TTL", time.Minute),
		},
		Orders: OrdersConfig{
			NodeID: int64(getEnvInt("ORDER_NODE_ID", 1)),
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings such as "500ms" or "2s".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
