package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Tenants  []TenantConfig `mapstructure:"tenants"`
	SPAPI    SPAPIConfig    `mapstructure:"spapi"`
	Pull     PullConfig     `mapstructure:"pull"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig holds the settings shared by every tenant connection.
// Per-tenant DSNs live on TenantConfig; pool sizing and migration policy
// are uniform across tenants.
type DatabaseConfig struct {
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// TenantConfig describes one isolated tenant storage context.
type TenantConfig struct {
	ID       string `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	Priority bool   `mapstructure:"priority"`
	Driver   string `mapstructure:"driver"` // postgres or sqlite
	DSN      string `mapstructure:"dsn"`    // postgres DSN or sqlite path
}

type SPAPIConfig struct {
	Endpoint     string            `mapstructure:"endpoint"`
	LWAEndpoint  string            `mapstructure:"lwa_endpoint"`
	ClientID     string            `mapstructure:"client_id"`
	ClientSecret string            `mapstructure:"client_secret"`
	Timeout      time.Duration     `mapstructure:"timeout"`
	// RefreshTokens maps seller credential keys to LWA refresh tokens.
	RefreshTokens map[string]string `mapstructure:"refresh_tokens"`
}

// PullConfig tunes the orchestration engine.
type PullConfig struct {
	MaxRetries          int           `mapstructure:"max_retries"`
	InitialRetryDelay   time.Duration `mapstructure:"initial_retry_delay"`
	MaxRetryDelay       time.Duration `mapstructure:"max_retry_delay"`
	RetryCooldown       time.Duration `mapstructure:"retry_cooldown"`
	StuckGraceWindow    time.Duration `mapstructure:"stuck_grace_window"`
	BreakerThreshold    int           `mapstructure:"breaker_threshold"`
	BreakerTimeout      time.Duration `mapstructure:"breaker_timeout"`
	RateLimitMax        int           `mapstructure:"rate_limit_max"`
	RateLimitWindow     time.Duration `mapstructure:"rate_limit_window"`
	MaxHeapMB           int           `mapstructure:"max_heap_mb"`
}

type ArchiveConfig struct {
	Type      string `mapstructure:"type"` // s3, local, none
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	LocalDir  string `mapstructure:"local_dir"`
}

type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("spapi.endpoint", "https://sellingpartnerapi-na.amazon.com")
	v.SetDefault("spapi.lwa_endpoint", "https://api.amazon.com")
	v.SetDefault("spapi.timeout", 60*time.Second)
	v.SetDefault("pull.max_retries", 3)
	v.SetDefault("pull.initial_retry_delay", 30*time.Second)
	v.SetDefault("pull.max_retry_delay", 10*time.Minute)
	v.SetDefault("pull.retry_cooldown", 48*time.Hour)
	v.SetDefault("pull.stuck_grace_window", time.Hour)
	v.SetDefault("pull.breaker_threshold", 5)
	v.SetDefault("pull.breaker_timeout", 30*time.Second)
	v.SetDefault("pull.rate_limit_max", 5)
	v.SetDefault("pull.rate_limit_window", time.Minute)
	v.SetDefault("pull.max_heap_mb", 1024)
	v.SetDefault("archive.type", "local")
	v.SetDefault("archive.local_dir", "./data/reports")
	v.SetDefault("archive.use_ssl", true)
	v.SetDefault("notify.timeout", 10*time.Second)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("spapi.client_id", "SPAPI_CLIENT_ID")
	v.BindEnv("spapi.client_secret", "SPAPI_CLIENT_SECRET")
	v.BindEnv("archive.access_key", "ARCHIVE_ACCESS_KEY")
	v.BindEnv("archive.secret_key", "ARCHIVE_SECRET_KEY")
	v.BindEnv("notify.webhook_url", "NOTIFY_WEBHOOK_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
