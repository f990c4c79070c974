package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Cache         CacheConfig         `mapstructure:"cache"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Capture       CaptureConfig       `mapstructure:"capture"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Email         EmailConfig         `mapstructure:"email"`
	Domains       DomainsConfig       `mapstructure:"domains"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the driver from the URL: postgres:// and
// postgresql:// go to lib/pq, anything else is a SQLite path.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MaxIdle         int           `mapstructure:"max_idle"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type CacheConfig struct {
	EndpointTTL time.Duration `mapstructure:"endpoint_ttl"`
	MaxEntries  int           `mapstructure:"max_entries"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type RateLimitConfig struct {
	APIWritePerMinute int           `mapstructure:"api_write_per_minute"`
	LoginAttempts     int           `mapstructure:"login_attempts"`
	LoginWindow       time.Duration `mapstructure:"login_window"`
	MaxTrackedKeys    int           `mapstructure:"max_tracked_keys"`
}

type CaptureConfig struct {
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

type NotificationsConfig struct {
	WorkerCount     int           `mapstructure:"worker_count"`
	QueueSize       int           `mapstructure:"queue_size"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	SlackWebhookURL string        `mapstructure:"slack_webhook_url"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type EmailConfig struct {
	Provider string     `mapstructure:"provider"`
	SMTP     SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

type DomainsConfig struct {
	PublicBaseURL string `mapstructure:"public_base_url"`
	AppURL        string `mapstructure:"app_url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.url", "data/hooklens.db")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("cache.endpoint_ttl", 5*time.Minute)
	v.SetDefault("cache.max_entries", 10000)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_token_ttl", 7*24*time.Hour)

	v.SetDefault("rate_limit.api_write_per_minute", 100)
	v.SetDefault("rate_limit.login_attempts", 5)
	v.SetDefault("rate_limit.login_window", 15*time.Minute)
	v.SetDefault("rate_limit.max_tracked_keys", 10000)

	v.SetDefault("capture.max_body_bytes", 1<<20)

	v.SetDefault("notifications.worker_count", 4)
	v.SetDefault("notifications.queue_size", 1024)
	v.SetDefault("notifications.retry_attempts", 3)
	v.SetDefault("notifications.retry_backoff", 2*time.Second)
	v.SetDefault("notifications.slack_webhook_url", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "")

	v.SetDefault("email.provider", "smtp")
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.smtp.from_address", "")
	v.SetDefault("email.smtp.from_name", "hooklens")

	v.SetDefault("domains.public_base_url", "http://localhost:8080")
	v.SetDefault("domains.app_url", "http://localhost:3000")
}

// Load reads the YAML file at path and applies environment overrides
// (server.port -> SERVER_PORT). A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Domains.PublicBaseURL = strings.TrimRight(config.Domains.PublicBaseURL, "/")
	return &config, nil
}
