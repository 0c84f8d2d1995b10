package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultLeaderCode = "dev-leader-code"
	DefaultGuestCode  = "dev-guest-code"
	DefaultJWTSecret  = "dev-secret-key-change-in-production"
)

type Config struct {
	Port string `mapstructure:"PORT"`

	DatabaseDriver   string `mapstructure:"DATABASE_DRIVER"`
	DatabasePath     string `mapstructure:"DATABASE_PATH"`
	DatabaseHost     string `mapstructure:"DB_HOST"`
	DatabasePort     int    `mapstructure:"DB_PORT"`
	DatabaseUser     string `mapstructure:"DB_USER"`
	DatabasePassword string `mapstructure:"DB_PASSWORD"`
	DatabaseName     string `mapstructure:"DB_NAME"`

	LeaderCode           string `mapstructure:"SECURITY_CODE_LEADER"`
	GuestCode            string `mapstructure:"SECURITY_CODE_GUEST"`
	GuestAccommodationID uint   `mapstructure:"GUEST_ACCOMMODATION_ID"`
	MinAge               int    `mapstructure:"MIN_AGE"`

	AppURL      string   `mapstructure:"APP_URL"`
	EventName   string   `mapstructure:"EVENT_NAME"`
	AdminEmails []string `mapstructure:"ADMIN_EMAILS"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	ReplyTo      string `mapstructure:"REPLY_TO"`

	NotifyWorkers   int           `mapstructure:"NOTIFY_WORKERS"`
	NotifyQueueSize int           `mapstructure:"NOTIFY_QUEUE_SIZE"`
	NotifyTimeout   time.Duration `mapstructure:"NOTIFY_TIMEOUT"`

	DiscordClientID               string   `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret           string   `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL            string   `mapstructure:"DISCORD_REDIRECT_URL"`
	DiscordGuildID                string   `mapstructure:"DISCORD_GUILD_ID"`
	DiscordBotToken               string   `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string   `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
	AdminDiscordIDs               []string `mapstructure:"ADMIN_DISCORD_IDS"`
	JWTSecret                     string   `mapstructure:"JWT_SECRET"`

	EnableCORS  bool     `mapstructure:"ENABLE_CORS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var defaults = map[string]any{
	"PORT":                             "8080",
	"DATABASE_DRIVER":                  "sqlite",
	"DATABASE_PATH":                    "camp.db",
	"DB_HOST":                          "localhost",
	"DB_PORT":                          5432,
	"DB_USER":                          "camp",
	"DB_PASSWORD":                      "",
	"DB_NAME":                          "camp",
	"SECURITY_CODE_LEADER":             DefaultLeaderCode,
	"SECURITY_CODE_GUEST":              DefaultGuestCode,
	"GUEST_ACCOMMODATION_ID":           6,
	"MIN_AGE":                          14,
	"APP_URL":                          "http://127.0.0.1:8080",
	"EVENT_NAME":                       "Youth Camp",
	"ADMIN_EMAILS":                     []string{},
	"SMTP_HOST":                        "",
	"SMTP_PORT":                        587,
	"SMTP_USERNAME":                    "",
	"SMTP_PASSWORD":                    "",
	"SMTP_FROM":                        "noreply@localhost",
	"REPLY_TO":                         "",
	"NOTIFY_WORKERS":                   2,
	"NOTIFY_QUEUE_SIZE":                100,
	"NOTIFY_TIMEOUT":                   "30s",
	"DISCORD_CLIENT_ID":                "",
	"DISCORD_CLIENT_SECRET":            "",
	"DISCORD_REDIRECT_URL":             "http://127.0.0.1:8080/auth/discord/callback",
	"DISCORD_GUILD_ID":                 "",
	"DISCORD_BOT_TOKEN":                "",
	"DISCORD_NOTIFICATIONS_CHANNEL_ID": "",
	"ADMIN_DISCORD_IDS":                []string{},
	"JWT_SECRET":                       DefaultJWTSecret,
	"ENABLE_CORS":                      false,
	"CORS_ORIGINS":                     []string{"*"},
	"LOG_LEVEL":                        "info",
	"LOG_FORMAT":                       "json",
}

// LoadConfig reads defaults, an optional config.yaml in the working
// directory and the environment, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.MinAge < 0 {
		return fmt.Errorf("MIN_AGE must not be negative")
	}
	if c.GuestAccommodationID == 0 {
		return fmt.Errorf("GUEST_ACCOMMODATION_ID is required")
	}
	if c.NotifyWorkers < 1 {
		return fmt.Errorf("NOTIFY_WORKERS must be at least 1")
	}
	if c.NotifyQueueSize < 1 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be at least 1")
	}
	return nil
}

// Warnings lists development defaults that are still in effect and must be
// overridden in production.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.LeaderCode == DefaultLeaderCode {
		warnings = append(warnings, "SECURITY_CODE_LEADER uses the development default")
	}
	if c.GuestCode == DefaultGuestCode {
		warnings = append(warnings, "SECURITY_CODE_GUEST uses the development default")
	}
	if c.JWTSecret == DefaultJWTSecret {
		warnings = append(warnings, "JWT_SECRET uses the development default")
	}
	if c.DatabaseDriver == "postgres" && c.DatabasePassword == "" {
		warnings = append(warnings, "DB_PASSWORD is empty")
	}
	if c.SMTPHost == "" {
		warnings = append(warnings, "SMTP_HOST is empty, emails are disabled")
	}
	return warnings
}

// SMTPAddr is host:port of the mail relay.
func (c *Config) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
}
