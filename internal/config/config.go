package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingJWTSecret is returned when JWT_SECRET is not configured.
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

const minProductionSecretLen = 32

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Env         string
	ServerPort  string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	SwaggerHost string
	LogLevel    string
	CORSOrigins []string

	JWTSecret  string
	JWTIssuer  string
	CookieName string

	StoreTimeout time.Duration
	StoreRetries uint

	SettingsFile  string
	ResetTokenTTL time.Duration
	ResetURLBase  string

	SMTP SMTPConfig

	LoginRate  float64
	LoginBurst int
}

// SMTPConfig holds outbound mail settings used when the settings file has none.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// IsProduction reports whether the process runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load builds Config from the environment (and an optional .env file).
// It fails when the signing secret is absent instead of falling back to a constant.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:         v.GetString("APP_ENV"),
		ServerPort:  v.GetString("SERVER_PORT"),
		MySQLDSN:    v.GetString("MYSQL_DSN"),
		RedisAddr:   v.GetString("REDIS_ADDR"),
		RedisDB:     v.GetInt("REDIS_DB"),
		RedisPass:   v.GetString("REDIS_PASSWORD"),
		SwaggerHost: v.GetString("SWAGGER_HOST"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),

		JWTSecret:  v.GetString("JWT_SECRET"),
		JWTIssuer:  v.GetString("JWT_ISSUER"),
		CookieName: v.GetString("COOKIE_NAME"),

		StoreTimeout: v.GetDuration("STORE_TIMEOUT"),
		StoreRetries: v.GetUint("STORE_RETRIES"),

		SettingsFile:  v.GetString("SETTINGS_FILE"),
		ResetTokenTTL: v.GetDuration("RESET_TOKEN_TTL"),
		ResetURLBase:  v.GetString("RESET_URL_BASE"),

		SMTP: SMTPConfig{
			Host: v.GetString("SMTP_HOST"),
			Port: v.GetInt("SMTP_PORT"),
			User: v.GetString("SMTP_USER"),
			Pass: v.GetString("SMTP_PASS"),
			From: v.GetString("SMTP_FROM"),
		},

		LoginRate:  v.GetFloat64("LOGIN_RATE"),
		LoginBurst: v.GetInt("LOGIN_BURST"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("MYSQL_DSN", "user:password@tcp(localhost:3306)/travelhub?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("JWT_ISSUER", "travelhub")
	v.SetDefault("COOKIE_NAME", "travelhub_session")
	v.SetDefault("STORE_TIMEOUT", 2*time.Second)
	v.SetDefault("STORE_RETRIES", 3)
	v.SetDefault("SETTINGS_FILE", "data/settings.json")
	v.SetDefault("RESET_TOKEN_TTL", time.Hour)
	v.SetDefault("RESET_URL_BASE", "http://localhost:3000/reset-password")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("LOGIN_RATE", 5)
	v.SetDefault("LOGIN_BURST", 10)
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	if c.IsProduction() && len(c.JWTSecret) < minProductionSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProductionSecretLen)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
