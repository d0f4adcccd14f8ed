package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	aws_pkg "github.com/eventhub/backend/pkg/aws"
	"github.com/eventhub/backend/services/marketplace-service/database"
	"github.com/eventhub/backend/services/marketplace-service/sender"
)

// Config holds all environment variables for the marketplace-service.
type Config struct {
	Env            string
	Port           string
	DB             database.Config
	JWTSecret      string
	GatewaySecret  string // empty: gateway identity headers are ignored
	AllowedOrigins string
	RateLimit      int // requests per minute per client IP

	OperatorEmail      string
	MailProvider       string // smtp | sendgrid
	SMTP               sender.SMTPConfig
	SendGridAPIKey     string
	MailFromName       string
	MailFunctionURL    string
	MailFunctionKey    string
	MailSNSTopicARN    string
	MailChannelTimeout time.Duration

	Twilio sender.TwilioConfig

	CacheMaxEntries int
	ImageBucket     string
	ImageCDNDomain  string
	ImageURLExpiry  time.Duration

	CloudWatchEnabled bool
}

// secretSource is the part of the Secrets Manager client config needs.
type secretSource interface {
	GetSecretJSON(ctx context.Context, name string) (map[string]string, error)
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8090"),
		DB: database.Config{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Name:     os.Getenv("POSTGRES_DB"),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "Asia/Kolkata"),
		},
		JWTSecret:      os.Getenv("JWT_SECRET"),
		GatewaySecret:  os.Getenv("GATEWAY_SHARED_SECRET"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		RateLimit:      getEnvInt("RATE_LIMIT_PER_MINUTE", 100),

		OperatorEmail: os.Getenv("OPERATOR_EMAIL"),
		MailProvider:  strings.ToLower(getEnv("MAIL_PROVIDER", "smtp")),
		SMTP: sender.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("MAIL_FROM"),
		},
		SendGridAPIKey:     os.Getenv("SENDGRID_API_KEY"),
		MailFromName:       getEnv("MAIL_FROM_NAME", "Event Desk"),
		MailFunctionURL:    os.Getenv("MAIL_FUNCTION_URL"),
		MailFunctionKey:    os.Getenv("MAIL_FUNCTION_KEY"),
		MailSNSTopicARN:    os.Getenv("MAIL_SNS_TOPIC_ARN"),
		MailChannelTimeout: getEnvDuration("MAIL_CHANNEL_TIMEOUT", sender.DefaultChannelTimeout),

		Twilio: sender.TwilioConfig{
			AccountSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:     os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber:    os.Getenv("TWILIO_FROM_NUMBER"),
			DefaultRegion: getEnv("PHONE_DEFAULT_REGION", "IN"),
		},

		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 100),
		ImageBucket:     os.Getenv("S3_BUCKET"),
		ImageCDNDomain:  os.Getenv("CDN_DOMAIN"),
		ImageURLExpiry:  getEnvDuration("S3_URL_EXPIRY", time.Hour),

		CloudWatchEnabled: os.Getenv("CLOUDWATCH_ENABLED") == "true",
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := aws_pkg.LoadAWSConfig(context.Background()); err == nil {
			applySecrets(context.Background(), cfg, aws_pkg.NewSecretsClient(awsCfg))
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySecrets overlays Secrets Manager values on cfg. Missing secrets leave
// the environment values in place.
func applySecrets(ctx context.Context, cfg *Config, sm secretSource) {
	if m, err := sm.GetSecretJSON(ctx, "marketplace/DB_CREDENTIALS"); err == nil {
		setIf(&cfg.DB.User, m["POSTGRES_USER"])
		setIf(&cfg.DB.Password, m["POSTGRES_PASSWORD"])
		setIf(&cfg.DB.Name, m["POSTGRES_DB"])
		setIf(&cfg.DB.Host, m["POSTGRES_HOST"])
		setIf(&cfg.DB.Port, m["POSTGRES_PORT"])
	}
	if m, err := sm.GetSecretJSON(ctx, "marketplace/JWT"); err == nil {
		setIf(&cfg.JWTSecret, m["JWT_SECRET"])
		setIf(&cfg.GatewaySecret, m["GATEWAY_SHARED_SECRET"])
	}
	if m, err := sm.GetSecretJSON(ctx, "marketplace/MAIL"); err == nil {
		setIf(&cfg.SMTP.Username, m["SMTP_USERNAME"])
		setIf(&cfg.SMTP.Password, m["SMTP_PASSWORD"])
		setIf(&cfg.SendGridAPIKey, m["SENDGRID_API_KEY"])
		setIf(&cfg.MailFunctionKey, m["MAIL_FUNCTION_KEY"])
		setIf(&cfg.Twilio.AuthToken, m["TWILIO_AUTH_TOKEN"])
	}
}

func (c *Config) validate() error {
	if c.DB.User == "" || c.DB.Password == "" || c.DB.Name == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.OperatorEmail == "" {
		return fmt.Errorf("OPERATOR_EMAIL is required")
	}
	if c.MailProvider != "smtp" && c.MailProvider != "sendgrid" {
		return fmt.Errorf("MAIL_PROVIDER must be smtp or sendgrid, got %q", c.MailProvider)
	}
	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}
