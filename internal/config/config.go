package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/Gwishyman/emailotp/internal/pkg/validate"
)

// Config holds all runtime configuration loaded from environment variables.
// Required fields are enforced by Validate; a missing value prevents startup.
type Config struct {
	DiscordToken  string `validate:"required"`
	CommandPrefix string

	SMTPHost     string
	SMTPPort     int
	SMTPSSL      bool
	SMTPFrom     string `validate:"required"`
	SMTPUsername string
	SMTPPassword string `validate:"required"`

	OTPLength        int
	OTPExpirySeconds int
	EmailWaitSeconds int
	OTPMaxAttempts   int

	// StorageBackend selects where pending records and the ledger live:
	// "file" (in-memory pending + CSV ledger) or "dynamo".
	StorageBackend string `validate:"oneof=file dynamo"`
	LedgerFile     string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	AppPort        string
	AllowedOrigins []string // CORS allowed origins for the ops API
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	PendingVerifications string
	VerifiedUsers        string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		DiscordToken:  getEnv("DISCORD_TOKEN", ""),
		CommandPrefix: getEnv("COMMAND_PREFIX", "!"),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvInt("SMTP_PORT", 465),
		SMTPSSL:      getEnvBool("SMTP_SSL", true),
		SMTPFrom:     getEnv("SMTP_FROM", getEnv("EMAIL_ADDRESS", "")),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", getEnv("EMAIL_PASSWORD", "")),

		OTPLength:        getEnvInt("OTP_LENGTH", 6),
		OTPExpirySeconds: getEnvInt("OTP_EXPIRY_SECONDS", 300),
		EmailWaitSeconds: getEnvInt("EMAIL_WAIT_SECONDS", 60),
		OTPMaxAttempts:   getEnvInt("OTP_MAX_ATTEMPTS", 3),

		StorageBackend: getEnv("STORAGE_BACKEND", "file"),
		LedgerFile:     getEnv("LEDGER_FILE", "stored.csv"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			PendingVerifications: getEnv("DYNAMO_TABLE_PENDING_VERIFICATIONS", "pending_verifications"),
			VerifiedUsers:        getEnv("DYNAMO_TABLE_VERIFIED_USERS", "verified_users"),
		},

		AppPort:        getEnv("APP_PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
	if cfg.SMTPUsername == "" {
		cfg.SMTPUsername = cfg.SMTPFrom
	}
	return cfg
}

// Validate checks required fields; failures are fatal at startup.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
