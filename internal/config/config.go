package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Port      string
	DBConn    string
	LogLevel  string
	JWTSecret string

	// BankBIN is the 5-digit issuer prefix for generated account numbers.
	// It is deliberately not validated here: a missing or malformed value
	// surfaces the first time generation is attempted.
	BankBIN string

	// SameOwnerTransfersOnly restricts transfer destinations to accounts of
	// the calling user. Policy switch, on by default.
	SameOwnerTransfersOnly bool

	SSNEncryptionKey string

	RatesURL string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	sameOwnerOnly, err := strconv.ParseBool(getEnv("TRANSFER_SAME_OWNER_ONLY", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSFER_SAME_OWNER_ONLY: %w", err)
	}

	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		DBConn:                 getEnv("DB_CONN", "host=localhost port=5432 user=bank password=bank dbname=bank sslmode=disable"),
		LogLevel:               getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		BankBIN:                getEnv("BANK_BIN", ""),
		SameOwnerTransfersOnly: sameOwnerOnly,
		SSNEncryptionKey:       getEnv("SSN_ENCRYPTION_KEY", ""),
		RatesURL:               getEnv("RATES_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		SMTPHost:               getEnv("SMTP_HOST", "localhost"),
		SMTPPort:               getEnv("SMTP_PORT", "587"),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		SenderEmail:            getEnv("SENDER_EMAIL", "noreply@bank-core.local"),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.SSNEncryptionKey == "" {
		return nil, fmt.Errorf("SSN_ENCRYPTION_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
