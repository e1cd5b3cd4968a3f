package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port     string
	LogLevel string

	// Central bank key rate shown at /key-rate; off unless enabled
	KeyRateEnabled bool
	CBRURL         string

	// Opening state of the card and credit line
	CreditLimit    decimal.Decimal
	CreditUsed     decimal.Decimal
	InitialBalance decimal.Decimal
	Currency       string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
	NotifyEmail  string

	// Cron spec for the overdue sweep and reminder job; empty disables it
	ReminderSchedule string
	ReminderDays     int

	// Transport simulation, off by default
	SimulatedDelayMinMS int
	SimulatedDelayMaxMS int
	SimulatedErrorRate  float64
}

// NewConfig loads configuration from environment variables. Values from a
// .env file in the working directory are used when present and never
// override the real environment.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		CBRURL:           getEnv("CBR_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		Currency:         getEnv("CURRENCY", "USD"),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnv("SMTP_PORT", "587"),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		SenderEmail:      getEnv("SENDER_EMAIL", "loans@credit-dashboard.local"),
		NotifyEmail:      getEnv("NOTIFY_EMAIL", ""),
		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "0 8 * * *"),
	}

	var err error
	if cfg.CreditLimit, err = getDecimal("CREDIT_LIMIT", "5000"); err != nil {
		return nil, err
	}
	if cfg.CreditUsed, err = getDecimal("CREDIT_USED", "0"); err != nil {
		return nil, err
	}
	if cfg.InitialBalance, err = getDecimal("INITIAL_BALANCE", "1000"); err != nil {
		return nil, err
	}
	if cfg.KeyRateEnabled, err = strconv.ParseBool(getEnv("KEY_RATE_ENABLED", "false")); err != nil {
		return nil, fmt.Errorf("KEY_RATE_ENABLED must be a boolean: %w", err)
	}
	if cfg.ReminderDays, err = getInt("REMINDER_DAYS", "3"); err != nil {
		return nil, err
	}
	if cfg.SimulatedDelayMinMS, err = getInt("SIMULATED_DELAY_MIN_MS", "0"); err != nil {
		return nil, err
	}
	if cfg.SimulatedDelayMaxMS, err = getInt("SIMULATED_DELAY_MAX_MS", "0"); err != nil {
		return nil, err
	}
	rate, err := strconv.ParseFloat(getEnv("SIMULATED_ERROR_RATE", "0"), 64)
	if err != nil {
		return nil, fmt.Errorf("SIMULATED_ERROR_RATE must be a number: %w", err)
	}
	cfg.SimulatedErrorRate = rate

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Currency == "" {
		return fmt.Errorf("CURRENCY is required")
	}
	if c.CreditLimit.IsNegative() {
		return fmt.Errorf("CREDIT_LIMIT must not be negative")
	}
	if c.CreditUsed.IsNegative() || c.CreditUsed.GreaterThan(c.CreditLimit) {
		return fmt.Errorf("CREDIT_USED must be between 0 and CREDIT_LIMIT")
	}
	if c.SMTPHost != "" && c.NotifyEmail == "" {
		return fmt.Errorf("NOTIFY_EMAIL is required when SMTP_HOST is set")
	}
	if c.ReminderDays < 0 {
		return fmt.Errorf("REMINDER_DAYS must not be negative")
	}
	if c.SimulatedDelayMinMS < 0 || c.SimulatedDelayMaxMS < c.SimulatedDelayMinMS {
		return fmt.Errorf("SIMULATED_DELAY_MIN_MS must be between 0 and SIMULATED_DELAY_MAX_MS")
	}
	if c.SimulatedErrorRate < 0 || c.SimulatedErrorRate > 1 {
		return fmt.Errorf("SIMULATED_ERROR_RATE must be between 0 and 1")
	}
	return nil
}

// EmailEnabled reports whether SMTP notifications are configured
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getDecimal(key, defaultVal string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, defaultVal))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal number: %w", key, err)
	}
	return d, nil
}

func getInt(key, defaultVal string) (int, error) {
	n, err := strconv.Atoi(getEnv(key, defaultVal))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
