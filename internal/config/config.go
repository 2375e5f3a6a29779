package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Symptom classification providers. A missing Gemini key is not fatal:
	// the classifier degrades to its general-practitioner fallback.
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	// Calendar backend. Missing credentials are a fatal startup error.
	GoogleCredentialsFile string

	// Clinic schedule.
	ClinicTimezone   string
	WorkdayStartHour int
	WorkdayEndHour   int
	SlotDuration     time.Duration

	// Provider table. Empty means the built-in roster.
	ProvidersFile string

	// Session storage. With no redis address sessions stay in memory.
	RedisAddr     string
	RedisPassword string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:                  getEnv("PORT", "8080"),
		Env:                   getEnv("ENV", "development"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CALENDAR_CREDENTIALS_FILE", ""),
		ClinicTimezone:        getEnv("CLINIC_TIMEZONE", "Asia/Kolkata"),
		WorkdayStartHour:      getEnvAsInt("WORKDAY_START_HOUR", 9),
		WorkdayEndHour:        getEnvAsInt("WORKDAY_END_HOUR", 17),
		SlotDuration:          getEnvAsDuration("SLOT_DURATION", 30*time.Minute),
		ProvidersFile:         getEnv("PROVIDERS_FILE", ""),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		CORSAllowedOrigins:    splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

// Validate enforces the configuration errors that must halt startup rather
// than degrade a session: a missing calendar credential, a broken clinic
// schedule, or an unknown timezone.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GoogleCredentialsFile) == "" {
		return fmt.Errorf("config: GOOGLE_CALENDAR_CREDENTIALS_FILE is required")
	}
	if _, err := os.Stat(c.GoogleCredentialsFile); err != nil {
		return fmt.Errorf("config: calendar credentials file: %w", err)
	}
	if _, err := time.LoadLocation(c.ClinicTimezone); err != nil {
		return fmt.Errorf("config: invalid CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err)
	}
	if c.WorkdayStartHour < 0 || c.WorkdayEndHour > 24 || c.WorkdayStartHour >= c.WorkdayEndHour {
		return fmt.Errorf("config: invalid workday hours %d-%d", c.WorkdayStartHour, c.WorkdayEndHour)
	}
	if c.SlotDuration <= 0 {
		return fmt.Errorf("config: SLOT_DURATION must be positive")
	}
	return nil
}

// Location returns the clinic's time zone. Call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
