package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env        string
	Port       string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	Generation GenerationConfig
	Gate       GateConfig
	OTel       OTelConfig
}

// GenerationConfig controls the text-generation backend and the
// per-run spending guardrails.
type GenerationConfig struct {
	URL               string
	Model             string
	APIKey            string
	Timeout           int // seconds, whole HTTP request
	AttemptTimeout    int // seconds, single section attempt
	RequestsPerSecond float64
	MaxTokens         int
	BudgetUSD         float64
	Concurrency       int
	UseMock           bool
}

// GateConfig carries the persistence-gate thresholds.
type GateConfig struct {
	MinSectionScore             float64
	MinReadyClientSnapshots     int
	MinReadyCompetitorSnapshots int
	CompetitorDegradedFallback  bool
	DetectionRulesPath          string
}

type OTelConfig struct {
	Enabled bool
}

func Load() *Config {
	return &Config{
		Env:        getEnv("ENV", "development"),
		Port:       getEnv("PORT", "9020"),
		DBHost:     getEnv("DB_HOST", "research-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "research_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "research_password"),
		DBName:     getEnv("DB_NAME", "research_db"),
		Generation: GenerationConfig{
			URL:               getEnvWithAlt("GENERATION_URL", "OPENAI_BASE_URL", "http://generation-backend:8000"),
			Model:             getEnv("GENERATION_MODEL", "gpt-4o"),
			APIKey:            getSecret("GENERATION_API_KEY", "GENERATION_API_KEY_FILE", ""),
			Timeout:           getEnvInt("GENERATION_TIMEOUT_SECONDS", 120),
			AttemptTimeout:    getEnvInt("GENERATION_ATTEMPT_TIMEOUT_SECONDS", 90),
			RequestsPerSecond: getEnvFloat("GENERATION_RPS", 2.0),
			MaxTokens:         getEnvInt("GENERATION_MAX_TOKENS", 1200),
			BudgetUSD:         getEnvFloat("GENERATION_BUDGET_USD", 1.50),
			Concurrency:       getEnvInt("GENERATION_SECTION_CONCURRENCY", 2),
			UseMock:           getEnvBool("USE_MOCK_GENERATOR", false),
		},
		Gate: GateConfig{
			MinSectionScore:             getEnvFloat("GATE_MIN_SECTION_SCORE", 80),
			MinReadyClientSnapshots:     getEnvInt("GATE_MIN_READY_CLIENT_SNAPSHOTS", 1),
			MinReadyCompetitorSnapshots: getEnvInt("GATE_MIN_READY_COMPETITOR_SNAPSHOTS", 1),
			CompetitorDegradedFallback:  getEnvBool("GATE_COMPETITOR_DEGRADED_FALLBACK", false),
			DetectionRulesPath:          getEnv("DETECTION_RULES_PATH", ""),
		},
		OTel: OTelConfig{
			Enabled: getEnvBool("OTEL_LOGS_ENABLED", false),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	// 1. Try direct environment variable
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}

	// 2. Try reading from file specified by fileEnvKey
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return fallback
}

func getEnvWithAlt(key, altKey, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if value, ok := os.LookupEnv(altKey); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
