package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DatabaseURL        string
	DoctorStore        string
	MongoURI           string
	MongoDatabase      string
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	AuthJWTSecret      string
	AuthJWTIssuer      string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	MaxConnections     int

	// Appointment ledger
	ConfirmationDelay     time.Duration
	ConfirmPolicy         string
	SchedulerPollInterval time.Duration

	// Chat assistant
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeout     time.Duration
	GeminiAPIKey   string
	GeminiModel    string
	UseMemoryQueue bool
	ChatQueueURL   string
	WorkerCount    int

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Doctor images
	DoctorImagesBucket  string
	DoctorImagesBaseURL string
	ImageURLTTL         time.Duration

	// Email mirror for notifications
	EmailProvider  string
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DoctorStore:        strings.ToLower(strings.TrimSpace(getEnv("DOCTOR_STORE", ""))),
		MongoURI:           getEnv("MONGO_URI", ""),
		MongoDatabase:      getEnv("MONGO_DATABASE", "docbook"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		AuthJWTSecret:      getEnv("AUTH_JWT_SECRET", ""),
		AuthJWTIssuer:      getEnv("AUTH_JWT_ISSUER", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 40),
		MaxConnections:     getEnvAsInt("MAX_CONNECTIONS", 1000),

		ConfirmationDelay:     getEnvAsDuration("CONFIRMATION_DELAY", time.Minute),
		ConfirmPolicy:         strings.ToLower(strings.TrimSpace(getEnv("CONFIRM_POLICY", "pending_only"))),
		SchedulerPollInterval: getEnvAsDuration("SCHEDULER_POLL_INTERVAL", time.Second),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4.1-nano"),
		LLMMaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 300),
		LLMTemperature: getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", ""),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", true),
		ChatQueueURL:   getEnv("CHAT_QUEUE_URL", ""),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		DoctorImagesBucket:  getEnv("DOCTOR_IMAGES_BUCKET", ""),
		DoctorImagesBaseURL: getEnv("DOCTOR_IMAGES_BASE_URL", ""),
		ImageURLTTL:         getEnvAsDuration("IMAGE_URL_TTL", 15*time.Minute),

		EmailProvider:  strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "none"))),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:      getEnv("EMAIL_FROM", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "DocBook"),
	}
}

// ResolvedDoctorStore returns the doctor directory backend, inferring postgres
// when a database URL is configured and nothing was chosen explicitly.
func (c *Config) ResolvedDoctorStore() string {
	switch c.DoctorStore {
	case "memory", "postgres", "mongo":
		return c.DoctorStore
	}
	if strings.TrimSpace(c.DatabaseURL) != "" {
		return "postgres"
	}
	return "memory"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
