package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	JWTKey    string
	SaltRound int

	EmailSender string
	Password    string // SMTP Password

	AnalyzeApiUrl string // Chart analysis backend
	AnalyzeApiKey string

	// Subscription parameters applied on key activation
	AiSubscriptionDays   int
	AiMessageQuota       int
	RecoSubscriptionDays int

	// Direct purchase of subscriptions is kept behind this flag; only
	// key-based activation is honored while it is off.
	AllowDirectPayment bool
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:      getEnv("PORT", "3000"),
		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		EmailSender: getEnv("EMAIL_SENDER", ""),
		Password:    getEnv("EMAIL_PASSWORD", ""),

		AnalyzeApiUrl: getEnv("ANALYZE_API_URL", "http://localhost:8090/analyze"),
		AnalyzeApiKey: getEnv("ANALYZE_API_KEY", ""),

		AiSubscriptionDays:   getEnvInt("AI_SUBSCRIPTION_DAYS", 30),
		AiMessageQuota:       getEnvInt("AI_MESSAGE_QUOTA", 100),
		RecoSubscriptionDays: getEnvInt("RECO_SUBSCRIPTION_DAYS", 30),

		AllowDirectPayment: getEnvBool("ALLOW_DIRECT_PAYMENT", false),
	}

	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to bool: %v", key, err)
		return defaultValue
	}
	return boolValue
}
