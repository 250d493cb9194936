package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration, loaded from the environment.
type Config struct {
	Port        string
	MongoURI    string
	MongoDBName string

	JWTSecret   string
	TokenExpiry time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPSender   string
	SMTPPassword string

	RedisAddr     string
	RedisPassword string

	DeepseekAPIKey string
	DeepseekModel  string

	// Cron spec for the daily reminder batch. A single external trigger
	// is assumed; overlapping runs are not supported.
	ReminderCronSpec string
	BatchTimeout     time.Duration

	RateLimitPerMinute int
}

// LoadConfig reads configuration from the environment, with a .env file
// as a convenience for local development.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "expirycare"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		TokenExpiry:        getEnvDuration("TOKEN_EXPIRY", 72*time.Hour),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPPort:           getEnv("SMTP_PORT", "587"),
		SMTPSender:         os.Getenv("SMTP_SENDER"),
		SMTPPassword:       os.Getenv("SMTP_PASSWORD"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		DeepseekAPIKey:     os.Getenv("DEEPSEEK_API_KEY"),
		DeepseekModel:      getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
		ReminderCronSpec:   getEnv("REMINDER_CRON", "0 8 * * *"),
		BatchTimeout:       getEnvDuration("BATCH_TIMEOUT", 3*time.Minute),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET is required")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("key", key).Warn("Invalid integer in environment, using default")
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logrus.WithField("key", key).Warn("Invalid duration in environment, using default")
		return fallback
	}
	return d
}
