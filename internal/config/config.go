package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	LogLevel          string
	DBDriver          string
	SQLitePath        string
	DB_HOST           string
	DB_PORT           string
	DB_USER           string
	DB_PASSWORD       string
	DB_NAME           string
	SessionTimeout    time.Duration
	SweepInterval     time.Duration
	MinPasswordLength int
	KafkaAddress      string
	ES_URL            string
	ES_USER           string
	ES_PASSWORD       string
	ExportsDir        string
	ProductsDir       string
	AdminPassword     string
	UserPassword      string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		Port:              getenvDefault("PORT", "8080"),
		LogLevel:          getenvDefault("LOG_LEVEL", "info"),
		DBDriver:          getenvDefault("DB_DRIVER", "sqlite"),
		SQLitePath:        getenvDefault("SQLITE_PATH", "factories.db"),
		DB_HOST:           os.Getenv("DB_HOST"),
		DB_PORT:           os.Getenv("DB_PORT"),
		DB_USER:           os.Getenv("DB_USER"),
		DB_PASSWORD:       os.Getenv("DB_PASSWORD"),
		DB_NAME:           os.Getenv("DB_NAME"),
		SessionTimeout:    time.Duration(getenvInt("SESSION_TIMEOUT", 3600)) * time.Second,
		SweepInterval:     time.Duration(getenvInt("SESSION_SWEEP_INTERVAL", 0)) * time.Second,
		MinPasswordLength: getenvInt("MIN_PASSWORD_LENGTH", 8),
		KafkaAddress:      os.Getenv("KAFKA_ADDRESS"),
		ES_URL:            os.Getenv("ES_URL"),
		ES_USER:           os.Getenv("ES_USER"),
		ES_PASSWORD:       os.Getenv("ES_PASSWORD"),
		ExportsDir:        getenvDefault("EXPORTS_DIR", "exports"),
		ProductsDir:       getenvDefault("PRODUCTS_DIR", "products"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		UserPassword:      os.Getenv("USER_PASSWORD"),
	}

	return config, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Notice: invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}
