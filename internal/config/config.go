package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port string
	Env  string

	JWTSecret string

	// StoreBackend selects the user persistence implementation:
	// memory | redis | mongo | postgres | sheet
	StoreBackend string

	RedisURL  string
	RedisPass string
	RedisDB   int

	MongoURI string
	MongoDB  string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Public Google Sheet URL for the read-only sheet backend.
	SheetURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("ENV", "development"),
		JWTSecret:    getEnv("JWT_SECRET", "secret"),
		StoreBackend: getEnv("STORE_BACKEND", "memory"),
		RedisURL:     getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:    getEnv("REDIS_PASSWORD", ""),
		MongoURI:     getEnv("MONGODB_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:      getEnv("MONGODB_DB", "referral"),
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "postgres"),
		DBPassword:   getEnv("DB_PASSWORD", "postgres"),
		DBName:       getEnv("DB_NAME", "referral"),
		SheetURL:     getEnv("GOOGLE_SHEET_URL", ""),
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %v", err)
	}
	cfg.RedisDB = redisDB

	switch cfg.StoreBackend {
	case "memory", "redis", "mongo", "postgres", "sheet":
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND: %s", cfg.StoreBackend)
	}

	return cfg, nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
