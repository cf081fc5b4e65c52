package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Auth     AuthConfig
	Catalog  CatalogConfig
	Quiz     QuizConfig
	Events   EventsConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
}

type ServerConfig struct {
	Port          string
	GinMode       string
	CORSOrigins   []string
	SecureCookies bool
}

type DBConfig struct {
	Driver        string // "sqlite" | "postgres"
	Path          string
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	SSLMode       string
	SlowThreshold time.Duration
}

type AuthConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	AllowRegistration bool
	AdminUsername     string
	AdminPassword     string
}

type CatalogConfig struct {
	DataDir string
}

type QuizConfig struct {
	PlayTTL time.Duration
}

type EventsConfig struct {
	Buffer int
	Queue  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	URL string
}

// Load reads the process environment, optionally seeded from a .env file.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] no .env file found, using process environment")
	}

	return &Config{
		Server: ServerConfig{
			Port:          getEnv("PORT", "8080"),
			GinMode:       getEnv("GIN_MODE", ""),
			CORSOrigins:   getEnvAsList("CORS_ORIGINS", []string{"https://vmx-io.github.io"}),
			SecureCookies: getEnvAsBool("SECURE_COOKIES", false),
		},
		DB: DBConfig{
			Driver:        strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			Path:          getEnv("DB_PATH", "quiz.db"),
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "itpec"),
			Password:      getEnv("DB_PASSWORD", ""),
			Name:          getEnv("DB_NAME", "itpec"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			SlowThreshold: getEnvAsDuration("DB_SLOW_THRESHOLD", 200*time.Millisecond),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			TokenTTL:          getEnvAsDuration("JWT_TTL", 24*time.Hour),
			AllowRegistration: getEnvAsBool("ALLOW_AUTH", false),
			AdminUsername:     getEnv("ADMIN_USERNAME", ""),
			AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		},
		Catalog: CatalogConfig{
			DataDir: getEnv("DATA_DIR", "data"),
		},
		Quiz: QuizConfig{
			PlayTTL: getEnvAsDuration("PLAY_TTL", 6*time.Hour),
		},
		Events: EventsConfig{
			Buffer: getEnvAsInt("EVENT_BUFFER", 256),
			Queue:  getEnv("EVENT_QUEUE", "quiz.events"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			URL: getEnv("RABBITMQ_URL", ""),
		},
	}
}

// DSN returns the gorm connection string for the configured driver.
func (c DBConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
		)
	}
	return c.Path
}

func (c RedisConfig) Enabled() bool { return c.Host != "" }

func (c RabbitMQConfig) Enabled() bool { return c.URL != "" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
