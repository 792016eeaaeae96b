package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	// Database
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	DatabaseURL string

	// Redis
	RedisURL      string
	RedisPassword string

	// Auth
	JWTSecret     string
	TokenTTLHours int
	AdminUsername string
	AdminPassword string

	// Server
	Port        string
	Environment string
	LogLevel    string

	// CORS
	CORSOrigins []string

	// Upload
	UploadDir     string
	MaxUploadSize int64

	// Rate Limiting
	RateLimitRequests       int
	RateLimitWindow         int
	RateLimitBurst          int
	LoginRateLimitRequests  int
	UploadRateLimitRequests int

	// Background
	SchedulerWorkers   int
	StatsRetentionDays int

	// Features
	EnableCache    bool
	EnableMetrics  bool
	SeedDemoLesson bool

	// Site Meta
	SiteName        string
	SiteDescription string
}

func New() *Config {
	c := &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "microscope"),
		DBPassword: getEnv("DB_PASSWORD", "microscope"),
		DBName:     getEnv("DB_NAME", "microscope"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		// Auth
		JWTSecret:     getEnv("JWT_SECRET", "change-this-secret-before-deploying"),
		TokenTTLHours: getEnvAsInt("TOKEN_TTL_HOURS", 72),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// CORS
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		// Upload
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadSize: int64(getEnvAsInt("MAX_UPLOAD_SIZE_MB", 10)) * 1024 * 1024,

		// Rate Limiting
		RateLimitRequests:       getEnvAsInt("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:         getEnvAsInt("RATE_LIMIT_WINDOW", 60),
		RateLimitBurst:          getEnvAsInt("RATE_LIMIT_BURST", 40),
		LoginRateLimitRequests:  getEnvAsInt("LOGIN_RATE_LIMIT_REQUESTS", 10),
		UploadRateLimitRequests: getEnvAsInt("UPLOAD_RATE_LIMIT_REQUESTS", 30),

		// Background
		SchedulerWorkers:   getEnvAsInt("SCHEDULER_WORKERS", 4),
		StatsRetentionDays: getEnvAsInt("STATS_RETENTION_DAYS", 180),

		// Features
		EnableCache:    getEnvAsBool("ENABLE_CACHE", true),
		EnableMetrics:  getEnvAsBool("ENABLE_METRICS", true),
		SeedDemoLesson: getEnvAsBool("SEED_DEMO_LESSON", false),

		// Site Meta
		SiteName:        getEnv("SITE_NAME", "OHS Digital Microscope"),
		SiteDescription: getEnv("SITE_DESCRIPTION", "Interactive microscopy lessons with clickable slide views."),
	}

	// Build DSN unless one is provided outright
	c.DatabaseURL = getEnv("DATABASE_URL", "")
	if c.DatabaseURL == "" {
		c.DatabaseURL = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=%s",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
		)
	}

	return c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "true" || valueStr == "1"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
