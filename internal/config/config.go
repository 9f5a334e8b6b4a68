package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // institution timezones must load on minimal images

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Redis      RedisConfig
	Attendance AttendanceConfig
}

type DatabaseConfig struct {
	Driver       string // postgres or memory
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	QueryTimeout time.Duration

	// Memory driver only: an admin account seeded at startup
	SeedAdminEmail    string
	SeedAdminPassword string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	FrontendURL string
}

// RedisConfig holds the settings cache connection. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// AttendanceConfig holds the attendance policy knobs
type AttendanceConfig struct {
	Timezone              string
	RestDays              []string
	RetentionDays         int
	SweepBatchSize        int
	SweepInterval         time.Duration
	CheckOutRequiresFence bool
	EnforceWorkWindow     bool
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, reading configuration from environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	queryTimeout, err := time.ParseDuration(getEnv("DB_QUERY_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_QUERY_TIMEOUT: %w", err)
	}

	config.Database = DatabaseConfig{
		Driver:       getEnv("DB_DRIVER", "postgres"),
		Host:         getEnv("DB_HOST", "localhost"),
		Port:         dbPort,
		User:         getEnv("DB_USER", "postgres"),
		Password:     getEnv("DB_PASSWORD", ""),
		Name:         getEnv("DB_NAME", "geofence_attendance"),
		SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		QueryTimeout: queryTimeout,

		SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
	}

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	redisTTL, err := time.ParseDuration(getEnv("REDIS_SETTINGS_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_SETTINGS_TTL: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
		TTL:      redisTTL,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Attendance configuration
	retentionDays, err := strconv.Atoi(getEnv("ATTENDANCE_RETENTION_DAYS", "40"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_RETENTION_DAYS: %w", err)
	}

	sweepBatchSize, err := strconv.Atoi(getEnv("ATTENDANCE_SWEEP_BATCH_SIZE", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_SWEEP_BATCH_SIZE: %w", err)
	}

	sweepInterval, err := time.ParseDuration(getEnv("ATTENDANCE_SWEEP_INTERVAL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_SWEEP_INTERVAL: %w", err)
	}

	checkOutRequiresFence, err := strconv.ParseBool(getEnv("ATTENDANCE_CHECKOUT_REQUIRES_GEOFENCE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_CHECKOUT_REQUIRES_GEOFENCE: %w", err)
	}

	enforceWorkWindow, err := strconv.ParseBool(getEnv("ATTENDANCE_ENFORCE_WORK_WINDOW", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_ENFORCE_WORK_WINDOW: %w", err)
	}

	config.Attendance = AttendanceConfig{
		Timezone:              getEnv("ATTENDANCE_TIMEZONE", "Asia/Kolkata"),
		RestDays:              getEnvSlice("ATTENDANCE_REST_DAYS", "sunday"),
		RetentionDays:         retentionDays,
		SweepBatchSize:        sweepBatchSize,
		SweepInterval:         sweepInterval,
		CheckOutRequiresFence: checkOutRequiresFence,
		EnforceWorkWindow:     enforceWorkWindow,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "memory" {
		return fmt.Errorf("DB_DRIVER must be 'postgres' or 'memory'")
	}
	if c.Database.Driver == "postgres" && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.LoadLocation(c.Attendance.Timezone); err != nil {
		return fmt.Errorf("invalid ATTENDANCE_TIMEZONE: %w", err)
	}
	if c.Attendance.RetentionDays <= 0 {
		return fmt.Errorf("ATTENDANCE_RETENTION_DAYS must be positive")
	}
	if c.Attendance.SweepBatchSize <= 0 {
		return fmt.Errorf("ATTENDANCE_SWEEP_BATCH_SIZE must be positive")
	}
	return nil
}

// Location returns the institution timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Attendance.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string, fallback string) []string {
	value := getEnv(env, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.ToLower(strings.TrimSpace(part)); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
