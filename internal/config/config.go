package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

type Config struct {
	Port            string
	StoreDriver     string
	DBUser          string
	DBPassword      string
	DBHost          string
	DBName          string
	RedisURL        string
	LogLevel        string
	AwayDelay       time.Duration
	ShutdownTimeout time.Duration
	SeedUsers       bool
}

// LoadConfig reads the environment. Values that fail to parse fall back to
// their defaults.
func LoadConfig() *Config {
	return &Config{
		Port:            getEnv("PORT", "8081"),
		StoreDriver:     getEnv("STORE_DRIVER", StoreMySQL),
		DBUser:          getEnv("DB_USER", "root"),
		DBPassword:      getEnv("DB_PASSWORD", ""),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBName:          getEnv("DB_NAME", "presence_db"),
		RedisURL:        getEnv("REDIS_URL", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		AwayDelay:       getDuration("AWAY_DELAY", 5*time.Minute),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		SeedUsers:       getBool("SEED_USERS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

type Logger struct {
	zerolog.Logger
}

func SetupLogger(cfg *Config) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", "presence").
		Logger()

	return &Logger{logger}
}
