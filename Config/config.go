package Config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"LiveSupport/Models"
)

type Config struct {
	Port           string
	MongoURI       string
	MongoDB        string
	StoreDriver    string
	JWTSecret      string
	MaxSessions    int
	TypingTTLMS    int64
	AssignRetries  int
	LogLevel       string
	CORSOrigins    []string
	ShutdownSecs   int
	MongoTimeoutMS int64
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getEnv("MONGO_DB", "livesupport"),
		StoreDriver:    getEnv("STORE_DRIVER", "mongo"),
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret"),
		MaxSessions:    getEnvInt("MAX_SESSIONS_PER_AGENT", Models.DefaultMaxSessions),
		TypingTTLMS:    getEnvInt64("TYPING_TTL_MS", 1000),
		AssignRetries:  getEnvInt("ASSIGN_RETRIES", 3),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CORSOrigins:    strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
		ShutdownSecs:   getEnvInt("SHUTDOWN_GRACE_SECS", 10),
		MongoTimeoutMS: getEnvInt64("MONGO_TIMEOUT_MS", 5000),
	}
}

func (c *Config) TypingTTL() time.Duration {
	return time.Duration(c.TypingTTLMS) * time.Millisecond
}

func (c *Config) MongoTimeout() time.Duration {
	return time.Duration(c.MongoTimeoutMS) * time.Millisecond
}

func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownSecs) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
