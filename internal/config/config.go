package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Port            string
	MongoURI        string
	DBName          string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CORSOrigins    []string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite string
	CSRFDisabled   bool

	APIRateLimitPerMin    int
	AuthRateLimitPer10Min int

	RecentEventsCap   int
	HeartbeatInterval time.Duration

	DefaultAdminEmail    string
	DefaultAdminPassword string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		Port:            getEnvOrDefault("PORT", "4000"),
		MongoURI:        getEnvOrDefault("MONGO_URI", ""),
		DBName:          getEnvOrDefault("DB_NAME", "collab_platform"),
		JWTSecret:       getEnvOrDefault("JWT_SECRET", "dev-secret-change-me"),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 15, time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 30, 24*time.Hour),

		CORSOrigins:    getListEnv("CORS_ORIGIN", "http://localhost:5173"),
		CookieDomain:   getEnvOrDefault("COOKIE_DOMAIN", ""),
		CookieSecure:   getBoolEnv("COOKIE_SECURE", false),
		CookieSameSite: getEnvOrDefault("COOKIE_SAME_SITE", "lax"),
		CSRFDisabled:   getBoolEnv("CSRF_DISABLED", false),

		APIRateLimitPerMin:    getIntEnv("API_RATE_LIMIT_PER_MIN", 300),
		AuthRateLimitPer10Min: getIntEnv("AUTH_RATE_LIMIT_PER_10MIN", 50),

		RecentEventsCap:   getIntEnv("RECENT_EVENTS_CAP", 120),
		HeartbeatInterval: getDurationEnv("HEARTBEAT_SECONDS", 25, time.Second),

		DefaultAdminEmail:    getEnvOrDefault("DEFAULT_ADMIN_EMAIL", "admin@collab.local"),
		DefaultAdminPassword: getEnvOrDefault("DEFAULT_ADMIN_PASSWORD", "ChangeMe123!"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return strings.EqualFold(value, "true")
	}
	return defaultValue
}

func getListEnv(key, defaultValue string) []string {
	raw := getEnvOrDefault(key, defaultValue)
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
