package internal

import (
	"os"
	"strconv"
	"time"
)

// LoadConfigFromEnv builds a Config purely from environment variables for
// container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 3000),
			BaseURL:           getEnv("API_BASE_URL", "http://localhost:3000"),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			SessionSecret:     getEnv("SESSION_SECRET", ""),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Source:          getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Gateway: GatewayConfig{
			APIBaseURL:     getEnv("H5_PAYMENT_API_BASE_URL", "https://open.h5zhifu.com"),
			AppID:          getEnv("H5_PAYMENT_APP_ID", ""),
			AppSecret:      getEnv("H5_PAYMENT_APP_SECRET", ""),
			NotifyURL:      getEnv("H5_PAYMENT_NOTIFY_URL", ""),
			RequestTimeout: getEnvAsDuration("H5_PAYMENT_REQUEST_TIMEOUT", 30*time.Second),
			OrderTTL:       getEnvAsDuration("H5_PAYMENT_ORDER_TTL", 2*time.Hour),
		},
		Membership: MembershipConfig{
			BaseURL:        getEnv("MEMBERSHIP_BASE_URL", ""),
			RequestTimeout: getEnvAsDuration("MEMBERSHIP_REQUEST_TIMEOUT", 10*time.Second),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}
