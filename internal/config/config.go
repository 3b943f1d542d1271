package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIBaseURL         string // REST API ресторана
	FirebaseAPIKey     string
	FirebaseAuthURL    string // identity toolkit (можно направить на эмулятор)
	FirebaseTokenURL   string // secure token service
	RedisURL           string
	RedisSentinelAddrs []string // Адреса Sentinel (через запятую)
	RedisMasterName    string   // Имя мастера в Sentinel
	StorageOrigin      string   // Терминалы с одинаковым origin делят сессию
	KafkaBrokers       string
	KafkaUsername      string
	KafkaPassword      string
	KafkaCACert        string
	KafkaGroupID       string
	OrderStatusTopic   string
	ServerPort         string
	Environment        string
	TokenRenewalMargin time.Duration // За сколько до истечения обновлять токен
	HTTPTimeout        time.Duration // Таймаут запросов к бэкенду
}

func Load() *Config {
	// Railway может использовать разные имена переменных для Redis
	// Проверяем в порядке приоритета: REDIS_URL, REDISCLOUD_URL, REDISHOST (сборка из частей)
	redisURL := getEnv("REDIS_URL", "")
	if redisURL == "" {
		redisURL = getEnv("REDISCLOUD_URL", "")
	}
	if redisURL == "" {
		redisHost := getEnv("REDISHOST", "")
		redisPort := getEnv("REDISPORT", "6379")
		redisPassword := getEnv("REDISPASSWORD", "")
		redisDB := getEnv("REDISDB", "0")

		if redisHost != "" {
			if redisPassword != "" {
				redisURL = fmt.Sprintf("redis://:%s@%s:%s/%s", redisPassword, redisHost, redisPort, redisDB)
			} else {
				redisURL = fmt.Sprintf("redis://%s:%s/%s", redisHost, redisPort, redisDB)
			}
		}
	}
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0" // Fallback
	}

	var sentinelAddrs []string
	if raw := getEnv("REDIS_SENTINEL_ADDRS", ""); raw != "" {
		for _, addr := range strings.Split(raw, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				sentinelAddrs = append(sentinelAddrs, addr)
			}
		}
	}

	return &Config{
		APIBaseURL:         strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:3000"), "/"),
		FirebaseAPIKey:     getEnv("FIREBASE_API_KEY", ""),
		FirebaseAuthURL:    getEnv("FIREBASE_AUTH_URL", "https://identitytoolkit.googleapis.com"),
		FirebaseTokenURL:   getEnv("FIREBASE_TOKEN_URL", "https://securetoken.googleapis.com"),
		RedisURL:           redisURL,
		RedisSentinelAddrs: sentinelAddrs,
		RedisMasterName:    getEnv("REDIS_MASTER_NAME", "mymaster"),
		StorageOrigin:      getEnv("STORAGE_ORIGIN", "default"),
		KafkaBrokers:       getEnv("KAFKA_BROKERS", ""),
		KafkaUsername:      getEnv("KAFKA_USERNAME", ""),
		KafkaPassword:      getEnv("KAFKA_PASSWORD", ""),
		KafkaCACert:        getEnv("KAFKA_CA_CERT", ""),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", ""), // Пусто = каждый терминал читает все события сам
		OrderStatusTopic:   getEnv("ORDER_STATUS_TOPIC", "order-status"),
		ServerPort:         getEnv("PORT", "8080"),
		Environment:        getEnv("ENV", "development"),
		TokenRenewalMargin: getEnvDuration("TOKEN_RENEWAL_MARGIN", 5*time.Minute),
		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
	}
}

// IsProduction - режим gin release и без подробных логов запросов
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
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

// getEnvDuration принимает "5m", "90s" или число секунд
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if seconds := getEnvInt(key, 0); seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
