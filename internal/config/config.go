package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	CartStoreSQL   = "sql"
	CartStoreRedis = "redis"
	CartStoreMongo = "mongo"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseURL string

	CartStore     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MongoURI      string
	MongoDatabase string

	KafkaBrokers           []string
	EventsExchange         string
	NotificationRoutingKey string
	PublishTimeout         time.Duration
	CartClearAttempts      int

	JWTSecret []byte
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		slog.Default().Debug(".env not loaded, using process environment", "error", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "shopping"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		CartStore:     strings.ToLower(EnvDefault("CART_STORE", CartStoreSQL)),
		RedisAddr:     EnvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       EnvIntDefault("REDIS_DB", 0),
		MongoURI:      EnvDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: EnvDefault("MONGO_DATABASE", "shopping"),

		KafkaBrokers:           CSV(os.Getenv("KAFKA_BROKERS")),
		EventsExchange:         EnvDefault("EVENTS_EXCHANGE", "shop.events"),
		NotificationRoutingKey: EnvDefault("NOTIFICATION_ROUTING_KEY", "NOTIFICATION_SERVICE"),
		PublishTimeout:         EnvDurationDefault("PUBLISH_TIMEOUT", 5*time.Second),
		CartClearAttempts:      EnvIntDefault("CART_CLEAR_ATTEMPTS", 5),

		JWTSecret: []byte(os.Getenv("JWT_SECRET")),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// EnvDurationDefault accepts Go durations ("750ms", "5s").
func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
