package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	CartBackendSession = "session"
	CartBackendRedis   = "redis"
	CartBackendMongo   = "mongo"
)

type PayPal struct {
	ClientID     string
	ClientSecret string
	Env          string
	BaseURL      string
	TokenTimeout time.Duration
	OrderTimeout time.Duration
	Currency     string
}

type OrdersDB struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	MigrationsPath string
}

// Enabled reports whether orders should go to PostgreSQL instead of SQLite.
func (o OrdersDB) Enabled() bool {
	return o.Host != ""
}

type Config struct {
	HTTPPort           string
	GRPCHealthPort     string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	DBPath                  string
	MigrationsPath          string
	OrdersMigrationsPath    string
	Orders                  OrdersDB
	CartBackend             string
	RedisAddr               string
	RedisPassword           string
	MongoURI                string
	MongoDBName             string
	KafkaBrokers            []string
	SessionSecret           string
	CookieSecure            bool
	AdminToken              string
	AdminLoginRatePerMinute int

	PayPal PayPal

	LogLevel  string
	LogFormat string

	StaticDir     string
	DiscordInvite string
	NoticeText    string
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	paypalEnv := strings.ToLower(getEnv("PAYPAL_ENV", "sandbox"))

	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		GRPCHealthPort:     getEnv("GRPC_HEALTH_PORT", ""),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 45*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB

		DBPath:               getEnv("DB_PATH", "./storefront.db"),
		MigrationsPath:       getEnv("MIGRATIONS_PATH", "./internal/catalog/migrations"),
		OrdersMigrationsPath: getEnv("ORDERS_MIGRATIONS_PATH", "./internal/orders/migrations/sqlite"),
		Orders: OrdersDB{
			Host:           getEnv("ORDERS_DB_HOST", ""),
			Port:           getInt("ORDERS_DB_PORT", 5432),
			User:           getEnv("ORDERS_DB_USER", "postgres"),
			Password:       getEnv("ORDERS_DB_PASSWORD", "postgres"),
			DBName:         getEnv("ORDERS_DB_NAME", "storefront"),
			MigrationsPath: getEnv("ORDERS_PG_MIGRATIONS_PATH", "./internal/orders/migrations/postgres"),
		},
		CartBackend:             strings.ToLower(getEnv("CART_BACKEND", CartBackendSession)),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		MongoURI:                getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:             getEnv("MONGO_DB_NAME", "storefront"),
		KafkaBrokers:            splitList(getEnv("KAFKA_BROKERS", "")),
		SessionSecret:           getEnv("SESSION_SECRET", getEnv("FLASK_SECRET_KEY", "")),
		CookieSecure:            getBool("COOKIE_SECURE", false),
		AdminToken:              getEnv("ADMIN_TOKEN", ""),
		AdminLoginRatePerMinute: getInt("ADMIN_LOGIN_RATE", 5),

		PayPal: PayPal{
			ClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
			ClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
			Env:          paypalEnv,
			BaseURL:      getEnv("PAYPAL_API_BASE", PayPalBaseURL(paypalEnv)),
			TokenTimeout: 15 * time.Second,
			OrderTimeout: 20 * time.Second,
			Currency:     "EUR",
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		StaticDir:     getEnv("STATIC_DIR", "./static"),
		DiscordInvite: getEnv("DISCORD_INVITE", "https://discord.gg/PAKEISK_SITA"),
		NoticeText:    getEnv("NOTICE_TEXT", "⚠️ Svetainė kuriama (beta)."),
	}
}

// PayPalBaseURL maps PAYPAL_ENV to the REST API host. Anything but "live" is sandbox.
func PayPalBaseURL(env string) string {
	if env == "live" {
		return "https://api-m.paypal.com"
	}
	return "https://api-m.sandbox.paypal.com"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("invalid %s=%q, using %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
