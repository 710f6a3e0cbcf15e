package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env            string
	Port           int
	DBURL          string
	MigrationsPath string

	// auth
	TokenSecret string
	TokenTTL    time.Duration
	AppSecret   string

	// http
	AllowedOrigins []string
	MaxBodyBytes   int64
	AuthRateLimit  int // per minute: login/signup per IP, submit per user

	// status cache
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	StatusCacheTTL time.Duration

	// signature storage
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	Bucket             string
	S3Endpoint         string

	// email
	ResendAPIKey string
	EmailFrom    string

	// receipts
	AppStoreSharedSecret string
	AppStoreLiveURL      string
	AppStoreSandboxURL   string

	OTLPEndpoint     string
	TraceSampleRatio float64
}

func Load() Config {
	// a missing .env is fine, real deployments inject the environment
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = buildDBURL()
	}

	return Config{
		Env:            getEnv("APP_ENV", "dev"),
		Port:           getEnvInt("PORT", 8080),
		DBURL:          dbURL,
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),

		TokenSecret: getEnv("WEB_TOKEN_SECRET", "dev-secret-change-me"),
		TokenTTL:    getEnvDuration("JWT_TTL", 30*24*time.Hour),
		AppSecret:   os.Getenv("APP_SECRET"),

		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		MaxBodyBytes:   int64(getEnvInt("MAX_BODY_BYTES", 5<<20)),
		AuthRateLimit:  getEnvInt("AUTH_RATE_LIMIT", 20),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		StatusCacheTTL: getEnvDuration("STATUS_CACHE_TTL", 30*time.Second),

		AWSAccessKeyID:     os.Getenv("CLIENT_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("CLIENT_SECRET_ACCESS_KEY"),
		AWSRegion:          getEnv("CLIENT_AWS_REGION", "us-east-1"),
		Bucket:             os.Getenv("CLIENT_BUCKET"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		EmailFrom:    getEnv("EMAIL_FROM", "Certificates <certificates@example.com>"),

		AppStoreSharedSecret: os.Getenv("APPSTORE_SHARED_SECRET"),
		AppStoreLiveURL:      getEnv("APPSTORE_LIVE_URL", "https://buy.itunes.apple.com/verifyReceipt"),
		AppStoreSandboxURL:   getEnv("APPSTORE_SANDBOX_URL", "https://sandbox.itunes.apple.com/verifyReceipt"),

		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TraceSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
	}
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "certhub")
	pass := getEnv("DB_PASSWORD", "certhub")
	name := getEnv("DB_NAME", "certhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %s=%q is not an int, using %d\n", key, v, fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %s=%q is not a number, using %g\n", key, v, fallback)
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %s=%q is not a duration, using %s\n", key, v, fallback)
			return fallback
		}

		return d
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
