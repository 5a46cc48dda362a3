package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Asset backends selectable with ASSET_BACKEND.
const (
	BackendImageKit   = "imagekit"
	BackendS3         = "s3"
	BackendFilesystem = "filesystem"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	LogLevel         string
	DatabaseURL      string
	DBMaxConns       int
	DBMinConns       int
	JWTSecret        string
	AllowedOrigins   []string
	DefaultLocale    string
	GeoIPDBPath      string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	AssetBackend       string
	UploadFolder       string
	MaxUploadBytes     int64
	ImageKitPublicKey  string
	ImageKitPrivateKey string
	ImageKitUploadURL  string
	StoragePath        string
	StorageBaseURL     string
	S3Region           string
	S3Bucket           string
	S3AccessKeyID      string
	S3SecretAccessKey  string
	S3Endpoint         string
	S3PublicBaseURL    string

	CatalogPath       string
	PollInterval      time.Duration
	PollMaxAttempts   int
	RecomputeDebounce time.Duration
	HistoryLimit      int
	SessionIdleTTL    time.Duration

	StripeSecretKey    string
	StripePriceID      string
	CheckoutSuccessURL string
	CheckoutCancelURL  string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             port,
		LogLevel:         os.Getenv("LOG_LEVEL"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DBMaxConns:       getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:       getEnvInt("DB_MIN_CONNS", 1),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "*")),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "fr"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		AssetBackend:       strings.ToLower(getEnv("ASSET_BACKEND", BackendImageKit)),
		UploadFolder:       getEnv("UPLOAD_FOLDER", "lumina-uploads"),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		ImageKitPublicKey:  os.Getenv("IMAGEKIT_PUBLIC_KEY"),
		ImageKitPrivateKey: os.Getenv("IMAGEKIT_PRIVATE_KEY"),
		ImageKitUploadURL:  os.Getenv("IMAGEKIT_UPLOAD_URL"),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:     getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3AccessKeyID:      os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey:  os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3PublicBaseURL:    os.Getenv("S3_PUBLIC_BASE_URL"),

		CatalogPath:       os.Getenv("CATALOG_PATH"),
		PollInterval:      getEnvDuration("POLL_INTERVAL_MS", 5*time.Second),
		PollMaxAttempts:   getEnvInt("POLL_MAX_ATTEMPTS", 60),
		RecomputeDebounce: getEnvDuration("RECOMPUTE_DEBOUNCE_MS", 250*time.Millisecond),
		HistoryLimit:      getEnvInt("HISTORY_LIMIT", 3),
		SessionIdleTTL:    time.Minute * time.Duration(getEnvInt("SESSION_IDLE_TTL_MINUTES", 120)),

		StripeSecretKey:    os.Getenv("STRIPE_SECRET_KEY"),
		StripePriceID:      os.Getenv("STRIPE_PRICE_ID"),
		CheckoutSuccessURL: getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/?checkout=success"),
		CheckoutCancelURL:  getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/?checkout=cancel"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.AssetBackend {
	case BackendImageKit:
		if cfg.ImageKitPublicKey == "" || cfg.ImageKitPrivateKey == "" {
			return nil, fmt.Errorf("IMAGEKIT_PUBLIC_KEY and IMAGEKIT_PRIVATE_KEY are required for the imagekit backend")
		}
	case BackendS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for the s3 backend")
		}
	case BackendFilesystem:
		if cfg.ImageKitPrivateKey == "" {
			// Filesystem uploads are still signed; derive a key for local use.
			cfg.ImageKitPrivateKey = cfg.JWTSecret
		}
	default:
		return nil, fmt.Errorf("unknown ASSET_BACKEND %q", cfg.AssetBackend)
	}
	if cfg.DBMaxConns < 1 || cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("invalid pool size: DB_MIN_CONNS=%d DB_MAX_CONNS=%d", cfg.DBMinConns, cfg.DBMaxConns)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration reads a millisecond count. "0" is a valid value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
