package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// PublicBaseURL is the externally reachable origin used to build
	// onboarding return URLs, portal links and access redirects.
	PublicBaseURL string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Stripe    StripeConfig
	Clerk     ClerkConfig
	Analytics AnalyticsConfig
	Redis     RedisConfig
	Portal    PortalConfig
	Reconcile ReconcileConfig
	RateLimit RateLimitConfig

	CORSAllowedOrigins []string
	AppCatalogPath     string
	UIDir              string
}

type StripeConfig struct {
	SecretKey            string
	WebhookSecret        string
	ConnectWebhookSecret string
	AccountCountry       string
	Currency             string
}

type ClerkConfig struct {
	SecretKey     string
	JWTKey        string
	WebhookSecret string
}

type AnalyticsConfig struct {
	WriteKey   string
	Endpoint   string
	HMACSecret string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PortalConfig struct {
	IssueAccessTokens bool
}

type ReconcileConfig struct {
	Interval    time.Duration
	OrphanAfter time.Duration
}

// RateLimitConfig throttles provider-facing routes per organization.
// Rate is tokens per second.
type RateLimitConfig struct {
	Enabled bool
	Rate    float64
	Burst   int
}

var DefaultCORSAllowedOrigins = []string{
	"http://localhost:3000",
	"https://wa.me/18657763192",
	"https://app.happybase.co",
	"https://connect.stripe.com",
	"https://www.happybase.co",
	"https://buy.stripe.com",
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:       getenv("APP_NAME", "happybase"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Environment:   getenv("ENVIRONMENT", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		PublicBaseURL: strings.TrimRight(getenv("PUBLIC_BASE_URL", "https://app.happybase.co"), "/"),
		OTLPEndpoint:  getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DB_TYPE", "postgres"),
		DBHost:            getenv("DB_HOST", "localhost"),
		DBPort:            getenv("DB_PORT", "5432"),
		DBName:            getenv("DB_NAME", "happybase"),
		DBUser:            getenv("DB_USER", "postgres"),
		DBPassword:        getenv("DB_PASSWORD", ""),
		DBSSLMode:         getenv("DB_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DB_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DB_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DB_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DB_CONN_MAX_IDLE_TIME", 60),

		Stripe: StripeConfig{
			SecretKey:            strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			WebhookSecret:        strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			ConnectWebhookSecret: strings.TrimSpace(getenv("STRIPE_CONNECT_WEBHOOK_SECRET", "")),
			AccountCountry:       getenv("STRIPE_ACCOUNT_COUNTRY", "US"),
			Currency:             strings.ToLower(getenv("STRIPE_CURRENCY", "usd")),
		},
		Clerk: ClerkConfig{
			SecretKey:     strings.TrimSpace(getenv("CLERK_SECRET_KEY", "")),
			JWTKey:        strings.TrimSpace(getenv("CLERK_JWT_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("CLERK_WEBHOOK_SECRET", "")),
		},
		Analytics: AnalyticsConfig{
			WriteKey:   strings.TrimSpace(getenv("SEGMENT_WRITE_KEY", "")),
			Endpoint:   strings.TrimSpace(getenv("ANALYTICS_ENDPOINT", "")),
			HMACSecret: strings.TrimSpace(getenv("HMAC_SECRET", "")),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Portal: PortalConfig{
			IssueAccessTokens: getenvBool("PORTAL_ACCESS_TOKENS", false),
		},
		Reconcile: ReconcileConfig{
			Interval:    getenvDuration("RECONCILE_INTERVAL", 10*time.Minute),
			OrphanAfter: getenvDuration("RECONCILE_ORPHAN_AFTER", 15*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Enabled: getenvBool("RATE_LIMIT_ENABLED", false),
			Rate:    getenvFloat("RATE_LIMIT_RATE", 0.2),
			Burst:   getenvInt("RATE_LIMIT_BURST", 5),
		},

		CORSAllowedOrigins: parseList(getenv("CORS_ALLOWED_ORIGINS", ""), DefaultCORSAllowedOrigins),
		AppCatalogPath:     strings.TrimSpace(getenv("APP_CATALOG_PATH", "")),
		UIDir:              strings.TrimSpace(getenv("UI_DIR", "./public")),
	}

	return cfg
}

// IsProduction reports whether the service runs in a production environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(raw string, def []string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}
