package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

// Config is built once at startup and passed by value; nothing mutates it afterwards.
type Config struct {
	ServiceName    string
	ServiceVersion string

	Host     string
	Port     int
	LogLevel string

	DatabaseURL  string
	StoreTimeout time.Duration

	JWTSecret           []byte
	JWTAlgorithm        string
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	RevokeFamilyOnReuse bool

	KafkaBrokers   []string
	KafkaAuthTopic string

	ESURL        string
	ESUser       string
	ESPassword   string
	ESAuditIndex string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	LoginMaxAttempts int
	LoginLockout     time.Duration

	SessionReportSchedule string
	AuditBuffer           int
}

// Load reads .env when present and then the process environment.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: cannot load .env: %v", err)
	}
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		ServiceName:    EnvDefault("SERVICE_NAME", "auth"),
		ServiceVersion: EnvDefault("SERVICE_VERSION", "dev"),

		Host:     EnvDefault("HOST", "0.0.0.0"),
		Port:     EnvIntDefault("PORT", 7070),
		LogLevel: EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		StoreTimeout: EnvDurationDefault("STORE_TIMEOUT", 3*time.Second),

		JWTSecret:           []byte(os.Getenv("JWT_SECRET_KEY")),
		JWTAlgorithm:        EnvDefault("JWT_ALGORITHM", jwt.SigningMethodHS256.Alg()),
		AccessTTL:           time.Duration(EnvIntDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 15)) * time.Minute,
		RefreshTTL:          time.Duration(EnvIntDefault("REFRESH_TOKEN_EXPIRE_DAYS", 30)) * 24 * time.Hour,
		RevokeFamilyOnReuse: EnvBoolDefault("REVOKE_FAMILY_ON_REUSE", false),

		KafkaBrokers:   CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaAuthTopic: EnvDefault("KAFKA_AUTH_TOPIC", "auth_events"),

		ESURL:        os.Getenv("ES_URL"),
		ESUser:       os.Getenv("ES_USER"),
		ESPassword:   os.Getenv("ES_PASSWORD"),
		ESAuditIndex: EnvDefault("ES_AUDIT_INDEX", "auth-audit"),

		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          EnvIntDefault("REDIS_DB", 0),
		LoginMaxAttempts: EnvIntDefault("LOGIN_MAX_ATTEMPTS", 5),
		LoginLockout:     EnvDurationDefault("LOGIN_LOCKOUT", 15*time.Minute),

		SessionReportSchedule: EnvDefault("SESSION_REPORT_SCHEDULE", "@every 1h"),
		AuditBuffer:           EnvIntDefault("AUDIT_BUFFER", 256),
	}
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) Validate() error {
	if err := requireNonEmpty(c.DatabaseURL, "DATABASE_URL"); err != nil {
		return err
	}
	if err := requireNonEmptyBytes(c.JWTSecret, "JWT_SECRET_KEY"); err != nil {
		return err
	}
	switch c.JWTAlgorithm {
	case jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg():
	default:
		return fmt.Errorf("unsupported JWT_ALGORITHM %q", c.JWTAlgorithm)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.AccessTTL >= c.RefreshTTL {
		return fmt.Errorf("access token lifetime must be shorter than refresh token lifetime")
	}
	return nil
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

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
