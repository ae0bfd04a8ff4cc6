package util

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

//nolint:gochecknoglobals // here its ok
var once sync.Once

func init() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	})
}

const (
	defaultServerAddr      = "localhost:8080"
	defaultWriteTimeout    = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultGracefulTimeout = 5 * time.Second

	defaultAppName = "WEQ API"
	defaultEnv     = "dev"
	defaultVersion = "0.1.0"

	defaultJWTKeys       = "key-1:change-me"
	defaultActiveKeyID   = "key-1"
	defaultJWTAlgorithm  = "HS256"
	defaultJWTAudience   = "weq-api"
	defaultJWTIssuer     = "weq-auth-service"
	defaultAccessMinutes = 30

	defaultLoginRateLimit  = 5
	defaultLoginRateWindow = 60 * time.Second

	defaultThrottleRPS     = 50.0
	defaultThrottleBurst   = 100
	defaultThrottleExpires = 3 * time.Minute

	defaultBcryptCost = 12

	defaultDBAdapter          = "postgres"
	defaultSQLiteFile         = "./data/weq.db"
	defaultRevocationBackend  = "db"
	defaultRevocationSweepInt = time.Hour

	JWTLeeWay = 5 * time.Second
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Config is built once in main and handed down to every component.
type Config struct {
	App          *AppConfig
	Server       *ServerConfig
	Token        *TokenConfig
	LoginLimiter *RateLimiterConfig
	Throttle     *ThrottleConfig
	Password     *PasswordConfig
	DB           *DBConfig
	Redis        *RedisConfig
	WebhookURL   string
}

func NewConfig() (*Config, error) {
	app, err := NewAppConfig()
	if err != nil {
		return nil, err
	}
	token, err := NewTokenConfig()
	if err != nil {
		return nil, err
	}
	db, err := NewDBConfig()
	if err != nil {
		return nil, err
	}
	if app.Env == EnvProd && token.HasDefaultSecret() {
		return nil, errors.New("JWT_KEYS must be set in production")
	}

	return &Config{
		App:          app,
		Server:       NewServerConfig(),
		Token:        token,
		LoginLimiter: NewRateLimiterConfig(),
		Throttle:     NewThrottleConfig(),
		Password:     NewPasswordConfig(),
		DB:           db,
		Redis:        NewRedisConfig(),
		WebhookURL:   GetWebhookURL(),
	}, nil
}

type AppConfig struct {
	Name     string
	Env      string
	Version  string
	LogLevel string
}

func NewAppConfig() (*AppConfig, error) {
	env := getenv("ENV", defaultEnv)
	if env != EnvDev && env != EnvProd {
		return nil, fmt.Errorf("invalid ENV %q: must be %s or %s", env, EnvDev, EnvProd)
	}

	return &AppConfig{
		Name:     getenv("APP_NAME", defaultAppName),
		Env:      env,
		Version:  getenv("APP_VERSION", defaultVersion),
		LogLevel: getenv("LOG_LEVEL", "info"),
	}, nil
}

type ServerConfig struct {
	ServerAddr      string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		ServerAddr:      getenv("SERVER_ADDRESS", defaultServerAddr),
		WriteTimeout:    parseDurationOrDefault("WRITE_TIMEOUT", defaultWriteTimeout),
		ReadTimeout:     parseDurationOrDefault("READ_TIMEOUT", defaultReadTimeout),
		IdleTimeout:     parseDurationOrDefault("IDLE_TIMEOUT", defaultIdleTimeout),
		GracefulTimeout: parseDurationOrDefault("GRACEFUL_TIMEOUT", defaultGracefulTimeout),
	}
}

// TokenConfig holds the signing key registry. Keys stay in the map after
// rotation so that tokens signed with them keep verifying until removed.
type TokenConfig struct {
	Keys        map[string][]byte
	ActiveKeyID string
	Algorithm   string
	Audience    string
	Issuer      string
	AccessTTL   time.Duration
}

func NewTokenConfig() (*TokenConfig, error) {
	keys, err := ParseKeyRegistry(getenv("JWT_KEYS", defaultJWTKeys))
	if err != nil {
		return nil, err
	}

	activeKID := getenv("ACTIVE_KEY_ID", defaultActiveKeyID)
	if _, ok := keys[activeKID]; !ok {
		return nil, fmt.Errorf("ACTIVE_KEY_ID %q is not present in JWT_KEYS", activeKID)
	}

	alg := strings.ToUpper(getenv("JWT_ALGORITHM", defaultJWTAlgorithm))
	switch alg {
	case "HS256", "HS384", "HS512":
	default:
		return nil, fmt.Errorf("unsupported JWT_ALGORITHM %q", alg)
	}

	minutes := parseIntOrDefault("ACCESS_TOKEN_EXPIRE_MINUTES", defaultAccessMinutes)
	if minutes <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", minutes)
	}

	return &TokenConfig{
		Keys:        keys,
		ActiveKeyID: activeKID,
		Algorithm:   alg,
		Audience:    getenv("JWT_AUDIENCE", defaultJWTAudience),
		Issuer:      getenv("JWT_ISSUER", defaultJWTIssuer),
		AccessTTL:   time.Duration(minutes) * time.Minute,
	}, nil
}

func (c *TokenConfig) HasDefaultSecret() bool {
	for _, secret := range c.Keys {
		if string(secret) == "change-me" {
			return true
		}
	}
	return false
}

// KeyIDs returns registered key ids in stable order.
func (c *TokenConfig) KeyIDs() []string {
	ids := make([]string, 0, len(c.Keys))
	for kid := range c.Keys {
		ids = append(ids, kid)
	}
	sort.Strings(ids)
	return ids
}

// ParseKeyRegistry parses "kid:secret,kid2:secret2".
func ParseKeyRegistry(raw string) (map[string][]byte, error) {
	keys := make(map[string][]byte)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kid, secret, ok := strings.Cut(pair, ":")
		kid = strings.TrimSpace(kid)
		if !ok || kid == "" || secret == "" {
			return nil, fmt.Errorf("invalid JWT_KEYS entry %q: want kid:secret", pair)
		}
		if _, dup := keys[kid]; dup {
			return nil, fmt.Errorf("duplicate key id %q in JWT_KEYS", kid)
		}
		keys[kid] = []byte(secret)
	}
	if len(keys) == 0 {
		return nil, errors.New("JWT_KEYS is empty")
	}
	return keys, nil
}

type RateLimiterConfig struct {
	Limit  int
	Window time.Duration
}

func NewRateLimiterConfig() *RateLimiterConfig {
	limit := parseIntOrDefault("LOGIN_RATE_LIMIT", defaultLoginRateLimit)
	if limit <= 0 {
		log.Printf("Invalid LOGIN_RATE_LIMIT: %d, using default %d", limit, defaultLoginRateLimit)
		limit = defaultLoginRateLimit
	}

	return &RateLimiterConfig{
		Limit:  limit,
		Window: parseDurationOrDefault("LOGIN_RATE_WINDOW", defaultLoginRateWindow),
	}
}

// ThrottleConfig configures the global per-IP request throttle.
type ThrottleConfig struct {
	Enabled   bool
	Rate      float64
	Burst     int
	ExpiresIn time.Duration
}

func NewThrottleConfig() *ThrottleConfig {
	rps := defaultThrottleRPS
	if v := os.Getenv("THROTTLE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rps = f
		} else {
			log.Printf("Invalid THROTTLE_RPS: %s, using default %v", v, defaultThrottleRPS)
		}
	}

	return &ThrottleConfig{
		Enabled:   getenv("THROTTLE_ENABLED", "true") != "false",
		Rate:      rps,
		Burst:     parseIntOrDefault("THROTTLE_BURST", defaultThrottleBurst),
		ExpiresIn: parseDurationOrDefault("THROTTLE_EXPIRES_IN", defaultThrottleExpires),
	}
}

type PasswordConfig struct {
	BcryptCost int
}

func NewPasswordConfig() *PasswordConfig {
	return &PasswordConfig{
		BcryptCost: parseIntOrDefault("BCRYPT_COST", defaultBcryptCost),
	}
}

func GetWebhookURL() string {
	return os.Getenv("WEBHOOK_URL")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntOrDefault(varName string, def int) int {
	if v := os.Getenv(varName); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("Invalid integer in %s: %s, using default %d", varName, v, def)
	}
	return def
}

func parseDurationOrDefault(varName string, def time.Duration) time.Duration {
	if v := os.Getenv(varName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid duration in %s: %s, using default %s", varName, v, def)
	}
	return def
}
