package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config agrupa la configuración del proceso. Se construye una vez en main
// y se pasa explícitamente a los constructores.
type Config struct {
	Port string

	// Vacío => storage in-memory.
	DBDSN string

	Tokens TokenConfig
	Auth   AuthConfig

	RedisAddr      string
	RateLimitRPS   float64
	RateLimitBurst int

	CORSOrigins    []string
	SwaggerEnabled bool

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// TokenConfig alimenta al servicio de tokens.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string // si vacío, se usa AccessSecret
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// AuthConfig alimenta al credential store.
type AuthConfig struct {
	BcryptCost    int
	ResetTokenTTL time.Duration

	// Alta fuera de banda del administrador inicial.
	AdminEmail    string
	AdminPassword string
}

const (
	DefaultAccessTTL     = 15 * time.Minute
	DefaultRefreshTTL    = 7 * 24 * time.Hour
	DefaultResetTokenTTL = 10 * time.Minute
	DefaultBcryptCost    = 10
)

var ErrMissingSecret = errors.New("JWT_ACCESS_SECRET is required")

// Load lee .env (si existe) y luego el entorno.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		Port:  getEnv("PORT", "8080"),
		DBDSN: getEnv("DB_DSN", ""),
		Tokens: TokenConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
			AccessTTL:     getDuration("JWT_ACCESS_TTL", DefaultAccessTTL),
			RefreshTTL:    getDuration("JWT_REFRESH_TTL", DefaultRefreshTTL),
			Issuer:        getEnv("JWT_ISSUER", "pet-adoption"),
		},
		Auth: AuthConfig{
			BcryptCost:    getInt("BCRYPT_COST", DefaultBcryptCost),
			ResetTokenTTL: getDuration("RESET_TOKEN_TTL", DefaultResetTokenTTL),
			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RateLimitRPS:    getFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:  getInt("RATE_LIMIT_BURST", 10),
		CORSOrigins:     getList("CORS_ORIGINS", []string{"*"}),
		SwaggerEnabled:  getBool("SWAGGER_ENABLED", true),
		ReadTimeout:     getDuration("HTTP_READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if strings.TrimSpace(cfg.Tokens.AccessSecret) == "" {
		return Config{}, ErrMissingSecret
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	out := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
