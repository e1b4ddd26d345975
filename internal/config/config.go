package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevJWTSecret signs sessions when JWT_SECRET is unset. Validate rejects it
// outside development and test.
const DevJWTSecret = "dev-secret-change-me"

// ErrInsecureJWTSecret is returned by Validate when a non-development
// environment would sign sessions with an empty or well-known key.
var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set to a private value outside development")

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		Driver   string
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		LogLevel string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host           string
		Port           string
		AllowedOrigins []string
		ReadTimeout    time.Duration
		WriteTimeout   time.Duration
	}

	GRPC struct {
		Host string
		Port string
	}

	JWT struct {
		Secret string
		Issuer string
		TTL    time.Duration
	}

	Completion struct {
		BaseURL          string
		APIKey           string
		Model            string
		Temperature      float64
		MaxTokens        int
		PresencePenalty  float64
		FrequencyPenalty float64
		HistoryWindow    int
		Timeout          time.Duration
	}

	Cloudinary struct {
		CloudName string
		APIKey    string
		APISecret string
		Folder    string
	}

	RateLimit struct {
		Requests int
		Window   time.Duration
	}
}

// New builds the configuration from the environment.
// A .env file in the working directory is loaded first when present;
// variables already set in the process environment win.
func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "development")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "api")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "mysql"))
	cfg.DB.LogLevel = getEnvDefault("DB_LOG_LEVEL", "warn")
	cfg.DB.DSN = getEnvDefault("DB_DSN", os.Getenv("MYSQL_DSN"))
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "galatea")

		switch cfg.DB.Driver {
		case "postgres":
			cfg.DB.Port = getEnvDefault("DB_PORT", "5432")
			cfg.DB.DSN = fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
				cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name,
			)
		case "sqlite":
			cfg.DB.DSN = getEnvDefault("SQLITE_PATH", cfg.DB.Name+".db")
		default:
			cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
			cfg.DB.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
				cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
			)
		}
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")
	cfg.HTTP.AllowedOrigins = splitList(getEnvDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"))
	cfg.HTTP.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second)
	cfg.HTTP.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", 60*time.Second)

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// Sessions
	cfg.JWT.Secret = getEnvDefault("JWT_SECRET", DevJWTSecret)
	cfg.JWT.Issuer = getEnvDefault("JWT_ISSUER", "galatea")
	cfg.JWT.TTL = getEnvDuration("JWT_TTL", 24*time.Hour)

	// Completion service
	cfg.Completion.BaseURL = getEnvDefault("OPENAI_BASE_URL", "https://api.openai.com")
	cfg.Completion.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Completion.Model = getEnvDefault("OPENAI_MODEL", "gpt-4o-mini")
	cfg.Completion.Temperature = getEnvFloat("OPENAI_TEMPERATURE", 0.8)
	cfg.Completion.MaxTokens = getEnvInt("OPENAI_MAX_TOKENS", 500)
	cfg.Completion.PresencePenalty = getEnvFloat("OPENAI_PRESENCE_PENALTY", 0.1)
	cfg.Completion.FrequencyPenalty = getEnvFloat("OPENAI_FREQUENCY_PENALTY", 0.1)
	cfg.Completion.HistoryWindow = getEnvInt("CHAT_HISTORY_WINDOW", 10)
	cfg.Completion.Timeout = getEnvDuration("OPENAI_TIMEOUT", 45*time.Second)

	// Object storage
	cfg.Cloudinary.CloudName = os.Getenv("CLOUDINARY_CLOUD_NAME")
	cfg.Cloudinary.APIKey = os.Getenv("CLOUDINARY_API_KEY")
	cfg.Cloudinary.APISecret = os.Getenv("CLOUDINARY_API_SECRET")
	cfg.Cloudinary.Folder = getEnvDefault("CLOUDINARY_FOLDER", "galatea")

	// Rate limiting
	cfg.RateLimit.Requests = getEnvInt("RATE_LIMIT_REQUESTS", 120)
	cfg.RateLimit.Window = getEnvDuration("RATE_LIMIT_WINDOW", time.Minute)

	return cfg
}

// Validate reports settings the process must not start with.
func (c *Config) Validate() error {
	switch c.App.ENV {
	case "development", "test":
		return nil
	}
	if c.JWT.Secret == "" || c.JWT.Secret == DevJWTSecret {
		return fmt.Errorf("%s environment: %w", c.App.ENV, ErrInsecureJWTSecret)
	}
	return nil
}

// HTTPAddr returns host:port for the HTTP listener.
func (c *Config) HTTPAddr() string { return c.HTTP.Host + ":" + c.HTTP.Port }

// GRPCAddr returns host:port for the gRPC listener.
func (c *Config) GRPCAddr() string { return c.GRPC.Host + ":" + c.GRPC.Port }

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v, err := strconv.Atoi(getEnvDefault(k, "")); err == nil {
		return v
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if v, err := strconv.ParseFloat(getEnvDefault(k, ""), 64); err == nil {
		return v
	}
	return def
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(k string, def time.Duration) time.Duration {
	raw := getEnvDefault(k, "")
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
