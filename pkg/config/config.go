package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port    string `yaml:"port"`
	Env     string `yaml:"env"`
	LogMode string `yaml:"log_mode"`

	DatabaseDriver string `yaml:"database_driver"` // "postgres" or "sqlite"
	DatabaseDSN    string `yaml:"database_dsn"`

	JWTSecret        string        `yaml:"jwt_secret"`
	JWTAccessExpiry  time.Duration `yaml:"jwt_access_expiry"`
	JWTRefreshExpiry time.Duration `yaml:"jwt_refresh_expiry"`

	ReplyTokenSecret string        `yaml:"reply_token_secret"`
	ReplyTokenTTL    time.Duration `yaml:"reply_token_ttl"`

	// Outbound mail
	MailProvider       string `yaml:"mail_provider"` // "gmail", "sendgrid" or "log"
	MailFrom           string `yaml:"mail_from"`
	MailFromName       string `yaml:"mail_from_name"`
	MailDomain         string `yaml:"mail_domain"`
	SendGridAPIKey     string `yaml:"sendgrid_api_key"`
	SendGridBaseURL    string `yaml:"sendgrid_base_url"`
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
	GmailRefreshToken  string `yaml:"gmail_refresh_token"`

	// Inbound mail
	IMAPAddr         string        `yaml:"imap_addr"`
	IMAPUsername     string        `yaml:"imap_username"`
	IMAPPassword     string        `yaml:"imap_password"`
	IMAPMailbox      string        `yaml:"imap_mailbox"`
	IMAPPollInterval time.Duration `yaml:"imap_poll_interval"`
	InboundSecret    string        `yaml:"inbound_secret"`
	AdminSecret      string        `yaml:"admin_secret"`

	// Text generation
	AIProvider         string        `yaml:"ai_provider"` // "openai", "gemini", "ollama" or "auto"
	AIFallbackProvider string        `yaml:"ai_fallback_provider"`
	OpenAIAPIKey       string        `yaml:"openai_api_key"`
	OpenAIBaseURL      string        `yaml:"openai_base_url"`
	OpenAIModel        string        `yaml:"openai_model"`
	GeminiAPIKey       string        `yaml:"gemini_api_key"`
	GeminiModel        string        `yaml:"gemini_model"`
	OllamaBaseURL      string        `yaml:"ollama_base_url"`
	OllamaModel        string        `yaml:"ollama_model"`
	AITimeout          time.Duration `yaml:"ai_timeout"`
	AIMaxAttempts      int           `yaml:"ai_max_attempts"`
	AIBackoffBase      time.Duration `yaml:"ai_backoff_base"`
	AIRequestsPerSec   float64       `yaml:"ai_requests_per_second"`

	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`

	SweepInterval    time.Duration `yaml:"sweep_interval"`
	SweepSlack       time.Duration `yaml:"sweep_slack"`
	SweepWindow      time.Duration `yaml:"sweep_window"`
	SweepConcurrency int           `yaml:"sweep_concurrency"`
	AnalysisWorkers  int           `yaml:"analysis_workers"`

	DefaultTimeZone string `yaml:"default_time_zone"`
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE and finally the process environment (.env included).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Port:             "8080",
		Env:              "development",
		LogMode:          "dev",
		DatabaseDriver:   "postgres",
		DatabaseDSN:      "host=localhost user=postgres password=postgres dbname=dabble port=5432 sslmode=disable",
		JWTSecret:        "your-secret-key-change-in-production",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 168 * time.Hour,
		ReplyTokenSecret: "reply-secret-change-in-production",
		ReplyTokenTTL:    30 * 24 * time.Hour,
		MailProvider:     "log",
		MailFrom:         "prompts@localhost",
		MailFromName:     "Dabble",
		MailDomain:       "localhost",
		SendGridBaseURL:  "https://api.sendgrid.com",
		IMAPMailbox:      "INBOX",
		IMAPPollInterval: time.Minute,
		AIProvider:       "auto",
		OpenAIBaseURL:    "https://api.openai.com",
		OpenAIModel:      "gpt-4o-mini",
		GeminiModel:      "gemini-2.5-flash",
		OllamaBaseURL:    "http://localhost:11434",
		OllamaModel:      "llama3",
		AITimeout:        30 * time.Second,
		AIMaxAttempts:    3,
		AIBackoffBase:    time.Second,
		AIRequestsPerSec: 0,
		RedisPrefix:      "dabble:",
		SweepInterval:    5 * time.Minute,
		SweepSlack:       15 * time.Minute,
		SweepWindow:      time.Hour,
		SweepConcurrency: 1,
		AnalysisWorkers:  2,
		DefaultTimeZone:  "America/Chicago",
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.LogMode = getEnv("LOG_MODE", cfg.LogMode)

	cfg.DatabaseDriver = getEnv("DATABASE_DRIVER", cfg.DatabaseDriver)
	cfg.DatabaseDSN = getEnv("DATABASE_URL", cfg.DatabaseDSN)

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTAccessExpiry = getDuration("JWT_ACCESS_EXPIRY", cfg.JWTAccessExpiry)
	cfg.JWTRefreshExpiry = getDuration("JWT_REFRESH_EXPIRY", cfg.JWTRefreshExpiry)
	cfg.ReplyTokenSecret = getEnv("REPLY_TOKEN_SECRET", cfg.ReplyTokenSecret)
	cfg.ReplyTokenTTL = getDuration("REPLY_TOKEN_TTL", cfg.ReplyTokenTTL)

	cfg.MailProvider = getEnv("MAIL_PROVIDER", cfg.MailProvider)
	cfg.MailFrom = getEnv("MAIL_FROM", cfg.MailFrom)
	cfg.MailFromName = getEnv("MAIL_FROM_NAME", cfg.MailFromName)
	cfg.MailDomain = getEnv("MAIL_DOMAIN", cfg.MailDomain)
	cfg.SendGridAPIKey = getEnv("SENDGRID_API_KEY", cfg.SendGridAPIKey)
	cfg.SendGridBaseURL = getEnv("SENDGRID_BASE_URL", cfg.SendGridBaseURL)
	cfg.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", cfg.GoogleClientID)
	cfg.GoogleClientSecret = getEnv("GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret)
	cfg.GmailRefreshToken = getEnv("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken)

	cfg.IMAPAddr = getEnv("IMAP_ADDR", cfg.IMAPAddr)
	cfg.IMAPUsername = getEnv("IMAP_USERNAME", cfg.IMAPUsername)
	cfg.IMAPPassword = getEnv("IMAP_PASSWORD", cfg.IMAPPassword)
	cfg.IMAPMailbox = getEnv("IMAP_MAILBOX", cfg.IMAPMailbox)
	cfg.IMAPPollInterval = getDuration("IMAP_POLL_INTERVAL", cfg.IMAPPollInterval)
	cfg.InboundSecret = getEnv("INBOUND_SECRET", cfg.InboundSecret)
	cfg.AdminSecret = getEnv("ADMIN_SECRET", cfg.AdminSecret)

	cfg.AIProvider = getEnv("AI_PROVIDER", cfg.AIProvider)
	cfg.AIFallbackProvider = getEnv("AI_FALLBACK_PROVIDER", cfg.AIFallbackProvider)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.OllamaBaseURL = getEnv("OLLAMA_BASE_URL", cfg.OllamaBaseURL)
	cfg.OllamaModel = getEnv("OLLAMA_MODEL", cfg.OllamaModel)
	cfg.AITimeout = getDuration("AI_TIMEOUT", cfg.AITimeout)
	cfg.AIMaxAttempts = getInt("AI_MAX_ATTEMPTS", cfg.AIMaxAttempts)
	cfg.AIBackoffBase = getDuration("AI_BACKOFF_BASE", cfg.AIBackoffBase)
	cfg.AIRequestsPerSec = getFloat("AI_REQUESTS_PER_SECOND", cfg.AIRequestsPerSec)

	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPrefix = getEnv("REDIS_PREFIX", cfg.RedisPrefix)

	cfg.SweepInterval = getDuration("SWEEP_INTERVAL", cfg.SweepInterval)
	cfg.SweepSlack = getDuration("SWEEP_SLACK", cfg.SweepSlack)
	cfg.SweepWindow = getDuration("SWEEP_WINDOW", cfg.SweepWindow)
	cfg.SweepConcurrency = getInt("SWEEP_CONCURRENCY", cfg.SweepConcurrency)
	cfg.AnalysisWorkers = getInt("ANALYSIS_WORKERS", cfg.AnalysisWorkers)

	cfg.DefaultTimeZone = getEnv("DEFAULT_TIME_ZONE", cfg.DefaultTimeZone)
}

// Validate rejects configurations that cannot run. Placeholder secrets are only
// refused in production.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.AIMaxAttempts < 1 {
		return errors.New("AI_MAX_ATTEMPTS must be >= 1")
	}
	if c.SweepConcurrency < 1 {
		return errors.New("SWEEP_CONCURRENCY must be >= 1")
	}
	if _, err := time.LoadLocation(c.DefaultTimeZone); err != nil {
		return fmt.Errorf("invalid DEFAULT_TIME_ZONE: %w", err)
	}
	if c.IsProduction() {
		if strings.Contains(c.JWTSecret, "change-in-production") {
			return errors.New("JWT_SECRET must be set in production")
		}
		if strings.Contains(c.ReplyTokenSecret, "change-in-production") {
			return errors.New("REPLY_TOKEN_SECRET must be set in production")
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
