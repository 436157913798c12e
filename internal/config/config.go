package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends for the onboarding client.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Delivery providers for the verifier.
const (
	ProviderLog = "log"
	ProviderSES = "ses"
	ProviderSNS = "sns"
)

type Config struct {
	Client   ClientConfig
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Email    EmailConfig
	SMS      SMSConfig
}

type ClientConfig struct {
	StoreBackend           string
	StateFile              string
	DeviceID               string
	VerifierURL            string // empty selects the simulated transport
	SimulateLatency        bool
	LoginSkipsVerification bool
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
	ApplicationName   string // reported to the server as application_name
}

type ServerConfig struct {
	Port            string
	Env             string
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	TrustedProxies  string // comma separated CIDRs
}

type AuthConfig struct {
	SessionSigningKey  string
	SessionTokenExpiry time.Duration
	BcryptCost         int
}

type EmailConfig struct {
	Provider        string
	Region          string
	FromAddress     string
	VerificationURL string
	TokenExpiry     time.Duration
	CleanupInterval time.Duration
}

type SMSConfig struct {
	Provider string
	Region   string
	SenderID string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	signingKey := getEnv("SESSION_SIGNING_KEY", "")
	if signingKey == "" {
		return nil, fmt.Errorf("SESSION_SIGNING_KEY is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Client: ClientConfig{
			StoreBackend:           strings.ToLower(getEnv("STORE_BACKEND", StoreFile)),
			StateFile:              getEnv("STATE_FILE", ".onboard-session.json"),
			DeviceID:               getEnv("DEVICE_ID", ""),
			VerifierURL:            getEnv("VERIFIER_URL", ""),
			SimulateLatency:        getEnvAsBool("SIMULATE_LATENCY", true),
			LoginSkipsVerification: getEnvAsBool("LOGIN_SKIPS_VERIFICATION", true),
		},
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "alumni_onboard"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 1)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			ConnectTimeout:    getEnvAsDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
			ApplicationName:   getEnv("DB_APPLICATION_NAME", "alumni-onboard"),
		},
		Server: ServerConfig{
			Port:            getEnv("PORT", "8081"),
			Env:             env,
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			TrustedProxies:  getEnv("TRUSTED_PROXIES", ""),
		},
		Auth: AuthConfig{
			SessionSigningKey:  signingKey,
			SessionTokenExpiry: getEnvAsDuration("SESSION_TOKEN_EXPIRY", 0),
			BcryptCost:         getEnvAsInt("BCRYPT_COST", 12),
		},
		Email: EmailConfig{
			Provider:        strings.ToLower(getEnv("EMAIL_PROVIDER", ProviderLog)),
			Region:          getEnv("AWS_SES_REGION", "us-east-1"),
			FromAddress:     getEnv("EMAIL_FROM_ADDRESS", "no-reply@alumni.example"),
			VerificationURL: getEnv("EMAIL_VERIFICATION_URL", "http://localhost:8081"),
			TokenExpiry:     getEnvAsDuration("EMAIL_TOKEN_EXPIRY", 24*time.Hour),
			CleanupInterval: getEnvAsDuration("EMAIL_TOKEN_CLEANUP_INTERVAL", time.Hour),
		},
		SMS: SMSConfig{
			Provider: strings.ToLower(getEnv("SMS_PROVIDER", ProviderLog)),
			Region:   getEnv("AWS_SNS_REGION", "us-east-1"),
			SenderID: getEnv("SMS_SENDER_ID", "ALUMNI"),
		},
	}

	switch cfg.Client.StoreBackend {
	case StoreMemory, StoreFile:
	case StorePostgres:
		if cfg.Database.Password == "" {
			return nil, fmt.Errorf("DB_PASSWORD is required for the postgres store")
		}
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be one of memory, file, postgres (got %q)", cfg.Client.StoreBackend)
	}

	if cfg.Email.Provider != ProviderLog && cfg.Email.Provider != ProviderSES {
		return nil, fmt.Errorf("EMAIL_PROVIDER must be log or ses (got %q)", cfg.Email.Provider)
	}
	if cfg.SMS.Provider != ProviderLog && cfg.SMS.Provider != ProviderSNS {
		return nil, fmt.Errorf("SMS_PROVIDER must be log or sns (got %q)", cfg.SMS.Provider)
	}

	if err := validateSigningKey(signingKey, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSigningKey enforces minimum strength for the session signing key
func validateSigningKey(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SIGNING_KEY must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_SIGNING_KEY cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
