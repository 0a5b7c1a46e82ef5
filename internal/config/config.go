package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Realtime RealtimeConfig
	Call     CallConfig
	Breaker  BreakerConfig
	Auth     AuthConfig
	Provider ProviderConfig
}

type AppConfig struct {
	Env  string
	Port int

	// InstanceID identifies this process in the call-ownership guard.
	// Defaults to the hostname when unset.
	InstanceID string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

// RealtimeConfig drives the outbound bidirectional AI session.
type RealtimeConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
}

// CallConfig holds per-call lifecycle tuning.
type CallConfig struct {
	// EndedTTL is attached to a call's ephemeral keys once it ends.
	// Active calls have no expiry.
	EndedTTL time.Duration

	// TurnSummaryThreshold is the number of assistant turns after which the
	// coordinator injects a summary and truncates remote history.
	TurnSummaryThreshold int

	// OwnershipTTL bounds the duplicate-call guard to the call's lifetime.
	OwnershipTTL time.Duration
}

// BreakerConfig tunes the circuit breaker wrapping ephemeral-store operations.
type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
}

// ProviderConfig holds the telephony provider acceptance endpoints.
type ProviderConfig struct {
	APIKey string

	// AcceptURL is the primary call-acceptance endpoint template.
	// AcceptFallbackURL is tried once on a not-found response; some provider
	// deployments expose the older endpoint shape.
	AcceptURL         string
	AcceptFallbackURL string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.InstanceID = strings.TrimSpace(os.Getenv("APP_INSTANCE_ID"))
	if c.App.InstanceID == "" {
		host, _ := os.Hostname()
		c.App.InstanceID = host
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Realtime.APIKey = os.Getenv("REALTIME_API_KEY")
	c.Realtime.BaseURL = strings.TrimSpace(os.Getenv("REALTIME_BASE_URL"))
	c.Realtime.Model = strings.TrimSpace(os.Getenv("REALTIME_MODEL"))
	c.Realtime.Voice = strings.TrimSpace(os.Getenv("REALTIME_VOICE"))

	// Duration/count env vars are optional; defaults applied in Validate().
	c.Call.EndedTTL = mustDuration("CALL_ENDED_TTL")
	c.Call.OwnershipTTL = mustDuration("CALL_OWNERSHIP_TTL")
	c.Call.TurnSummaryThreshold = optInt("CALL_TURN_SUMMARY_THRESHOLD")

	c.Breaker.FailureThreshold = optInt("BREAKER_FAILURE_THRESHOLD")
	c.Breaker.ResetTimeout = mustDuration("BREAKER_RESET_TIMEOUT")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))

	c.Provider.APIKey = os.Getenv("PROVIDER_API_KEY")
	c.Provider.AcceptURL = strings.TrimSpace(os.Getenv("PROVIDER_ACCEPT_URL"))
	c.Provider.AcceptFallbackURL = strings.TrimSpace(os.Getenv("PROVIDER_ACCEPT_FALLBACK_URL"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Realtime.APIKey == "" {
		errs = append(errs, errors.New("REALTIME_API_KEY is required"))
	}
	if c.Realtime.BaseURL == "" {
		errs = append(errs, errors.New("REALTIME_BASE_URL is required"))
	} else if !strings.HasPrefix(c.Realtime.BaseURL, "ws://") && !strings.HasPrefix(c.Realtime.BaseURL, "wss://") {
		errs = append(errs, fmt.Errorf("REALTIME_BASE_URL must be a ws:// or wss:// URL, got %q", c.Realtime.BaseURL))
	}
	if c.Realtime.Model == "" {
		errs = append(errs, errors.New("REALTIME_MODEL is required"))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}

	if c.Provider.AcceptURL == "" {
		errs = append(errs, errors.New("PROVIDER_ACCEPT_URL is required"))
	}

	// Lifecycle defaults. Active calls never expire; the TTL only applies
	// once a call ends.
	if c.Call.EndedTTL <= 0 {
		c.Call.EndedTTL = time.Hour
	}
	if c.Call.OwnershipTTL <= 0 {
		c.Call.OwnershipTTL = 2 * time.Hour
	}
	if c.Call.TurnSummaryThreshold <= 0 {
		c.Call.TurnSummaryThreshold = 6
	}

	if c.Breaker.FailureThreshold <= 0 {
		c.Breaker.FailureThreshold = 5
	}
	if c.Breaker.ResetTimeout <= 0 {
		c.Breaker.ResetTimeout = 30 * time.Second
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
