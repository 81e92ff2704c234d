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
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Telephony TelephonyConfig
	Session   SessionConfig
	Analysis  AnalysisConfig
	Coaching  CoachingConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// MaxOpenConns is optional; the pool applies its own default.
	MaxOpenConns int
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// TelephonyConfig configures the provider-backed dialing backend.
// An empty BaseURL disables provider-backed calls; manual dialing always works.
type TelephonyConfig struct {
	BaseURL        string
	APIKey         string
	DefaultUserID  string
	RequestTimeout time.Duration
	PollInterval   time.Duration

	// WebhookSecret, when set, must accompany provider status pushes.
	WebhookSecret string
}

func (t TelephonyConfig) Enabled() bool { return t.BaseURL != "" }

type SessionConfig struct {
	TickInterval         time.Duration
	LongCallWarning      time.Duration
	PollFailureThreshold int
	LeaseTTL             time.Duration
	NoticeBuffer         int
}

// AnalysisConfig points at the enrichment services used after a call is saved.
type AnalysisConfig struct {
	BaseURL     string
	APIKey      string
	StepTimeout time.Duration
}

type CoachingConfig struct {
	SubscriptionBuffer int
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
	{
		n, err := optionalInt("DB_MAX_OPEN_CONNS")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.MaxOpenConns = n
	}

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Telephony.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("TELEPHONY_BASE_URL")), "/")
	c.Telephony.APIKey = os.Getenv("TELEPHONY_API_KEY")
	c.Telephony.DefaultUserID = strings.TrimSpace(os.Getenv("TELEPHONY_DEFAULT_USER_ID"))
	c.Telephony.RequestTimeout = mustDuration("TELEPHONY_REQUEST_TIMEOUT")
	c.Telephony.PollInterval = mustDuration("TELEPHONY_POLL_INTERVAL")
	c.Telephony.WebhookSecret = os.Getenv("TELEPHONY_WEBHOOK_SECRET")

	c.Session.TickInterval = mustDuration("SESSION_TICK_INTERVAL")
	c.Session.LongCallWarning = mustDuration("SESSION_LONG_CALL_WARNING")
	c.Session.LeaseTTL = mustDuration("SESSION_LEASE_TTL")
	{
		n, err := optionalInt("SESSION_POLL_FAILURE_THRESHOLD")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Session.PollFailureThreshold = n
	}
	{
		n, err := optionalInt("SESSION_NOTICE_BUFFER")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Session.NoticeBuffer = n
	}

	c.Analysis.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("ANALYSIS_BASE_URL")), "/")
	c.Analysis.APIKey = os.Getenv("ANALYSIS_API_KEY")
	c.Analysis.StepTimeout = mustDuration("ANALYSIS_STEP_TIMEOUT")

	{
		n, err := optionalInt("COACHING_SUBSCRIPTION_BUFFER")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Coaching.SubscriptionBuffer = n
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
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
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Telephony.Enabled() && c.Telephony.APIKey == "" {
		errs = append(errs, errors.New("TELEPHONY_API_KEY is required when TELEPHONY_BASE_URL is set"))
	}
	if c.Telephony.Enabled() && c.IsProduction() && c.Telephony.WebhookSecret == "" {
		errs = append(errs, errors.New("TELEPHONY_WEBHOOK_SECRET is required in production when TELEPHONY_BASE_URL is set"))
	}
	if c.Telephony.RequestTimeout <= 0 {
		c.Telephony.RequestTimeout = 10 * time.Second
	}
	if c.Telephony.PollInterval <= 0 {
		c.Telephony.PollInterval = 2 * time.Second
	}

	if c.Session.TickInterval <= 0 {
		c.Session.TickInterval = time.Second
	}
	if c.Session.LongCallWarning <= 0 {
		c.Session.LongCallWarning = 3 * time.Hour
	}
	if c.Session.PollFailureThreshold <= 0 {
		c.Session.PollFailureThreshold = 3
	}
	if c.Session.LeaseTTL <= 0 {
		// Must outlive the longest plausible call plus wrap-up.
		c.Session.LeaseTTL = 6 * time.Hour
	}
	if c.Session.NoticeBuffer <= 0 {
		c.Session.NoticeBuffer = 64
	}

	if c.Analysis.BaseURL == "" {
		errs = append(errs, errors.New("ANALYSIS_BASE_URL is required"))
	}
	if c.Analysis.StepTimeout <= 0 {
		c.Analysis.StepTimeout = 30 * time.Second
	}

	if c.Coaching.SubscriptionBuffer <= 0 {
		c.Coaching.SubscriptionBuffer = 32
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

func optionalInt(key string) (int, error) {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return 0, nil
	}
	return mustInt(key)
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
