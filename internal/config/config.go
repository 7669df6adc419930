// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Search    SearchConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
	Mail      MailConfig
	Seed      SeedConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name        string
	Environment string
	URL         string   // Public front-end URL used in mail links
	CORSOrigins []string // Allowed origins, "*" allows any
}

// IsProduction reports whether error details must be hidden from clients.
func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string // auto, pretty, json, text
}

// ServerConfig holds HTTP listener configuration.
type ServerConfig struct {
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration // Drain bound before connections are closed forcibly
	TrustProxy        bool          // Honour forwarding headers for client addresses
}

// DatabaseConfig holds document database configuration.
type DatabaseConfig struct {
	ConnectionString string // mongodb://, mongodb+srv://, badger:///path or memory
	Name             string
	ConnectRetries   int
	RetryDelay       time.Duration
	ConnectTimeout   time.Duration
}

// AuthConfig holds token and credential configuration.
type AuthConfig struct {
	JWTSecret      []byte
	JWTIssuer      string
	TokenDuration  time.Duration // e.g. 7d
	ResetTokenTTL  time.Duration
	VerifyTokenTTL time.Duration
}

// SearchConfig holds the full-text index configuration.
type SearchConfig struct {
	IndexPath string // empty disables the index, "memory" keeps it in RAM
}

// Enabled reports whether a search index should be opened.
func (s SearchConfig) Enabled() bool {
	return s.IndexPath != ""
}

// MetricsConfig holds observability configuration.
type MetricsConfig struct {
	Enabled        bool
	ReportInterval time.Duration // 0 disables the periodic reporter
	ReportEvery    int           // log a line every N requests
}

// RateLimitConfig holds the limits applied to public credential endpoints.
type RateLimitConfig struct {
	AuthRequests int
	AuthInterval time.Duration
	AuthBurst    int
}

// MailConfig holds SMTP configuration. An empty host logs mails instead of sending them.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SeedConfig holds the optional first-admin account.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// LoadConfig loads configuration from the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("livraria-api", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production, test)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (auto, pretty, json, text)")
	port := fs.String("port", "", "Server port (default: 3000)")
	shutdownTimeout := fs.String("shutdown-timeout", "", "Drain timeout before forced exit (default: 15s)")
	dbConn := fs.String("db", "", "Database connection string")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Name:        getConfigValue("", "APP_NAME", "livraria-api"),
			Environment: getConfigValue(*env, "ENV", getConfigValue("", "NODE_ENV", "development")),
			URL:         strings.TrimRight(getConfigValue("", "APP_URL", "http://localhost:5173"), "/"),
			CORSOrigins: splitList(getConfigValue("", "CORS_ORIGINS", "http://localhost:5173,http://localhost:5174")),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", "auto"),
		},
		Server: ServerConfig{
			Port:       getConfigValue(*port, "PORT", "3000"),
			TrustProxy: getBoolConfigValue("", "TRUST_PROXY", false),
		},
		Database: DatabaseConfig{
			ConnectionString: getConfigValue(*dbConn, "DB_CONNECTION_STRING", ""),
			Name:             getConfigValue("", "DB_NAME", ""),
			ConnectRetries:   getIntConfigValue("", "DB_CONNECT_RETRIES", 3),
		},
		Auth: AuthConfig{
			JWTSecret: []byte(getConfigValue("", "JWT_SECRET", "")),
			JWTIssuer: getConfigValue("", "JWT_ISSUER", "livraria-api"),
		},
		Search: SearchConfig{
			IndexPath: getConfigValue("", "SEARCH_INDEX_PATH", ""),
		},
		Metrics: MetricsConfig{
			Enabled:     getBoolConfigValue("", "METRICS_ENABLED", true),
			ReportEvery: getIntConfigValue("", "METRICS_REPORT_EVERY", 100),
		},
		RateLimit: RateLimitConfig{
			AuthRequests: getIntConfigValue("", "AUTH_RATE_LIMIT", 20),
			AuthInterval: time.Minute,
			AuthBurst:    getIntConfigValue("", "AUTH_RATE_BURST", 10),
		},
		Mail: MailConfig{
			Host:     getConfigValue("", "SMTP_HOST", ""),
			Port:     getIntConfigValue("", "SMTP_PORT", 587),
			Username: getConfigValue("", "SMTP_USER", ""),
			Password: getConfigValue("", "SMTP_PASSWORD", ""),
			From:     getConfigValue("", "SMTP_FROM", "Livraria <no-reply@livraria.local>"),
		},
		Seed: SeedConfig{
			AdminEmail:    getConfigValue("", "ADMIN_EMAIL", ""),
			AdminPassword: getConfigValue("", "ADMIN_PASSWORD", ""),
			AdminName:     getConfigValue("", "ADMIN_NAME", "Administrador"),
		},
	}

	durations := []struct {
		target   *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, "", "SERVER_READ_TIMEOUT", "30s"},
		{&cfg.Server.WriteTimeout, "", "SERVER_WRITE_TIMEOUT", "30s"},
		{&cfg.Server.IdleTimeout, "", "SERVER_IDLE_TIMEOUT", "65s"},
		{&cfg.Server.ReadHeaderTimeout, "", "SERVER_READ_HEADER_TIMEOUT", "66s"},
		{&cfg.Server.ShutdownTimeout, *shutdownTimeout, "SHUTDOWN_TIMEOUT", "15s"},
		{&cfg.Database.RetryDelay, "", "DB_CONNECT_RETRY_DELAY", "5s"},
		{&cfg.Database.ConnectTimeout, "", "DB_CONNECT_TIMEOUT", "10s"},
		{&cfg.Auth.TokenDuration, "", "JWT_EXPIRE", "7d"},
		{&cfg.Auth.ResetTokenTTL, "", "RESET_TOKEN_TTL", "10m"},
		{&cfg.Auth.VerifyTokenTTL, "", "VERIFY_TOKEN_TTL", "24h"},
		{&cfg.Metrics.ReportInterval, "", "METRICS_REPORT_INTERVAL", "5m"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.fallback)
		parsed, err := ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.target = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, production, or test)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch strings.ToLower(c.Logger.Format) {
	case "", "auto", "pretty", "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s (must be auto, pretty, json, or text)", c.Logger.Format)
	}

	if c.Database.ConnectionString == "" {
		return errors.New("DB_CONNECTION_STRING is required")
	}
	if c.Database.ConnectRetries < 1 {
		return errors.New("DB_CONNECT_RETRIES must be at least 1")
	}

	if len(c.Auth.JWTSecret) == 0 {
		return errors.New("JWT_SECRET is required")
	}
	if c.App.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 bytes in production")
	}
	if c.Auth.TokenDuration <= 0 {
		return errors.New("JWT_EXPIRE must be positive")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}

	if (c.Seed.AdminEmail == "") != (c.Seed.AdminPassword == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	return nil
}

const (
	day     = 24 * time.Hour
	maxDays = math.MaxInt64 / int64(day)
)

// ParseDuration accepts Go durations plus a day suffix ("7d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", days)
		}
		if n > maxDays || n < -maxDays {
			return 0, fmt.Errorf("day count %d out of range", n)
		}
		return time.Duration(n) * day, nil
	}
	return time.ParseDuration(s)
}

// HumanDuration renders a token lifetime the way clients display it ("7 dias").
func HumanDuration(d time.Duration) string {
	switch {
	case d >= day && d%day == 0:
		n := int(d / day)
		if n == 1 {
			return "1 dia"
		}
		return fmt.Sprintf("%d dias", n)
	case d >= time.Hour && d%time.Hour == 0:
		n := int(d / time.Hour)
		if n == 1 {
			return "1 hora"
		}
		return fmt.Sprintf("%d horas", n)
	default:
		return d.String()
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
