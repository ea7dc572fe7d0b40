package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the API server and the verification agent
type Config struct {
	Server    ServerConfig
	Chain     ChainConfig
	Agent     AgentConfig
	Oracle    OracleConfig
	Storage   StorageConfig
	Events    EventsConfig
	CORS      CORSConfig
	Display   DisplayConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
	Proxy     ProxyConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int
	Host           string
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds
	IdleTimeout    int // seconds
	RequestTimeout int // seconds
}

// ChainConfig holds the RPC endpoint and the factory contract location
type ChainConfig struct {
	RPCURL         string
	FactoryAddress string
	ChainID        int64 // 0 means ask the node
}

// AgentConfig holds verification agent settings
type AgentConfig struct {
	PrivateKey            string
	IntervalSeconds       int
	GasLimit              uint64
	ReceiptTimeoutSeconds int
	PendingTTLMinutes     int
	AdminHost             string
	AdminPort             int
}

// OracleConfig holds pull request oracle settings
type OracleConfig struct {
	Token             string
	Host              string // host accepted in milestone verification URLs
	APIURL            string
	RequestsPerSecond float64
	Burst             int
	TimeoutSeconds    int
}

// StorageConfig holds approval ledger storage configuration
type StorageConfig struct {
	Type     string // "sqlite" or "postgres"
	Postgres PostgresConfig
	SQLite   SQLiteConfig
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	URL string
}

// SQLiteConfig holds SQLite settings
type SQLiteConfig struct {
	Path string
}

// EventsConfig holds event publishing settings
type EventsConfig struct {
	AMQPURL  string
	Exchange string
}

// CORSConfig holds the single frontend origin allowed to call the API
type CORSConfig struct {
	AllowedOrigin string
}

// DisplayConfig holds presentation settings for view models
type DisplayConfig struct {
	Timezone string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerMin int
	BurstSize      int
	CleanupMinutes int
}

// SecurityConfig holds security filter settings
type SecurityConfig struct {
	FilterEnabled bool
	MaxBodySizeMB int
}

// ProxyConfig holds trusted proxy settings for X-Forwarded-For handling
type ProxyConfig struct {
	TrustProxy     bool
	TrustedProxies []string // CIDR notation
}

// Load loads configuration. Values come from the process environment, then a
// .env file in the working directory, then the optional config file at path,
// then built-in defaults.
func Load(path string) (*Config, error) {
	// godotenv never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	src := source{}
	if path != "" {
		values, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = values
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           src.getInt("PORT", 8000),
			Host:           src.get("HOST", "0.0.0.0"),
			ReadTimeout:    src.getInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout:   src.getInt("SERVER_WRITE_TIMEOUT", 60),
			IdleTimeout:    src.getInt("SERVER_IDLE_TIMEOUT", 120),
			RequestTimeout: src.getInt("SERVER_REQUEST_TIMEOUT", 30),
		},
		Chain: ChainConfig{
			RPCURL:         src.get("RPC_URL", src.get("SEPOLIA_RPC_URL", "")),
			FactoryAddress: src.get("FACTORY_ADDRESS", ""),
			ChainID:        int64(src.getInt("CHAIN_ID", 0)),
		},
		Agent: AgentConfig{
			PrivateKey:            src.get("AGENT_PRIVATE_KEY", ""),
			IntervalSeconds:       src.getInt("AGENT_INTERVAL_SECONDS", 60),
			GasLimit:              uint64(src.getInt("AGENT_GAS_LIMIT", 200000)),
			ReceiptTimeoutSeconds: src.getInt("AGENT_RECEIPT_TIMEOUT_SECONDS", 180),
			PendingTTLMinutes:     src.getInt("AGENT_PENDING_TTL_MINUTES", 30),
			AdminHost:             src.get("AGENT_ADMIN_HOST", "0.0.0.0"),
			AdminPort:             src.getInt("AGENT_ADMIN_PORT", 9091),
		},
		Oracle: OracleConfig{
			Token:             src.get("GITHUB_TOKEN", src.get("GITHUB_PAT", "")),
			Host:              src.get("ORACLE_HOST", "github.com"),
			APIURL:            src.get("ORACLE_API_URL", "https://api.github.com/"),
			RequestsPerSecond: src.getFloat("ORACLE_RPS", 1),
			Burst:             src.getInt("ORACLE_BURST", 5),
			TimeoutSeconds:    src.getInt("ORACLE_TIMEOUT_SECONDS", 15),
		},
		Storage: StorageConfig{
			Type: src.get("STORAGE_TYPE", "sqlite"),
			Postgres: PostgresConfig{
				URL: src.get("DATABASE_URL", ""),
			},
			SQLite: SQLiteConfig{
				Path: src.get("SQLITE_PATH", "./data/codefund-agent.db"),
			},
		},
		Events: EventsConfig{
			AMQPURL:  src.get("EVENTS_AMQP_URL", ""),
			Exchange: src.get("EVENTS_EXCHANGE", "codefund.events"),
		},
		CORS: CORSConfig{
			AllowedOrigin: src.get("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
		},
		Display: DisplayConfig{
			Timezone: src.get("DISPLAY_TIMEZONE", "UTC"),
		},
		Logging: LoggingConfig{
			Level:  src.get("LOG_LEVEL", "info"),
			Format: src.get("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: src.getBool("METRICS_ENABLED", true),
			Port:    src.getInt("METRICS_PORT", 9090),
		},
		RateLimit: RateLimitConfig{
			Enabled:        src.getBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMin: src.getInt("RATE_LIMIT_RPM", 300),
			BurstSize:      src.getInt("RATE_LIMIT_BURST", 50),
			CleanupMinutes: src.getInt("RATE_LIMIT_CLEANUP_MINUTES", 10),
		},
		Security: SecurityConfig{
			FilterEnabled: src.getBool("SECURITY_FILTER_ENABLED", true),
			MaxBodySizeMB: src.getInt("SECURITY_MAX_BODY_SIZE_MB", 1),
		},
		Proxy: ProxyConfig{
			TrustProxy:     src.getBool("TRUST_PROXY", false),
			TrustedProxies: src.getStringSlice("TRUSTED_PROXIES", []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}),
		},
	}

	// If DATABASE_URL is set, default to postgres
	if cfg.Storage.Postgres.URL != "" && cfg.Storage.Type == "sqlite" {
		cfg.Storage.Type = "postgres"
	}

	return cfg, nil
}

// ValidateAPI checks the settings the API server cannot start without.
func (c *Config) ValidateAPI() error {
	var problems []string
	problems = append(problems, c.chainProblems()...)
	if c.CORS.AllowedOrigin == "" {
		problems = append(problems, "CORS_ALLOWED_ORIGIN is empty")
	}
	if _, err := time.LoadLocation(c.Display.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("DISPLAY_TIMEZONE %q is not a known time zone", c.Display.Timezone))
	}
	return joinProblems(problems)
}

// ValidateAgent checks the settings the verification agent cannot start without.
func (c *Config) ValidateAgent() error {
	var problems []string
	problems = append(problems, c.chainProblems()...)
	if c.Agent.PrivateKey == "" {
		problems = append(problems, "AGENT_PRIVATE_KEY is required")
	}
	if c.Oracle.Token == "" {
		problems = append(problems, "GITHUB_TOKEN is required")
	}
	if c.Agent.IntervalSeconds <= 0 {
		problems = append(problems, "AGENT_INTERVAL_SECONDS must be positive")
	}
	if c.Agent.GasLimit == 0 {
		problems = append(problems, "AGENT_GAS_LIMIT must be positive")
	}
	if c.Agent.ReceiptTimeoutSeconds <= 0 {
		problems = append(problems, "AGENT_RECEIPT_TIMEOUT_SECONDS must be positive")
	}
	return joinProblems(problems)
}

func (c *Config) chainProblems() []string {
	var problems []string
	if c.Chain.RPCURL == "" {
		problems = append(problems, "RPC_URL is required")
	}
	if c.Chain.FactoryAddress == "" {
		problems = append(problems, "FACTORY_ADDRESS is required")
	} else if !common.IsHexAddress(c.Chain.FactoryAddress) {
		problems = append(problems, "FACTORY_ADDRESS is not a hex address")
	}
	return problems
}

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

// Interval returns the delay between agent cycles.
func (a AgentConfig) Interval() time.Duration {
	return time.Duration(a.IntervalSeconds) * time.Second
}

// ReceiptTimeout returns the bound on waiting for a transaction receipt.
func (a AgentConfig) ReceiptTimeout() time.Duration {
	return time.Duration(a.ReceiptTimeoutSeconds) * time.Second
}

// PendingTTL returns how long an unresolved submission blocks resubmission.
func (a AgentConfig) PendingTTL() time.Duration {
	return time.Duration(a.PendingTTLMinutes) * time.Minute
}

// source resolves a key from the environment first, then the config file.
type source struct {
	file map[string]string
}

func (s source) lookup(key string) (string, bool) {
	if value := os.Getenv(key); value != "" {
		return value, true
	}
	if value, ok := s.file[key]; ok && value != "" {
		return value, true
	}
	return "", false
}

func (s source) get(key, defaultValue string) string {
	if value, ok := s.lookup(key); ok {
		return value
	}
	return defaultValue
}

func (s source) getInt(key string, defaultValue int) int {
	if value, ok := s.lookup(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func (s source) getFloat(key string, defaultValue float64) float64 {
	if value, ok := s.lookup(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func (s source) getBool(key string, defaultValue bool) bool {
	if value, ok := s.lookup(key); ok {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func (s source) getStringSlice(key string, defaultValue []string) []string {
	if value, ok := s.lookup(key); ok {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
