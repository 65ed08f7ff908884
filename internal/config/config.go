package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSolana = "solana"
)

type Config struct {
	// API settings
	APIAddr string
	APIKey  string
	DevMode bool

	// Backends
	StoreBackend  string // memory | redis
	LedgerBackend string // memory | solana

	// RPC settings
	RPCUrl              string
	AuthorityPrivateKey string
	ConfirmTimeout      time.Duration

	// Extra transfer and burn authorities the solana ledger signs for
	SignerPrivateKeys []string

	// Token accounts the memory ledger opens at startup
	LedgerAccountsFile string

	// Exchange settings
	ProgramID string
	Custodian string
	Fee       string
	LockTTL   time.Duration
	PoolsFile string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Analytics
	OpenRouterAPIKey string
	AnalyticsModel   string

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		// Backends
		StoreBackend:  getEnv("STORE_BACKEND", BackendMemory),
		LedgerBackend: getEnv("LEDGER_BACKEND", BackendMemory),

		// RPC
		RPCUrl:              getEnv("SOLANA_RPC_URL", "https://api.devnet.solana.com"),
		AuthorityPrivateKey: getEnv("AUTHORITY_PRIVATE_KEY", ""),
		ConfirmTimeout:      getDurationEnv("CONFIRM_TIMEOUT", 60*time.Second),
		SignerPrivateKeys:   getListEnv("SIGNER_PRIVATE_KEYS", ";"),
		LedgerAccountsFile:  getEnv("LEDGER_ACCOUNTS_FILE", ""),

		// Exchange
		ProgramID: getEnv("EXCHANGE_PROGRAM_ID", ""),
		Custodian: getEnv("EXCHANGE_CUSTODIAN", ""),
		Fee:       getEnv("AMM_FEE", exchange.DefaultFee.String()),
		LockTTL:   getDurationEnv("LOCK_TTL", 30*time.Second),
		PoolsFile: getEnv("POOLS_FILE", ""),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "solana"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// Analytics
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AnalyticsModel:   getEnv("ANALYTICS_MODEL", ""),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 5),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 2*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the settings that the selected backends depend on.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.StoreBackend)
	}

	switch c.LedgerBackend {
	case BackendMemory:
		if len(c.SignerPrivateKeys) > 0 {
			return fmt.Errorf("SIGNER_PRIVATE_KEYS needs LEDGER_BACKEND=%s", BackendSolana)
		}
	case BackendSolana:
		if c.LedgerAccountsFile != "" {
			return fmt.Errorf("LEDGER_ACCOUNTS_FILE needs LEDGER_BACKEND=%s", BackendMemory)
		}
		if c.AuthorityPrivateKey == "" {
			return fmt.Errorf("AUTHORITY_PRIVATE_KEY is required with LEDGER_BACKEND=%s", BackendSolana)
		}
		if c.RPCUrl == "" {
			return fmt.Errorf("SOLANA_RPC_URL is required with LEDGER_BACKEND=%s", BackendSolana)
		}
	default:
		return fmt.Errorf("LEDGER_BACKEND must be %q or %q, got %q", BackendMemory, BackendSolana, c.LedgerBackend)
	}

	if _, err := c.ExchangeFee(); err != nil {
		return fmt.Errorf("AMM_FEE: %w", err)
	}
	if _, err := c.ExchangeProgramID(); err != nil {
		return fmt.Errorf("EXCHANGE_PROGRAM_ID: %w", err)
	}
	if _, err := c.ExchangeCustodian(); err != nil {
		return fmt.Errorf("EXCHANGE_CUSTODIAN: %w", err)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}
	return nil
}

func (c *Config) ExchangeFee() (exchange.Fee, error) {
	return exchange.ParseFee(c.Fee)
}

// ExchangeProgramID returns the program id pools are derived under. An unset
// value yields the zero key, which is fine for local deployments.
func (c *Config) ExchangeProgramID() (solana.PublicKey, error) {
	return optionalKey(c.ProgramID)
}

func (c *Config) ExchangeCustodian() (solana.PublicKey, error) {
	return optionalKey(c.Custodian)
}

// Level returns the configured log level, falling back to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func optionalKey(s string) (solana.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return solana.PublicKey{}, nil
	}
	return solana.PublicKeyFromBase58(s)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getListEnv splits key on sep, dropping blank entries. Keys in the
// solana-keygen JSON form contain commas, so lists of keys use ";".
func getListEnv(key, sep string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), sep) {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
