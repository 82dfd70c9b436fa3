package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/shopspring/decimal"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,12}$`)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName   string `env:"APP_NAME,default=CoinVault"`
	AppEnv    string `env:"APP_ENV,default=development"`
	Port      string `env:"PORT,default=8080"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	// AdminPIN guards every /api/admin route.
	AdminPIN string `env:"ADMIN_PIN,required=true"`

	StoreBackend  string `env:"STORE_BACKEND,default=file"`
	DataFile      string `env:"DATA_FILE,default=data.json"`
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE,default=coinvault"`
	AutoMigrate   bool   `env:"AUTO_MIGRATE,default=false"`

	RedisURL          string `env:"REDIS_URL"`
	NATSURL           string `env:"NATS_URL"`
	NATSSubjectPrefix string `env:"NATS_SUBJECT_PREFIX,default=coinvault"`

	StoreTimeout           time.Duration `env:"STORE_TIMEOUT,default=5s"`
	LockTTL                time.Duration `env:"LOCK_TTL,default=10s"`
	ShutdownPeriod         time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	IdempotencyTTL         time.Duration `env:"IDEMPOTENCY_TTL,default=24h"`
	LoginAttemptsPerMinute int           `env:"LOGIN_ATTEMPTS_PER_MINUTE,default=5"`
	PINHashCost            int           `env:"PIN_HASH_COST,default=10"`

	// Comma separated.
	SupportedAssetsRaw       string `env:"SUPPORTED_ASSETS"`
	StartingBalancesRaw      string `env:"STARTING_BALANCES"`
	AllowNegativeAdjustments bool   `env:"ALLOW_NEGATIVE_ADJUSTMENTS,default=false"`

	// Parsed by Load from the raw values above.
	SupportedAssets  []string
	StartingBalances map[string]decimal.Decimal
}

// Load reads configuration values from the environment and validates them.
func Load() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))

	if strings.TrimSpace(c.AdminPIN) == "" {
		return fmt.Errorf("ADMIN_PIN must be set")
	}
	port, err := strconv.Atoi(strings.TrimPrefix(c.Port, ":"))
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %q", c.Port)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendFile:
		if c.DataFile == "" {
			return fmt.Errorf("DATA_FILE must be set when STORE_BACKEND=file")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when STORE_BACKEND=postgres")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI must be set when STORE_BACKEND=mongo")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND: %s", c.StoreBackend)
	}

	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	// A lock must outlive the operation that holds it.
	if c.LockTTL <= c.StoreTimeout {
		return fmt.Errorf("LOCK_TTL must exceed STORE_TIMEOUT")
	}
	if c.LoginAttemptsPerMinute < 1 {
		return fmt.Errorf("LOGIN_ATTEMPTS_PER_MINUTE must be at least 1")
	}

	var assets []string
	for _, s := range strings.Split(c.SupportedAssetsRaw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !symbolPattern.MatchString(s) {
			return fmt.Errorf("SUPPORTED_ASSETS: invalid symbol %q", s)
		}
		assets = append(assets, s)
	}
	c.SupportedAssets = assets

	balances, err := ParseStartingBalances(c.StartingBalancesRaw)
	if err != nil {
		return err
	}
	c.StartingBalances = balances
	return nil
}

// ParseStartingBalances reads "BTC=0.005,TRX=50" into a symbol to amount map.
func ParseStartingBalances(raw string) (map[string]decimal.Decimal, error) {
	out := map[string]decimal.Decimal{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		symbol, amount, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("STARTING_BALANCES: expected SYMBOL=AMOUNT, got %q", pair)
		}
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if !symbolPattern.MatchString(symbol) {
			return nil, fmt.Errorf("STARTING_BALANCES: invalid symbol %q", symbol)
		}
		value, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("STARTING_BALANCES: invalid amount for %s: %w", symbol, err)
		}
		if value.IsNegative() {
			return nil, fmt.Errorf("STARTING_BALANCES: negative amount for %s", symbol)
		}
		out[symbol] = value
	}
	return out, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDevelopment reports whether APP_ENV names a local environment.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
