package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultCatalogRPS     = 10.0
	defaultCatalogBurst   = 20
	defaultCatalogTTL     = 5 * time.Minute
	defaultQuantum        = 150 * time.Millisecond
	defaultTaxRate        = 0.08
	defaultLogLevel       = "info"
)

// ErrInvalid reports a configuration value outside its allowed range.
var ErrInvalid = errors.New("invalid configuration")

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	LogLevel             string

	// CatalogFile and CatalogURL select the catalog source. With neither set
	// the built-in catalog is served.
	CatalogFile  string
	CatalogURL   string
	CatalogRPS   float64
	CatalogBurst int
	CatalogTTL   time.Duration

	DebounceQuantum time.Duration
	TaxRate         float64
	// SessionDB is the SQLite file saved configurations go to. Empty keeps
	// them in memory.
	SessionDB string

	SauceRatios map[string]int
	PackSizes   map[string]int
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string         `yaml:"port"`
	ShutdownGracePeriod  string         `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string         `yaml:"read_header_timeout"`
	WriteTimeout         string         `yaml:"write_timeout"`
	IdleTimeout          string         `yaml:"idle_timeout"`
	EnableRequestLogging *bool          `yaml:"enable_request_logging"`
	LogLevel             string         `yaml:"log_level"`
	RateLimit            *yamlRateLimit `yaml:"rate_limit"`
	Catalog              yamlCatalog    `yaml:"catalog"`
	Pricing              yamlPricing    `yaml:"pricing"`
	Sessions             yamlSessions   `yaml:"sessions"`
	Packaging            yamlPackaging  `yaml:"packaging"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type yamlCatalog struct {
	File  string  `yaml:"file"`
	URL   string  `yaml:"url"`
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	TTL   string  `yaml:"ttl"`
}

type yamlPricing struct {
	TaxRate  *float64 `yaml:"tax_rate"`
	Debounce string   `yaml:"debounce"`
}

type yamlSessions struct {
	Database string `yaml:"database"`
}

type yamlPackaging struct {
	SauceRatios map[string]int `yaml:"sauce_ratios"`
	PackSizes   map[string]int `yaml:"pack_sizes"`
}

// envConfig mirrors Config for environment variables. Pointer fields stay nil
// when the variable is unset.
type envConfig struct {
	Port                 *string        `env:"PORT"`
	ShutdownGracePeriod  *time.Duration `env:"SHUTDOWN_GRACE_PERIOD"`
	EnableRequestLogging *bool          `env:"ENABLE_REQUEST_LOGGING"`
	RateLimitRPS         *float64       `env:"RATE_LIMIT_RPS"`
	RateLimitBurst       *int           `env:"RATE_LIMIT_BURST"`
	LogLevel             *string        `env:"LOG_LEVEL"`
	CatalogFile          *string        `env:"CATALOG_FILE"`
	CatalogURL           *string        `env:"CATALOG_URL"`
	CatalogRPS           *float64       `env:"CATALOG_RPS"`
	CatalogTTL           *time.Duration `env:"CATALOG_TTL"`
	DebounceQuantum      *time.Duration `env:"PRICING_DEBOUNCE"`
	TaxRate              *float64       `env:"TAX_RATE"`
	SessionDB            *string        `env:"SESSION_DB"`
	SauceRatios          map[string]int `env:"SAUCE_RATIOS" envKeyValSeparator:"="`
	PackSizes            map[string]int `env:"PACK_SIZES" envKeyValSeparator:"="`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	EnvFile        string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	LogLevel       *string
	CatalogFile    *string
	CatalogURL     *string
	SessionDB      *string
	TaxRate        *float64
	PackSizesStr   *string
	SauceRatiosStr *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if overrides != nil && overrides.EnvFile != "" {
		if err := godotenv.Load(overrides.EnvFile); err != nil {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, err
		}
	}

	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		LogLevel:             defaultLogLevel,
		CatalogRPS:           defaultCatalogRPS,
		CatalogBurst:         defaultCatalogBurst,
		CatalogTTL:           defaultCatalogTTL,
		DebounceQuantum:      defaultQuantum,
		TaxRate:              defaultTaxRate,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	durations := []struct {
		name  string
		raw   string
		field *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
		{"catalog.ttl", yamlCfg.Catalog.TTL, &cfg.CatalogTTL},
		{"pricing.debounce", yamlCfg.Pricing.Debounce, &cfg.DebounceQuantum},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.field = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	if yamlCfg.RateLimit != nil {
		cfg.RateLimitRPS = yamlCfg.RateLimit.RPS
		cfg.RateLimitBurst = yamlCfg.RateLimit.Burst
	}

	if yamlCfg.Catalog.File != "" {
		cfg.CatalogFile = yamlCfg.Catalog.File
	}
	if yamlCfg.Catalog.URL != "" {
		cfg.CatalogURL = yamlCfg.Catalog.URL
	}
	if yamlCfg.Catalog.RPS > 0 {
		cfg.CatalogRPS = yamlCfg.Catalog.RPS
	}
	if yamlCfg.Catalog.Burst > 0 {
		cfg.CatalogBurst = yamlCfg.Catalog.Burst
	}

	if yamlCfg.Pricing.TaxRate != nil {
		cfg.TaxRate = *yamlCfg.Pricing.TaxRate
	}
	if yamlCfg.Sessions.Database != "" {
		cfg.SessionDB = yamlCfg.Sessions.Database
	}

	cfg.SauceRatios = mergeTable(cfg.SauceRatios, yamlCfg.Packaging.SauceRatios)
	cfg.PackSizes = mergeTable(cfg.PackSizes, yamlCfg.Packaging.PackSizes)
	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setString(&cfg.Port, e.Port)
	setString(&cfg.LogLevel, e.LogLevel)
	setString(&cfg.CatalogFile, e.CatalogFile)
	setString(&cfg.CatalogURL, e.CatalogURL)
	setString(&cfg.SessionDB, e.SessionDB)

	if e.ShutdownGracePeriod != nil {
		cfg.ShutdownGracePeriod = *e.ShutdownGracePeriod
	}
	if e.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *e.EnableRequestLogging
	}
	if e.RateLimitRPS != nil {
		cfg.RateLimitRPS = *e.RateLimitRPS
	}
	if e.RateLimitBurst != nil {
		cfg.RateLimitBurst = *e.RateLimitBurst
	}
	if e.CatalogRPS != nil {
		cfg.CatalogRPS = *e.CatalogRPS
	}
	if e.CatalogTTL != nil {
		cfg.CatalogTTL = *e.CatalogTTL
	}
	if e.DebounceQuantum != nil {
		cfg.DebounceQuantum = *e.DebounceQuantum
	}
	if e.TaxRate != nil {
		cfg.TaxRate = *e.TaxRate
	}

	cfg.SauceRatios = mergeTable(cfg.SauceRatios, e.SauceRatios)
	cfg.PackSizes = mergeTable(cfg.PackSizes, e.PackSizes)
	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	setString(&cfg.Port, overrides.Port)
	setString(&cfg.LogLevel, overrides.LogLevel)
	setString(&cfg.CatalogFile, overrides.CatalogFile)
	setString(&cfg.CatalogURL, overrides.CatalogURL)
	setString(&cfg.SessionDB, overrides.SessionDB)

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
	if overrides.TaxRate != nil && *overrides.TaxRate >= 0 {
		cfg.TaxRate = *overrides.TaxRate
	}

	if overrides.PackSizesStr != nil && *overrides.PackSizesStr != "" {
		table, err := parseTable(*overrides.PackSizesStr)
		if err != nil {
			return fmt.Errorf("parse pack sizes: %w", err)
		}
		cfg.PackSizes = mergeTable(cfg.PackSizes, table)
	}
	if overrides.SauceRatiosStr != nil && *overrides.SauceRatiosStr != "" {
		table, err := parseTable(*overrides.SauceRatiosStr)
		if err != nil {
			return fmt.Errorf("parse sauce ratios: %w", err)
		}
		cfg.SauceRatios = mergeTable(cfg.SauceRatios, table)
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_RPS must be >= 0", ErrInvalid)
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_BURST must be >= 0", ErrInvalid)
	}
	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		return fmt.Errorf("%w: tax rate must be in [0, 1), got %v", ErrInvalid, cfg.TaxRate)
	}
	if cfg.CatalogTTL < 0 {
		return fmt.Errorf("%w: catalog TTL must be >= 0", ErrInvalid)
	}
	if cfg.DebounceQuantum <= 0 {
		return fmt.Errorf("%w: pricing debounce must be positive", ErrInvalid)
	}
	if cfg.CatalogFile != "" && cfg.CatalogURL != "" {
		return fmt.Errorf("%w: catalog file and catalog URL are mutually exclusive", ErrInvalid)
	}
	for name, table := range map[string]map[string]int{"sauce ratio": cfg.SauceRatios, "pack size": cfg.PackSizes} {
		for k, v := range table {
			if v <= 0 {
				return fmt.Errorf("%w: %s %q must be positive, got %d", ErrInvalid, name, k, v)
			}
		}
	}
	return nil
}

// parseTable parses "key=value" pairs separated by commas, e.g. "dips=5,chips=10".
// Every value must be a positive integer.
func parseTable(raw string) (map[string]int, error) {
	parts := strings.Split(raw, ",")
	table := make(map[string]int, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", value)
		}
		if n <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %d", key, n)
		}
		table[key] = n
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("no entries provided")
	}
	return table, nil
}

func mergeTable(dst, src map[string]int) map[string]int {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]int, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func setString(dst *string, src *string) {
	if src != nil && strings.TrimSpace(*src) != "" {
		*dst = strings.TrimSpace(*src)
	}
}
