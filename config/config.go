package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	ex "mc.backtest/extensions"
	"mc.backtest/models"
)

// EnvPrefix prefixes every environment override, MCB_SIMULATIONS=5000 for example
const EnvPrefix = "MCB"

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"

	DefaultWorkers   = 1
	DefaultBatchSize = 10_000
	DefaultAddr      = ":8080"
)

// Config is the merged view of defaults, an optional yaml file, MCB_ environment
// variables and command line flags, in increasing order of precedence.
type Config struct {
	Portfolio    string  `mapstructure:"portfolio"`
	Benchmark    string  `mapstructure:"benchmark"`
	RiskFree     string  `mapstructure:"risk-free"`
	Maturity     string  `mapstructure:"maturity" validate:"required"`
	RiskFreeRate float64 `mapstructure:"rate" validate:"gt=-1"`
	Simulations  int     `mapstructure:"simulations" validate:"gte=0,lte=1000000"`
	Seed         uint64  `mapstructure:"seed"`
	Workers      int     `mapstructure:"workers" validate:"gte=0,lte=64"`
	BatchSize    int     `mapstructure:"batch-size" validate:"gte=1"`
	Format       string  `mapstructure:"format" validate:"oneof=text json yaml"`
	LogLevel     string  `mapstructure:"log-level" validate:"omitempty,oneof=debug info warn error"`
	LogPretty    bool    `mapstructure:"log-pretty"`
	Addr         string  `mapstructure:"addr" validate:"required"`
}

var validate = validator.New()

// RegisterFlags declares every configuration key as a flag on fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "optional yaml config file")
	fs.String("portfolio", "", "portfolio price table (csv)")
	fs.String("benchmark", "", "benchmark price table (csv)")
	fs.String("risk-free", "", "treasury rate table (csv), the constant --rate is used when omitted")
	fs.String("maturity", models.DefaultMaturity, "maturity column of the risk free table")
	fs.Float64("rate", models.DefaultRiskFreeRate, "constant annual risk free rate")
	fs.Int("simulations", models.DefaultSimulations, "number of monte carlo trials")
	fs.Uint64("seed", 0, "random seed, 0 picks one and reports it")
	fs.Int("workers", DefaultWorkers, "simulation workers, 0 uses one per cpu")
	fs.Int("batch-size", DefaultBatchSize, "trials per simulation batch")
	fs.String("format", FormatText, "report format: text, json or yaml")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.Bool("log-pretty", false, "human readable log output")
	fs.String("addr", DefaultAddr, "http listen address for serve")
}

// Load resolves the configuration for flags registered with RegisterFlags
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", path, err)
			}
		}
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("error binding flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if !ex.IsFinite(cfg.RiskFreeRate) {
		return nil, fmt.Errorf("invalid configuration: rate %v is not a finite number", cfg.RiskFreeRate)
	}

	return &cfg, nil
}

// ValidateForRun checks the inputs a backtest run needs on top of Load's validation
func (c *Config) ValidateForRun() error {
	if err := validate.Var(c.Portfolio, "required"); err != nil {
		return fmt.Errorf("a portfolio price file is required")
	}
	if err := validate.Var(c.Benchmark, "required"); err != nil {
		return fmt.Errorf("a benchmark price file is required")
	}
	return nil
}

// BacktestSettings maps the configuration onto a run, a worker count of 0 becomes one per cpu
func (c *Config) BacktestSettings() models.BacktestSettings {
	workers := c.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	return models.BacktestSettings{
		Maturity:     c.Maturity,
		RiskFreeRate: c.RiskFreeRate,
		Simulations:  c.Simulations,
		Seed:         c.Seed,
		Workers:      workers,
		BatchSize:    c.BatchSize,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("portfolio", "")
	v.SetDefault("benchmark", "")
	v.SetDefault("risk-free", "")
	v.SetDefault("maturity", models.DefaultMaturity)
	v.SetDefault("rate", models.DefaultRiskFreeRate)
	v.SetDefault("simulations", models.DefaultSimulations)
	v.SetDefault("seed", 0)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("batch-size", DefaultBatchSize)
	v.SetDefault("format", FormatText)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-pretty", false)
	v.SetDefault("addr", DefaultAddr)
}
