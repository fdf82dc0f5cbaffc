// Package config loads the run configuration for barsim from YAML, JSON or
// TOML files with BARSIM_* environment overrides.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/barsim/risk"
	"github.com/rustyeddy/barsim/sim"
	"github.com/rustyeddy/barsim/strategies"
)

// Config represents the complete backtest configuration
type Config struct {
	Account   AccountConfig   `json:"account" yaml:"account" toml:"account"`
	Execution ExecutionConfig `json:"execution" yaml:"execution" toml:"execution"`
	Data      DataConfig      `json:"data" yaml:"data" toml:"data"`
	Strategy  StrategyConfig  `json:"strategy" yaml:"strategy" toml:"strategy"`
	Risk      RiskConfig      `json:"risk" yaml:"risk" toml:"risk"`
	Report    ReportConfig    `json:"report" yaml:"report" toml:"report"`
	Journal   JournalConfig   `json:"journal" yaml:"journal" toml:"journal"`
	Log       LogConfig       `json:"log" yaml:"log" toml:"log"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	Balance float64 `json:"balance" yaml:"balance" toml:"balance"`
}

// ExecutionConfig contains the cost and leverage model
type ExecutionConfig struct {
	FeeRate       float64 `json:"fee_rate" yaml:"fee_rate" toml:"fee_rate"`
	SlippagePct   float64 `json:"slippage_pct" yaml:"slippage_pct" toml:"slippage_pct"`
	SlippageTicks float64 `json:"slippage_ticks" yaml:"slippage_ticks" toml:"slippage_ticks"`
	TickSize      float64 `json:"tick_size" yaml:"tick_size" toml:"tick_size"`
	Leverage      float64 `json:"leverage" yaml:"leverage" toml:"leverage"`
}

// DataConfig names the input files
type DataConfig struct {
	Bars    string `json:"bars" yaml:"bars" toml:"bars"`
	Signals string `json:"signals" yaml:"signals" toml:"signals"`
}

// StrategyConfig selects a built-in signal generator used when no signals
// file is given.
type StrategyConfig struct {
	Name   string            `json:"name" yaml:"name" toml:"name"`
	Params strategies.Config `json:"params" yaml:"params" toml:"params"`
}

// RiskConfig turns on the signal review against a risk policy
type RiskConfig struct {
	Review      bool    `json:"review" yaml:"review" toml:"review"`
	MaxRiskPct  float64 `json:"max_risk_pct" yaml:"max_risk_pct" toml:"max_risk_pct"`
	MinRR       float64 `json:"min_rr" yaml:"min_rr" toml:"min_rr"`
	RequireStop bool    `json:"require_stop" yaml:"require_stop" toml:"require_stop"`
}

// Policy returns the review policy, or nil when review is off.
func (r RiskConfig) Policy() *risk.Policy {
	if !r.Review {
		return nil
	}
	return &risk.Policy{MaxRiskPct: r.MaxRiskPct, MinRR: r.MinRR, RequireStop: r.RequireStop}
}

// ReportConfig contains evaluation and report parameters
type ReportConfig struct {
	AnnualDays float64  `json:"annual_days" yaml:"annual_days" toml:"annual_days"`
	OrgFile    string   `json:"org_file,omitempty" yaml:"org_file,omitempty" toml:"org_file,omitempty"`
	Notes      []string `json:"notes,omitempty" yaml:"notes,omitempty" toml:"notes,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type" toml:"type"` // "none", "csv", "sqlite" or "both"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty" toml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty" toml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty" toml:"db_path,omitempty"`
}

// CSV reports whether trades and equity go to CSV files.
func (j JournalConfig) CSV() bool { return j.Type == "csv" || j.Type == "both" }

// SQLite reports whether trades, equity and the run go to SQLite.
func (j JournalConfig) SQLite() bool { return j.Type == "sqlite" || j.Type == "both" }

// LogConfig controls the logrus logger
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"` // "text" or "json"
}

type format int

const (
	formatYAML format = iota
	formatJSON
	formatTOML
	formatUnknown
)

func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".json":
		return formatJSON
	case ".toml":
		return formatTOML
	default:
		return formatUnknown
	}
}

// Load reads the configuration at path on top of Default, loads a .env file
// if present and applies BARSIM_* environment overrides. An empty path
// yields the defaults plus overrides. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
	}

	// .env is optional
	_ = godotenv.Load()

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads and validates the configuration at path.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch formatOf(path) {
	case formatYAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config: %w", err)
		}
	case formatJSON:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse json config: %w", err)
		}
	case formatTOML:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse toml config: %w", err)
		}
	default:
		// Try YAML first, fall back to JSON
		if err := yaml.Unmarshal(data, cfg); err != nil {
			if jerr := json.Unmarshal(data, cfg); jerr != nil {
				return fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
			}
		}
	}
	return nil
}

// SaveToFile saves configuration to a file (YAML, TOML or JSON based on
// extension)
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)

	switch formatOf(path) {
	case formatYAML:
		data, err = yaml.Marshal(c)
	case formatTOML:
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(c)
		data = buf.Bytes()
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Params converts the account and execution sections to simulator
// parameters.
func (c *Config) Params() sim.Params {
	return sim.Params{
		InitialCapital: c.Account.Balance,
		FeeRate:        c.Execution.FeeRate,
		SlippagePct:    c.Execution.SlippagePct,
		SlippageTicks:  c.Execution.SlippageTicks,
		TickSize:       c.Execution.TickSize,
		Leverage:       c.Execution.Leverage,
	}
}

// Generator builds the configured signal generator.
func (c *Config) Generator() (strategies.Generator, error) {
	if c.Strategy.Name == "" {
		return nil, errors.New("strategy.name is empty")
	}
	return strategies.ByName(c.Strategy.Name, c.Strategy.Params)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("execution: %w", err)
	}

	if c.Data.Bars == "" {
		return fmt.Errorf("data.bars is required")
	}
	switch {
	case c.Data.Signals == "" && c.Strategy.Name == "":
		return fmt.Errorf("either data.signals or strategy.name is required")
	case c.Data.Signals != "" && c.Strategy.Name != "":
		return fmt.Errorf("data.signals and strategy.name are mutually exclusive")
	case c.Strategy.Name != "":
		if _, err := c.Generator(); err != nil {
			return fmt.Errorf("strategy: %w", err)
		}
	}

	if c.Risk.MaxRiskPct < 0 || c.Risk.MinRR < 0 {
		return fmt.Errorf("risk limits must not be negative")
	}

	if c.Report.AnnualDays < 0 {
		return fmt.Errorf("report.annual_days must not be negative")
	}

	switch c.Journal.Type {
	case "none", "csv", "sqlite", "both":
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv', 'sqlite' or 'both'")
	}
	if c.Journal.CSV() && (c.Journal.TradesFile == "" || c.Journal.EquityFile == "") {
		return fmt.Errorf("journal trades_file and equity_file required for CSV type")
	}
	if c.Journal.SQLite() && c.Journal.DBPath == "" {
		return fmt.Errorf("journal db_path required for SQLite type")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	p := sim.DefaultParams()
	rp := risk.DefaultPolicy()
	return &Config{
		Account: AccountConfig{
			Balance: p.InitialCapital,
		},
		Execution: ExecutionConfig{
			FeeRate:       p.FeeRate,
			SlippagePct:   p.SlippagePct,
			SlippageTicks: p.SlippageTicks,
			TickSize:      p.TickSize,
			Leverage:      p.Leverage,
		},
		Data: DataConfig{
			Bars:    "./bars.csv",
			Signals: "./signals.csv",
		},
		Strategy: StrategyConfig{
			Params: strategies.ConfigDefaults(),
		},
		Risk: RiskConfig{
			MaxRiskPct: rp.MaxRiskPct,
			MinRR:      rp.MinRR,
		},
		Report: ReportConfig{
			AnnualDays: 365,
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
