package config

import (
	"os"
	"strconv"
	"strings"
)

// applyEnvOverrides overwrites fields whose BARSIM_* variable is set and
// parses. Unparsable numbers are ignored.
func applyEnvOverrides(cfg *Config) {
	setFloat64(&cfg.Account.Balance, "BARSIM_ACCOUNT_BALANCE")

	setFloat64(&cfg.Execution.FeeRate, "BARSIM_EXECUTION_FEE_RATE")
	setFloat64(&cfg.Execution.SlippagePct, "BARSIM_EXECUTION_SLIPPAGE_PCT")
	setFloat64(&cfg.Execution.SlippageTicks, "BARSIM_EXECUTION_SLIPPAGE_TICKS")
	setFloat64(&cfg.Execution.TickSize, "BARSIM_EXECUTION_TICK_SIZE")
	setFloat64(&cfg.Execution.Leverage, "BARSIM_EXECUTION_LEVERAGE")

	setStr(&cfg.Data.Bars, "BARSIM_DATA_BARS")
	setStr(&cfg.Data.Signals, "BARSIM_DATA_SIGNALS")

	setStr(&cfg.Strategy.Name, "BARSIM_STRATEGY_NAME")
	setFloat64(&cfg.Strategy.Params.RiskPct, "BARSIM_STRATEGY_RISK_PERCENT")
	setFloat64(&cfg.Strategy.Params.TakeProfitPct, "BARSIM_STRATEGY_TAKE_PROFIT_PCT")
	setFloat64(&cfg.Strategy.Params.StopLossPct, "BARSIM_STRATEGY_STOP_LOSS_PCT")

	setBool(&cfg.Risk.Review, "BARSIM_RISK_REVIEW")
	setFloat64(&cfg.Risk.MaxRiskPct, "BARSIM_RISK_MAX_RISK_PCT")
	setFloat64(&cfg.Risk.MinRR, "BARSIM_RISK_MIN_RR")

	setFloat64(&cfg.Report.AnnualDays, "BARSIM_REPORT_ANNUAL_DAYS")
	setStr(&cfg.Report.OrgFile, "BARSIM_REPORT_ORG_FILE")

	setStr(&cfg.Journal.Type, "BARSIM_JOURNAL_TYPE")
	setStr(&cfg.Journal.TradesFile, "BARSIM_JOURNAL_TRADES_FILE")
	setStr(&cfg.Journal.EquityFile, "BARSIM_JOURNAL_EQUITY_FILE")
	setStr(&cfg.Journal.DBPath, "BARSIM_JOURNAL_DB_PATH")

	setStr(&cfg.Log.Level, "BARSIM_LOG_LEVEL")
	setStr(&cfg.Log.Format, "BARSIM_LOG_FORMAT")
}

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}
