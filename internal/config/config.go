package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config carries server settings plus the scheduling-domain constants.
// The thresholds are tunable because they encode operational policy,
// not algorithm structure.
type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	// Scheduling day boundaries, minutes since midnight.
	DayStartMinutes int `mapstructure:"DAY_START_MINUTES"` // default 07:00
	DayEndMinutes   int `mapstructure:"DAY_END_MINUTES"`   // default 17:00

	TurnoverMinutes        int `mapstructure:"TURNOVER_MINUTES"`
	EquipmentBufferMinutes int `mapstructure:"EQUIPMENT_BUFFER_MINUTES"`

	// Utilization insight thresholds (percent) and turnover warning (minutes).
	UtilizationLowPct       float64 `mapstructure:"UTILIZATION_LOW_PCT"`
	UtilizationHighPct      float64 `mapstructure:"UTILIZATION_HIGH_PCT"`
	TurnoverWarnMinutes     float64 `mapstructure:"TURNOVER_WARN_MINUTES"`
	CancellationWarnPct     float64 `mapstructure:"CANCELLATION_WARN_PCT"`

	// Cancellation risk level cutoffs (probabilities).
	RiskHighThreshold   float64 `mapstructure:"RISK_HIGH_THRESHOLD"`
	RiskMediumThreshold float64 `mapstructure:"RISK_MEDIUM_THRESHOLD"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DAY_START_MINUTES", 7*60)
	v.SetDefault("DAY_END_MINUTES", 17*60)
	v.SetDefault("TURNOVER_MINUTES", 30)
	v.SetDefault("EQUIPMENT_BUFFER_MINUTES", 15)
	v.SetDefault("UTILIZATION_LOW_PCT", 70.0)
	v.SetDefault("UTILIZATION_HIGH_PCT", 85.0)
	v.SetDefault("TURNOVER_WARN_MINUTES", 45.0)
	v.SetDefault("CANCELLATION_WARN_PCT", 5.0)
	v.SetDefault("RISK_HIGH_THRESHOLD", 0.15)
	v.SetDefault("RISK_MEDIUM_THRESHOLD", 0.08)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"DAY_START_MINUTES", "DAY_END_MINUTES",
		"TURNOVER_MINUTES", "EQUIPMENT_BUFFER_MINUTES",
		"UTILIZATION_LOW_PCT", "UTILIZATION_HIGH_PCT",
		"TURNOVER_WARN_MINUTES", "CANCELLATION_WARN_PCT",
		"RISK_HIGH_THRESHOLD", "RISK_MEDIUM_THRESHOLD",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.DayStartMinutes >= cfg.DayEndMinutes {
		return nil, fmt.Errorf("DAY_START_MINUTES must be before DAY_END_MINUTES")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}
