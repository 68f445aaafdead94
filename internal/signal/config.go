package signal

// Config holds the thresholds of the overlay pipeline.
type Config struct {
	TrendBand              float64 `mapstructure:"trend_band"`
	TargetVol              float64 `mapstructure:"target_vol"`
	VolBreakerThreshold    float64 `mapstructure:"vol_breaker_threshold"`
	LowVolThreshold        float64 `mapstructure:"low_vol_threshold"`
	HighVolMultiplier      float64 `mapstructure:"high_vol_multiplier"`
	LowVolMultiplier       float64 `mapstructure:"low_vol_multiplier"`
	DrawdownStop           float64 `mapstructure:"drawdown_stop"`
	DrawdownSoft           float64 `mapstructure:"drawdown_soft"`
	DrawdownSoftMultiplier float64 `mapstructure:"drawdown_soft_multiplier"`
	RiskScalarFloor        float64 `mapstructure:"risk_scalar_floor"`
}

// DefaultConfig returns the documented policy defaults.
func DefaultConfig() Config {
	return Config{
		TrendBand:              0.02,
		TargetVol:              0.15,
		VolBreakerThreshold:    0.20,
		LowVolThreshold:        0.10,
		HighVolMultiplier:      0.5,
		LowVolMultiplier:       1.2,
		DrawdownStop:           -0.15,
		DrawdownSoft:           -0.10,
		DrawdownSoftMultiplier: 0.7,
		RiskScalarFloor:        0.3,
	}
}

// Defaults returns the config keys under the given prefix, ready for config.Load.
func Defaults(prefix string) map[string]interface{} {
	d := DefaultConfig()
	return map[string]interface{}{
		prefix + ".trend_band":               d.TrendBand,
		prefix + ".target_vol":               d.TargetVol,
		prefix + ".vol_breaker_threshold":    d.VolBreakerThreshold,
		prefix + ".low_vol_threshold":        d.LowVolThreshold,
		prefix + ".high_vol_multiplier":      d.HighVolMultiplier,
		prefix + ".low_vol_multiplier":       d.LowVolMultiplier,
		prefix + ".drawdown_stop":            d.DrawdownStop,
		prefix + ".drawdown_soft":            d.DrawdownSoft,
		prefix + ".drawdown_soft_multiplier": d.DrawdownSoftMultiplier,
		prefix + ".risk_scalar_floor":        d.RiskScalarFloor,
	}
}
