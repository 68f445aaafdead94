package config

import (
	"time"

	"golang-etf-decision/internal/signal"
	"golang-etf-decision/pkg/config"
)

// Scheduler holds the job runner configuration.
type Scheduler struct {
	Location string `mapstructure:"location"`
	Jobs     []Job  `mapstructure:"jobs"`
}

// Job binds a job type to a cron expression.
type Job struct {
	Type           string        `mapstructure:"type"`
	CronExpression string        `mapstructure:"cron_expression"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Decision holds the universe and coverage settings used when picking the as-of date.
type Decision struct {
	Venue             string        `mapstructure:"venue"`
	CoverageThreshold float64       `mapstructure:"coverage_threshold"`
	Universe          []string      `mapstructure:"universe"`
	CalendarCacheTTL  time.Duration `mapstructure:"calendar_cache_ttl"`
}

// Tax holds tax-loss allocation settings.
type Tax struct {
	ShortfallEpsilon float64 `mapstructure:"shortfall_epsilon"`
	NotifyShortfall  bool    `mapstructure:"notify_shortfall"`
	Currency         string  `mapstructure:"currency"`
}

// Consumer holds the redis stream consumer settings.
type Consumer struct {
	TaxLossUsageTimeout         time.Duration `mapstructure:"tax_loss_usage_timeout"`
	TaxLossUsageRetryInterval   time.Duration `mapstructure:"tax_loss_usage_retry_interval"`
	TaxLossUsageMaxIdleDuration time.Duration `mapstructure:"tax_loss_usage_max_idle_duration"`
	TaxLossUsageMaxRetry        int           `mapstructure:"tax_loss_usage_max_retry"`
	TaxLossUsageProgressTTL     time.Duration `mapstructure:"tax_loss_usage_progress_ttl"`
}

// Config holds the full configuration for the decision service.
type Config struct {
	App       config.App      `mapstructure:"app"`
	Logger    config.Logger   `mapstructure:"logger"`
	Database  config.Database `mapstructure:"database"`
	Redis     config.Redis    `mapstructure:"redis"`
	API       config.API      `mapstructure:"api"`
	Telegram  config.Telegram `mapstructure:"telegram"`
	Scheduler Scheduler       `mapstructure:"scheduler"`
	Decision  Decision        `mapstructure:"decision"`
	Signal    signal.Config   `mapstructure:"signal"`
	Tax       Tax             `mapstructure:"tax"`
	Consumer  Consumer        `mapstructure:"consumer"`
}

func defaults() map[string]interface{} {
	d := map[string]interface{}{
		"app.name":                                  "etf-decision-service",
		"logger.level":                              "info",
		"logger.encoding":                           "json",
		"api.port":                                  8080,
		"redis.stream_max_len":                      10000,
		"telegram.max_messages_per_minute":          20,
		"scheduler.location":                        "Europe/Rome",
		"decision.venue":                            "XMIL",
		"decision.coverage_threshold":               0.8,
		"decision.calendar_cache_ttl":               "6h",
		"tax.shortfall_epsilon":                     0.01,
		"tax.notify_shortfall":                      true,
		"tax.currency":                              "EUR",
		"consumer.tax_loss_usage_timeout":           "30s",
		"consumer.tax_loss_usage_retry_interval":    "1m",
		"consumer.tax_loss_usage_max_idle_duration": "5m",
		"consumer.tax_loss_usage_max_retry":         5,
		"consumer.tax_loss_usage_progress_ttl":      "168h",
	}
	for k, v := range signal.Defaults("signal") {
		d[k] = v
	}
	return d
}

// Load loads the decision service configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg, defaults()); err != nil {
		return nil, err
	}
	return &cfg, nil
}
