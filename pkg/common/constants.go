package common

const (
	RedisStreamSignalGenerated = "signal.generated"
	RedisStreamTaxLossUsage    = "tax.loss.usage"

	RedisStreamGroup    = "decision-group"
	RedisStreamConsumer = "decision-consumer"

	RedisKeyRiskGuard            = "risk_guard:active"
	RedisKeyTaxLossUsageDone     = "tax_loss_usage:done:"
	RedisKeyTaxLossUsageProgress = "tax_loss_usage:progress:"
)
