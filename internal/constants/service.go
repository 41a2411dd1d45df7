package constants

// Service names, in startup order.
const (
	ServiceMetrics = "metrics"
	ServiceCommand = "command"
	ServicePoller  = "poller"
)

// UnknownVendor is reported for devices without a configured vendor.
const UnknownVendor = "unknown"
