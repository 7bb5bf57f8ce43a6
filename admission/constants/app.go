package constant

const (
	// LoggerDefaultSeparator separates the request id prefix from the log message.
	LoggerDefaultSeparator = " | "
	// KeyPrefix is the first segment of every counter key.
	KeyPrefix = "rate_limit"
	// TelemetrySDKName identifies this library on exported telemetry resources.
	TelemetrySDKName = "lib-admission"
)
