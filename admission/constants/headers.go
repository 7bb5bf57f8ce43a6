package constant

const (
	HeaderUserAgent     = "User-Agent"
	HeaderRealIP        = "X-Real-Ip"
	HeaderForwardedFor  = "X-Forwarded-For"
	HeaderForwardedHost = "X-Forwarded-Host"
	HeaderHost          = "Host"
	HeaderID            = "X-Request-Id"
	Authorization       = "Authorization"
	Bearer              = "Bearer"
	RateLimitLimit      = "X-RateLimit-Limit"
	RateLimitRemaining  = "X-RateLimit-Remaining"
	RateLimitReset      = "X-RateLimit-Reset"
	RateLimitWindow     = "X-RateLimit-Window"
	RetryAfter          = "Retry-After"
)
