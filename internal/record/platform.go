package record

import "strings"

// Platform is the execution surface a test targets, derived from path
// substrings in its class name.
type Platform string

const (
	PlatformAPI     Platform = "API"
	PlatformWeb     Platform = "WEB"
	PlatformMobile  Platform = "MOBILE"
	PlatformUnknown Platform = "UNKNOWN"
)

// DerivePlatform inspects the class name's package path for a platform
// segment. Dotted segments are checked first; a bare token match is the
// fallback for short class names without a package path.
func DerivePlatform(className string) Platform {
	lower := strings.ToLower(className)
	switch {
	case strings.Contains(lower, ".api."):
		return PlatformAPI
	case strings.Contains(lower, ".web."):
		return PlatformWeb
	case strings.Contains(lower, ".mobile."):
		return PlatformMobile
	case strings.Contains(lower, "api"):
		return PlatformAPI
	case strings.Contains(lower, "web"):
		return PlatformWeb
	case strings.Contains(lower, "mobile"):
		return PlatformMobile
	default:
		return PlatformUnknown
	}
}
