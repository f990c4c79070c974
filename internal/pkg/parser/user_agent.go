package parser

import "strings"

// ParseUserAgent classifies a User-Agent into coarse OS and client names.
// Webhook senders are mostly libraries, so those are recognized first.
func ParseUserAgent(ua string) (os, client string) {
	uaLower := strings.ToLower(ua)

	switch {
	case strings.Contains(uaLower, "windows"):
		os = "Windows"
	case strings.Contains(uaLower, "android"):
		os = "Android"
	case strings.Contains(uaLower, "iphone") || strings.Contains(uaLower, "ipad"):
		os = "iOS"
	case strings.Contains(uaLower, "mac os"):
		os = "macOS"
	case strings.Contains(uaLower, "linux"):
		os = "Linux"
	default:
		os = "Unknown"
	}

	switch {
	case strings.HasPrefix(uaLower, "curl/"):
		client = "curl"
	case strings.HasPrefix(uaLower, "go-http-client"):
		client = "Go"
	case strings.HasPrefix(uaLower, "python-requests") || strings.HasPrefix(uaLower, "python-urllib"):
		client = "Python"
	case strings.HasPrefix(uaLower, "node-fetch") || strings.HasPrefix(uaLower, "axios"):
		client = "Node"
	case strings.Contains(uaLower, "edg/") || strings.Contains(uaLower, "edge"):
		client = "Edge"
	case strings.Contains(uaLower, "chrome"):
		client = "Chrome"
	case strings.Contains(uaLower, "firefox"):
		client = "Firefox"
	case strings.Contains(uaLower, "safari"):
		client = "Safari"
	default:
		client = "Unknown"
	}

	return os, client
}
