package endpoints

import "strings"

const CapturePathPrefix = "/webhook/"

// URLBuilder derives display URLs from the configured public base URL.
type URLBuilder struct {
	BaseURL string
}

func (b URLBuilder) Endpoint(token string) string {
	return strings.TrimRight(b.BaseURL, "/") + CapturePathPrefix + token
}
