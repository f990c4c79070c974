package notify

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const maxBodyPreview = 1000

// summary is the one-line description both channels lead with.
func summary(ev Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s request received on %q", ev.Request.Method, ev.Webhook.Name)
	if ev.Request.IP != nil {
		fmt.Fprintf(&b, " from %s", *ev.Request.IP)
	}
	return b.String()
}

func details(ev Event, appURL string) string {
	var b strings.Builder
	b.WriteString(summary(ev))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Time: %s\n", time.UnixMilli(ev.Request.Timestamp).UTC().Format(time.RFC3339))
	if ev.Request.RawQuery != "" {
		fmt.Fprintf(&b, "Query: %s\n", ev.Request.RawQuery)
	}
	if ev.Request.Body != nil {
		fmt.Fprintf(&b, "Body: %s\n", truncate(string(ev.Request.Body), maxBodyPreview))
	}
	if appURL != "" {
		fmt.Fprintf(&b, "\nView: %s/webhooks/%s\n", strings.TrimRight(appURL, "/"), ev.Webhook.ID)
	}
	return b.String()
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
