package format

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/babelcloud/vlm-bridge/pkg/logger"
)

// APIEndpoint represents an API endpoint
type APIEndpoint struct {
	Method      string
	Path        string
	Description string
}

var methodColors = map[string]color.Attribute{
	"GET":    color.FgGreen,
	"POST":   color.FgYellow,
	"PUT":    color.FgBlue,
	"PATCH":  color.FgCyan,
	"DELETE": color.FgRed,
}

// FormatHTTPMethod returns a colored and bold HTTP method string
func FormatHTTPMethod(method string) string {
	if c, ok := methodColors[method]; ok {
		return color.New(color.Bold, c).Sprint(method)
	}
	return color.New(color.Bold).Sprint(method)
}

// FormatBrowserMode describes how pages are obtained: a launched chromium or
// a remote playwright server.
func FormatBrowserMode(mode, endpoint string) string {
	green := color.New(color.FgGreen)
	target := color.New(color.Bold, color.FgCyan)
	if mode == "connect" {
		return green.Sprint("Pages run on remote browser ") + target.Sprint(endpoint)
	}
	return green.Sprint("Pages run on a ") + target.Sprint("local chromium")
}

// FormatDurationConcise renders whole days, hours, minutes or seconds as
// "2d", "3h", "30m", "45s"; anything else falls back to Duration.String.
func FormatDurationConcise(d time.Duration) string {
	units := []struct {
		size   time.Duration
		suffix string
	}{
		{24 * time.Hour, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
	}
	for _, u := range units {
		if d > 0 && d%u.size == 0 {
			return fmt.Sprintf("%d%s", d/u.size, u.suffix)
		}
	}
	return d.String()
}

// LogAPIEndpoint logs an API endpoint with consistent formatting
func LogAPIEndpoint(log *logger.Logger, endpoint APIEndpoint) {
	// Tabs keep alignment since ANSI codes don't move tab stops
	log.Info("  %s\t\t%s\t\t%s",
		FormatHTTPMethod(endpoint.Method),
		endpoint.Path,
		endpoint.Description,
	)
}

// LogAPIEndpoints logs a header and a list of API endpoints
func LogAPIEndpoints(log *logger.Logger, endpoints []APIEndpoint) {
	log.Info("API endpoints:")
	for _, endpoint := range endpoints {
		LogAPIEndpoint(log, endpoint)
	}
}
