package auth

import (
	"context"
	"strings"

	"github.com/fastygo/sessionguard/domain"
)

// Client identifies the caller of an auth flow.
type Client struct {
	IP        string
	UserAgent string
}

type uaRule struct {
	needle string
	label  string
}

// Order matters: Edge and Opera also announce Chrome, Chrome announces Safari.
var browserRules = []uaRule{
	{"Edg/", "Edge"},
	{"OPR/", "Opera"},
	{"Opera", "Opera"},
	{"SamsungBrowser/", "Samsung Internet"},
	{"Firefox/", "Firefox"},
	{"FxiOS/", "Firefox"},
	{"CriOS/", "Chrome"},
	{"Chrome/", "Chrome"},
	{"Safari/", "Safari"},
}

var osRules = []uaRule{
	{"Windows NT", "Windows"},
	{"iPhone", "iOS"},
	{"iPad", "iOS"},
	{"Android", "Android"},
	{"CrOS", "ChromeOS"},
	{"Mac OS X", "macOS"},
	{"Macintosh", "macOS"},
	{"Linux", "Linux"},
}

func matchRule(ua string, rules []uaRule, fallback string) string {
	for _, rule := range rules {
		if strings.Contains(ua, rule.needle) {
			return rule.label
		}
	}
	return fallback
}

func parseDevice(ua, os string) string {
	switch {
	case strings.Contains(ua, "iPad"), strings.Contains(ua, "Tablet"):
		return "Tablet"
	case strings.Contains(ua, "Mobi"), strings.Contains(ua, "iPhone"):
		return "Mobile"
	case os == "Android":
		return "Tablet"
	case os == "Windows", os == "macOS", os == "Linux", os == "ChromeOS":
		return "Desktop"
	}
	return ""
}

// ParseUserAgent extracts browser, device and OS labels. Unrecognised parts
// keep the defaults of domain.DefaultSessionMetadata.
func ParseUserAgent(ua string) (browser, device, os string) {
	def := domain.DefaultSessionMetadata()
	if strings.TrimSpace(ua) == "" {
		return def.Browser, def.Device, def.OS
	}
	browser = matchRule(ua, browserRules, def.Browser)
	os = matchRule(ua, osRules, def.OS)
	device = parseDevice(ua, os)
	if device == "" {
		device = def.Device
	}
	return browser, device, os
}

func (uc *UseCase) sessionMetadata(ctx context.Context, client Client) domain.SessionMetadata {
	meta := domain.DefaultSessionMetadata()
	meta.Browser, meta.Device, meta.OS = ParseUserAgent(client.UserAgent)

	if client.IP != "" && client.IP != "unknown" {
		meta.IPAddress = client.IP
		if uc.geo != nil {
			if location := uc.geo.Locate(ctx, client.IP); location != "" {
				meta.Location = location
			}
		}
	}
	return meta
}
