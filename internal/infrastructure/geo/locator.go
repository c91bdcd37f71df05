package geo

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const DefaultEndpoint = "http://ip-api.com/json/"

type Config struct {
	// Endpoint is prefixed to the IP; empty disables lookups.
	Endpoint string
	Timeout  time.Duration
}

// Locator performs best-effort IP geolocation against an ip-api compatible
// JSON endpoint.
type Locator struct {
	client   *fasthttp.Client
	endpoint string
	timeout  time.Duration
	logger   *zap.Logger
}

type lookupResponse struct {
	Status     string `json:"status"`
	City       string `json:"city"`
	RegionName string `json:"regionName"`
	Country    string `json:"country"`
}

func NewLocator(cfg Config, client *fasthttp.Client, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = &fasthttp.Client{Name: "sessionguard-geo"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Locator{
		client:   client,
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// Locate returns "City, Country" or an empty string when unknown.
func (l *Locator) Locate(ctx context.Context, ip string) string {
	if l.endpoint == "" || !routable(ip) {
		return ""
	}

	timeout := l.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return ""
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(l.endpoint + ip)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := l.client.DoTimeout(req, resp, timeout); err != nil {
		l.logger.Debug("geolocation lookup failed", zap.String("ip", ip), zap.Error(err))
		return ""
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return ""
	}

	var payload lookupResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil || payload.Status != "success" {
		return ""
	}

	parts := make([]string, 0, 2)
	if payload.City != "" {
		parts = append(parts, payload.City)
	} else if payload.RegionName != "" {
		parts = append(parts, payload.RegionName)
	}
	if payload.Country != "" {
		parts = append(parts, payload.Country)
	}
	return strings.Join(parts, ", ")
}

func routable(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !(parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast())
}
