// Package cloudflare implements the minimal read-only slice of the Cloudflare
// v4 API the pre-flight check needs: list the zones a token can manage and
// verify DNS record read access to one of them. It deliberately does not use
// a full API SDK; the check depends on surfacing the provider's envelope
// errors, status codes, and zone listings verbatim.
package cloudflare

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// init initializes the package logger.
func init() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize zap logger: %v", err))
	}
	logger = l.With(zap.String("package", "cloudflare"))
}

// DefaultBaseURL is the production Cloudflare v4 API endpoint.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

const (
	// requestTimeout bounds each API round trip. There are no retries; a
	// single failed attempt fails the whole run.
	requestTimeout = 10 * time.Second

	// zonePageSize bounds the zone listing to one page. A token managing
	// more zones than this may produce a false "zone not found"; full
	// pagination is intentionally out of scope.
	zonePageSize = 50

	// maxErrorBody caps how much of an unexpected response body is carried
	// into an error message.
	maxErrorBody = 200
)

// ZoneInfo is the outcome of a successful zone access probe.
type ZoneInfo struct {
	ID     string
	Name   string
	Status string
}

// zone is the subset of the zone object the probe consults.
type zone struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type dnsRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// envelope fields shared by every v4 response.
type zonesResponse struct {
	Success bool       `json:"success"`
	Errors  []APIError `json:"errors"`
	Result  []zone     `json:"result"`
}

type recordsResponse struct {
	Success bool        `json:"success"`
	Errors  []APIError  `json:"errors"`
	Result  []dnsRecord `json:"result"`
}

// Client is a bearer-token Cloudflare API client scoped to the two read
// endpoints the probe needs.
type Client struct {
	http *resty.Client
}

// NewClient returns a Client authenticating with token against baseURL.
// Callers outside tests pass DefaultBaseURL.
func NewClient(baseURL, token string) *Client {
	r := resty.New()
	r.SetBaseURL(baseURL)
	r.SetAuthToken(token)
	r.SetTimeout(requestTimeout)
	r.SetHeader("Content-Type", "application/json")
	return &Client{http: r}
}

// BaseDomain derives the registrable-domain candidate used to match a
// subdomain to its owning zone: with more than two labels the last two are
// kept (app.example.com -> example.com), otherwise the domain is returned
// unchanged.
//
// This is a heuristic. It is wrong for multi-label public suffixes such as
// .co.uk or .com.au (app.example.co.uk -> co.uk); operators with such
// domains must set DOMAIN to the exact Cloudflare zone name. The probe still
// matches the exact domain first, so doing that always works.
func BaseDomain(domain string) string {
	parts := strings.Split(domain, ".")
	if len(parts) > 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return domain
}

// ProbeZoneAccess verifies that the client's token can see the zone owning
// domain and can read its DNS records. It lists manageable zones, takes the
// first in response order whose name equals the domain or its BaseDomain
// candidate, and issues a one-record listing against that zone as a
// read-permission probe. Write permission is never exercised.
func (c *Client) ProbeZoneAccess(ctx context.Context, domain string) (*ZoneInfo, error) {
	baseDomain := BaseDomain(domain)

	var zones zonesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("per_page", strconv.Itoa(zonePageSize)).
		SetResult(&zones).
		Get("/zones")
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if !resp.IsSuccess() {
		return nil, statusError("", resp)
	}
	if !zones.Success {
		return nil, &ProtocolError{Errors: zones.Errors}
	}
	if len(zones.Result) == 0 {
		return nil, ErrNoZones
	}

	var matched *zone
	accessible := make([]string, 0, len(zones.Result))
	for i := range zones.Result {
		accessible = append(accessible, zones.Result[i].Name)
		if matched == nil && (zones.Result[i].Name == domain || zones.Result[i].Name == baseDomain) {
			matched = &zones.Result[i]
		}
	}
	if matched == nil {
		return nil, &ZoneNotFoundError{Domain: domain, BaseDomain: baseDomain, Zones: accessible}
	}

	logger.Debug("zone resolved",
		zap.String("domain", domain),
		zap.String("zone", matched.Name),
		zap.String("zone_id", matched.ID))

	var records recordsResponse
	resp, err = c.http.R().
		SetContext(ctx).
		SetQueryParam("per_page", "1").
		SetResult(&records).
		Get("/zones/" + matched.ID + "/dns_records")
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if !resp.IsSuccess() {
		return nil, statusError(matched.Name, resp)
	}
	if !records.Success {
		return nil, &ProtocolError{Zone: matched.Name, Errors: records.Errors}
	}

	status := matched.Status
	if status == "" {
		status = "unknown"
	}
	return &ZoneInfo{ID: matched.ID, Name: matched.Name, Status: status}, nil
}

// statusError converts a non-2xx response into the taxonomy: 403 means the
// token lacks permission, anything else carries the status and a truncated
// body.
func statusError(zoneName string, resp *resty.Response) error {
	if resp.StatusCode() == 403 {
		return &AuthorizationError{Zone: zoneName}
	}
	body := resp.String()
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{
		Zone:       zoneName,
		StatusCode: resp.StatusCode(),
		StatusText: http.StatusText(resp.StatusCode()),
		Body:       body,
	}
}
