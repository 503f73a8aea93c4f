package cloudflare

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoZones is returned when the token authenticates successfully but has no
// zones it can manage.
var ErrNoZones = errors.New("cloudflare: API token has no access to any zones")

// APIError is one entry of the "errors" array in the Cloudflare v4 response
// envelope.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e APIError) String() string {
	code := "unknown"
	if e.Code != 0 {
		code = fmt.Sprintf("%d", e.Code)
	}
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	return code + ": " + msg
}

// ProtocolError reports a response whose envelope carried success=false. The
// provider's own error codes and messages are surfaced verbatim.
type ProtocolError struct {
	Zone   string // zone being probed, empty for the zone-list call
	Errors []APIError
}

func (e *ProtocolError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, apiErr := range e.Errors {
		msgs[i] = apiErr.String()
	}
	joined := strings.Join(msgs, ", ")
	if e.Zone != "" {
		return fmt.Sprintf("API token cannot access DNS records for zone '%s': %s", e.Zone, joined)
	}
	return fmt.Sprintf("API call failed: %s", joined)
}

// AuthorizationError reports an HTTP 403 from the provider: the token is
// valid but lacks the required zone permission.
type AuthorizationError struct {
	Zone string // empty when the zone-list call itself was denied
}

func (e *AuthorizationError) Error() string {
	if e.Zone != "" {
		return fmt.Sprintf("API token does not have DNS read permission for zone '%s'. Ensure token has 'Zone > DNS > Edit' permission.", e.Zone)
	}
	return "API token is valid but has insufficient permissions. Ensure it has 'Zone > DNS > Edit' permission."
}

// StatusError reports a non-2xx response other than 403. The body is
// truncated so a misbehaving endpoint cannot flood the logs.
type StatusError struct {
	Zone       string
	StatusCode int
	StatusText string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Zone != "" {
		return fmt.Sprintf("HTTP %d when checking DNS permissions for zone '%s': %s. %s", e.StatusCode, e.Zone, e.StatusText, e.Body)
	}
	return fmt.Sprintf("HTTP %d: %s. %s", e.StatusCode, e.StatusText, e.Body)
}

// NetworkError reports a transport-level failure (DNS resolution, connection
// refused, timeout). Kept distinct from protocol errors so operators can tell
// an infrastructure problem from a credential problem.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ZoneNotFoundError reports that the token works but none of its accessible
// zones matches the requested domain. Every accessible zone name is listed so
// a naming mismatch can be diagnosed from the log alone.
type ZoneNotFoundError struct {
	Domain     string
	BaseDomain string
	Zones      []string
}

func (e *ZoneNotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Domain '%s' (base: '%s') not found in accessible zones.\n", e.Domain, e.BaseDomain)
	b.WriteString("\nZones accessible with this token:\n")
	for _, zone := range e.Zones {
		fmt.Fprintf(&b, "  - %s\n", zone)
	}
	b.WriteString("\nPossible causes:\n")
	b.WriteString("  1. Domain is not added to your Cloudflare account\n")
	b.WriteString("  2. API token doesn't have permission for this zone\n")
	b.WriteString("  3. DOMAIN in .env doesn't match the Cloudflare zone name\n")
	b.WriteString("\nTo fix:\n")
	b.WriteString("  1. Verify the domain is added to Cloudflare\n")
	b.WriteString("  2. Recreate the API token and include this zone\n")
	b.WriteString("  3. Update DOMAIN in .env to match a zone listed above")
	return b.String()
}
