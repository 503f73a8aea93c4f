// Package acmestore inspects the ACME storage file written by Traefik to
// decide whether certificates for a set of domains are already present.
// The store is external state owned entirely by Traefik; this package only
// ever reads it, and treats a missing or unreadable store as "no valid
// certificate" rather than as an error.
package acmestore

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

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
	logger = l.With(zap.String("package", "acmestore"))
}

// ResolverName is the Traefik certificate resolver whose records are
// inspected. The deployment configures its DNS-01 resolver under this name.
const ResolverName = "dns"

// Store is the top-level shape of Traefik's acme.json: one entry per
// configured certificate resolver.
type Store map[string]ResolverData

// ResolverData holds the certificates obtained by one resolver.
type ResolverData struct {
	Certificates []Certificate `json:"Certificates"`
}

// Certificate is a single certificate record. Only the domain descriptor is
// consulted; the certificate and key payloads are never decoded.
type Certificate struct {
	Domain      Domain `json:"domain"`
	Certificate string `json:"certificate"`
	Key         string `json:"key"`
	Store       string `json:"Store"`
}

// Domain describes the names a certificate covers. Main may be a wildcard
// such as "*.example.com".
type Domain struct {
	Main string   `json:"main"`
	SANs []string `json:"sans,omitempty"`
}

// Matches reports whether the record covers domain, either exactly or via a
// first-level wildcard.
func (c Certificate) Matches(domain string) bool {
	return c.Domain.Main == domain || c.Domain.Main == "*."+domain
}

// Check reports whether every requested domain has a certificate record in
// the store at storePath. The second return value is a human-readable status
// line aggregating the per-domain outcomes, joined with "; ".
//
// A certificate that is present is assumed valid: Traefik renews before
// expiry, so the record's NotAfter is not decoded. When that assumption is
// wrong the caller falls through to the live API validation, which reports
// credential problems on its own.
func Check(storePath string, domains []string) (bool, string) {
	data, err := os.ReadFile(storePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Sprintf("ACME storage file not found at %s", storePath)
		}
		return false, fmt.Sprintf("Failed to read ACME storage: %v", err)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return false, fmt.Sprintf("Failed to read ACME storage: %v", err)
	}

	resolver, ok := store[ResolverName]
	if !ok {
		return false, "No DNS resolver certificates found in ACME storage"
	}
	if len(resolver.Certificates) == 0 {
		return false, "No certificates found in DNS resolver storage"
	}

	allValid := true
	messages := make([]string, 0, len(domains))
	for _, domain := range domains {
		found := false
		for _, cert := range resolver.Certificates {
			if cert.Matches(domain) {
				found = true
				messages = append(messages, fmt.Sprintf("Certificate found for %s", domain))
				break
			}
		}
		if !found {
			allValid = false
			messages = append(messages, fmt.Sprintf("No certificate found for %s", domain))
		}
	}

	status := strings.Join(messages, "; ")
	logger.Debug("certificate store inspected",
		zap.String("path", storePath),
		zap.Bool("all_valid", allValid),
		zap.String("status", status))
	return allValid, status
}
