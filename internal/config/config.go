package config

import (
	"bufio"
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
	logger = l.With(zap.String("package", "config"))
}

// Keys consumed by the DNS pre-flight check.
const (
	KeyChallenge   = "LE_CHALLENGE"
	KeyDNSProvider = "LE_DNS_PROVIDER"
	KeyDomain      = "DOMAIN"
	KeySubdomain   = "SUBDOMAIN"

	// Cloudflare credential variables, in priority order.
	KeyCFDNSAPIToken = "CF_DNS_API_TOKEN"
	KeyCFAPIToken    = "CF_API_TOKEN"
)

const (
	// ChallengeDNS is the LE_CHALLENGE value that makes the check applicable.
	ChallengeDNS = "dns"
	// ProviderCloudflare is the LE_DNS_PROVIDER value this check targets.
	ProviderCloudflare = "cloudflare"
	// DomainPlaceholder is the unconfigured sentinel shipped in .env templates.
	DomainPlaceholder = "paste-domain-here"

	DefaultEnvFile     = ".env"
	DefaultACMEStorage = "/var/lib/docker/volumes/traefik-acme/_data/acme-dns.json"
)

// Resolver answers configuration lookups from two layers: the live process
// environment and a parsed env file. The process environment always wins.
type Resolver struct {
	fileVars map[string]string
}

// Load parses the env file at path and returns a Resolver over it. A missing
// file is not an error and yields an empty file layer; lookups then see only
// the process environment.
func Load(path string) *Resolver {
	vars, err := parseEnvFile(path)
	if err != nil {
		logger.Error("failed to parse env file", zap.String("path", path), zap.Error(err))
		vars = map[string]string{}
	}
	return &Resolver{fileVars: vars}
}

// Get returns the value for key, preferring the process environment over the
// env file, and returns "" when the key is set in neither. A key present in
// the environment wins even when its value is empty.
func (r *Resolver) Get(key string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return r.fileVars[key]
}

// FileValue returns the value parsed from the env file only, ignoring the
// process environment.
func (r *Resolver) FileValue(key string) string {
	return r.fileVars[key]
}

// parseEnvFile reads KEY=VALUE lines. Blank lines and '#' comments are
// skipped, as is any line without '='. Values are split on the first '=',
// trimmed, and stripped of one matching pair of enclosing quotes.
func parseEnvFile(path string) (map[string]string, error) {
	vars := make(map[string]string)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return vars, nil
		}
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if key == "" {
			continue
		}
		vars[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return vars, nil
}

// stripQuotes removes a single pair of matching double or single quotes
// enclosing s, if present.
func stripQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
