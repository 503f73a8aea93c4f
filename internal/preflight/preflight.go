// Package preflight sequences the DNS-01 pre-flight decision: read the
// deployment configuration, decide whether the check applies, consult the
// Traefik certificate store, and only when that leaves doubt validate the
// Cloudflare credential with a live zone access probe.
package preflight

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blockadesystems/preflight/internal/acmestore"
	"github.com/blockadesystems/preflight/internal/cloudflare"
	"github.com/blockadesystems/preflight/internal/config"
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
	logger = l.With(zap.String("package", "preflight"))
}

// Verdict is the terminal outcome of one pre-flight run. Exactly one verdict
// is produced per invocation.
type Verdict int

const (
	// VerdictSkipped means the check does not apply to this configuration.
	VerdictSkipped Verdict = iota
	// VerdictPassedCertsValid means every requested domain already has a
	// certificate in the store; no API call was made.
	VerdictPassedCertsValid
	// VerdictPassedAPIValidated means the credential was validated against
	// the live API.
	VerdictPassedAPIValidated
	// VerdictFailedConfig means a required value is absent or a placeholder.
	VerdictFailedConfig
	// VerdictFailedCredentials means no accepted credential variable is set.
	VerdictFailedCredentials
	// VerdictFailedAPI means the live zone access probe failed.
	VerdictFailedAPI
)

func (v Verdict) String() string {
	switch v {
	case VerdictSkipped:
		return "skipped"
	case VerdictPassedCertsValid:
		return "passed (certificates present)"
	case VerdictPassedAPIValidated:
		return "passed (API validated)"
	case VerdictFailedConfig:
		return "failed (configuration)"
	case VerdictFailedCredentials:
		return "failed (missing credential)"
	case VerdictFailedAPI:
		return "failed (API or zone)"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// ExitCode maps the verdict to the process exit convention: 0 for skipped or
// passed, 1 for any failure.
func (v Verdict) ExitCode() int {
	switch v {
	case VerdictSkipped, VerdictPassedCertsValid, VerdictPassedAPIValidated:
		return 0
	default:
		return 1
	}
}

// Checker runs the pre-flight decision pipeline once. Runs are strictly
// sequential and never retried; the deployment scheduler re-invokes the whole
// process when a retry is wanted.
type Checker struct {
	// EnvFile is the path of the .env file to layer under the process
	// environment.
	EnvFile string
	// StorePath is the path of Traefik's ACME storage file.
	StorePath string
	// APIBaseURL overrides the Cloudflare API endpoint. Empty means
	// production.
	APIBaseURL string
}

// apiRemediation is appended to the log when the live probe fails.
var apiRemediation = []string{
	"Common issues:",
	"  1. Invalid or expired API token",
	"  2. Token doesn't have 'Zone > DNS > Edit' permissions",
	"  3. Token doesn't have access to the domain's zone",
	"  4. Domain not added to your Cloudflare account",
	"  5. Network connectivity issues",
	"",
	"To fix:",
	"  1. Verify your token at: https://dash.cloudflare.com/profile/api-tokens",
	"  2. Ensure the token has 'Zone > DNS > Edit' permissions",
	"  3. Ensure the token includes your domain's zone",
	"  4. Check that DOMAIN in .env matches your Cloudflare zone",
	"  5. Verify network connectivity to api.cloudflare.com",
	"  6. Create a new token if needed and update CF_DNS_API_TOKEN in .env",
}

// Run executes the decision pipeline and returns its verdict.
func (c *Checker) Run(ctx context.Context) Verdict {
	log := logger.With(zap.String("run_id", uuid.NewString()))

	cfg := config.Load(c.EnvFile)

	challenge := cfg.Get(config.KeyChallenge)
	if challenge != config.ChallengeDNS {
		log.Info("LE_CHALLENGE is not 'dns' - skipping Cloudflare DNS check",
			zap.String("challenge", challenge))
		return VerdictSkipped
	}

	provider := cfg.Get(config.KeyDNSProvider)
	if provider != config.ProviderCloudflare {
		log.Info("LE_DNS_PROVIDER is not 'cloudflare' - skipping Cloudflare check",
			zap.String("provider", provider))
		return VerdictSkipped
	}

	log.Info("DNS-01 challenge with Cloudflare provider detected")

	domain := cfg.Get(config.KeyDomain)
	if domain == "" || domain == config.DomainPlaceholder {
		log.Error("DOMAIN is not configured properly in .env")
		log.Info("Please set DOMAIN to your actual domain name")
		return VerdictFailedConfig
	}

	domains := []string{domain}
	if subdomain := cfg.Get(config.KeySubdomain); subdomain != "" {
		domains = append(domains, subdomain+"."+domain)
	}
	log.Info("checking certificates", zap.Strings("domains", domains))

	certsValid, certStatus := acmestore.Check(c.StorePath, domains)
	if certsValid {
		log.Info("valid certificates already exist for all domains",
			zap.String("result", "pass"))
		log.Info("skipping Cloudflare credential validation (certificates present)")
		log.Info(certStatus)
		return VerdictPassedCertsValid
	}
	log.Warn("certificates not found or may be expired")
	log.Info(certStatus)
	log.Info("proceeding with Cloudflare credential validation")

	token, ok := resolveToken(cfg)
	if !ok {
		log.Error("Cloudflare credentials validation failed")
		for _, line := range strings.Split(credentialRemediation, "\n") {
			log.Error(line)
		}
		return VerdictFailedCredentials
	}
	log.Info("Cloudflare API token found", zap.String("result", "pass"))

	baseURL := c.APIBaseURL
	if baseURL == "" {
		baseURL = cloudflare.DefaultBaseURL
	}
	client := cloudflare.NewClient(baseURL, token)

	log.Info("testing Cloudflare API connectivity and domain access")
	// Only the primary domain is probed: the zone that owns it is assumed to
	// own any subdomain of it.
	zoneInfo, err := client.ProbeZoneAccess(ctx, domain)
	if err != nil {
		log.Error("Cloudflare API connectivity or domain access check failed")
		for _, line := range strings.Split(err.Error(), "\n") {
			log.Error(line)
		}
		for _, line := range apiRemediation {
			log.Error(line)
		}
		return VerdictFailedAPI
	}

	log.Info("Cloudflare API connectivity test successful", zap.String("result", "pass"))
	log.Info("token has access to zone",
		zap.String("result", "pass"),
		zap.String("zone", zoneInfo.Name),
		zap.String("zone_id", zoneInfo.ID),
		zap.String("status", zoneInfo.Status))
	log.Info("ready to issue certificates via DNS-01 challenge")
	return VerdictPassedAPIValidated
}
