package preflight_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blockadesystems/preflight/internal/acmestore"
	"github.com/blockadesystems/preflight/internal/preflight"
	"github.com/blockadesystems/preflight/internal/testutils"
)

// clearCredentialEnv unsets any configuration variables leaking in from the
// real process environment. A key merely present in the environment (even
// empty) overrides the env file, so the variables must be removed outright;
// t.Setenv first so the original values are restored after the test.
func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CF_DNS_API_TOKEN",
		"CF_API_TOKEN",
		"LE_CHALLENGE",
		"LE_DNS_PROVIDER",
		"DOMAIN",
		"SUBDOMAIN",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func missingStore(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "acme-dns.json")
}

func TestRunSkipsWhenChallengeIsNotDNS(t *testing.T) {
	clearCredentialEnv(t)
	envFile := testutils.WriteTempFile(t, ".env", "LE_CHALLENGE=http\nLE_DNS_PROVIDER=cloudflare\nDOMAIN=example.com\n")
	fake := testutils.NewFakeCloudflare(t)

	checker := &preflight.Checker{EnvFile: envFile, StorePath: missingStore(t), APIBaseURL: fake.URL()}
	verdict := checker.Run(context.Background())

	assert.Equal(t, preflight.VerdictSkipped, verdict)
	assert.Equal(t, 0, verdict.ExitCode())
	assert.Equal(t, 0, fake.RequestCount())
}

func TestRunSkipsWhenProviderIsNotCloudflare(t *testing.T) {
	clearCredentialEnv(t)
	envFile := testutils.WriteTempFile(t, ".env", "LE_CHALLENGE=dns\nLE_DNS_PROVIDER=route53\nDOMAIN=example.com\n")
	fake := testutils.NewFakeCloudflare(t)

	checker := &preflight.Checker{EnvFile: envFile, StorePath: missingStore(t), APIBaseURL: fake.URL()}
	verdict := checker.Run(context.Background())

	assert.Equal(t, preflight.VerdictSkipped, verdict)
	assert.Equal(t, 0, verdict.ExitCode())
	assert.Equal(t, 0, fake.RequestCount())
}

func TestRunFailsOnMissingDomain(t *testing.T) {
	clearCredentialEnv(t)
	envFile := testutils.WriteTempFile(t, ".env", "LE_CHALLENGE=dns\nLE_DNS_PROVIDER=cloudflare\n")

	checker := &preflight.Checker{EnvFile: envFile, StorePath: missingStore(t)}
	verdict := checker.Run(context.Background())

	assert.Equal(t, preflight.VerdictFailedConfig, verdict)
	assert.Equal(t, 1, verdict.ExitCode())
}

func TestRunFailsOnPlaceholderDomain(t *testing.T) {
	clearCredentialEnv(t)
	envFile := testutils.WriteTempFile(t, ".env", "LE_CHALLENGE=dns\nLE_DNS_PROVIDER=cloudflare\nDOMAIN=paste-domain-here\n")

	checker := &preflight.Checker{EnvFile: envFile, StorePath: missingStore(t)}
	verdict := checker.Run(context.Background())

	assert.Equal(t, preflight.VerdictFailedConfig, verdict)
}

func TestRunPassesWithoutAPIWhenCertificatesPresent(t *testing.T) {
	clearCredentialEnv(t)
	envFile := testutils.WriteTempFile(t, ".env", "LE_CHALLENGE=dns\nLE_DNS_PROVIDER=cloudflare\nDOMAIN=example.com\n")
	store := testutils.WriteACMEStore(t, acmestore.ResolverName, "example.com")
	fake := testutils.NewFakeCloudflare(t)

	checker := &preflight.Checker{EnvFile: envFile, StorePath: store, APIBaseURL: fake.URL()}
	verdict := checker.Run(context.Background())

	assert.Equal(t, preflight.VerdictPassedCertsValid, verdict)
	assert.Equal(t, 0, verdict.ExitCode())
	assert.Equal(t, 0, fake.RequestCount(), "valid certificates must skip the API entirely")
}

func TestRunChecksSubdomainCertificateToo(t *testing.T) {
	clearCredentialEnv(t)
	envFile := testutils.WriteTempFile(t, ".env",
		"LE_CHALLENGE=dns\nLE_DNS_PROVIDER=cloudflare\nDOMAIN=example.com\nSUBDOMAIN=app\nCF_DNS_API_TOKEN=tok\n")
	// Only the primary domain has a certificate; app.example.com forces the
	// live validation path.
	store := testutils.WriteACMEStore(t, acmestore.ResolverName, "example.com")
	fake := testutils.NewFakeCloudflare(t,
		testutils.FakeZone{ID: "zone-1", Name: "example.com", Status: "active"},
	)

	checker := &preflight.Checker{EnvFile: envFile, StorePath: store, APIBaseURL: fake.URL()}
	verdict := checker.Run(context.Background())

	assert.Equal(t, preflight.VerdictPassedAPIValidated, verdict)
	assert.Equal(t, 2, fake.RequestCount())
}

func TestRunWildcardCertificateSatisfiesPrimaryDomain(t *testing.T) {
	clearCredentialEnv(t)
	envFile := testutils.WriteTempFile(t, ".env", "LE_CHALLENGE=dns\nLE_DNS_PROVIDER=cloudflare\nDOMAIN=example.com\n")
	store := testutils.WriteACMEStore(t, acmestore.ResolverName, "*.example.com")
	fake := testutils.NewFakeCloudflare(t)

	checker := &preflight.Checker{EnvFile: envFile, StorePath: store, APIBaseURL: fake.URL()}
	verdict := checker.Run(context.Background())

	assert.Equal(t, preflight.VerdictPassedCertsValid, verdict)
	assert.Equal(t, 0, fake.RequestCount())
}

func TestRunFailsWithoutCredential(t *testing.T) {
	clearCredentialEnv(t)
	envFile := testutils.WriteTempFile(t, ".env", "LE_CHALLENGE=dns\nLE_DNS_PROVIDER=cloudflare\nDOMAIN=example.com\n")
	fake := testutils.NewFakeCloudflare(t)

	checker := &preflight.Checker{EnvFile: envFile, StorePath: missingStore(t), APIBaseURL: fake.URL()}
	verdict := checker.Run(context.Background())

	assert.Equal(t, preflight.VerdictFailedCredentials, verdict)
	assert.Equal(t, 1, verdict.ExitCode())
	assert.Equal(t, 0, fake.RequestCount(), "missing credential must not reach the API")
}

func TestRunUsesLegacyTokenVariable(t *testing.T) {
	clearCredentialEnv(t)
	envFile := testutils.WriteTempFile(t, ".env",
		"LE_CHALLENGE=dns\nLE_DNS_PROVIDER=cloudflare\nDOMAIN=example.com\nCF_API_TOKEN=legacy-tok\n")
	fake := testutils.NewFakeCloudflare(t,
		testutils.FakeZone{ID: "zone-1", Name: "example.com", Status: "active"},
	)

	checker := &preflight.Checker{EnvFile: envFile, StorePath: missingStore(t), APIBaseURL: fake.URL()}
	verdict := checker.Run(context.Background())

	assert.Equal(t, preflight.VerdictPassedAPIValidated, verdict)
}

func TestRunFailsWhenZoneNotAccessible(t *testing.T) {
	clearCredentialEnv(t)
	envFile := testutils.WriteTempFile(t, ".env",
		"LE_CHALLENGE=dns\nLE_DNS_PROVIDER=cloudflare\nDOMAIN=example.com\nCF_DNS_API_TOKEN=tok\n")
	fake := testutils.NewFakeCloudflare(t,
		testutils.FakeZone{ID: "zone-1", Name: "other.com", Status: "active"},
	)

	checker := &preflight.Checker{EnvFile: envFile, StorePath: missingStore(t), APIBaseURL: fake.URL()}
	verdict := checker.Run(context.Background())

	assert.Equal(t, preflight.VerdictFailedAPI, verdict)
	assert.Equal(t, 1, verdict.ExitCode())
}

func TestRunValidatesAgainstLiveAPI(t *testing.T) {
	clearCredentialEnv(t)
	envFile := testutils.WriteTempFile(t, ".env",
		"LE_CHALLENGE=dns\nLE_DNS_PROVIDER=cloudflare\nDOMAIN=app.example.com\nCF_DNS_API_TOKEN=tok\n")
	fake := testutils.NewFakeCloudflare(t,
		testutils.FakeZone{ID: "zone-1", Name: "example.com", Status: "active"},
	)

	checker := &preflight.Checker{EnvFile: envFile, StorePath: missingStore(t), APIBaseURL: fake.URL()}
	verdict := checker.Run(context.Background())

	assert.Equal(t, preflight.VerdictPassedAPIValidated, verdict)
	assert.Equal(t, 0, verdict.ExitCode())
}

func TestRunEnvironmentOverridesEnvFile(t *testing.T) {
	clearCredentialEnv(t)
	envFile := testutils.WriteTempFile(t, ".env", "LE_CHALLENGE=dns\nLE_DNS_PROVIDER=cloudflare\nDOMAIN=example.com\n")
	fake := testutils.NewFakeCloudflare(t)
	t.Setenv("LE_CHALLENGE", "http")

	checker := &preflight.Checker{EnvFile: envFile, StorePath: missingStore(t), APIBaseURL: fake.URL()}
	verdict := checker.Run(context.Background())

	assert.Equal(t, preflight.VerdictSkipped, verdict)
}

func TestRunEmptyEnvironmentDomainMasksFileValue(t *testing.T) {
	clearCredentialEnv(t)
	envFile := testutils.WriteTempFile(t, ".env", "LE_CHALLENGE=dns\nLE_DNS_PROVIDER=cloudflare\nDOMAIN=example.com\n")
	// Exporting DOMAIN= hides the file's domain entirely; the run must
	// report a configuration error, not fall back to example.com.
	t.Setenv("DOMAIN", "")

	checker := &preflight.Checker{EnvFile: envFile, StorePath: missingStore(t)}
	verdict := checker.Run(context.Background())

	assert.Equal(t, preflight.VerdictFailedConfig, verdict)
}

func TestVerdictExitCodes(t *testing.T) {
	assert.Equal(t, 0, preflight.VerdictSkipped.ExitCode())
	assert.Equal(t, 0, preflight.VerdictPassedCertsValid.ExitCode())
	assert.Equal(t, 0, preflight.VerdictPassedAPIValidated.ExitCode())
	assert.Equal(t, 1, preflight.VerdictFailedConfig.ExitCode())
	assert.Equal(t, 1, preflight.VerdictFailedCredentials.ExitCode())
	assert.Equal(t, 1, preflight.VerdictFailedAPI.ExitCode())
}
