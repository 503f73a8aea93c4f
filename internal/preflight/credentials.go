package preflight

import (
	"github.com/blockadesystems/preflight/internal/config"
)

// credentialVars are the accepted API token variables, scanned in order.
// First non-empty value wins; append future variable names here.
var credentialVars = []string{
	config.KeyCFDNSAPIToken,
	config.KeyCFAPIToken,
}

// credentialRemediation is printed when no accepted credential variable has a
// value.
const credentialRemediation = `Cloudflare API token is required but not found.

Please set one of the following environment variables in your .env file:
  - CF_DNS_API_TOKEN (preferred for DNS-01 challenges)
  - CF_API_TOKEN (legacy option)

To create a Cloudflare API token:
  1. Log in to your Cloudflare dashboard
  2. Go to My Profile > API Tokens
  3. Click "Create Token"
  4. Use the "Edit zone DNS" template
  5. Set permissions: Zone > DNS > Edit
  6. Select the zone(s) for your domain
  7. Copy the token and add to .env:
     CF_DNS_API_TOKEN=your-token-here

For more info: https://go-acme.github.io/lego/dns/cloudflare/`

// resolveToken returns the first non-empty credential among the accepted
// variables. The token value must never be logged.
func resolveToken(cfg *config.Resolver) (string, bool) {
	for _, name := range credentialVars {
		if token := cfg.Get(name); token != "" {
			return token, true
		}
	}
	return "", false
}
