package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockadesystems/preflight/internal/config"
	"github.com/blockadesystems/preflight/internal/testutils"
)

func TestLoadParsesBasicAssignments(t *testing.T) {
	path := testutils.WriteTempFile(t, ".env", `
# deployment settings
LE_CHALLENGE=dns
DOMAIN=example.com

EMPTY=
SPACED = padded value `+"\n")

	cfg := config.Load(path)

	assert.Equal(t, "dns", cfg.FileValue("LE_CHALLENGE"))
	assert.Equal(t, "example.com", cfg.FileValue("DOMAIN"))
	assert.Equal(t, "", cfg.FileValue("EMPTY"))
	assert.Equal(t, "padded value", cfg.FileValue("SPACED"))
}

func TestLoadStripsMatchingQuotes(t *testing.T) {
	path := testutils.WriteTempFile(t, ".env", `
DOUBLE="example.com"
SINGLE='example.org'
BARE=example.net
MIXED="unbalanced'
INNER=value "with" quotes
`)

	cfg := config.Load(path)

	assert.Equal(t, "example.com", cfg.FileValue("DOUBLE"))
	assert.Equal(t, "example.org", cfg.FileValue("SINGLE"))
	assert.Equal(t, "example.net", cfg.FileValue("BARE"))
	// Only a matching pair is stripped.
	assert.Equal(t, `"unbalanced'`, cfg.FileValue("MIXED"))
	assert.Equal(t, `value "with" quotes`, cfg.FileValue("INNER"))
}

func TestLoadSplitsOnFirstEqualsOnly(t *testing.T) {
	path := testutils.WriteTempFile(t, ".env", "DATABASE_URL=postgres://u:p@localhost/db?sslmode=disable\n")

	cfg := config.Load(path)

	assert.Equal(t, "postgres://u:p@localhost/db?sslmode=disable", cfg.FileValue("DATABASE_URL"))
}

func TestLoadIgnoresMalformedLines(t *testing.T) {
	path := testutils.WriteTempFile(t, ".env", `
FIRST=one
this line has no equals sign
SECOND=two
`)

	cfg := config.Load(path)

	// A malformed line is skipped without disturbing the keys around it.
	assert.Equal(t, "one", cfg.FileValue("FIRST"))
	assert.Equal(t, "two", cfg.FileValue("SECOND"))
}

func TestLoadMissingFileYieldsEmptyMapping(t *testing.T) {
	cfg := config.Load(filepath.Join(t.TempDir(), "does-not-exist.env"))

	require.NotNil(t, cfg)
	assert.Equal(t, "", cfg.Get("DOMAIN"))
}

func TestGetPrefersProcessEnvironment(t *testing.T) {
	path := testutils.WriteTempFile(t, ".env", "PREFLIGHT_TEST_KEY=from-file\n")
	cfg := config.Load(path)

	assert.Equal(t, "from-file", cfg.Get("PREFLIGHT_TEST_KEY"))

	t.Setenv("PREFLIGHT_TEST_KEY", "from-env")
	assert.Equal(t, "from-env", cfg.Get("PREFLIGHT_TEST_KEY"))
}

func TestGetEnvironmentWinsEvenWhenEmpty(t *testing.T) {
	path := testutils.WriteTempFile(t, ".env", "PREFLIGHT_TEST_KEY=from-file\n")
	cfg := config.Load(path)

	// A key exported with an empty value masks the file value; presence in
	// the environment decides precedence, not the value.
	t.Setenv("PREFLIGHT_TEST_KEY", "")
	assert.Equal(t, "", cfg.Get("PREFLIGHT_TEST_KEY"))
}

func TestGetFallsBackToEmptyString(t *testing.T) {
	cfg := config.Load(filepath.Join(t.TempDir(), "absent.env"))

	assert.Equal(t, "", cfg.Get("PREFLIGHT_TEST_UNSET_KEY"))
}
