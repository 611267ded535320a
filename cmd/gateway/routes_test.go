package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("EDGE_POLICY_FILE", "")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestRoutesCmd_PrintsTable(t *testing.T) {
	out := runCLI(t, "routes")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "RULE")
	assert.Regexp(t, `^analyze\s+/api/analyze\s+10\s+1m0s$`, lines[1])
	assert.Regexp(t, `^default\s+\*\s+500\s+1m0s$`, lines[5])
}

func TestRoutesCmd_ExplainsPaths(t *testing.T) {
	out := runCLI(t, "routes", "/api/analyze/42", "/_next/static/app.js", "/about", "/api/games")

	assert.Regexp(t, `/api/analyze/42\s+rate-limited\s+analyze\s+10`, out)
	assert.Regexp(t, `/_next/static/app.js\s+bypass`, out)
	assert.Regexp(t, `/about\s+annotated`, out)
	assert.Regexp(t, `/api/games\s+rate-limited\s+default\s+500`, out)
}

func TestRoutesCmd_UsesPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - id: quotes
    prefix: /api/quotes
    max_requests: 5
    window: 30s
  - id: default
    max_requests: 50
    window: 1m
`), 0o600))

	out := runCLI(t, "--policy", path, "routes", "/api/quotes/1")
	assert.Regexp(t, `/api/quotes/1\s+rate-limited\s+quotes\s+5\s+30s`, out)
}
