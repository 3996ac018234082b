package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocscan/pocscan/pkg/defaults"
	"github.com/pocscan/pocscan/pkg/jsonutil"
	"github.com/pocscan/pocscan/pkg/output"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writePOCs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"admin.yaml": `name: admin-panel
level: high
request:
  method: GET
  path: /admin
response:
  statusCode: 200
  successIndicators:
    - "Admin Console"
`,
		"debug.yaml": `name: debug-endpoint
level: low
request:
  method: GET
  path: debug
response:
  statusCode: 200
  successIndicators:
    - "stack trace"
`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func newTarget(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/admin" {
			fmt.Fprint(w, "<title>Admin Console</title>")
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "-version")
	assert.Equal(t, defaults.ExitOK, code)
	assert.Equal(t, "pocscan "+defaults.Version+"\n", out)
}

func TestRun_ListFingerprints(t *testing.T) {
	code, out, _ := runCLI(t, "-list-fingerprints")
	assert.Equal(t, defaults.ExitOK, code)
	assert.Contains(t, out, "chrome")
	assert.Contains(t, out, "firefox")
}

func TestRun_Help(t *testing.T) {
	code, _, errOut := runCLI(t, "-h")
	assert.Equal(t, defaults.ExitOK, code)
	assert.Contains(t, errOut, "-pocs")
}

func TestRun_UsageErrors(t *testing.T) {
	code, _, errOut := runCLI(t)
	assert.Equal(t, defaults.ExitUsage, code)
	assert.Contains(t, errOut, "missing required field")

	code, _, _ = runCLI(t, "-bogus")
	assert.Equal(t, defaults.ExitUsage, code)

	code, _, errOut = runCLI(t, "-u", "t", "-c", "99")
	assert.Equal(t, defaults.ExitUsage, code)
	assert.Contains(t, errOut, "concurrency 99")
}

func TestRun_ConsoleScan(t *testing.T) {
	srv := newTarget(t)
	code, out, _ := runCLI(t, "-u", srv.URL, "-pocs", writePOCs(t), "-c", "2", "-nc")

	assert.Equal(t, defaults.ExitOK, code)
	assert.Contains(t, out, "[VULN] admin-panel "+srv.URL+"/admin [200]")
	assert.NotContains(t, out, "debug-endpoint")
	assert.Contains(t, out, "Scan Summary")
}

func TestRun_FailOnVuln(t *testing.T) {
	srv := newTarget(t)
	code, _, _ := runCLI(t, "-u", srv.URL, "-pocs", writePOCs(t), "-s", "-fail-on-vuln")
	assert.Equal(t, defaults.ExitVulnerable, code)
}

func TestRun_JSONToStdout(t *testing.T) {
	srv := newTarget(t)
	code, out, _ := runCLI(t, "-u", srv.URL, "-pocs", writePOCs(t), "-format", "json")
	require.Equal(t, defaults.ExitOK, code)

	var report output.Report
	require.NoError(t, jsonutil.Unmarshal([]byte(out), &report))
	require.Len(t, report.Results, 2)
	// Directory order: admin.yaml before debug.yaml.
	assert.Equal(t, "admin-panel", report.Results[0].POCName)
	assert.True(t, report.Results[0].Vulnerable)
	assert.Equal(t, "debug-endpoint", report.Results[1].POCName)
	assert.Equal(t, "404", report.Results[1].StatusCode)
	assert.Equal(t, 1, report.Summary.Vulnerable)
	assert.NotEmpty(t, report.Summary.RunID)
}

func TestRun_JSONLToFileWithConsole(t *testing.T) {
	srv := newTarget(t)
	path := filepath.Join(t.TempDir(), "out.jsonl")
	code, out, _ := runCLI(t, "-u", srv.URL, "-pocs", writePOCs(t), "-j", "-o", path)
	require.Equal(t, defaults.ExitOK, code)

	assert.Contains(t, out, "admin-panel", "console report still printed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
}

func TestRun_NoPOCs(t *testing.T) {
	code, _, errOut := runCLI(t, "-u", "127.0.0.1:1", "-pocs", t.TempDir())
	assert.Equal(t, defaults.ExitError, code)
	assert.Contains(t, errOut, "no usable POC files")
}

func TestRun_MetricsServer(t *testing.T) {
	srv := newTarget(t)
	code, _, _ := runCLI(t, "-u", srv.URL, "-pocs", writePOCs(t), "-s", "-metrics-addr", "127.0.0.1:0")
	assert.Equal(t, defaults.ExitOK, code)
}
