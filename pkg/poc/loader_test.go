package poc

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const samplePOC = `name: thinkphp-rce
description: ThinkPHP 5 invokefunction RCE
author: someone
level: Critical
request:
  method: GET
  path: /index.php
  headers:
    X-Forwarded-For: 127.0.0.1
    Accept: "*/*"
  params:
    s: /Index/\think\app/invokefunction
    function: call_user_func_array
response:
  statusCode: 200
  successIndicators:
    - "PHP Version"
  errorIndicators:
    - "Access denied"
  matchType: contains
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(samplePOC))
	require.NoError(t, err)

	assert.Equal(t, "thinkphp-rce", p.Name)
	assert.Equal(t, "Critical", p.LevelOrUnknown())
	assert.Equal(t, "GET", p.Request.MethodOrDefault())
	assert.Equal(t, []string{"X-Forwarded-For", "Accept"}, p.Request.Headers.Keys())
	assert.Equal(t, []string{"s", "function"}, p.Request.Params.Keys())
	require.NotNil(t, p.Response.StatusCode)
	assert.Equal(t, 200, *p.Response.StatusCode)
	assert.Equal(t, MatchContains, p.Response.EffectiveMatchType())
}

func TestParse_TypeTagLine(t *testing.T) {
	p, err := Parse([]byte("!!com.pocscanner.core.model.POCConfig\n" + samplePOC))
	require.NoError(t, err)
	assert.Equal(t, "thinkphp-rce", p.Name)
}

func TestParse_GBKFallback(t *testing.T) {
	src := "name: 管理后台弱口令\nrequest:\n  method: POST\n  body: user=admin\n"
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(src))
	require.NoError(t, err)

	p, err := Parse(gbk)
	require.NoError(t, err)
	assert.Equal(t, "管理后台弱口令", p.Name)
	assert.Equal(t, "user=admin", p.Request.Body)
}

func TestParse_RequiredFields(t *testing.T) {
	_, err := Parse([]byte("description: no name\nrequest:\n  method: GET\n"))
	assert.ErrorIs(t, err, ErrInvalidPOC)

	_, err = Parse([]byte("name: x\n"))
	assert.ErrorIs(t, err, ErrInvalidPOC)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("b.yml", "name: second\nrequest:\n  method: GET\n")
	write("a.yaml", "name: first\nrequest:\n  method: GET\n")
	write("c.yaml", "name: [broken")
	write("readme.md", "# not a POC")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	var logs bytes.Buffer
	pocs, err := LoadDirectory(dir, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)
	require.Len(t, pocs, 2)
	assert.Equal(t, "first", pocs[0].Name)
	assert.Equal(t, "second", pocs[1].Name)
	assert.Contains(t, logs.String(), "c.yaml")
}

func TestLoadDirectory_LogsValidationProblems(t *testing.T) {
	dir := t.TempDir()
	body := "name: no-rules\nrequest:\n  method: GET\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "no-rules.yaml"), []byte(body), 0o644))

	var logs bytes.Buffer
	pocs, err := LoadDirectory(dir, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)
	require.Len(t, pocs, 1, "problems are reported, not fatal")
	assert.Contains(t, logs.String(), "POC has problems")
	assert.Contains(t, logs.String(), "no-rules.yaml")
	assert.Contains(t, logs.String(), "response section is required")
}

func TestLoadDirectory_Empty(t *testing.T) {
	_, err := LoadDirectory(t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrNoPOCs)

	_, err = LoadDirectory(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	p, err := Parse([]byte(samplePOC))
	require.NoError(t, err)
	assert.Empty(t, Validate(p))

	assert.Len(t, Validate(&POC{}), 3)

	noRules := &POC{Name: "x", Request: &Request{Method: "GET"}, Response: &Response{}}
	assert.Equal(t, []string{"response needs successIndicators or statusCode"}, Validate(noRules))

	assert.Equal(t, []string{"POC is nil"}, Validate(nil))
}

func TestMarshalKeepsOrder(t *testing.T) {
	p, err := Parse([]byte(samplePOC))
	require.NoError(t, err)

	out, err := Marshal(p)
	require.NoError(t, err)
	back, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, p.Request.Headers, back.Request.Headers)
	assert.Equal(t, p.Request.Params, back.Request.Params)
}

func TestMatchTypeNormalize(t *testing.T) {
	assert.Equal(t, MatchRegex, MatchType(" REGEX ").Normalize())
	assert.Equal(t, MatchEquals, MatchType("equals").Normalize())
	assert.Equal(t, MatchContains, MatchType("").Normalize())
	assert.Equal(t, MatchContains, MatchType("glob").Normalize())

	var r *Response
	assert.Equal(t, MatchContains, r.EffectiveMatchType())
}

func TestLoadDirectory_BundledPOCs(t *testing.T) {
	pocs, err := LoadDirectory(filepath.Join("..", "..", "pocs"), nil)
	require.NoError(t, err)
	require.NotEmpty(t, pocs)
	for _, p := range pocs {
		assert.Empty(t, Validate(p), p.Name)
	}
}
