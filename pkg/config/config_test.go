package config

import (
	"bytes"
	"errors"
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocscan/pocscan/pkg/httpclient"
)

func parse(t *testing.T, args ...string) *Config {
	t.Helper()
	cfg, err := ParseFlags(args, nil)
	require.NoError(t, err)
	return cfg
}

func TestParseFlags_Defaults(t *testing.T) {
	cfg := parse(t, "-u", "example.com")

	assert.Equal(t, "example.com", cfg.Target)
	assert.Equal(t, "pocs", cfg.POCDir)
	assert.Equal(t, 10, cfg.Concurrency)
	assert.Equal(t, 10000, cfg.TimeoutMillis)
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, "console", cfg.OutputFormat)
	assert.False(t, cfg.VerifyTLS)
	assert.Equal(t, "http", cfg.ProxyType)
	assert.NoError(t, cfg.Validate())
}

func TestParseFlags_Aliases(t *testing.T) {
	cfg := parse(t, "-target", "https://t", "-p", "/tmp/p", "-c", "25", "-x", "socks5://127.0.0.1:1080",
		"-ja3", "chrome", "-ua", "probe/1.0", "-o", "out.json", "-format", "json", "-v", "-nc", "-rl", "5")

	assert.Equal(t, "https://t", cfg.Target)
	assert.Equal(t, "/tmp/p", cfg.POCDir)
	assert.Equal(t, 25, cfg.Concurrency)
	assert.Equal(t, "socks5://127.0.0.1:1080", cfg.ProxyURL)
	assert.Equal(t, "chrome", cfg.Fingerprint)
	assert.Equal(t, "probe/1.0", cfg.UserAgent)
	assert.Equal(t, "out.json", cfg.OutputFile)
	assert.True(t, cfg.Verbose)
	assert.True(t, cfg.NoColor)
	assert.False(t, cfg.FailOnVuln)
	assert.Equal(t, 5, cfg.RateLimit)
	assert.NoError(t, cfg.Validate())
}

func TestParseFlags_JSONLShortcutAndPositional(t *testing.T) {
	cfg := parse(t, "-j", "10.0.0.1:8080")
	assert.Equal(t, "jsonl", cfg.OutputFormat)
	assert.Equal(t, "10.0.0.1:8080", cfg.Target)
}

func TestParseFlags_Errors(t *testing.T) {
	var usage bytes.Buffer
	_, err := ParseFlags([]string{"-nope"}, &usage)
	assert.Error(t, err)
	assert.Contains(t, usage.String(), "flag provided but not defined")

	_, err = ParseFlags([]string{"-h"}, &usage)
	assert.ErrorIs(t, err, flag.ErrHelp)

	_, err = ParseFlags([]string{"-c", "many"}, nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"missing target", nil, ErrMissingRequired},
		{"empty poc dir", []string{"-u", "t", "-pocs", ""}, ErrMissingRequired},
		{"concurrency zero", []string{"-u", "t", "-c", "0"}, ErrInvalidConfig},
		{"concurrency too high", []string{"-u", "t", "-c", "51"}, ErrInvalidConfig},
		{"concurrency max ok", []string{"-u", "t", "-c", "50"}, nil},
		{"timeout zero", []string{"-u", "t", "-timeout", "0"}, ErrInvalidConfig},
		{"negative rate", []string{"-u", "t", "-rl", "-1"}, ErrInvalidConfig},
		{"negative delay", []string{"-u", "t", "-delay", "-1s"}, ErrInvalidConfig},
		{"bad proxy port", []string{"-u", "t", "-proxy-host", "p", "-proxy-port", "70000"}, ErrInvalidConfig},
		{"bad proxy type", []string{"-u", "t", "-proxy-host", "p", "-proxy-port", "1080", "-proxy-type", "ftp"}, ErrInvalidConfig},
		{"port without host", []string{"-u", "t", "-proxy-port", "1080"}, ErrInvalidConfig},
		{"url and host", []string{"-u", "t", "-proxy", "http://a:1", "-proxy-host", "b"}, ErrInvalidConfig},
		{"socket alias", []string{"-u", "t", "-proxy-host", "p", "-proxy-port", "1080", "-proxy-type", "socket"}, nil},
		{"unknown fingerprint", []string{"-u", "t", "-fingerprint", "netscape"}, ErrInvalidConfig},
		{"unknown format", []string{"-u", "t", "-format", "xml"}, ErrInvalidConfig},
		{"console to file", []string{"-u", "t", "-o", "x.txt"}, ErrInvalidConfig},
		{"verbose and silent", []string{"-u", "t", "-v", "-s"}, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parse(t, tt.args...).Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	err := parse(t, "-c", "0", "-timeout", "-5").Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingRequired))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Contains(t, err.Error(), "concurrency 0")
	assert.Contains(t, err.Error(), "timeout")
}

func TestProxy(t *testing.T) {
	p, err := parse(t).Proxy()
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = parse(t, "-proxy-host", "127.0.0.1", "-proxy-port", "8080", "-proxy-type", "https").Proxy()
	require.NoError(t, err)
	assert.Equal(t, httpclient.ProxyHTTP, p.Kind)
	assert.Equal(t, "127.0.0.1:8080", p.Address())

	p, err = parse(t, "-proxy", "socks5://u:pw@10.0.0.1:1081").Proxy()
	require.NoError(t, err)
	assert.Equal(t, httpclient.ProxySOCKS, p.Kind)
	assert.Equal(t, "u", p.Username)
	assert.Equal(t, "pw", p.Password)
}

func TestValidate_ProxyErrorsKeepSentinels(t *testing.T) {
	for _, args := range [][]string{
		{"-u", "t", "-proxy-host", "p", "-proxy-port", "70000"},
		{"-u", "t", "-proxy", "ftp://p:21"},
		{"-u", "t", "-proxy-port", "1080"},
	} {
		err := parse(t, args...).Validate()
		assert.ErrorIs(t, err, ErrInvalidConfig, args)
		assert.ErrorIs(t, err, httpclient.ErrInvalidProxy, args)
	}
}

func TestHTTPClient(t *testing.T) {
	hc, err := parse(t, "-timeout", "2500", "-verify-tls", "-fingerprint", "firefox", "-ua", "x").HTTPClient()
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, hc.Timeout)
	assert.False(t, hc.InsecureSkipVerify)
	assert.Equal(t, "firefox", hc.Fingerprint)
	assert.Equal(t, "x", hc.UserAgent)
	assert.Nil(t, hc.Proxy)

	hc, err = parse(t).HTTPClient()
	require.NoError(t, err)
	assert.True(t, hc.InsecureSkipVerify, "trust-all is the default")

	_, err = parse(t, "-proxy-host", "h").HTTPClient()
	assert.ErrorIs(t, err, httpclient.ErrInvalidProxy)
}

func TestRateLimiter(t *testing.T) {
	assert.Nil(t, parse(t).RateLimiter())
	assert.NotNil(t, parse(t, "-rl", "10").RateLimiter())
	assert.NotNil(t, parse(t, "-delay", "100ms").RateLimiter())
	assert.NotNil(t, parse(t, "-adaptive").RateLimiter())
}
