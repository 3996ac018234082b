package tls

import (
	"context"
	stdtls "crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	utls "github.com/refraction-networking/utls"
)

func TestProfiles_Complete(t *testing.T) {
	profiles := Profiles()
	if len(profiles) < 5 {
		t.Fatalf("expected at least 5 profiles, got %d", len(profiles))
	}
	seen := make(map[string]bool)
	for i, p := range profiles {
		if p.Name == "" {
			t.Errorf("profile %d has empty Name", i)
		}
		if p.UserAgent == "" {
			t.Errorf("profile %d (%s) has empty UserAgent", i, p.Name)
		}
		if seen[p.Name] {
			t.Errorf("duplicate profile name %q", p.Name)
		}
		seen[p.Name] = true
	}
}

func TestLookup(t *testing.T) {
	p, err := Lookup("Chrome")
	if err != nil {
		t.Fatalf("Lookup(Chrome) error: %v", err)
	}
	if p.Name != "chrome" {
		t.Errorf("expected chrome, got %s", p.Name)
	}

	_, err = Lookup("netscape")
	if !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("expected ErrUnknownProfile, got %v", err)
	}
}

func TestVersionName(t *testing.T) {
	tests := map[uint16]string{
		stdtls.VersionTLS10: "TLSv1",
		stdtls.VersionTLS12: "TLSv1.2",
		stdtls.VersionTLS13: "TLSv1.3",
		0x9999:              "Unknown(0x9999)",
	}
	for ver, want := range tests {
		if got := VersionName(ver); got != want {
			t.Errorf("VersionName(0x%04x) = %q, want %q", ver, got, want)
		}
	}
}

func TestCipherName(t *testing.T) {
	if got := CipherName(stdtls.TLS_AES_128_GCM_SHA256); got != "TLS_AES_128_GCM_SHA256" {
		t.Errorf("unexpected cipher name %q", got)
	}
}

func TestHandshake_AgainstTestServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	raw, err := net.DialTimeout("tcp", u.Host, 5*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer raw.Close()

	p, _ := Lookup("chrome")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, state, err := Handshake(ctx, raw, "example.com", true, p)
	if err != nil {
		t.Fatalf("handshake: %v", err)
	}
	defer conn.Close()

	if state.Version < stdtls.VersionTLS12 {
		t.Errorf("expected TLS 1.2 or newer, got %s", VersionName(state.Version))
	}
	if len(state.PeerCertificates) == 0 {
		t.Error("expected peer certificates")
	}
}

func TestPinHTTP11(t *testing.T) {
	p, _ := Lookup("chrome")
	spec, err := utls.UTLSIdToSpec(p.ClientHello)
	if err != nil {
		t.Fatalf("spec: %v", err)
	}

	var sawALPN bool
	for _, ext := range pinHTTP11(spec.Extensions) {
		switch e := ext.(type) {
		case *utls.ALPNExtension:
			sawALPN = true
			if len(e.AlpnProtocols) != 1 || e.AlpnProtocols[0] != "http/1.1" {
				t.Errorf("expected ALPN [http/1.1], got %v", e.AlpnProtocols)
			}
		case *utls.ApplicationSettingsExtension:
			t.Error("ALPS extension should be dropped")
		}
	}
	if !sawALPN {
		t.Error("expected an ALPN extension")
	}
}
