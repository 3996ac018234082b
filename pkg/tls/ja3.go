// Package tls provides browser ClientHello fingerprints for the probe
// transport and the helpers that describe a negotiated TLS session.
//
// Fingerprints are built on github.com/refraction-networking/utls. Every
// profile is pinned to HTTP/1.1 during ALPN because the transport speaks
// HTTP/1.1 on the wire.
package tls

import (
	"context"
	stdtls "crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// ErrUnknownProfile is returned by Lookup for names no profile answers to.
var ErrUnknownProfile = errors.New("tls: unknown fingerprint profile")

// Profile is a named browser ClientHello.
type Profile struct {
	Name        string `json:"name"`
	UserAgent   string `json:"user_agent"`
	Description string `json:"description"`
	ClientHello utls.ClientHelloID
}

// State is the subset of a completed handshake the transport reports.
type State struct {
	Version          uint16
	CipherSuite      uint16
	PeerCertificates []*x509.Certificate
}

// Profiles returns the built-in fingerprints.
func Profiles() []Profile {
	return []Profile{
		{
			Name:        "chrome",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Description: "Chrome 120 on Windows 10/11",
			ClientHello: utls.HelloChrome_120,
		},
		{
			Name:        "firefox",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
			Description: "Firefox 120 on Windows",
			ClientHello: utls.HelloFirefox_120,
		},
		{
			Name:        "safari",
			UserAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Safari/605.1.15",
			Description: "Safari 16 on macOS",
			ClientHello: utls.HelloSafari_16_0,
		},
		{
			Name:        "ios",
			UserAgent:   "Mozilla/5.0 (iPhone; CPU iPhone OS 14_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Mobile/15E148 Safari/604.1",
			Description: "Safari on iOS 14",
			ClientHello: utls.HelloIOS_14,
		},
		{
			Name:        "edge",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/106.0.0.0 Safari/537.36 Edg/106.0.1370.34",
			Description: "Microsoft Edge 106 on Windows",
			ClientHello: utls.HelloEdge_106,
		},
	}
}

// ProfileNames returns names of all available profiles.
func ProfileNames() []string {
	profiles := Profiles()
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}

// Lookup returns a profile by name, case-insensitively.
func Lookup(name string) (*Profile, error) {
	for _, p := range Profiles() {
		if strings.EqualFold(p.Name, name) {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProfile, name, strings.Join(ProfileNames(), ", "))
}

// Handshake runs a client handshake over conn that presents p's ClientHello.
// On failure the caller still owns conn.
func Handshake(ctx context.Context, conn net.Conn, serverName string, insecure bool, p *Profile) (net.Conn, State, error) {
	spec, err := utls.UTLSIdToSpec(p.ClientHello)
	if err != nil {
		return nil, State{}, fmt.Errorf("build %s hello: %w", p.Name, err)
	}
	spec.Extensions = pinHTTP11(spec.Extensions)

	uConn := utls.UClient(conn, &utls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: insecure,
	}, utls.HelloCustom)
	if err := uConn.ApplyPreset(&spec); err != nil {
		return nil, State{}, fmt.Errorf("apply %s hello: %w", p.Name, err)
	}
	if err := uConn.HandshakeContext(ctx); err != nil {
		return nil, State{}, err
	}

	cs := uConn.ConnectionState()
	return uConn, State{
		Version:          cs.Version,
		CipherSuite:      cs.CipherSuite,
		PeerCertificates: cs.PeerCertificates,
	}, nil
}

// pinHTTP11 restricts ALPN to http/1.1 and drops ALPS, which only
// makes sense alongside h2.
func pinHTTP11(exts []utls.TLSExtension) []utls.TLSExtension {
	out := exts[:0]
	for _, ext := range exts {
		switch e := ext.(type) {
		case *utls.ALPNExtension:
			e.AlpnProtocols = []string{"http/1.1"}
		case *utls.ApplicationSettingsExtension:
			continue
		}
		out = append(out, ext)
	}
	return out
}

// StateOf converts a standard library connection state.
func StateOf(cs stdtls.ConnectionState) State {
	return State{
		Version:          cs.Version,
		CipherSuite:      cs.CipherSuite,
		PeerCertificates: cs.PeerCertificates,
	}
}

// VersionName returns the protocol name in the form JSSE reports it ("TLSv1.3").
func VersionName(ver uint16) string {
	switch ver {
	case stdtls.VersionSSL30:
		return "SSLv3"
	case stdtls.VersionTLS10:
		return "TLSv1"
	case stdtls.VersionTLS11:
		return "TLSv1.1"
	case stdtls.VersionTLS12:
		return "TLSv1.2"
	case stdtls.VersionTLS13:
		return "TLSv1.3"
	default:
		return fmt.Sprintf("Unknown(0x%04x)", ver)
	}
}

// CipherName returns the IANA name of a cipher suite.
func CipherName(id uint16) string {
	return stdtls.CipherSuiteName(id)
}
