package httpclient

import "errors"

// Sentinel errors for transport failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrProxyConnect indicates the client failed to connect through
	// the configured proxy (SOCKS5 or HTTP CONNECT).
	ErrProxyConnect = errors.New("httpclient: proxy connection failed")

	// ErrDNS indicates a DNS resolution failure for the target host.
	ErrDNS = errors.New("httpclient: DNS resolution failed")

	// ErrTLS indicates a TLS handshake or certificate verification failure.
	ErrTLS = errors.New("httpclient: TLS handshake failed")

	// ErrTimeout indicates connect, read or write exceeded the configured timeout.
	ErrTimeout = errors.New("httpclient: timeout")

	// ErrMalformedResponse indicates the peer did not answer with parseable HTTP/1.x.
	ErrMalformedResponse = errors.New("httpclient: malformed response")

	// ErrInvalidProxy indicates a proxy URL or host/port/type that cannot be used.
	ErrInvalidProxy = errors.New("httpclient: invalid proxy")

	// ErrInvalidURL indicates the request URL could not be parsed or has no host.
	ErrInvalidURL = errors.New("httpclient: invalid URL")
)
