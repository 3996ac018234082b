// Package httpclient is the probe transport. It writes one HTTP/1.1 request
// per connection with headers in exactly the order given, reads the full
// response and normalizes it (decompression, charset decoding, TLS
// metadata).
//
// net/http is not used for the request side because it reorders and
// canonicalizes headers.
package httpclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pocscan/pocscan/pkg/charset"
	"github.com/pocscan/pocscan/pkg/defaults"
	"github.com/pocscan/pocscan/pkg/duration"
	"github.com/pocscan/pocscan/pkg/iohelper"
	"github.com/pocscan/pocscan/pkg/ordered"
	ptls "github.com/pocscan/pocscan/pkg/tls"
)

// Config holds transport configuration options.
type Config struct {
	// Timeout applies separately to connect, each read and each write (default: 10s)
	Timeout time.Duration

	// InsecureSkipVerify trusts every certificate and host name.
	// DefaultConfig turns it on: probes target arbitrary, often self-signed hosts.
	InsecureSkipVerify bool

	// Proxy is the upstream proxy (optional)
	Proxy *ProxyConfig

	// Fingerprint names a ClientHello profile from pkg/tls. Empty uses crypto/tls.
	Fingerprint string

	// UserAgent replaces the default User-Agent (optional)
	UserAgent string

	// MaxBodySize caps the buffered body (default: 10MB)
	MaxBodySize int64

	// Logger receives non-fatal normalization problems (default: slog.Default())
	Logger *slog.Logger
}

// DefaultConfig returns the configuration a scan starts from.
func DefaultConfig() Config {
	return Config{
		Timeout:            duration.RequestTimeout,
		InsecureSkipVerify: true,
		MaxBodySize:        defaults.MaxBodySize,
	}
}

// Client sends probe requests. It is safe for concurrent use; all fields are
// read-only after New.
type Client struct {
	cfg     Config
	profile *ptls.Profile
	direct  *cachingDialer
	socks   ContextDialer
	logger  *slog.Logger
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = duration.RequestTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaults.MaxBodySize
	}
	c := &Client{
		cfg:    cfg,
		logger: cfg.Logger,
		direct: &cachingDialer{
			cache:  newDNSCache(duration.DNSCacheTTL, duration.DNSNegativeTTL),
			dialer: &net.Dialer{Timeout: cfg.Timeout},
		},
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	if cfg.Fingerprint != "" {
		p, err := ptls.Lookup(cfg.Fingerprint)
		if err != nil {
			return nil, err
		}
		c.profile = p
	}

	if cfg.Proxy != nil && cfg.Proxy.Kind == ProxySOCKS {
		d, err := newSOCKSDialer(cfg.Proxy, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProxyConnect, err)
		}
		c.socks = d
	}
	return c, nil
}

// ProxyType reports which kind of proxy requests go through.
func (c *Client) ProxyType() ProxyKind {
	if c.cfg.Proxy == nil {
		return ProxyNone
	}
	return c.cfg.Proxy.Kind
}

// Timeout returns the per-operation timeout.
func (c *Client) Timeout() time.Duration { return c.cfg.Timeout }

// Send issues one request and returns the normalized response.
// ElapsedMillis covers everything from dialing until the body is read.
func (c *Client) Send(ctx context.Context, method, rawURL string, headers ordered.Map, body string) (*Response, error) {
	start := time.Now()

	u, target, err := splitURL(rawURL)
	if err != nil {
		return nil, err
	}
	scheme := u.Scheme
	secure := scheme == "https"

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	port := u.Port()
	if port == "" {
		port = defaultPort(scheme)
	}
	addr := net.JoinHostPort(u.Hostname(), port)

	conn, state, err := c.connect(ctx, u.Hostname(), addr, secure)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if !secure && c.ProxyType() == ProxyHTTP {
		// Plain requests through an HTTP proxy use the absolute form.
		target = u.Scheme + "://" + u.Host + target
	}
	wire := AssembleHeaders(method, u, headers, body, c.cfg.UserAgent)
	if !secure && c.ProxyType() == ProxyHTTP {
		if auth := c.cfg.Proxy.proxyAuthorization(); auth != "" {
			wire = append(wire, ordered.Pair{Key: "Proxy-Authorization", Value: auth})
		}
	}

	bw := bufio.NewWriter(conn)
	writeRequest(bw, method, target, wire, body, sendsBody(method))
	if err := bw.Flush(); err != nil {
		return nil, c.wrap(ctx, err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), &http.Request{Method: method})
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil, c.wrap(ctx, err)
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, c.wrap(ctx, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	raw, truncated, err := iohelper.ReadBody(resp.Body, c.cfg.MaxBodySize)
	resp.Body.Close()
	if err != nil {
		return nil, c.wrap(ctx, err)
	}

	return c.normalize(resp, raw, truncated, state, secure, start), nil
}

func (c *Client) normalize(resp *http.Response, raw []byte, truncated bool, state *ptls.State, secure bool, start time.Time) *Response {
	out := &Response{
		StatusCode: resp.StatusCode,
		Proto:      resp.Proto,
		Headers:    collapseHeaders(resp.Header),
		Truncated:  truncated,
	}

	data, err := decompress(resp.Header.Get("Content-Encoding"), raw, c.cfg.MaxBodySize)
	if err != nil {
		c.logger.Warn("decompression failed, keeping raw body",
			slog.String("encoding", resp.Header.Get("Content-Encoding")),
			slog.String("error", err.Error()))
	}
	out.Body, out.Charset = charset.DecodeResponse(resp.Header.Get("Content-Type"), data, c.logger)

	if secure {
		out.TLS = describeTLS(state, !c.cfg.InsecureSkipVerify, c.logger)
	}
	out.ElapsedMillis = time.Since(start).Milliseconds()
	return out
}

// connect returns a connection ready for the request bytes, TLS included.
func (c *Client) connect(ctx context.Context, host, addr string, secure bool) (net.Conn, *ptls.State, error) {
	var (
		raw net.Conn
		err error
	)
	switch c.ProxyType() {
	case ProxySOCKS:
		raw, err = c.socks.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, nil, c.wrapProxy(ctx, err)
		}
	case ProxyHTTP:
		raw, err = c.direct.DialContext(ctx, "tcp", c.cfg.Proxy.Address())
		if err != nil {
			return nil, nil, c.wrapProxy(ctx, err)
		}
	default:
		raw, err = c.direct.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, nil, c.wrap(ctx, err)
		}
	}
	conn := &deadlineConn{Conn: raw, timeout: c.cfg.Timeout}

	if c.ProxyType() == ProxyHTTP && secure {
		if err := connectTunnel(conn, addr, c.cfg.Proxy); err != nil {
			conn.Close()
			return nil, nil, c.wrapProxy(ctx, err)
		}
	}
	if !secure {
		return conn, nil, nil
	}

	hsCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if c.profile != nil {
		tlsConn, state, err := ptls.Handshake(hsCtx, conn, host, c.cfg.InsecureSkipVerify, c.profile)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("%w: %v", ErrTLS, err)
		}
		return tlsConn, &state, nil
	}

	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: c.cfg.InsecureSkipVerify,
		NextProtos:         []string{"http/1.1"},
		MinVersion:         tls.VersionTLS10,
	})
	if err := tlsConn.HandshakeContext(hsCtx); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrTLS, err)
	}
	state := ptls.StateOf(tlsConn.ConnectionState())
	return tlsConn, &state, nil
}

// wrap maps low-level errors onto the package sentinels.
func (c *Client) wrap(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %v", ErrDNS, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w after %s: %v", ErrTimeout, c.cfg.Timeout, err)
	}
	return err
}

func (c *Client) wrapProxy(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w via %s: %v", ErrProxyConnect, c.cfg.Proxy, err)
}

// splitURL separates the scheme and authority, parsed for dialing, from the
// request target, which is sent exactly as written. Probe paths often hold
// payloads url.Parse would reject or re-escape.
func splitURL(rawURL string) (*url.URL, string, error) {
	i := strings.Index(rawURL, "://")
	if i <= 0 {
		return nil, "", fmt.Errorf("%w: %q has no scheme", ErrInvalidURL, rawURL)
	}
	rest := rawURL[i+3:]
	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}

	u, err := url.Parse(rawURL[:i+3+end])
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	target := rest[end:]
	if j := strings.IndexByte(target, '#'); j >= 0 {
		target = target[:j]
	}
	if target == "" || target[0] == '?' {
		target = "/" + target
	}
	target = targetCleaner.Replace(target)
	return u, target, nil
}

// targetCleaner keeps a request target on one request line.
var targetCleaner = strings.NewReplacer(" ", "%20", "\r", "", "\n", "")

// writeRequest serializes the request line, headers in order and body.
// Errors surface on Flush.
func writeRequest(w *bufio.Writer, method, target string, headers ordered.Map, body string, withBody bool) {
	w.WriteString(method)
	w.WriteByte(' ')
	w.WriteString(target)
	w.WriteString(" HTTP/1.1\r\n")
	for _, h := range headers {
		key := sanitizeHeaderKey(h.Key)
		if key == "" {
			continue
		}
		w.WriteString(key)
		w.WriteString(": ")
		w.WriteString(sanitizeHeaderValue(h.Value))
		w.WriteString("\r\n")
	}
	w.WriteString("\r\n")
	if withBody {
		w.WriteString(body)
	}
}

// keyCleaner removes bytes that would end a header name early.
var keyCleaner = strings.NewReplacer("\r", "", "\n", "", ":", "")

// sanitizeHeaderKey strips CR, LF and ':' from a header name. A name left
// empty is dropped by the caller.
func sanitizeHeaderKey(k string) string {
	if strings.ContainsAny(k, "\r\n:") {
		k = keyCleaner.Replace(k)
	}
	return strings.TrimSpace(k)
}

// sanitizeHeaderValue strips CR and LF so a value cannot split the header block.
func sanitizeHeaderValue(v string) string {
	if !strings.ContainsAny(v, "\r\n") {
		return v
	}
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

// deadlineConn pushes the read or write deadline forward before every call,
// giving each socket operation the full timeout.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if c.timeout > 0 {
		c.Conn.SetReadDeadline(time.Now().Add(c.timeout))
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if c.timeout > 0 {
		c.Conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	return c.Conn.Write(b)
}
