package httpclient

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/pocscan/pocscan/pkg/defaults"
	"github.com/pocscan/pocscan/pkg/ordered"
	ptls "github.com/pocscan/pocscan/pkg/tls"
)

// Response is a fully read and normalized HTTP response.
type Response struct {
	StatusCode int         `json:"status_code"`
	Proto      string      `json:"proto"`
	Headers    ordered.Map `json:"headers"`

	// Body is the decompressed body decoded with Charset.
	Body    string `json:"body"`
	Charset string `json:"charset"`

	// Truncated is set when the body exceeded the size limit.
	Truncated     bool  `json:"truncated,omitempty"`
	ElapsedMillis int64 `json:"elapsed_ms"`

	// TLS is nil for plain HTTP or when the session could not be described.
	TLS *TLSInfo `json:"tls,omitempty"`
}

// TLSInfo describes the negotiated session and the leaf certificate.
type TLSInfo struct {
	Protocol    string `json:"protocol"`
	CipherSuite string `json:"cipher_suite"`
	Verified    bool   `json:"verified"`
	Subject     string `json:"subject,omitempty"`
	Issuer      string `json:"issuer,omitempty"`
	NotBefore   string `json:"not_before,omitempty"`
	NotAfter    string `json:"not_after,omitempty"`
}

// collapseHeaders joins repeated header values with ", ". Keys are sorted
// since the parsed header map does not keep arrival order.
func collapseHeaders(h http.Header) ordered.Map {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(ordered.Map, 0, len(keys))
	for _, k := range keys {
		out = append(out, ordered.Pair{Key: k, Value: strings.Join(h[k], ", ")})
	}
	return out
}

// decompress undoes a gzip or deflate Content-Encoding. Other encodings
// pass through. On failure the raw bytes are returned with the error.
func decompress(encoding string, raw []byte, limit int64) ([]byte, error) {
	var r io.Reader
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return raw, err
		}
		defer zr.Close()
		r = zr
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw.
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			out, err := readLimited(zr, limit)
			zr.Close()
			if err == nil {
				return out, nil
			}
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		r = fr
	default:
		return raw, nil
	}

	out, err := readLimited(r, limit)
	if err != nil {
		return raw, err
	}
	return out, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = defaults.MaxBodySize
	}
	return io.ReadAll(io.LimitReader(r, limit))
}

// describeTLS turns a handshake state into TLSInfo. Missing pieces are
// logged and left empty.
func describeTLS(state *ptls.State, verified bool, logger *slog.Logger) *TLSInfo {
	if state == nil {
		logger.Debug("no TLS session to describe")
		return nil
	}

	info := &TLSInfo{
		Protocol:    ptls.VersionName(state.Version),
		CipherSuite: ptls.CipherName(state.CipherSuite),
		Verified:    verified,
	}
	if len(state.PeerCertificates) == 0 {
		logger.Warn("TLS session has no peer certificate")
		return info
	}

	leaf := state.PeerCertificates[0]
	info.Subject = leaf.Subject.String()
	info.Issuer = leaf.Issuer.String()
	info.NotBefore = leaf.NotBefore.Local().Format(defaults.TLSTimeLayout)
	info.NotAfter = leaf.NotAfter.Local().Format(defaults.TLSTimeLayout)
	return info
}
