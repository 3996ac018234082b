package httpclient

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/pocscan/pocscan/pkg/defaults"
	"github.com/pocscan/pocscan/pkg/ordered"
)

// defaultHeaders are sent after Host and User-Agent unless the POC declares
// the same name.
var defaultHeaders = []ordered.Pair{
	{Key: "Accept", Value: defaults.Accept},
	{Key: "Accept-Language", Value: defaults.AcceptLanguage},
	{Key: "Accept-Charset", Value: defaults.AcceptCharset},
	{Key: "Accept-Encoding", Value: defaults.AcceptEncoding},
	{Key: "Connection", Value: defaults.Connection},
}

// AssembleHeaders returns the headers in the order they go on the wire:
// Host, User-Agent, the Accept family and Connection, then the POC's own
// headers as declared, then Content-Type and Content-Length for a body.
//
// A POC header replaces the built-in one with the same name, compared
// case-insensitively. Host and User-Agent keep their leading slots even when
// the POC supplies them.
func AssembleHeaders(method string, u *url.URL, probe ordered.Map, body, userAgent string) ordered.Map {
	if userAgent == "" {
		userAgent = defaults.UserAgent
	}

	out := make(ordered.Map, 0, len(defaultHeaders)+len(probe)+4)
	used := make([]bool, len(probe))

	take := func(name, fallback string) {
		for i, p := range probe {
			if strings.EqualFold(p.Key, name) {
				out = append(out, p)
				used[i] = true
				return
			}
		}
		out = append(out, ordered.Pair{Key: name, Value: fallback})
	}

	take("Host", HostHeader(u))
	take("User-Agent", userAgent)
	for _, d := range defaultHeaders {
		if !probe.HasFold(d.Key) {
			out = append(out, d)
		}
	}
	for i, p := range probe {
		if used[i] || isFramingHeader(p.Key) {
			continue
		}
		out = append(out, p)
	}

	ct, hasCT := probe.GetFold("Content-Type")
	if sendsBody(method) && body != "" && !hasCT {
		ct, hasCT = defaults.ContentTypeForm, true
	}
	if hasCT {
		out = append(out, ordered.Pair{Key: "Content-Type", Value: ct})
	}
	if sendsBody(method) {
		out = append(out, ordered.Pair{Key: "Content-Length", Value: strconv.Itoa(len(body))})
	}
	return out
}

// HostHeader renders the Host value, keeping a non-default port.
func HostHeader(u *url.URL) string {
	host := u.Hostname()
	port := u.Port()
	if port == "" || port == defaultPort(u.Scheme) {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, port)
}

func defaultPort(scheme string) string {
	if strings.EqualFold(scheme, "https") {
		return "443"
	}
	return "80"
}

// sendsBody reports whether method carries the POC body. Others never do.
func sendsBody(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}

// isFramingHeader reports headers the transport computes itself.
// Content-Type is re-emitted next to Content-Length.
func isFramingHeader(name string) bool {
	return strings.EqualFold(name, "Content-Length") ||
		strings.EqualFold(name, "Transfer-Encoding") ||
		strings.EqualFold(name, "Content-Type")
}
