// Package charset resolves the character encoding of an HTTP response body
// and decodes it to a Go string.
//
// Resolution and decoding are ordered candidate lists: each source is tried
// in turn and the first usable answer wins. Nothing here returns an error; a
// body that defeats every candidate is still returned, byte for byte.
package charset

import (
	"bytes"
	"log/slog"
	"strings"
	"unicode/utf8"

	htmlcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/pocscan/pocscan/pkg/regexcache"
)

// Canonical names returned by Resolve for byte-order-mark sniffing and the
// final default.
const (
	UTF8    = "UTF-8"
	UTF16LE = "UTF-16LE"
	UTF16BE = "UTF-16BE"
)

// FallbackCharsets are tried in order when the resolved charset cannot
// decode the body cleanly.
var FallbackCharsets = []string{"UTF-8", "GBK", "GB2312", "ISO-8859-1", "WINDOWS-1252"}

// previewSize bounds how much of a body is scanned for <meta> or <?xml?>
// declarations.
const previewSize = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

var (
	contentTypePattern = `(?i)charset\s*=\s*["']?([^;"'\s]+)`
	metaPatterns       = []string{
		`(?i)<meta[^>]*charset=["']([^"'>]+)["'][^>]*>`,
		`(?i)<meta[^>]*content=["'][^"']*charset=([^"'>]+)["'][^>]*>`,
		`(?i)<meta\s+http-equiv=["']Content-Type["'][^>]*content=["'][^"']*charset=([^"'>]+)["'][^>]*>`,
		`(?i)<meta[^>]*charset=([^"'\s/>]+)`,
	}
	xmlPattern = `<\?xml[^>]*encoding=["']([^"'>]+)["'][^>]*\?>`
)

// Resolve picks the charset for body using, in order: the Content-Type
// charset parameter, an HTML <meta> declaration (HTML content only), an XML
// declaration (XML content only), a byte-order mark, and finally UTF-8.
// Only names the decoder can actually use are accepted from each source.
func Resolve(contentType string, body []byte) string {
	for _, candidate := range []func() string{
		func() string { return fromContentType(contentType) },
		func() string { return fromHTMLMeta(contentType, body) },
		func() string { return fromXMLDecl(contentType, body) },
		func() string { return sniffBOM(body) },
	} {
		if name := candidate(); name != "" && IsSupported(name) {
			return strings.ToUpper(name)
		}
	}
	return UTF8
}

func fromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	m := regexcache.MustGet(contentTypePattern).FindStringSubmatch(contentType)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func fromHTMLMeta(contentType string, body []byte) string {
	ct := strings.ToLower(contentType)
	if !strings.Contains(ct, "text/html") && !strings.Contains(ct, "application/xhtml+xml") {
		return ""
	}
	preview := utf8Preview(body)
	for _, pattern := range metaPatterns {
		m := regexcache.MustGet(pattern).FindStringSubmatch(preview)
		if len(m) >= 2 {
			if name := strings.TrimSpace(m[1]); IsSupported(name) {
				return name
			}
		}
	}
	return ""
}

func fromXMLDecl(contentType string, body []byte) string {
	ct := strings.ToLower(contentType)
	if !strings.Contains(ct, "text/xml") && !strings.Contains(ct, "application/xml") {
		return ""
	}
	m := regexcache.MustGet(xmlPattern).FindStringSubmatch(utf8Preview(body))
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func sniffBOM(body []byte) string {
	switch {
	case bytes.HasPrefix(body, bomUTF8):
		return UTF8
	case bytes.HasPrefix(body, bomUTF16BE):
		return UTF16BE
	case bytes.HasPrefix(body, bomUTF16LE):
		return UTF16LE
	}
	return ""
}

func utf8Preview(body []byte) string {
	if len(body) > previewSize {
		body = body[:previewSize]
	}
	return strings.ToValidUTF8(string(body), "\uFFFD")
}

// IsSupported reports whether name is a charset label Decode understands.
func IsSupported(name string) bool {
	_, ok := lookup(name)
	return ok
}

// lookup maps a label to a decoder. Explicit-endian UTF-16 labels decode
// with or without a BOM; tryDecode drops a leading U+FEFF.
func lookup(name string) (encoding.Encoding, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "":
		return nil, false
	case "UTF-8", "UTF8":
		return unicode.UTF8BOM, true
	case "UTF-16LE":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), true
	case "UTF-16BE":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), true
	case "UTF-16":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), true
	}
	enc, canonical := htmlcharset.Lookup(name)
	if enc == nil || canonical == "replacement" {
		return nil, false
	}
	return enc, true
}

// Decode converts body from the named charset to a string. When the named
// charset is unknown or does not decode cleanly, FallbackCharsets are tried
// in order; if every candidate fails the raw bytes are returned as-is.
func Decode(body []byte, name string, logger *slog.Logger) string {
	if len(body) == 0 {
		return ""
	}

	if s, ok := tryDecode(body, name); ok {
		return s
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("charset decode failed, trying fallbacks", slog.String("charset", name))

	for _, fallback := range FallbackCharsets {
		if strings.EqualFold(fallback, name) {
			continue
		}
		if s, ok := tryDecode(body, fallback); ok {
			return s
		}
	}
	return string(body)
}

// DecodeResponse resolves the charset from contentType/body and decodes.
func DecodeResponse(contentType string, body []byte, logger *slog.Logger) (string, string) {
	name := Resolve(contentType, body)
	return Decode(body, name, logger), name
}

// tryDecode decodes strictly: a decoder error or a replacement character that
// was not already present in the input counts as failure.
func tryDecode(body []byte, name string) (string, bool) {
	enc, ok := lookup(name)
	if !ok {
		return "", false
	}
	if enc == unicode.UTF8BOM {
		if !utf8.Valid(body) {
			return "", false
		}
		return string(bytes.TrimPrefix(body, bomUTF8)), true
	}

	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", false
	}
	if bytes.ContainsRune(out, utf8.RuneError) && !bytes.Contains(body, []byte("\uFFFD")) {
		return "", false
	}
	return string(bytes.TrimPrefix(out, bomUTF8)), true
}
