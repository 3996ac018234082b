package reqbuild

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocscan/pocscan/pkg/ordered"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name   string
		target string
		path   string
		params ordered.Map
		want   string
	}{
		{"bare host gets http", "example.com", "/admin", nil, "http://example.com/admin"},
		{"https kept", "https://example.com", "/", nil, "https://example.com/"},
		{"trailing slash stripped", "http://example.com/", "/a", nil, "http://example.com/a"},
		{"empty path", "example.com:8080", "", nil, "http://example.com:8080/"},
		{"missing leading slash", "example.com", "login.php", nil, "http://example.com/login.php"},
		{"double slash collapsed", "example.com", "//etc/passwd", nil, "http://example.com/etc/passwd"},
		{
			"params encoded in order",
			"example.com", "/search",
			ordered.FromPairs("q", "a b&c", "id", "1", "名", "值"),
			"http://example.com/search?q=a+b%26c&id=1&%E5%90%8D=%E5%80%BC",
		},
		{
			"invalid utf8 emitted raw",
			"example.com", "/x",
			ordered.FromPairs("k", "\xff"),
			"http://example.com/x?k=\xff",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildURL(tt.target, tt.path, tt.params))
		})
	}
}

func TestBuildURL_SchemeAlwaysPresent(t *testing.T) {
	for _, target := range []string{"10.0.0.1", "host:81", "host/", "sub.example.org/app/", ""} {
		got := BuildURL(target, "x", nil)
		assert.True(t, strings.HasPrefix(got, "http://"), "target %q built %q", target, got)
	}
}

func TestBuildURL_PathStartsWithSingleSlash(t *testing.T) {
	for _, path := range []string{"", "/", "a", "/a", "///a/b", "a//b"} {
		got := BuildURL("example.com", path, nil)
		u, err := url.Parse(got)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(u.Path, "/"), "path %q", path)
		assert.False(t, strings.HasPrefix(u.Path, "//"), "path %q", path)
	}
}

func TestIsSecure(t *testing.T) {
	assert.True(t, IsSecure("https://a"))
	assert.True(t, IsSecure("HTTPS://a"))
	assert.False(t, IsSecure("http://a"))
	assert.False(t, IsSecure("a"))
}
