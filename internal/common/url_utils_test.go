package common

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestNormalizeURL(t *testing.T) {
	base := mustParse(t, "https://www.example.com/about/")

	tests := []struct {
		name string
		href string
		want string
		ok   bool
	}{
		{"relative path", "team", "https://www.example.com/about/team", true},
		{"root relative", "/pricing", "https://www.example.com/pricing", true},
		{"absolute", "https://example.com/contact", "https://example.com/contact", true},
		{"fragment stripped", "/faq#shipping", "https://www.example.com/faq", true},
		{"trailing slash trimmed", "/services/", "https://www.example.com/services", true},
		{"uppercase host lowered", "HTTPS://WWW.EXAMPLE.COM/Docs", "https://www.example.com/Docs", true},
		{"mailto rejected", "mailto:hi@example.com", "", false},
		{"tel rejected", "tel:+1555", "", false},
		{"javascript rejected", "javascript:void(0)", "", false},
		{"empty rejected", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeURL(base, tt.href)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSameHost(t *testing.T) {
	a := mustParse(t, "https://www.example.com/about")
	b := mustParse(t, "https://example.com/pricing")
	c := mustParse(t, "https://other.com/")

	assert.True(t, SameHost(a, b))
	assert.False(t, SameHost(a, c))
	assert.False(t, SameHost(nil, a))
}

func TestHasBlockedExtension(t *testing.T) {
	assert.True(t, HasBlockedExtension("https://example.com/brochure.pdf"))
	assert.True(t, HasBlockedExtension("https://example.com/logo.PNG"))
	assert.True(t, HasBlockedExtension("https://example.com/styles.css?v=2"))
	assert.False(t, HasBlockedExtension("https://example.com/about"))
	assert.False(t, HasBlockedExtension("https://example.com/pdf-guide"))
}
