package common

import (
	"net/url"
	"strings"
)

// blockedExtensions lists file extensions that are never worth fetching
// during a training crawl (binary assets, styles, scripts).
var blockedExtensions = []string{
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
	".css", ".js", ".zip", ".tar", ".gz", ".rar",
	".mp3", ".mp4", ".avi", ".mov",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
}

// NormalizeURL resolves href against base and returns a canonical absolute
// URL suitable for crawl deduplication. Fragments are stripped and the host
// is lowercased. Returns false for non-HTTP schemes (mailto:, tel:,
// javascript:) and unparseable values.
func NormalizeURL(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	resolved := ref
	if base != nil {
		resolved = base.ResolveReference(ref)
	}

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Host == "" {
		return "", false
	}

	resolved.Fragment = ""
	resolved.Host = strings.ToLower(resolved.Host)

	// Treat "/about" and "/about/" as the same page
	if resolved.Path != "/" {
		resolved.Path = strings.TrimSuffix(resolved.Path, "/")
	}

	return resolved.String(), true
}

// SameHost reports whether two URLs belong to the same site. A leading
// "www." prefix is ignored so www.example.com and example.com crawl as one
// domain.
func SameHost(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return stripWWW(a.Host) == stripWWW(b.Host)
}

func stripWWW(host string) string {
	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}

// HasBlockedExtension reports whether the URL path ends in an extension the
// crawler should skip.
func HasBlockedExtension(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(parsed.Path)
	for _, ext := range blockedExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
