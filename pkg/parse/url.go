package parse

import (
	"net/url"
	"strings"
)

// IsValidURL reports whether s parses into a URL with both a scheme and a host
func IsValidURL(s string) bool {
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}

// ResolveAbsolute resolves ref against base using standard RFC 3986 reference resolution.
// References that are already absolute are returned unchanged (whitespace-trimmed).
// Returns "" when base or ref cannot be parsed, or when the result has no scheme or host
// (mailto:, javascript:, data: URIs and the like); callers treat "" as "skip this resource".
func ResolveAbsolute(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if refURL.Scheme != "" && refURL.Host != "" {
		return ref // Already absolute
	}

	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return ""
	}

	resolved := baseURL.ResolveReference(refURL)
	if resolved.Scheme == "" || resolved.Host == "" {
		return ""
	}
	return resolved.String()
}

// HostOf returns the lowercase host (without port) of an absolute URL, or "" if unparseable
func HostOf(absoluteURL string) string {
	parsed, err := url.Parse(absoluteURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
