package utils

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ResolveAssetURL resolves an asset reference against the page URL it was
// found on and returns a full absolute URL. Unlike directory-style link
// resolution, no trailing slash is added: asset references point at files.
//
// Examples:
//
//	Base: https://example.com/app/index.html
//	ResolveAssetURL(base, "style.css")          → "https://example.com/app/style.css"
//	ResolveAssetURL(base, "/static/app.js")     → "https://example.com/static/app.js"
//	ResolveAssetURL(base, "https://cdn.x/y.png") → "https://cdn.x/y.png"
func ResolveAssetURL(baseURL, ref string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("couldn't parse base url %s: %w", baseURL, err)
	}

	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("couldn't parse asset url %s: %w", ref, err)
	}

	resolved := base.ResolveReference(parsed)
	if resolved.Host == "" {
		return "", ErrMissingHost
	}

	return resolved.String(), nil
}

// ASCIIDomain lowercases a domain name and converts internationalized names
// to their punycode form. Conversion failures fall back to the lowercased
// input so callers always get a usable name.
func ASCIIDomain(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return name
	}
	if ascii, err := idna.Lookup.ToASCII(name); err == nil {
		return ascii
	}
	return name
}

// ErrMissingHost is returned when resolving an asset reference yields a URL
// with no host to fetch from.
var ErrMissingHost = &url.Error{Op: "resolve", URL: "", Err: &errStr{"missing host"}}

type errStr struct{ s string }

func (e *errStr) Error() string { return e.s }
