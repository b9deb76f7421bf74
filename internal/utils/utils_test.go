package utils_test

import (
	"testing"

	"github.com/raysh454/vigil/internal/utils"
)

func TestResolveAssetURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		base string
		ref  string
		want string
	}{
		{
			base: "https://example.com/app/index.html",
			ref:  "style.css",
			want: "https://example.com/app/style.css",
		},
		{
			base: "https://example.com/app/index.html",
			ref:  "../fonts/main.woff2",
			want: "https://example.com/fonts/main.woff2",
		},
		{
			base: "https://example.com/app/",
			ref:  "/static/app.js",
			want: "https://example.com/static/app.js",
		},
		{
			base: "https://example.com/page",
			ref:  "https://cdn.example.net/lib.js",
			want: "https://cdn.example.net/lib.js",
		},
		{
			base: "https://example.com/page",
			ref:  "//cdn.example.net/lib.js",
			want: "https://cdn.example.net/lib.js",
		},
		{
			base: "https://example.com",
			ref:  "img/logo.png",
			want: "https://example.com/img/logo.png",
		},
	}

	for _, tt := range tests {
		got, err := utils.ResolveAssetURL(tt.base, tt.ref)
		if err != nil {
			t.Fatalf("ResolveAssetURL(%q, %q) error: %v", tt.base, tt.ref, err)
		}
		if got != tt.want {
			t.Fatalf("ResolveAssetURL(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
	}
}

func TestResolveAssetURL_NoTrailingSlash(t *testing.T) {
	t.Parallel()
	got, err := utils.ResolveAssetURL("https://example.com/a/b.html", "c.css")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/a/c.css" {
		t.Fatalf("asset reference gained a path segment: %q", got)
	}
}

func TestASCIIDomain(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{in: "Example.COM", want: "example.com"},
		{in: "  example.com ", want: "example.com"},
		{in: "例え.テスト", want: "xn--r8jz45g.xn--zckzah"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := utils.ASCIIDomain(tt.in); got != tt.want {
			t.Fatalf("ASCIIDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
