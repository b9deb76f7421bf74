package capture

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/raysh454/vigil/internal/interfaces"
	"github.com/raysh454/vigil/internal/utils"
)

// assetsSubdir is the directory under a snapshot dir that holds downloaded
// assets.
const assetsSubdir = "assets"

var errAssetTooLarge = errors.New("asset exceeds size limit")

// ExtractAssetURLs lists stylesheet, script, image and font references found
// in the markup, resolved against pageURL. References appear in document
// order per category; duplicates are kept. A parse failure yields an empty
// list.
func (e *Engine) ExtractAssetURLs(html, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("failed to parse html for asset extraction",
			interfaces.Field{Key: "url", Value: pageURL},
			interfaces.Field{Key: "error", Value: err.Error()})
		return []string{}
	}

	urls := []string{}
	add := func(ref string) {
		resolved, err := utils.ResolveAssetURL(pageURL, ref)
		if err != nil {
			return
		}
		urls = append(urls, resolved)
	}

	doc.Find("link[rel~='stylesheet']").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok && href != "" {
			add(href)
		}
	})
	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && src != "" {
			add(src)
		}
	})
	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && src != "" {
			add(src)
		}
	})
	// Fonts hide in generic <link> tags; match them by href or MIME type.
	doc.Find("link").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		linkType, _ := sel.Attr("type")
		if strings.Contains(strings.ToLower(href), "font") || linkType == "font/woff2" {
			add(href)
		}
	})

	return urls
}

// DownloadAssets extracts asset references from html and downloads each into
// outputDir/assets. A failed asset is skipped without affecting the others.
// When two references resolve to the same filename the first one wins. The
// returned slice holds the filenames that were written.
func (e *Engine) DownloadAssets(ctx context.Context, html, pageURL, outputDir string) []string {
	assetURLs := e.ExtractAssetURLs(html, pageURL)
	if len(assetURLs) == 0 {
		return []string{}
	}

	assetsDir := filepath.Join(outputDir, assetsSubdir)
	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		e.logger.Error("failed to create assets directory",
			interfaces.Field{Key: "dir", Value: assetsDir},
			interfaces.Field{Key: "error", Value: err.Error()})
		return []string{}
	}

	downloaded := []string{}
	seen := map[string]bool{}
	for _, assetURL := range assetURLs {
		name := assetFilename(assetURL)
		if seen[name] {
			continue
		}
		if err := e.downloadSingleAsset(ctx, assetURL, filepath.Join(assetsDir, name)); err != nil {
			e.logger.Warn("failed to download asset",
				interfaces.Field{Key: "asset", Value: assetURL},
				interfaces.Field{Key: "error", Value: err.Error()})
			continue
		}
		seen[name] = true
		downloaded = append(downloaded, name)
	}

	e.logger.Info("downloaded assets",
		interfaces.Field{Key: "url", Value: pageURL},
		interfaces.Field{Key: "count", Value: len(downloaded)})
	return downloaded
}

// downloadSingleAsset fetches one asset to destPath, retrying connection
// failures. A non-200 status or an oversized body aborts the asset without
// further attempts.
func (e *Engine) downloadSingleAsset(ctx context.Context, assetURL, destPath string) error {
	delay := e.retryDelay()
	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		err := e.fetchAssetOnce(ctx, assetURL, destPath)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err
		if attempt < e.cfg.MaxRetries-1 {
			e.sleep(delay)
			delay = time.Duration(float64(delay) * e.cfg.RetryBackoffMultiplier)
		}
	}
	return fmt.Errorf("after %d attempts: %w", e.cfg.MaxRetries, lastErr)
}

func (e *Engine) fetchAssetOnce(ctx context.Context, assetURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &httpStatusError{code: resp.StatusCode}
	}

	// Read one byte past the cap so an at-limit asset is distinguishable
	// from an oversized one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxAssetSizeBytes+1))
	if err != nil {
		return err
	}
	if int64(len(body)) > e.cfg.MaxAssetSizeBytes {
		return fmt.Errorf("%w: %s is over %d bytes", errAssetTooLarge, assetURL, e.cfg.MaxAssetSizeBytes)
	}

	return os.WriteFile(destPath, body, 0o644)
}

// assetFilename derives a local filename for an asset URL from the last path
// segment, falling back to an MD5 of the whole URL when the path has no
// usable basename.
func assetFilename(assetURL string) string {
	if u, err := url.Parse(assetURL); err == nil {
		if p := u.Path; p != "" && !strings.HasSuffix(p, "/") {
			if name := path.Base(p); name != "" && name != "." && name != "/" {
				return name
			}
		}
	}
	sum := md5.Sum([]byte(assetURL))
	return hex.EncodeToString(sum[:])
}
