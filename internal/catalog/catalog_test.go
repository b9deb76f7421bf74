package catalog_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/raysh454/vigil/internal/catalog"
	"github.com/raysh454/vigil/internal/testutil"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestCatalog(t *testing.T, feedDir string) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(openTestDB(t), catalog.Config{FeedDir: feedDir}, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return cat
}

func writeFeed(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write feed %s: %v", name, err)
	}
	return path
}

// ─── Ingest ────────────────────────────────────────────────────────────

func TestIngestFile_InsertsAndDeduplicates(t *testing.T) {
	t.Parallel()
	feedDir := t.TempDir()
	cat := newTestCatalog(t, feedDir)
	path := writeFeed(t, feedDir, "nrd-2026-08-20.txt",
		"example-login.com\n\nexample-pay.net\nexample-login.com\n")

	stats, err := cat.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if stats.SourceFile != "nrd-2026-08-20.txt" {
		t.Errorf("unexpected source file %q", stats.SourceFile)
	}
	if stats.Lines != 3 || stats.Inserted != 2 || stats.Duplicates != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	// Re-ingesting the same feed must be a no-op.
	stats, err = cat.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("second IngestFile: %v", err)
	}
	if stats.Inserted != 0 || stats.Duplicates != 3 {
		t.Errorf("expected idempotent re-ingest, got %+v", stats)
	}

	n, err := cat.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 stored domains, got %d", n)
	}
}

func TestIngestFile_MissingFile(t *testing.T) {
	t.Parallel()
	cat := newTestCatalog(t, t.TempDir())

	if _, err := cat.IngestFile(context.Background(), "/nonexistent/feed.txt"); err == nil {
		t.Fatal("expected error for missing feed file")
	}
}

func TestIngestLatest_PicksNewestDump(t *testing.T) {
	t.Parallel()
	feedDir := t.TempDir()
	cat := newTestCatalog(t, feedDir)

	older := writeFeed(t, feedDir, "old.txt", "old-domain.com\n")
	newer := writeFeed(t, feedDir, "newer.txt", "newer-domain.com\n")
	sub := filepath.Join(feedDir, "2026-08-22")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	newest := writeFeed(t, sub, "domain-names.txt", "newest-domain.com\n")
	ignored := writeFeed(t, feedDir, "README.md", "not-a-feed.com\n")

	base := time.Now().Add(-time.Hour)
	for i, p := range []string{older, newer, newest, ignored} {
		ts := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(p, ts, ts); err != nil {
			t.Fatalf("chtimes %s: %v", p, err)
		}
	}

	stats, err := cat.IngestLatest(context.Background())
	if err != nil {
		t.Fatalf("IngestLatest: %v", err)
	}
	// README.md has the newest mtime but is not a feed file.
	if stats.SourceFile != "domain-names.txt" {
		t.Errorf("expected newest feed domain-names.txt, got %q", stats.SourceFile)
	}
	if stats.Inserted != 1 {
		t.Errorf("expected 1 inserted domain, got %d", stats.Inserted)
	}
}

func TestIngestLatest_EmptyDirectory(t *testing.T) {
	t.Parallel()
	cat := newTestCatalog(t, t.TempDir())

	if _, err := cat.IngestLatest(context.Background()); !errors.Is(err, catalog.ErrNoFeedFiles) {
		t.Errorf("expected ErrNoFeedFiles, got %v", err)
	}
}

func TestIngestLatest_MissingDirectory(t *testing.T) {
	t.Parallel()
	cat := newTestCatalog(t, filepath.Join(t.TempDir(), "does-not-exist"))

	if _, err := cat.IngestLatest(context.Background()); !errors.Is(err, catalog.ErrNoFeedFiles) {
		t.Errorf("expected ErrNoFeedFiles, got %v", err)
	}
}

// ─── Brand search ──────────────────────────────────────────────────────

func seedSearchCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	feedDir := t.TempDir()
	cat := newTestCatalog(t, feedDir)
	path := writeFeed(t, feedDir, "feed.txt",
		"example.com\nexamp1e-login.net\nexampleshop.net\nzzqqvv.biz\n")
	if _, err := cat.IngestFile(context.Background(), path); err != nil {
		t.Fatalf("seed ingest: %v", err)
	}
	return cat
}

func TestSearch_RanksExactLabelFirst(t *testing.T) {
	t.Parallel()
	cat := seedSearchCatalog(t)

	results, err := cat.Search(context.Background(), "Example", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	want := []string{"example.com", "exampleshop.net", "examp1e-login.net"}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d: %+v", len(want), len(results), results)
	}
	for i, domain := range want {
		if results[i].Domain != domain {
			t.Errorf("result %d: expected %s, got %s", i, domain, results[i].Domain)
		}
	}

	if results[0].FuzzyScore != 100 {
		t.Errorf("exact label should score 100, got %d", results[0].FuzzyScore)
	}
	if !results[0].RegexHit || !results[1].RegexHit {
		t.Error("expected regex hits for names containing the brand")
	}
	if results[2].RegexHit {
		t.Error("examp1e-login.net does not contain the brand verbatim")
	}
	if results[1].FuzzyScore <= results[2].FuzzyScore {
		t.Errorf("expected descending fuzzy scores, got %d then %d",
			results[1].FuzzyScore, results[2].FuzzyScore)
	}
}

func TestSearch_RegexOnlyMatchIncluded(t *testing.T) {
	t.Parallel()
	cat := seedSearchCatalog(t)

	// "biz" shares no label similarity with zzqqvv but appears in the TLD.
	results, err := cat.Search(context.Background(), "biz", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	found := false
	for _, r := range results {
		if r.Domain == "zzqqvv.biz" {
			found = true
			if r.FuzzyScore != 0 {
				t.Errorf("expected fuzzy score 0, got %d", r.FuzzyScore)
			}
			if !r.RegexHit {
				t.Error("expected regex hit for zzqqvv.biz")
			}
		}
	}
	if !found {
		t.Fatalf("zzqqvv.biz missing from results: %+v", results)
	}
}

func TestSearch_EmptyBrandReturnsNothing(t *testing.T) {
	t.Parallel()
	cat := seedSearchCatalog(t)

	results, err := cat.Search(context.Background(), "   ", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for blank brand, got %+v", results)
	}
}

func TestSearch_LimitTruncates(t *testing.T) {
	t.Parallel()
	cat := seedSearchCatalog(t)

	results, err := cat.Search(context.Background(), "example", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results with limit, got %d", len(results))
	}
	if results[0].Domain != "example.com" {
		t.Errorf("expected best match first, got %s", results[0].Domain)
	}
}

func TestNew_RejectsNilDB(t *testing.T) {
	t.Parallel()
	if _, err := catalog.New(nil, catalog.DefaultConfig(), &testutil.DummyLogger{}); err == nil {
		t.Fatal("expected error for nil db")
	}
}
