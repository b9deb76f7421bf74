package catalog

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/raysh454/vigil/internal/interfaces"
)

// SearchResult is one catalog domain scored against a brand name.
type SearchResult struct {
	Domain     string `json:"domain"`
	FuzzyScore int    `json:"fuzzyScore"`
	RegexHit   bool   `json:"regexHit"`
}

var nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]`)

// normalizeBrand lowercases and strips everything that is not a letter or
// digit, so "Pay-Pal" and "paypal" compare equal.
func normalizeBrand(s string) string {
	return nonAlnumPattern.ReplaceAllString(strings.ToLower(s), "")
}

// Search scores every stored domain against the brand and returns the
// candidates that matched, best first. A candidate matches when its first
// label is fuzzily similar to the brand (score above zero) or the full name
// contains the brand verbatim (case-insensitive). Results are ordered by
// fuzzy score, regex hits breaking ties. limit of 0 means unlimited.
func (c *Catalog) Search(ctx context.Context, brand string, limit int) ([]SearchResult, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return []SearchResult{}, nil
	}
	normalized := normalizeBrand(brand)

	brandPattern, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(brand))
	if err != nil {
		return nil, fmt.Errorf("compile brand pattern: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `SELECT name FROM nrd_domains`)
	if err != nil {
		return nil, fmt.Errorf("query domains: %w", err)
	}
	defer rows.Close()

	dmp := diffmatchpatch.New()
	results := []SearchResult{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}

		label := strings.SplitN(strings.ToLower(name), ".", 2)[0]
		score := fuzzyScore(dmp, normalized, normalizeBrand(label))
		hit := brandPattern.MatchString(name)
		if score == 0 && !hit {
			continue
		}
		results = append(results, SearchResult{Domain: name, FuzzyScore: score, RegexHit: hit})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].FuzzyScore != results[j].FuzzyScore {
			return results[i].FuzzyScore > results[j].FuzzyScore
		}
		if results[i].RegexHit != results[j].RegexHit {
			return results[i].RegexHit
		}
		return results[i].Domain < results[j].Domain
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	c.logger.Debug("brand search completed",
		interfaces.Field{Key: "brand", Value: brand},
		interfaces.Field{Key: "matches", Value: len(results)})
	return results, nil
}

// fuzzyScore rates the similarity of two normalized strings from 0 (nothing
// in common) to 100 (identical), using the Levenshtein distance of their diff
// relative to the longer string.
func fuzzyScore(dmp *diffmatchpatch.DiffMatchPatch, pattern, label string) int {
	if pattern == "" || label == "" {
		return 0
	}
	if pattern == label {
		return 100
	}

	diffs := dmp.DiffMain(pattern, label, false)
	dist := dmp.DiffLevenshtein(diffs)

	longest := len(pattern)
	if len(label) > longest {
		longest = len(label)
	}
	if dist >= longest {
		return 0
	}
	return (longest - dist) * 100 / longest
}
