package planner

import (
	"sort"
	"strings"

	"shorts-doc-pipeline/types"
)

// Catalog is the caller's asset pool indexed by url. It is the only place a
// scene's asset binding may come from.
type Catalog struct {
	assets []types.VideoAsset
	byURL  map[string]types.VideoAsset
}

// NewCatalog indexes assets. Entries without a url are skipped since they can never be bound.
func NewCatalog(assets []types.VideoAsset) *Catalog {
	c := &Catalog{byURL: make(map[string]types.VideoAsset, len(assets))}
	for _, a := range assets {
		if a.URL == "" {
			continue
		}
		if _, dup := c.byURL[a.URL]; dup {
			continue
		}
		c.byURL[a.URL] = a
		c.assets = append(c.assets, a)
	}
	return c
}

// Len is the number of bindable assets
func (c *Catalog) Len() int { return len(c.assets) }

// Lookup finds the pool entry for an exact url
func (c *Catalog) Lookup(url string) (types.VideoAsset, bool) {
	a, ok := c.byURL[url]
	return a, ok
}

// Ranked returns the pool ordered by how many of each asset's tags occur in
// the script, best first. Ties keep the caller's order.
func (c *Catalog) Ranked(script string) []types.VideoAsset {
	words := scriptWords(script)

	type scored struct {
		asset types.VideoAsset
		score int
	}
	candidates := make([]scored, len(c.assets))
	for i, a := range c.assets {
		candidates[i] = scored{a, matchScore(words, a.Tags)}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	out := make([]types.VideoAsset, len(candidates))
	for i, s := range candidates {
		out[i] = s.asset
	}
	return out
}

// matchScore scores an asset's tags against the script vocabulary
func matchScore(words map[string]bool, tags []string) int {
	score := 0
	for _, t := range tags {
		if words[strings.ToLower(strings.TrimSpace(t))] {
			score += 10
		}
	}
	return score
}

func scriptWords(script string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(script), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-')
	}) {
		words[w] = true
	}
	return words
}
