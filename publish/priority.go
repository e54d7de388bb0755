// Package publish writes a built cache out to a directory or an S3 bucket.
package publish

import (
	"sort"
	"strings"

	"github.com/chrisvdg/zerver/cache"
)

// priorities orders uploads by media type; lower goes first.
// Anything not listed shares the last tier.
var priorities = map[string]int{
	"text/cache-manifest":    0,
	"text/html":              1,
	"application/javascript": 2,
	"text/css":               2,
}

const lastTier = 3

// item is one file to publish
type item struct {
	path  string
	entry *cache.Entry
}

func rank(e *cache.Entry) int {
	if r, ok := priorities[e.ContentType()]; ok {
		return r
	}
	return lastTier
}

// files returns the entries to publish, skipping directory aliases, grouped
// into tiers by priority. Paths are sorted within a tier.
func files(dump map[string]*cache.Entry) [][]item {
	tiers := make([][]item, lastTier+1)
	for p, e := range dump {
		if strings.HasSuffix(p, "/") {
			continue
		}
		r := rank(e)
		tiers[r] = append(tiers[r], item{path: p, entry: e})
	}
	for _, t := range tiers {
		sort.Slice(t, func(i, j int) bool { return t[i].path < t[j].path })
	}
	return tiers
}
