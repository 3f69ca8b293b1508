package analysis

import (
	"sort"

	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
)

// frequencies counts tokens and remembers first-seen order
type frequencies struct {
	counts map[string]int
	order  []string
}

func countTokens(tokens []string) *frequencies {
	f := &frequencies{counts: make(map[string]int)}
	for _, t := range tokens {
		if _, seen := f.counts[t]; !seen {
			f.order = append(f.order, t)
		}
		f.counts[t]++
	}
	return f
}

// unique returns the distinct tokens in first-seen order
func (f *frequencies) unique() []string {
	return append([]string{}, f.order...)
}

// mostCommon returns the k most frequent tokens, count descending; ties keep
// first-seen order. k <= 0 returns every token.
func (f *frequencies) mostCommon(k int) []entities.TokenCount {
	ranked := make([]entities.TokenCount, 0, len(f.order))
	for _, t := range f.order {
		ranked = append(ranked, entities.TokenCount{Token: t, Count: f.counts[t]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
