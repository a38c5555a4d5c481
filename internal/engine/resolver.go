package engine

import (
	"cmp"
	"slices"

	"github.com/Veraticus/tally/internal/model"
)

// SelectRule picks the winning rule among rules that all matched one transaction.
// Lower priority values win; equal priorities keep input order.
func SelectRule(matched []model.Rule) (model.Rule, bool) {
	if len(matched) == 0 {
		return model.Rule{}, false
	}

	sorted := slices.Clone(matched)
	slices.SortStableFunc(sorted, func(a, b model.Rule) int {
		return cmp.Compare(a.Priority, b.Priority)
	})

	return sorted[0], true
}
