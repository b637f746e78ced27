// Package rank orders merged candidates deterministically so the final list
// does not depend on which source finished first.
package rank

import (
	"sort"

	"github.com/hyperifyio/gopricecmp/internal/pricing"
)

// Sort orders candidates ascending by price. Unresolved candidates sort after
// every resolved one, keeping their relative arrival order among themselves;
// resolved ties also keep arrival order. The input slice is sorted in place.
func Sort(cands []pricing.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Resolved != b.Resolved {
			return a.Resolved
		}
		if !a.Resolved {
			return false
		}
		return a.Price < b.Price
	})
}
