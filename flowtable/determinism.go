package flowtable

import "bytes"

// Winner picks the deterministic tie-break among desired flows sharing
// a match-key: the flow whose owner id is numerically least under a
// 3-way byte comparison of the UUID (spec.md §4.5). Ties cannot occur
// in practice since (owner, match-key) is unique in the desired set,
// but Winner is still total: it returns the first minimal element it
// finds. Panics on an empty slice; callers only invoke it with
// non-empty candidate lists from Desired.ByKey.
func Winner(flows []*Flow) *Flow {
	best := flows[0]
	for _, f := range flows[1:] {
		if bytes.Compare(f.Owner[:], best.Owner[:]) < 0 {
			best = f
		}
	}
	return best
}
