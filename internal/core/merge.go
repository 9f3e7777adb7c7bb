package core

// Merge folds incoming into existing, deduplicated by scan code.
//
// A key that appears more than once takes the record from its last
// appearance in existing ++ incoming. The output keeps the position of the
// first appearance. Neither input is modified.
func Merge(existing, incoming RecordCollection) RecordCollection {
	total := len(existing) + len(incoming)
	if total == 0 {
		return RecordCollection{}
	}

	index := make(map[string]int, total)
	out := make(RecordCollection, 0, total)

	add := func(r Record) {
		if i, ok := index[r.ScanCode]; ok {
			out[i] = r
			return
		}
		index[r.ScanCode] = len(out)
		out = append(out, r)
	}

	for _, r := range existing {
		add(r)
	}
	for _, r := range incoming {
		add(r)
	}
	return out
}
