package graph

// Range restricts a collection-valued property to a window of elements.
// A Range is stateful: [Range.Accept] counts the elements offered to it, and
// [Range.Reset] must be called before each new collection.
type Range struct {
	Offset int
	Limit  int // zero or negative means unbounded

	seen int
}

// Reset rewinds the element counter.
func (r *Range) Reset() {
	if r != nil {
		r.seen = 0
	}
}

// Accept reports whether the next element falls inside the window.
// A nil Range accepts everything.
func (r *Range) Accept() bool {
	if r == nil {
		return true
	}
	i := r.seen
	r.seen++
	if i < r.Offset {
		return false
	}
	return r.Limit <= 0 || i < r.Offset+r.Limit
}

// Apply returns the elements of items that fall inside the window.
func (r *Range) Apply(items []any) []any {
	if r == nil {
		return items
	}
	r.Reset()
	out := make([]any, 0, len(items))
	for _, it := range items {
		if r.Accept() {
			out = append(out, it)
		}
	}
	return out
}
