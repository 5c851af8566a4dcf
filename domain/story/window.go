package story

// DefaultWindowSize is the maximum number of fragments that feed a story.
const DefaultWindowSize = 20

// Window is the bounded, ordered set of fragments used as composition
// input. Fragments are kept in chronological ascending order (oldest first)
// so the composed story reads as a timeline. Window is not safe for
// concurrent use; callers serialize access.
type Window struct {
	fragments []Fragment
	bound     int
	version   uint64
}

// NewWindow creates an empty window with the given bound. A bound of zero
// or less falls back to DefaultWindowSize.
func NewWindow(bound int) *Window {
	if bound <= 0 {
		bound = DefaultWindowSize
	}
	return &Window{
		fragments: make([]Fragment, 0, bound),
		bound:     bound,
	}
}

// Reset replaces the window contents. Input must already be in ascending
// chronological order; duplicates by id are dropped, and the newest
// fragments are kept when the input exceeds the bound.
func (w *Window) Reset(fragments []Fragment) {
	w.fragments = w.fragments[:0]
	seen := make(map[string]struct{}, len(fragments))
	for _, f := range fragments {
		if _, dup := seen[f.ID]; dup {
			continue
		}
		seen[f.ID] = struct{}{}
		w.fragments = append(w.fragments, f)
	}
	if excess := len(w.fragments) - w.bound; excess > 0 {
		w.fragments = append(w.fragments[:0], w.fragments[excess:]...)
	}
	w.version++
}

// Append adds a newly inserted fragment at the end of the window. It is a
// no-op when a fragment with the same id is already present; otherwise the
// window is truncated to the bound by dropping the oldest fragment. It
// reports whether the window changed.
func (w *Window) Append(f Fragment) bool {
	for _, existing := range w.fragments {
		if existing.ID == f.ID {
			return false
		}
	}
	w.fragments = append(w.fragments, f)
	if len(w.fragments) > w.bound {
		w.fragments = append(w.fragments[:0], w.fragments[1:]...)
	}
	w.version++
	return true
}

// Fragments returns a copy of the window contents in composition order.
func (w *Window) Fragments() []Fragment {
	out := make([]Fragment, len(w.fragments))
	copy(out, w.fragments)
	return out
}

// Bound returns the maximum number of fragments the window holds.
func (w *Window) Bound() int {
	return w.bound
}

// Len returns the number of fragments currently in the window.
func (w *Window) Len() int {
	return len(w.fragments)
}

// Version returns a counter incremented on every mutation. Recomposition
// results are tagged with the version they were derived from so stale
// results can be discarded.
func (w *Window) Version() uint64 {
	return w.version
}
