package story

// ComposedStory is the narrative derived from a window of fragments. It is
// session-local derived state: recomputed whenever the window changes and
// never persisted.
type ComposedStory struct {
	Text              string   `json:"text"`
	SourceFragmentIDs []string `json:"sourceFragmentIds"`
}

// Empty reports whether the story was derived from no fragments. Text is
// empty exactly when SourceFragmentIDs is empty.
func (s ComposedStory) Empty() bool {
	return len(s.SourceFragmentIDs) == 0
}

// SourceIDs extracts the ids of the given fragments in order.
func SourceIDs(fragments []Fragment) []string {
	ids := make([]string, len(fragments))
	for i, f := range fragments {
		ids[i] = f.ID
	}
	return ids
}
