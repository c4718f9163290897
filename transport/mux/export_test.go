package mux

// SkipStreams marks the next n stream IDs of the side as used.
func (t *Transport) SkipStreams(n uint64) {
	t.opened.Add(n)
}
