package repoforge

import "sort"

// SourceTrace records, for every resolved field, the governance layer that
// supplied the final value. Scalar fields are keyed by their path
// ("repository.wiki"); collection items are keyed per entry
// ("labels[bug]"). The trace is append-only: entries are only ever written
// by the merge and never removed.
type SourceTrace struct {
	sources map[string]Source
}

// NewSourceTrace returns an empty trace.
func NewSourceTrace() *SourceTrace {
	return &SourceTrace{sources: make(map[string]Source)}
}

// Record notes that layer src supplied the final value for path.
func (t *SourceTrace) Record(path string, src Source) {
	t.sources[path] = src
}

// Source returns the layer that supplied path, or "" if the field was
// never set.
func (t *SourceTrace) Source(path string) Source {
	return t.sources[path]
}

// Has reports whether a value was recorded for path.
func (t *SourceTrace) Has(path string) bool {
	_, ok := t.sources[path]
	return ok
}

// Len returns the number of traced fields.
func (t *SourceTrace) Len() int {
	return len(t.sources)
}

// Paths returns all traced field paths in sorted order, so that iteration
// over a trace is deterministic for fixed inputs.
func (t *SourceTrace) Paths() []string {
	paths := make([]string, 0, len(t.sources))
	for p := range t.sources {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
