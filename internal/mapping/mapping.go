package mapping

// CategoryMapping resolves one source-specific category code to the
// canonical building type code used across all sources.
type CategoryMapping struct {
	SourceCode    string `json:"source_code"`
	SourceLabel   string `json:"source_label"`
	CanonicalCode string `json:"canonical_code"`
}

// Table is a lookup over a source's category mappings. A source code missing
// from the table is a valid, excluded case for the decoder, not an error.
type Table struct {
	entries  []CategoryMapping
	bySource map[string]string
}

// NewTable builds a lookup table from an ordered list of mappings. If the
// same source code appears more than once, the last entry wins.
func NewTable(entries []CategoryMapping) *Table {
	bySource := make(map[string]string, len(entries))
	for _, e := range entries {
		bySource[e.SourceCode] = e.CanonicalCode
	}
	return &Table{entries: entries, bySource: bySource}
}

// Lookup returns the canonical code for a raw source category code.
func (t *Table) Lookup(sourceCode string) (string, bool) {
	canonical, ok := t.bySource[sourceCode]
	return canonical, ok
}

// Entries returns the mappings the table was built from, in their original
// order, so callers can store which mapping table a decode run applied.
func (t *Table) Entries() []CategoryMapping {
	return t.entries
}

// Len returns the number of mapping entries.
func (t *Table) Len() int {
	return len(t.entries)
}
