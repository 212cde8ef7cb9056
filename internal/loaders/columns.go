package loaders

import "strings"

// FieldSpec describes how to locate one logical field in a CSV header:
// exact candidate names tried in priority order, then substring candidates,
// then a named placeholder value used for every row. Keeping the lookup an
// explicit ordered strategy makes schema-drift behavior auditable instead of
// scattering string matching through the loaders.
type FieldSpec struct {
	Name        string
	Candidates  []string
	Substrings  []string
	Placeholder string
}

// ColumnResolver resolves FieldSpecs against one CSV header row.
type ColumnResolver struct {
	index map[string]int
	order []string
}

func NewColumnResolver(header []string) *ColumnResolver {
	r := &ColumnResolver{index: make(map[string]int, len(header))}
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := r.index[key]; !dup {
			r.index[key] = i
		}
		r.order = append(r.order, key)
	}
	return r
}

// Resolve returns the column index for a spec, or ok=false when only the
// placeholder applies.
func (r *ColumnResolver) Resolve(spec FieldSpec) (int, bool) {
	for _, c := range spec.Candidates {
		if i, ok := r.index[normalizeHeader(c)]; ok {
			return i, true
		}
	}
	for _, sub := range spec.Substrings {
		needle := normalizeHeader(sub)
		for i, key := range r.order {
			if strings.Contains(key, needle) {
				return i, true
			}
		}
	}
	return -1, false
}

// Value reads the field out of one record, falling back to the spec's
// placeholder when the column is absent or the row is short.
func (r *ColumnResolver) Value(record []string, spec FieldSpec) string {
	i, ok := r.Resolve(spec)
	if !ok || i >= len(record) {
		return spec.Placeholder
	}
	v := strings.TrimSpace(record[i])
	if v == "" {
		return spec.Placeholder
	}
	return v
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.Trim(h, "\uFEFF")))
}
