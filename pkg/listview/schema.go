package listview

// MatchMode selects how the search term is compared with field values.
type MatchMode string

const (
	// MatchSubstring is a case-insensitive substring test.
	MatchSubstring MatchMode = "substring"
	// MatchFuzzy matches when the term's characters appear in order in the
	// value, ignoring case.
	MatchFuzzy MatchMode = "fuzzy"
)

// Schema declares which record fields a screen searches and sorts on.
type Schema struct {
	Searchable       []string
	Sortable         []string
	DefaultSort      string
	DefaultDirection Direction
	PageSize         int
	Match            MatchMode
}

// CanSort reports whether field may be used as a sort key. An empty Sortable
// list allows every field.
func (s Schema) CanSort(field string) bool {
	if field == "" {
		return false
	}
	if len(s.Sortable) == 0 {
		return true
	}
	for _, candidate := range s.Sortable {
		if candidate == field {
			return true
		}
	}
	return false
}

// InitialQuery builds the query a freshly mounted screen starts from.
func (s Schema) InitialQuery() Query {
	q := Query{
		SortField:     s.DefaultSort,
		SortDirection: s.DefaultDirection,
		Page:          1,
		PageSize:      s.PageSize,
	}
	return q.normalized()
}
