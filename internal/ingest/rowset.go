package ingest

// Row is one parsed data line: header names in file order plus the cell value
// for each header. Rows are treated as immutable once created.
type Row struct {
	Headers []string
	Values  map[string]string
}

// Value returns the cell under the given header, or "" when the header is
// absent. Absence and empty string are not conflated by callers that care;
// Has distinguishes them.
func (r Row) Value(header string) string {
	return r.Values[header]
}

// Has reports whether the row carries a cell for the given header.
func (r Row) Has(header string) bool {
	_, ok := r.Values[header]
	return ok
}

// RowSet is the parsed tabular input handed to the matcher.
type RowSet struct {
	Headers []string
	Rows    []Row
}

// HasHeader reports whether the set contains the named column.
func (rs *RowSet) HasHeader(name string) bool {
	for _, header := range rs.Headers {
		if header == name {
			return true
		}
	}
	return false
}
