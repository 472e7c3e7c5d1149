// Package ingest reads uploaded tabular metadata files into row sets.
//
// Lab spreadsheets arrive as CSV or TSV exports with inconsistent delimiters
// and encodings, so the reader sniffs the delimiter from the header line and
// decodes through a BOM-aware unicode transform (UTF-8 with BOM and UTF-16
// exports both work). Cell values are kept verbatim as strings: no trimming,
// no type inference, and empty cells are retained. Downstream consumers own
// value interpretation.
package ingest
