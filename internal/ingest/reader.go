package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoHeader indicates the input contained no header line.
var ErrNoHeader = errors.New("input has no header line")

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// ReadFile parses a delimited metadata file into a RowSet.
func ReadFile(path string) (*RowSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	rs, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rs, nil
}

// Read parses delimited input into a RowSet. The delimiter is sniffed from the
// header line; the stream is decoded through a BOM-override transform so UTF-8
// and UTF-16 spreadsheet exports are both accepted.
func Read(r io.Reader) (*RowSet, error) {
	decoder := unicode.UTF8.NewDecoder()
	buffered := bufio.NewReaderSize(transform.NewReader(r, unicode.BOMOverride(decoder)), peekWindow)

	headerLine, err := peekLine(buffered)
	if err != nil {
		return nil, err
	}
	delimiter := sniffDelimiter(headerLine)

	reader := csv.NewReader(buffered)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}

	headers := make([]string, len(records[0]))
	for i, name := range records[0] {
		headers[i] = strings.TrimSpace(name)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		values := make(map[string]string, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(record) {
				values[header] = record[i]
			} else {
				values[header] = ""
			}
		}
		rows = append(rows, Row{Headers: headers, Values: values})
	}

	return &RowSet{Headers: headers, Rows: rows}, nil
}

const peekWindow = 64 * 1024

// peekLine returns the first line without consuming it.
func peekLine(r *bufio.Reader) (string, error) {
	data, err := r.Peek(peekWindow)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", fmt.Errorf("peek header: %w", err)
	}
	if len(data) == 0 {
		return "", ErrNoHeader
	}
	line := string(data)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	return line, nil
}

// sniffDelimiter picks the candidate occurring most often in the header line,
// skipping anything inside double quotes so a quoted header cell cannot vote
// for the delimiter it contains. Comma wins ties, matching the most common
// export format.
func sniffDelimiter(headerLine string) rune {
	counts := make(map[rune]int, len(candidateDelimiters))
	inQuotes := false
	for _, r := range headerLine {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		if _, ok := counts[r]; ok {
			counts[r]++
			continue
		}
		for _, candidate := range candidateDelimiters {
			if r == candidate {
				counts[r] = 1
				break
			}
		}
	}

	best := ','
	bestCount := 0
	for _, candidate := range candidateDelimiters {
		if counts[candidate] > bestCount {
			best = candidate
			bestCount = counts[candidate]
		}
	}
	return best
}
