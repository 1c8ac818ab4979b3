package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-inventory-bridge/models"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned for extensions the reader cannot parse.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNoHeader is returned when a file has no header row.
	ErrNoHeader = errors.New("no header row found")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
	delimiters    = []rune{',', '\t', '|', ';'}
)

// Record is one data line of a table. Row counts data lines from 1, header
// excluded. Err is set when the line could not be parsed.
type Record struct {
	Row    int
	Values models.RawRow
	Err    error
}

// Table is a fully read inventory export.
type Table struct {
	Headers []string
	Records []Record
}

// ReadTable reads a delimited text export (.csv, .txt) or an Excel workbook (.xlsx).
func ReadTable(path string) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv", ".txt":
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		return ParseDelimited(payload)
	case ".xlsx":
		return readExcel(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// ParseDelimited parses a delimited export. The delimiter is sniffed from the
// header line. Malformed lines are kept as records with Err set.
func ParseDelimited(payload []byte) (*Table, error) {
	payload = bytes.TrimPrefix(payload, byteOrderMark)

	reader := csv.NewReader(bufio.NewReader(bytes.NewReader(payload)))
	reader.Comma = sniffDelimiter(payload)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	table := &Table{Headers: cleanHeaders(header)}
	row := 0
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				table.Records = append(table.Records, Record{Row: row, Err: parseErr})
				continue
			}
			return nil, fmt.Errorf("read line %d: %w", row, err)
		}
		table.Records = append(table.Records, Record{Row: row, Values: toRawRow(table.Headers, fields)})
	}
	return table, nil
}

func readExcel(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows from xlsx: %w", err)
	}

	var table *Table
	row := 0
	for _, cells := range rows {
		if isBlank(cells) {
			continue
		}
		if table == nil {
			table = &Table{Headers: cleanHeaders(cells)}
			continue
		}
		row++
		table.Records = append(table.Records, Record{Row: row, Values: toRawRow(table.Headers, cells)})
	}
	if table == nil {
		return nil, ErrNoHeader
	}
	return table, nil
}

// sniffDelimiter picks the candidate delimiter seen most often in the first line.
func sniffDelimiter(payload []byte) rune {
	line := payload
	if i := bytes.IndexByte(payload, '\n'); i >= 0 {
		line = payload[:i]
	}
	best, bestCount := ',', 0
	for _, d := range delimiters {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func cleanHeaders(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(strings.ToValidUTF8(h, "�"))
	}
	return out
}

// toRawRow pairs cells with headers. Missing cells read as empty, extra cells
// are dropped, and for repeated headers the first non-empty value wins.
func toRawRow(headers, fields []string) models.RawRow {
	row := make(models.RawRow, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		value := ""
		if i < len(fields) {
			value = strings.ToValidUTF8(fields[i], "�")
		}
		if existing, ok := row[h]; ok && strings.TrimSpace(existing) != "" {
			continue
		}
		row[h] = value
	}
	return row
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
