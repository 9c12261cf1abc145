// Package format renders query results either as compact records meant for
// machine consumption or as a fixed-width text table meant for people.
package format

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/app-sre/connect-ai/pkg/models"
)

const NoResults = "No results found."

const (
	cellSeparator   = " | "
	headerSeparator = "-+-"
)

type Mode string

const (
	ModeTable   Mode = "table"
	ModeCompact Mode = "compact"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeTable, ModeCompact:
		return m, nil
	default:
		return "", fmt.Errorf("unable to use output format: %q", s)
	}
}

// ToCompactRecords pairs column names with row values by position. A row
// shorter than the schema yields a record without the trailing keys.
func ToCompactRecords(result *models.QueryResult) []Record {
	columns := result.Columns()
	records := make([]Record, 0, len(result.Rows))

	for _, row := range result.Rows {
		n := min(len(columns), len(row))

		record := newRecord(n)
		for i := 0; i < n; i++ {
			record.set(columns[i], row[i])
		}
		records = append(records, record)
	}

	return records
}

// CompactJSON encodes the compact records as an indented JSON array.
func CompactJSON(result *models.QueryResult) ([]byte, error) {
	content, err := json.MarshalIndent(ToCompactRecords(result), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("unable to marshal records: %w", err)
	}
	return content, nil
}

// ToTextTable renders the result as a header line, a separator line and one
// line per row, with every column padded to its widest value. Without rows
// only NoResults is returned, even when the schema is known.
func ToTextTable(result *models.QueryResult) string {
	if len(result.Rows) == 0 {
		return NoResults
	}

	columns := result.Columns()

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = width(c)
	}

	cells := make([][]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		line := make([]string, len(columns))
		for i := range columns {
			if i < len(row) {
				line[i] = Stringify(row[i])
			}
			widths[i] = max(widths[i], width(line[i]))
		}
		cells = append(cells, line)
	}

	lines := make([]string, 0, len(cells)+2)
	lines = append(lines, joinPadded(columns, widths))

	dashes := make([]string, len(widths))
	for i, w := range widths {
		dashes[i] = strings.Repeat("-", w)
	}
	lines = append(lines, strings.Join(dashes, headerSeparator))

	for _, line := range cells {
		lines = append(lines, joinPadded(line, widths))
	}

	return strings.Join(lines, "\n")
}

// Render formats the result in the given mode. Both modes report NoResults
// for an empty result.
func Render(result *models.QueryResult, mode Mode) (string, error) {
	switch mode {
	case ModeTable:
		return ToTextTable(result), nil
	case ModeCompact:
		if len(result.Rows) == 0 {
			return NoResults, nil
		}
		content, err := CompactJSON(result)
		if err != nil {
			return "", err
		}
		return string(content), nil
	default:
		return "", fmt.Errorf("unable to use output format: %q", mode)
	}
}

// Stringify returns the display text of a decoded cell value. Null renders
// as the empty string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func width(s string) int {
	return utf8.RuneCountInString(s)
}

func pad(s string, w int) string {
	if n := w - width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func joinPadded(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, c := range cells {
		padded[i] = pad(c, widths[i])
	}
	return strings.Join(padded, cellSeparator)
}
