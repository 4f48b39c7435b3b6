package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
)

// Table is a raw header plus string rows, as read from one file.
type Table struct {
	Source string
	Header []string
	Rows   [][]string
}

// ReadTable reads a CSV or XLSX file chosen by extension. XLSX files are read
// from their first sheet; date-formatted cells come back as ISO dates. Every cell is kept as a string so identifiers with
// leading zeros survive.
func ReadTable(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	case ".csv", ".txt", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f, path)
	default:
		return nil, fmt.Errorf("unsupported table format: %s", path)
	}
}

// ReadCSV reads a header row followed by data rows. Ragged rows are accepted.
func ReadCSV(r io.Reader, source string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty file", source)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", source, err)
	}

	t := &Table{Source: source, Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func readXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: read rows: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty sheet %q", path, sheet)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%s: read raw rows: %w", path, err)
	}
	if err := isoDates(f, sheet, rows, raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Table{Source: path, Header: rows[0], Rows: rows[1:]}, nil
}

// isoDates rewrites cells that hold an Excel date serial under a date number
// format. The formatted value ("01-02-23") is locale-styled and ambiguous, so
// the serial is converted instead.
func isoDates(f *excelize.File, sheet string, rows, raw [][]string) error {
	dateStyle := map[int]bool{}
	for r := 1; r < len(rows) && r < len(raw); r++ {
		for c, v := range rows[r] {
			if c >= len(raw[r]) || raw[r][c] == v {
				continue
			}
			serial, err := strconv.ParseFloat(raw[r][c], 64)
			if err != nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			id, err := f.GetCellStyle(sheet, cell)
			if err != nil {
				return fmt.Errorf("style of %s: %w", cell, err)
			}
			isDate, seen := dateStyle[id]
			if !seen {
				style, err := f.GetStyle(id)
				if err != nil {
					return fmt.Errorf("style %d: %w", id, err)
				}
				isDate = isDateFormat(style)
				dateStyle[id] = isDate
			}
			if !isDate {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, false)
			if err != nil {
				continue
			}
			rows[r][c] = domain.FormatDate(t)
		}
	}
	return nil
}

// isDateFormat reports whether a cell style renders numbers as dates: the
// built-in date and datetime formats, or a custom code with day or year tokens.
func isDateFormat(s *excelize.Style) bool {
	if s == nil {
		return false
	}
	if s.CustomNumFmt != nil {
		code := strings.ToLower(stripBracketed(*s.CustomNumFmt))
		return strings.ContainsAny(code, "dy")
	}
	switch {
	case s.NumFmt >= 14 && s.NumFmt <= 17, s.NumFmt == 22:
		return true
	case s.NumFmt >= 27 && s.NumFmt <= 36, s.NumFmt >= 50 && s.NumFmt <= 58:
		return true
	}
	return false
}

// stripBracketed drops [Red] and [$-409] style sections and quoted literals.
func stripBracketed(code string) string {
	var b strings.Builder
	depth, quoted := 0, false
	for _, r := range code {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
