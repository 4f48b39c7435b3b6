package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/identity"
)

// ApplyCoordinates copies the coordinates of roster into the matching rows of
// t, keyed by CCN. Latitude and Longitude columns are appended when t has
// none. Cells that already hold a value are left alone. It returns the new
// table and the number of rows updated.
func ApplyCoordinates(t *Table, roster []domain.RosterEntry) (*Table, int, error) {
	b, err := RosterSchema.Bind(t.Header)
	if err != nil {
		return nil, 0, err
	}

	geo := make(map[string]domain.Geo, len(roster))
	for _, e := range roster {
		if e.Geo != nil {
			geo[e.CCN] = *e.Geo
		}
	}

	out := &Table{Source: t.Source, Header: append([]string(nil), t.Header...)}
	latCol, ok := b.Index(FieldLatitude)
	if !ok {
		latCol = len(out.Header)
		out.Header = append(out.Header, "Latitude")
	}
	lonCol, ok := b.Index(FieldLongitude)
	if !ok {
		lonCol = len(out.Header)
		out.Header = append(out.Header, "Longitude")
	}

	updated := 0
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]string, max(len(row), len(out.Header)))
		copy(r, row)
		out.Rows[i] = r

		g, found := geo[identity.NormalizeCCN(b.Get(row, FieldCCN))]
		if !found || !isBlank(r[latCol]) || !isBlank(r[lonCol]) {
			continue
		}
		r[latCol] = strconv.FormatFloat(g.Lat, 'f', 6, 64)
		r[lonCol] = strconv.FormatFloat(g.Lon, 'f', 6, 64)
		updated++
	}
	return out, updated, nil
}

// WriteCSV writes the header and rows of t.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}
