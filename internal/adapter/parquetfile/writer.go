// Package parquetfile exports forecast records to a Snappy-compressed Parquet file.
package parquetfile

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/parquet-go/parquet-go"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
)

// ForecastRow is the Parquet layout of a forecast record.
type ForecastRow struct {
	CCN            string `parquet:"ccn"`
	Name           string `parquet:"name"`
	State          string `parquet:"state"`
	County         string `parquet:"county,optional"`
	IntervalDays   int32  `parquet:"interval_days"`
	IntervalSource string `parquet:"interval_source"`
	ReferenceDate  string `parquet:"reference_date"`
	ForecastDate   string `parquet:"forecast_date"`
	GeneratedAtMS  int64  `parquet:"generated_at_ms"`
	SnapshotID     string `parquet:"snapshot_id,optional"`
}

func toRow(r domain.ForecastRecord) ForecastRow {
	return ForecastRow{
		CCN:            r.CCN,
		Name:           r.Name,
		State:          r.State,
		County:         r.County,
		IntervalDays:   int32(r.IntervalDays),
		IntervalSource: r.IntervalSource,
		ReferenceDate:  domain.FormatDate(r.ReferenceDate),
		ForecastDate:   domain.FormatDate(r.ForecastDate),
		GeneratedAtMS:  r.GeneratedAt.UnixMilli(),
		SnapshotID:     r.SnapshotID,
	}
}

// Writer appends forecast records to a Parquet file.
// It implements pipeline.BatchLoader.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	writer *parquet.GenericWriter[ForecastRow]
	count  int
}

// NewWriter creates path and prepares it for writing.
func NewWriter(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}
	return &Writer{
		file: file,
		writer: parquet.NewGenericWriter[ForecastRow](file,
			parquet.Compression(&parquet.Snappy),
			parquet.CreatedBy("facility-survey-forecast", "1.0", ""),
		),
	}, nil
}

// LoadBatch writes records as one row group.
func (w *Writer) LoadBatch(ctx context.Context, records []domain.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := make([]ForecastRow, len(records))
	for i := range records {
		rows[i] = toRow(records[i])
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.writer.Write(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("flush parquet row group: %w", err)
	}
	w.count += len(rows)
	return nil
}

// Count returns the number of rows written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close writes the footer and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return w.file.Close()
}
