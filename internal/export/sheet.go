// Package export writes session results to files: the movement log as a
// spreadsheet and the per-frame finger history as a NumPy array.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ayusman/handtimer/internal/timer"
)

// DefaultSheetPath is where the movement log is written.
const DefaultSheetPath = "hand_movement_times.xlsx"

// SheetName is the worksheet holding the movement rows.
const SheetName = "Sheet1"

// SheetHeader is the first row of the movement sheet.
var SheetHeader = []string{"Start Time", "End Time", "Duration (s)"}

// Row is one movement as stored in the sheet. Times are Unix seconds.
type Row struct {
	Start    float64
	End      float64
	Duration float64
}

// UnixSeconds converts t to fractional Unix seconds.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// RowFromRecord converts a timer record to its sheet row.
func RowFromRecord(rec timer.Record) Row {
	return Row{
		Start:    UnixSeconds(rec.Start),
		End:      UnixSeconds(rec.End),
		Duration: rec.Seconds(),
	}
}

// WriteSheet writes rows to path, replacing any existing file. The file is
// written next to path and renamed into place so readers never see a partial sheet.
func WriteSheet(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(SheetHeader))
	for i, h := range SheetHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{r.Start, r.End, r.Duration}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".movements-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp sheet: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write sheet: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close sheet: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace sheet: %w", err)
	}
	return nil
}

// ReadSheet reads the movement rows back from a sheet written by WriteSheet.
func ReadSheet(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open sheet: %w", err)
	}
	defer f.Close()

	cells, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("sheet %s has no header", path)
	}

	rows := make([]Row, 0, len(cells)-1)
	for i, line := range cells[1:] {
		if len(line) < len(SheetHeader) {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", i+2, len(SheetHeader), len(line))
		}
		var vals [3]float64
		for j := range vals {
			v, err := strconv.ParseFloat(line[j], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+2, SheetHeader[j], err)
			}
			vals[j] = v
		}
		rows = append(rows, Row{Start: vals[0], End: vals[1], Duration: vals[2]})
	}
	return rows, nil
}

// MovementLog is the append-only session log of completed movements.
// Every Append rewrites the whole sheet.
type MovementLog struct {
	mu      sync.Mutex
	path    string
	records []timer.Record
}

// NewMovementLog creates an empty log that persists to path.
func NewMovementLog(path string) *MovementLog {
	if path == "" {
		path = DefaultSheetPath
	}
	return &MovementLog{path: path}
}

// Path returns the sheet path.
func (l *MovementLog) Path() string {
	return l.path
}

// Append adds rec to the log and writes the full log to the sheet.
// The record stays in the log even if the write fails.
func (l *MovementLog) Append(rec timer.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, rec)

	rows := make([]Row, len(l.records))
	for i, r := range l.records {
		rows[i] = RowFromRecord(r)
	}
	return WriteSheet(l.path, rows)
}

// Records returns a copy of the logged records in append order.
func (l *MovementLog) Records() []timer.Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]timer.Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *MovementLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Last returns the most recent record.
func (l *MovementLog) Last() (timer.Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.records) == 0 {
		return timer.Record{}, false
	}
	return l.records[len(l.records)-1], true
}
