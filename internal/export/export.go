// Package export writes record collections to spreadsheet files.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/stocksync/internal/core"
)

// ErrNothingToExport is returned for an empty collection.
var ErrNothingToExport = errors.New("nothing to export")

// Format is an output file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat parses a format name. The empty string is FormatXLSX.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want xlsx or csv)", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Kind selects which collection is exported.
type Kind string

const (
	KindInserted Kind = "inserted"
	KindMissing  Kind = "missing"
)

// SheetName returns the worksheet title for k.
func (k Kind) SheetName() string {
	if k == KindMissing {
		return "Missing Records"
	}
	return "Inserted Records"
}

// FileName returns the download name, e.g.
// Inserted_Records_20250301T100000123Z.xlsx.
func FileName(k Kind, f Format, now time.Time) string {
	stamp := strings.NewReplacer("-", "", ":", "", ".", "").
		Replace(now.UTC().Format("2006-01-02T15:04:05.000Z"))
	return fmt.Sprintf("%s_%s.%s", strings.ReplaceAll(k.SheetName(), " ", "_"), stamp, f)
}

var header = []string{"sr", "scan_code", "created_at"}

// WriteXLSX writes records to w as a single-sheet workbook.
func WriteXLSX(w io.Writer, k Kind, records core.RecordCollection) error {
	if len(records) == 0 {
		return ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := k.SheetName()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		created := ""
		if r.CreatedAt != nil {
			created = r.CreatedAt.UTC().Format(time.RFC3339)
		}
		values := []any{r.Sr, r.ScanCode, created}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteCSV writes records to w with a header row.
func WriteCSV(w io.Writer, records core.RecordCollection) error {
	if len(records) == 0 {
		return ErrNothingToExport
	}

	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode record %s: %w", r.ScanCode, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write writes records to w in format f.
func Write(w io.Writer, k Kind, f Format, records core.RecordCollection) error {
	if f == FormatCSV {
		return WriteCSV(w, records)
	}
	return WriteXLSX(w, k, records)
}

// ToFile writes records into dir under FileName and returns the path.
// Nothing is created for an empty collection.
func ToFile(dir string, k Kind, f Format, records core.RecordCollection, now time.Time) (string, error) {
	if len(records) == 0 {
		return "", ErrNothingToExport
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, FileName(k, f, now))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}

	if err := Write(out, k, f, records); err != nil {
		out.Close()
		os.Remove(path)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}
