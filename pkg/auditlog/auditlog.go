package auditlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Status values recorded in the audit trail
const (
	StatusUpdated   = "UPDATED"
	StatusEmptyPage = "EMPTY PAGE"
)

var header = []string{"page", "item_id", "item_name", "old_url", "new_url", "status"}

// Writer appends audit records to a per-run CSV file. The batch driver is
// the only writer, so no locking is needed; every record is flushed to disk
// as soon as it is written.
type Writer struct {
	path string
	file *os.File
	csv  *csv.Writer
}

// New creates the audit file for a run. The file name carries the run's
// start timestamp so reruns never clobber an earlier trail.
func New(dir string) (*Writer, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	name := fmt.Sprintf("image_update_log_%s.csv", time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}

	w := &Writer{
		path: path,
		file: file,
		csv:  csv.NewWriter(file),
	}

	if err := w.write(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write audit log header: %w", err)
	}

	return w, nil
}

// Path returns the audit file location
func (w *Writer) Path() string {
	return w.path
}

// RecordUpdated logs one rewritten URL pair for an item
func (w *Writer) RecordUpdated(page int, itemID int64, itemName, oldURL, newURL string) error {
	return w.write([]string{
		strconv.Itoa(page),
		strconv.FormatInt(itemID, 10),
		itemName,
		oldURL,
		newURL,
		StatusUpdated,
	})
}

// RecordFailed logs an update call that the API rejected
func (w *Writer) RecordFailed(page int, itemID int64, itemName, detail string) error {
	return w.write([]string{
		strconv.Itoa(page),
		strconv.FormatInt(itemID, 10),
		itemName,
		"-",
		"-",
		fmt.Sprintf("FAILED %s", detail),
	})
}

// RecordPageError logs a page fetch that failed outright
func (w *Writer) RecordPageError(page int, detail string) error {
	return w.write([]string{
		strconv.Itoa(page),
		"-",
		"-",
		"-",
		"-",
		fmt.Sprintf("ERROR %s", detail),
	})
}

// RecordEmptyPage logs a page that returned no items
func (w *Writer) RecordEmptyPage(page int) error {
	return w.write([]string{
		strconv.Itoa(page),
		"-",
		"-",
		"-",
		"-",
		StatusEmptyPage,
	})
}

func (w *Writer) write(record []string) error {
	if err := w.csv.Write(record); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

// Close flushes and closes the audit file
func (w *Writer) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
