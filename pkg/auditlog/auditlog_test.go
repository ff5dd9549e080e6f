package auditlog

import (
	"encoding/csv"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRecords(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriter(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(strings.TrimPrefix(w.Path(), dir+"/"), "image_update_log_"))
	assert.True(t, strings.HasSuffix(w.Path(), ".csv"))

	require.NoError(t, w.RecordUpdated(3, 101, "Brake pad", "https://old/a.jpg", "https://new/a.webp"))
	require.NoError(t, w.RecordFailed(3, 102, "Oil filter", "500 Internal Server Error"))
	require.NoError(t, w.RecordPageError(7, "HTTP 500"))
	require.NoError(t, w.RecordEmptyPage(9))
	require.NoError(t, w.Close())

	records := readRecords(t, w.Path())
	require.Len(t, records, 5)

	assert.Equal(t, []string{"page", "item_id", "item_name", "old_url", "new_url", "status"}, records[0])
	assert.Equal(t, []string{"3", "101", "Brake pad", "https://old/a.jpg", "https://new/a.webp", "UPDATED"}, records[1])
	assert.Equal(t, []string{"3", "102", "Oil filter", "-", "-", "FAILED 500 Internal Server Error"}, records[2])
	assert.Equal(t, []string{"7", "-", "-", "-", "-", "ERROR HTTP 500"}, records[3])
	assert.Equal(t, []string{"9", "-", "-", "-", "-", "EMPTY PAGE"}, records[4])
}

func TestWriterFlushesEachRecord(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.RecordEmptyPage(1))

	// The record must be on disk before Close
	records := readRecords(t, w.Path())
	require.Len(t, records, 2)
	assert.Equal(t, "EMPTY PAGE", records[1][5])
}
