package migrate

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"catmigrate/pkg/auditlog"
	"catmigrate/pkg/catalog"
	"catmigrate/pkg/checkpoint"
	"catmigrate/pkg/config"
	"catmigrate/pkg/errors"
	"catmigrate/pkg/logger"
	"catmigrate/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type updateCall struct {
	productID int64
	update    *catalog.MetaUpdate
}

// mockCatalogClient serves canned pages and records update calls
type mockCatalogClient struct {
	pages     map[int][]catalog.Product
	listErr   map[int]error
	updateErr map[int64]error
	updates   []updateCall
}

func newMockCatalogClient() *mockCatalogClient {
	return &mockCatalogClient{
		pages:     make(map[int][]catalog.Product),
		listErr:   make(map[int]error),
		updateErr: make(map[int64]error),
	}
}

func (m *mockCatalogClient) ListProducts(page, perPage int) ([]catalog.Product, error) {
	if err, ok := m.listErr[page]; ok {
		return nil, err
	}
	return m.pages[page], nil
}

func (m *mockCatalogClient) UpdateProductMeta(productID int64, update *catalog.MetaUpdate) error {
	if err, ok := m.updateErr[productID]; ok {
		return err
	}
	m.updates = append(m.updates, updateCall{productID: productID, update: update})
	return nil
}

func imageProduct(id int64, name string, urls ...interface{}) catalog.Product {
	return catalog.Product{
		ID:   id,
		Name: name,
		MetaData: []catalog.Meta{
			{Key: "product_images_url", Value: urls},
		},
	}
}

type testHarness struct {
	runner      *Runner
	client      *mockCatalogClient
	checkpoints *checkpoint.Manager
	audit       *auditlog.Writer
	auditPath   string
}

func newTestHarness(t *testing.T, startPage, endPage int) *testHarness {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Batch.StartPage = startPage
	cfg.Batch.EndPage = endPage
	cfg.Batch.PageDelay = 0
	cfg.Batch.ItemDelay = 0
	cfg.Batch.CheckpointFile = filepath.Join(dir, "checkpoint.json")
	cfg.Batch.LogDir = dir

	checkpoints, err := checkpoint.NewManager(cfg.Batch.CheckpointFile, cfg.Batch.StartPage)
	require.NoError(t, err)

	audit, err := auditlog.New(dir)
	require.NoError(t, err)
	t.Cleanup(func() { audit.Close() })

	client := newMockCatalogClient()
	runner := NewRunner(cfg, client, checkpoints, audit, nil, logger.NewTestLogger())

	return &testHarness{
		runner:      runner,
		client:      client,
		checkpoints: checkpoints,
		audit:       audit,
		auditPath:   audit.Path(),
	}
}

// auditRows reads back the CSV audit file, without the header row
func (h *testHarness) auditRows(t *testing.T) [][]string {
	t.Helper()
	require.NoError(t, h.audit.Close())

	f, err := os.Open(h.auditPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"page", "item_id", "item_name", "old_url", "new_url", "status"}, rows[0])
	return rows[1:]
}

func TestRunRewritesMatchingURLs(t *testing.T) {
	h := newTestHarness(t, 3, 3)
	h.client.pages[3] = []catalog.Product{
		imageProduct(101, "Brake pad set", "https://static.recar.lt/images/x/1.jpg"),
	}

	err := h.runner.Run(context.Background())
	require.NoError(t, err)

	// Exactly one update call carrying the rewritten URL
	require.Len(t, h.client.updates, 1)
	assert.Equal(t, int64(101), h.client.updates[0].productID)
	require.Len(t, h.client.updates[0].update.MetaData, 1)
	assert.Equal(t, "product_images_url", h.client.updates[0].update.MetaData[0].Key)
	assert.Equal(t, []string{"https://static.recar.lt/pictures/x/1.webp"},
		h.client.updates[0].update.MetaData[0].Value)

	rows := h.auditRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{
		"3", "101", "Brake pad set",
		"https://static.recar.lt/images/x/1.jpg",
		"https://static.recar.lt/pictures/x/1.webp",
		"UPDATED",
	}, rows[0])

	summary := h.runner.Counters().Snapshot()
	assert.Equal(t, int64(1), summary.Checked)
	assert.Equal(t, int64(1), summary.Updated)
	assert.Equal(t, int64(0), summary.Failed)
}

func TestRunPageFetchFailureContinues(t *testing.T) {
	h := newTestHarness(t, 7, 8)
	h.client.listErr[7] = errors.NewWithCode(errors.ErrorTypeServerError, 500, "server error")
	h.client.pages[8] = []catalog.Product{
		imageProduct(200, "Oil filter", "https://static.recar.lt/images/y/2.jpg"),
	}

	err := h.runner.Run(context.Background())
	require.NoError(t, err)

	// Page 8 was still processed after the page 7 failure
	require.Len(t, h.client.updates, 1)
	assert.Equal(t, int64(200), h.client.updates[0].productID)

	rows := h.auditRows(t)
	require.Len(t, rows, 2)
	assert.Equal(t, "7", rows[0][0])
	assert.Contains(t, rows[0][5], "ERROR")
	assert.Equal(t, "UPDATED", rows[1][5])
}

func TestRunEmptyPage(t *testing.T) {
	h := newTestHarness(t, 1, 2)
	h.client.pages[1] = nil
	h.client.pages[2] = []catalog.Product{
		imageProduct(10, "Wing mirror", "https://static.recar.lt/images/z/3.jpg"),
	}

	err := h.runner.Run(context.Background())
	require.NoError(t, err)

	rows := h.auditRows(t)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0][0])
	assert.Equal(t, "EMPTY PAGE", rows[0][5])
	assert.Equal(t, "UPDATED", rows[1][5])
}

func TestRunSkipsAlreadyTransformed(t *testing.T) {
	h := newTestHarness(t, 1, 1)
	h.client.pages[1] = []catalog.Product{
		imageProduct(1, "Headlight", "https://static.recar.lt/pictures/a/1.webp"),
		{ID: 2, Name: "No metadata"},
		imageProduct(3, "Foreign host", "https://cdn.example.com/images/b/2.jpg"),
	}

	err := h.runner.Run(context.Background())
	require.NoError(t, err)

	// No update calls, no UPDATED rows, only skip counts
	assert.Empty(t, h.client.updates)

	summary := h.runner.Counters().Snapshot()
	assert.Equal(t, int64(3), summary.Checked)
	assert.Equal(t, int64(0), summary.Updated)
	assert.Equal(t, int64(3), summary.Skipped)

	rows := h.auditRows(t)
	assert.Empty(t, rows)
}

func TestRunFailedUpdateKeepsCheckpointBehind(t *testing.T) {
	h := newTestHarness(t, 1, 1)
	h.client.pages[1] = []catalog.Product{
		imageProduct(41, "Fog light", "https://static.recar.lt/images/a/41.jpg"),
		imageProduct(42, "Tail light", "https://static.recar.lt/images/a/42.jpg"),
		imageProduct(43, "Indicator", "https://static.recar.lt/images/a/43.jpg"),
	}
	h.client.updateErr[42] = errors.NewWithCode(errors.ErrorTypeServerError, 502, "bad gateway")

	err := h.runner.Run(context.Background())
	require.NoError(t, err)

	// Items 41 and 43 updated, 42 failed
	require.Len(t, h.client.updates, 2)
	assert.Equal(t, int64(41), h.client.updates[0].productID)
	assert.Equal(t, int64(43), h.client.updates[1].productID)

	rows := h.auditRows(t)
	require.Len(t, rows, 4) // three UPDATED rows plus one FAILED row
	var failedRows int
	for _, row := range rows {
		if row[5] != "UPDATED" {
			failedRows++
			assert.Equal(t, "42", row[1])
			assert.Contains(t, row[5], "FAILED")
		}
	}
	assert.Equal(t, 1, failedRows)

	summary := h.runner.Counters().Snapshot()
	assert.Equal(t, int64(2), summary.Updated)
	assert.Equal(t, int64(1), summary.Failed)

	// Page completed, so the checkpoint reflects the whole page, not item 42
	cp, found := h.checkpoints.Load()
	require.True(t, found)
	assert.Equal(t, 1, cp.LastPage)
	assert.Nil(t, cp.LastItemID)
}

func TestRunFailedUpdateRetriedOnRerun(t *testing.T) {
	h := newTestHarness(t, 1, 1)
	page := []catalog.Product{
		imageProduct(41, "Fog light", "https://static.recar.lt/images/a/41.jpg"),
		imageProduct(42, "Tail light", "https://static.recar.lt/images/a/42.jpg"),
	}
	h.client.pages[1] = page
	h.client.updateErr[42] = errors.NewWithCode(errors.ErrorTypeServerError, 502, "bad gateway")

	// Simulate a crash right after the failure: run again from the
	// checkpoint saved for item 41, before any page completion.
	h.runner.processItem(1, &page[0])
	h.runner.processItem(1, &page[1])

	resumePage, lastItemID := h.checkpoints.ResumePoint()
	assert.Equal(t, 1, resumePage)
	require.NotNil(t, lastItemID)
	assert.Equal(t, int64(41), *lastItemID)

	// The update starts working again on the rerun
	delete(h.client.updateErr, 42)
	h.client.updates = nil

	err := h.runner.Run(context.Background())
	require.NoError(t, err)

	// Item 41 is filtered by the resume boundary, item 42 is retried
	require.Len(t, h.client.updates, 1)
	assert.Equal(t, int64(42), h.client.updates[0].productID)
}

func TestRunResumeFilterAppliesToFirstPageOnly(t *testing.T) {
	h := newTestHarness(t, 1, 2)

	// Existing checkpoint: page 1 partially processed up to item 12
	id := int64(12)
	require.NoError(t, h.checkpoints.Save(1, &id))

	h.client.pages[1] = []catalog.Product{
		imageProduct(11, "Done already", "https://static.recar.lt/images/p/11.jpg"),
		imageProduct(12, "Done already", "https://static.recar.lt/images/p/12.jpg"),
		imageProduct(13, "Pending", "https://static.recar.lt/images/p/13.jpg"),
	}
	h.client.pages[2] = []catalog.Product{
		// Lower id on a later page must not be filtered
		imageProduct(5, "Later page", "https://static.recar.lt/images/p/5.jpg"),
	}

	err := h.runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, h.client.updates, 2)
	assert.Equal(t, int64(13), h.client.updates[0].productID)
	assert.Equal(t, int64(5), h.client.updates[1].productID)
}

func TestRunCheckpointMonotonicity(t *testing.T) {
	h := newTestHarness(t, 1, 3)
	h.client.pages[1] = []catalog.Product{
		imageProduct(1, "A", "https://static.recar.lt/images/m/1.jpg"),
		imageProduct(2, "B", "https://static.recar.lt/images/m/2.jpg"),
	}
	h.client.pages[2] = nil
	h.client.pages[3] = []catalog.Product{
		imageProduct(7, "C", "https://static.recar.lt/images/m/7.jpg"),
	}

	err := h.runner.Run(context.Background())
	require.NoError(t, err)

	cp, found := h.checkpoints.Load()
	require.True(t, found)
	assert.Equal(t, 3, cp.LastPage)
	assert.Nil(t, cp.LastItemID)

	// A fresh run from this checkpoint starts past the processed range
	resumePage, lastItemID := h.checkpoints.ResumePoint()
	assert.Equal(t, 4, resumePage)
	assert.Nil(t, lastItemID)
}

func TestRunHandlesStringAndCommaMetadata(t *testing.T) {
	h := newTestHarness(t, 1, 1)
	h.client.pages[1] = []catalog.Product{
		{
			ID:   1,
			Name: "JSON string value",
			MetaData: []catalog.Meta{
				{Key: "product_images_url", Value: `["https://static.recar.lt/images/j/1.jpg"]`},
			},
		},
		{
			ID:   2,
			Name: "Comma separated value",
			MetaData: []catalog.Meta{
				{Key: "product_images_url", Value: "https://static.recar.lt/images/c/1.jpg, https://static.recar.lt/images/c/2.jpg"},
			},
		},
	}

	err := h.runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, h.client.updates, 2)
	assert.Equal(t, []string{"https://static.recar.lt/pictures/j/1.webp"},
		h.client.updates[0].update.MetaData[0].Value)
	assert.Equal(t, []string{
		"https://static.recar.lt/pictures/c/1.webp",
		"https://static.recar.lt/pictures/c/2.webp",
	}, h.client.updates[1].update.MetaData[0].Value)
}

func TestRunContextCancellation(t *testing.T) {
	h := newTestHarness(t, 1, 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.client.updates)
}

func TestRunnerPacingConfiguration(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Batch.StartPage = 1
	cfg.Batch.EndPage = 1
	cfg.Batch.PageDelay = 50 * time.Millisecond
	cfg.Batch.ItemDelay = 0
	cfg.Batch.CheckpointFile = filepath.Join(dir, "checkpoint.json")

	checkpoints, err := checkpoint.NewManager(cfg.Batch.CheckpointFile, 1)
	require.NoError(t, err)
	audit, err := auditlog.New(dir)
	require.NoError(t, err)
	defer audit.Close()

	runner := NewRunner(cfg, newMockCatalogClient(), checkpoints, audit, nil, logger.NewTestLogger())

	start := time.Now()
	require.NoError(t, runner.Run(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond, "inter-page delay should apply")
}

func TestPacerFromConfig(t *testing.T) {
	batch := &config.BatchConfig{PacingMode: config.PacingFixed, Burst: 5}
	if _, ok := pacerFromConfig(batch, time.Second).(*ratelimit.FixedDelay); !ok {
		t.Error("fixed mode should produce a FixedDelay pacer")
	}

	batch.PacingMode = config.PacingTokenBucket
	if _, ok := pacerFromConfig(batch, time.Second).(*ratelimit.TokenBucket); !ok {
		t.Error("token_bucket mode should produce a TokenBucket pacer")
	}

	// A zero delay disables pacing regardless of mode
	if _, ok := pacerFromConfig(batch, 0).(*ratelimit.FixedDelay); !ok {
		t.Error("zero delay should fall back to FixedDelay")
	}
}

func TestRunnerTokenBucketAllowsBurst(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Batch.StartPage = 1
	cfg.Batch.EndPage = 1
	cfg.Batch.PageDelay = 30 * time.Second
	cfg.Batch.ItemDelay = 0
	cfg.Batch.PacingMode = config.PacingTokenBucket
	cfg.Batch.Burst = 2
	cfg.Batch.CheckpointFile = filepath.Join(dir, "checkpoint.json")

	checkpoints, err := checkpoint.NewManager(cfg.Batch.CheckpointFile, 1)
	require.NoError(t, err)
	audit, err := auditlog.New(dir)
	require.NoError(t, err)
	defer audit.Close()

	runner := NewRunner(cfg, newMockCatalogClient(), checkpoints, audit, nil, logger.NewTestLogger())

	// The single empty page spends one of the two tokens, so the run must
	// finish without waiting out the 30s refill period
	start := time.Now()
	require.NoError(t, runner.Run(context.Background()))
	assert.Less(t, time.Since(start), 5*time.Second, "burst capacity should absorb the page delay")
}
