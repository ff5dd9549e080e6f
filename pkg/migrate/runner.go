package migrate

import (
	"context"
	"fmt"
	"time"

	"catmigrate/pkg/auditlog"
	"catmigrate/pkg/catalog"
	"catmigrate/pkg/checkpoint"
	"catmigrate/pkg/config"
	"catmigrate/pkg/logger"
	"catmigrate/pkg/ratelimit"
	"catmigrate/pkg/transform"
)

// Runner drives one migration pass over the configured page range. All page
// and item processing is strictly sequential; the checkpoint is a single
// linear cursor and the runner is its only writer.
type Runner struct {
	client      CatalogClient
	cfg         *config.Config
	rule        transform.Rule
	checkpoints *checkpoint.Manager
	audit       *auditlog.Writer
	pagePacer   ratelimit.Limiter
	itemPacer   ratelimit.Limiter
	counters    *RunCounters
	logger      logger.Logger
}

// NewRunner creates a Runner wired to the given collaborators
func NewRunner(cfg *config.Config, client CatalogClient, checkpoints *checkpoint.Manager, audit *auditlog.Writer, counters *RunCounters, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}
	if counters == nil {
		counters = NewRunCounters()
	}

	return &Runner{
		client:      client,
		cfg:         cfg,
		rule:        ruleFromConfig(&cfg.Rewrite),
		checkpoints: checkpoints,
		audit:       audit,
		pagePacer:   pacerFromConfig(&cfg.Batch, cfg.Batch.PageDelay),
		itemPacer:   pacerFromConfig(&cfg.Batch, cfg.Batch.ItemDelay),
		counters:    counters,
		logger:      log,
	}
}

// Counters exposes the run counters for status reporting
func (r *Runner) Counters() *RunCounters {
	return r.counters
}

// pacerFromConfig picks the pacing strategy for one delay setting. Token
// bucket pacing lets Burst requests through before the delay kicks in; a
// zero delay always means no pacing.
func pacerFromConfig(b *config.BatchConfig, delay time.Duration) ratelimit.Limiter {
	if b.PacingMode == config.PacingTokenBucket && delay > 0 {
		return ratelimit.NewTokenBucket(b.Burst, delay)
	}
	return ratelimit.NewFixedDelay(delay)
}

// ruleFromConfig builds the rewrite rule from configuration
func ruleFromConfig(cfg *config.RewriteConfig) transform.Rule {
	return transform.Rule{
		HostMarker: cfg.HostMarker,
		OldPrefix:  cfg.OldPrefix,
		NewPrefix:  cfg.NewPrefix,
		OldExt:     cfg.OldExt,
		NewExt:     cfg.NewExt,
	}
}

// Run executes one pass from the resume point to the configured end page.
// Page fetch failures are logged and skipped; item update failures are logged
// and leave the checkpoint untouched so a later run retries them. Run returns
// an error only when the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	resumePage, lastItemID := r.checkpoints.ResumePoint()
	r.counters.Reset()

	fields := map[string]interface{}{
		"resume_page": resumePage,
		"end_page":    r.cfg.Batch.EndPage,
		"per_page":    r.cfg.Batch.PerPage,
	}
	if lastItemID != nil {
		fields["last_item_id"] = *lastItemID
	}
	r.logger.InfoWithFields("starting migration pass", fields)

	for page := resumePage; page <= r.cfg.Batch.EndPage; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		products, err := r.client.ListProducts(page, r.cfg.Batch.PerPage)
		if err != nil {
			// No page-level retry; the supervisor handles anything fatal
			r.logger.WithError(err).WithField("page", page).Error("page fetch failed, moving on")
			if lerr := r.audit.RecordPageError(page, err.Error()); lerr != nil {
				r.logger.WithError(lerr).Warn("failed to write audit record")
			}
			r.pagePacer.Wait()
			continue
		}

		if len(products) == 0 {
			r.logger.WithField("page", page).Info("page is empty")
			if lerr := r.audit.RecordEmptyPage(page); lerr != nil {
				r.logger.WithError(lerr).Warn("failed to write audit record")
			}
			r.completePage(page)
			continue
		}

		for i := range products {
			if err := ctx.Err(); err != nil {
				return err
			}

			product := &products[i]

			// Items at or below the checkpointed id were already handled
			if page == resumePage && lastItemID != nil && product.ID <= *lastItemID {
				r.logger.DebugWithFields("skipping already processed item", map[string]interface{}{
					"page":    page,
					"item_id": product.ID,
				})
				continue
			}

			r.processItem(page, product)
			r.itemPacer.Wait()
		}

		r.completePage(page)
	}

	summary := r.counters.Snapshot()
	r.logger.InfoWithFields("migration pass completed", map[string]interface{}{
		"checked": summary.Checked,
		"updated": summary.Updated,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	})

	return nil
}

// completePage records page-level completion and applies the inter-page delay
func (r *Runner) completePage(page int) {
	if err := r.checkpoints.Save(page, nil); err != nil {
		r.logger.WithError(err).WithField("page", page).Warn("failed to save page checkpoint")
	}
	r.pagePacer.Wait()
}

// processItem normalizes, transforms and conditionally updates one product
func (r *Runner) processItem(page int, product *catalog.Product) {
	r.counters.IncChecked()

	raw, ok := product.MetaValue(r.cfg.Rewrite.MetaKey)
	if !ok {
		r.counters.IncSkipped()
		return
	}

	urls := transform.NormalizeURLs(raw)
	if len(urls) == 0 {
		r.counters.IncSkipped()
		return
	}

	newURLs := r.rule.ApplyAll(urls)
	if !transform.Changed(urls, newURLs) {
		r.counters.IncSkipped()
		return
	}

	for i := range urls {
		if urls[i] == newURLs[i] {
			continue
		}
		if lerr := r.audit.RecordUpdated(page, product.ID, product.Name, urls[i], newURLs[i]); lerr != nil {
			r.logger.WithError(lerr).Warn("failed to write audit record")
		}
	}

	update := catalog.NewMetaUpdate(r.cfg.Rewrite.MetaKey, newURLs)
	if err := r.client.UpdateProductMeta(product.ID, update); err != nil {
		r.counters.IncFailed()
		r.logger.WithError(err).WithFields(map[string]interface{}{
			"page":    page,
			"item_id": product.ID,
		}).Error("item update failed")
		if lerr := r.audit.RecordFailed(page, product.ID, product.Name, err.Error()); lerr != nil {
			r.logger.WithError(lerr).Warn("failed to write audit record")
		}
		// Checkpoint deliberately not advanced: a resumed run retries this item
		return
	}

	r.counters.IncUpdated()
	r.logger.InfoWithFields("item updated", map[string]interface{}{
		"page":    page,
		"item_id": product.ID,
		"name":    product.Name,
		"urls":    len(newURLs),
	})

	if err := r.checkpoints.Save(page, &product.ID); err != nil {
		r.logger.WithError(err).WithFields(map[string]interface{}{
			"page":    page,
			"item_id": product.ID,
		}).Warn("failed to save item checkpoint")
	}
}

// Summary formats the final counter tally for console output
func Summary(s CountersSnapshot) string {
	return fmt.Sprintf("checked=%d updated=%d skipped=%d failed=%d", s.Checked, s.Updated, s.Skipped, s.Failed)
}
