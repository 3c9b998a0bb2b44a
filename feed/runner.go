package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/tubescribe/tubescribe/model"
	"github.com/tubescribe/tubescribe/pipeline"
)

// Submitter is the part of the orchestrator the runner needs.
type Submitter interface {
	SubmitBatch(ctx context.Context, tc model.TenantContext, refs []string, opts pipeline.SubmitOptions) *pipeline.Batch
}

// Runner polls the feed reader and submits new entries as batches for one
// tenant. Entries are marked read only after submission, so a crash
// re-reads them instead of dropping them.
type Runner struct {
	reader    Reader
	submitter Submitter
	tc        model.TenantContext
	interval  time.Duration
	logger    *slog.Logger
}

func NewRunner(reader Reader, submitter Submitter, tc model.TenantContext, interval time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		reader:    reader,
		submitter: submitter,
		tc:        tc,
		interval:  interval,
		logger:    logger,
	}
}

// Run blocks until ctx is canceled. One poll happens immediately.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("feed runner started", "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.poll(ctx)
		select {
		case <-ctx.Done():
			r.logger.Info("feed runner stopped")
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) poll(ctx context.Context) {
	entries, err := r.reader.Unread()
	if err != nil {
		r.logger.Error("failed to fetch unread entries", "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}
	r.logger.Info("fetched unread entries", "count", len(entries))

	refs := make([]string, 0, len(entries))
	for _, entry := range entries {
		refs = append(refs, entry.URL)
	}
	batch := r.submitter.SubmitBatch(ctx, r.tc, refs, pipeline.SubmitOptions{})

	for _, entry := range entries {
		if err := r.reader.MarkRead(entry.EntryID); err != nil {
			r.logger.Error("failed to mark entry as read", "entry", entry.EntryID, "error", err)
		}
	}
	r.logger.Info("submitted feed batch", "batch", batch.ID, "entries", len(entries))
}
