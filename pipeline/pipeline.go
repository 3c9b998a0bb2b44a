// Package pipeline drives video items through their stages: pending,
// metadata fetched, transcribed, summarized. One item failing never stops
// the others; a failed item records which stage broke it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tubescribe/tubescribe/fetcher"
	"github.com/tubescribe/tubescribe/model"
	"github.com/tubescribe/tubescribe/reference"
	"github.com/tubescribe/tubescribe/retry"
	"github.com/tubescribe/tubescribe/storage"
	"github.com/tubescribe/tubescribe/summarize"
)

const (
	defaultWorkers = 3

	// defaultBatchRetention caps how many finished batches stay queryable.
	// Running batches are never evicted.
	defaultBatchRetention = 100
)

// Stage names recorded on failed items.
const (
	stageNameMetadata   = "metadata"
	stageNameTranscript = "transcript"
	stageNameSummarize  = "summarize"
)

// Indexer mirrors finished items into a search index. Indexing is best
// effort: failures are logged, never fatal.
type Indexer interface {
	Index(ctx context.Context, item model.VideoItem, summary model.Summary) error
}

// ProviderSelector resolves the summarization provider for a tenant.
type ProviderSelector interface {
	For(settings *model.TenantSettings) (summarize.Provider, error)
}

// Orchestrator runs batches. A nil selector disables summarization, which
// turns the pipeline into transcription-only mode.
type Orchestrator struct {
	store       storage.Store
	metadata    fetcher.MetadataFetcher
	transcripts fetcher.TranscriptFetcher
	selector    ProviderSelector
	indexer     Indexer
	retrier     *retry.Controller
	workers     int
	retention   int
	logger      *slog.Logger

	mu      sync.Mutex
	batches map[uuid.UUID]*Batch
	order   []uuid.UUID
}

type Option func(*Orchestrator)

func WithSelector(s ProviderSelector) Option {
	return func(o *Orchestrator) { o.selector = s }
}

func WithIndexer(i Indexer) Option {
	return func(o *Orchestrator) { o.indexer = i }
}

func WithRetrier(r *retry.Controller) Option {
	return func(o *Orchestrator) { o.retrier = r }
}

func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithBatchRetention sets how many finished batches remain queryable via
// GetBatch before the oldest are evicted.
func WithBatchRetention(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.retention = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func New(store storage.Store, metadata fetcher.MetadataFetcher, transcripts fetcher.TranscriptFetcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		metadata:    metadata,
		transcripts: transcripts,
		retrier:     retry.New(retry.DefaultPolicy),
		workers:     defaultWorkers,
		retention:   defaultBatchRetention,
		logger:      slog.Default(),
		batches:     map[uuid.UUID]*Batch{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SubmitOptions tune one batch.
type SubmitOptions struct {
	// Force reprocesses items that already completed or failed.
	Force bool
	// SkipSummary stops after the transcript stage.
	SkipSummary bool
}

// SubmitBatch normalizes refs, deduplicates them and starts processing in
// the background. Invalid refs are recorded on the batch, they never
// block valid ones. The returned batch is live; poll Status or Wait.
func (o *Orchestrator) SubmitBatch(ctx context.Context, tc model.TenantContext, refs []string, opts SubmitOptions) *Batch {
	accepted, rejected := reference.NormalizeBatch(refs)

	// The batch outlives the submitting request.
	bctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b := newBatch(accepted, rejected, cancel)

	o.storeBatch(b)

	o.logger.Info("batch submitted",
		"batch", b.ID, "tenant", tc.TenantID,
		"accepted", len(accepted), "rejected", len(rejected))

	go o.run(bctx, tc, b, accepted, opts)
	return b
}

// storeBatch registers a batch and evicts the oldest finished batches
// beyond the retention cap, keeping the map bounded on long-running
// services.
func (o *Orchestrator) storeBatch(b *Batch) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.batches[b.ID] = b
	o.order = append(o.order, b.ID)

	kept := o.order[:0]
	for _, id := range o.order {
		if len(o.batches) > o.retention && o.batches[id].finished() {
			delete(o.batches, id)
			continue
		}
		kept = append(kept, id)
	}
	o.order = kept
}

// GetBatch returns a previously submitted batch.
func (o *Orchestrator) GetBatch(id uuid.UUID) (*Batch, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.batches[id]
	return b, ok
}

func (o *Orchestrator) run(ctx context.Context, tc model.TenantContext, b *Batch, refs []reference.Ref, opts SubmitOptions) {
	defer b.finish()

	sem := make(chan struct{}, o.workers)
	var wg sync.WaitGroup
	for _, ref := range refs {
		if ctx.Err() != nil {
			b.setResult(ref.ID, uuid.Nil, model.StagePending, context.Canceled)
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(ref reference.Ref) {
			defer wg.Done()
			defer func() { <-sem }()

			// The batch may have been canceled while this item sat in
			// the worker queue.
			if ctx.Err() != nil {
				b.setResult(ref.ID, uuid.Nil, model.StagePending, context.Canceled)
				return
			}
			item, err := o.processRef(ctx, tc, ref, opts)
			b.setResult(ref.ID, item.ID, item.Stage, err)
		}(ref)
	}
	wg.Wait()

	status := b.Status()
	o.logger.Info("batch finished",
		"batch", b.ID, "succeeded", status.Succeeded, "failed", status.Failed)
}

// processRef runs one item through the stage machine. Every stage persists
// before the next one starts, so a crash loses at most the stage in
// flight. Cancellation is checked between stages only: a started stage
// runs to completion and its result is stored.
func (o *Orchestrator) processRef(ctx context.Context, tc model.TenantContext, ref reference.Ref, opts SubmitOptions) (model.VideoItem, error) {
	item, err := o.store.UpsertVideoItem(ctx, tc, model.VideoItem{
		YoutubeID: ref.ID,
		URL:       ref.URL,
	})
	if err != nil {
		return model.VideoItem{}, err
	}

	if opts.Force && item.Stage != model.StagePending {
		if item, err = o.store.ResetVideoItem(ctx, tc, item.ID); err != nil {
			return item, err
		}
	}
	if item.Stage == model.StageSummarized {
		o.logger.Debug("item already summarized, skipping", "video", item.YoutubeID)
		return item, nil
	}
	if item.Stage == model.StageFailed {
		o.logger.Debug("item previously failed, skipping", "video", item.YoutubeID)
		return item, fmt.Errorf("previously failed at %s: %s", item.FailedStage, item.LastError)
	}

	// A started stage is allowed to finish after cancellation; only the
	// gaps between stages observe it.
	stageCtx := context.WithoutCancel(ctx)

	if item.Stage == model.StagePending {
		if item, err = o.fetchMetadata(stageCtx, tc, item); err != nil {
			return item, err
		}
	}
	if err := ctx.Err(); err != nil {
		return item, err
	}

	if item.Stage == model.StageMetadataFetched {
		if item, err = o.fetchTranscript(stageCtx, tc, item); err != nil {
			return item, err
		}
	}
	if err := ctx.Err(); err != nil {
		return item, err
	}

	if item.Stage == model.StageTranscribed && !opts.SkipSummary && o.selector != nil {
		if item, err = o.summarizeItem(stageCtx, tc, item); err != nil {
			return item, err
		}
	}

	return item, nil
}

func (o *Orchestrator) fetchMetadata(ctx context.Context, tc model.TenantContext, item model.VideoItem) (model.VideoItem, error) {
	md, err := retry.Do(ctx, o.retrier, func(ctx context.Context) (fetcher.Metadata, error) {
		return o.metadata.FetchMetadata(ctx, item.YoutubeID)
	})
	if err != nil {
		return o.markFailed(ctx, tc, item, stageNameMetadata, err)
	}

	item.Title = md.Title
	item.Channel = md.Channel
	item.DurationSeconds = md.DurationSeconds
	item.UploadDate = md.UploadDate
	item.Views = md.Views
	item.Description = md.Description
	item.Stage = model.StageMetadataFetched
	item.MetadataFetchedAt = time.Now()

	item, err = o.store.UpdateVideoItem(ctx, tc, item)
	if err != nil {
		return item, fmt.Errorf("persist metadata: %w", err)
	}
	o.logger.Info("metadata fetched", "video", item.YoutubeID, "title", item.Title)
	return item, nil
}

func (o *Orchestrator) fetchTranscript(ctx context.Context, tc model.TenantContext, item model.VideoItem) (model.VideoItem, error) {
	tr, err := retry.Do(ctx, o.retrier, func(ctx context.Context) (fetcher.Transcript, error) {
		return o.transcripts.FetchTranscript(ctx, item.YoutubeID)
	})
	if err != nil {
		return o.markFailed(ctx, tc, item, stageNameTranscript, err)
	}

	if err := o.store.UpsertTranscript(ctx, tc, model.Transcript{
		VideoItemID: item.ID,
		Text:        tr.Text,
		Language:    tr.Language,
		Source:      tr.Source,
	}); err != nil {
		return item, fmt.Errorf("persist transcript: %w", err)
	}

	item.Stage = model.StageTranscribed
	item.TranscribedAt = time.Now()
	item, err = o.store.UpdateVideoItem(ctx, tc, item)
	if err != nil {
		return item, fmt.Errorf("persist transcribed stage: %w", err)
	}
	o.logger.Info("transcript stored",
		"video", item.YoutubeID, "language", tr.Language, "source", tr.Source, "chars", len(tr.Text))
	return item, nil
}

// summarizeItem generates and stores the summary. Provider trouble is not
// a pipeline failure: the item keeps its transcript and stays transcribed
// with the error noted, so a later run can summarize it.
func (o *Orchestrator) summarizeItem(ctx context.Context, tc model.TenantContext, item model.VideoItem) (model.VideoItem, error) {
	settings, err := o.store.GetTenantSettings(ctx, tc.TenantID)
	if err != nil {
		return item, err
	}
	provider, err := o.selector.For(settings)
	if err != nil {
		return o.noteSummarySkipped(ctx, tc, item, err)
	}

	transcript, err := o.store.GetTranscript(ctx, tc, item.ID)
	if err != nil {
		return item, err
	}

	res, err := provider.Summarize(ctx, summarize.Request{
		Title:      item.Title,
		Transcript: transcript.Text,
	})
	if err != nil {
		return o.noteSummarySkipped(ctx, tc, item, err)
	}

	summary := model.Summary{
		VideoItemID: item.ID,
		Text:        res.Summary,
		Category:    res.Category,
		Provider:    res.Provider,
		Model:       res.Model,
	}
	if err := o.store.UpsertSummary(ctx, tc, summary); err != nil {
		return item, fmt.Errorf("persist summary: %w", err)
	}

	item.Stage = model.StageSummarized
	item.SummarizedAt = time.Now()
	item.LastError = ""
	item, err = o.store.UpdateVideoItem(ctx, tc, item)
	if err != nil {
		return item, fmt.Errorf("persist summarized stage: %w", err)
	}
	o.logger.Info("summary stored", "video", item.YoutubeID, "category", res.Category)

	if o.indexer != nil {
		if err := o.indexer.Index(ctx, item, summary); err != nil {
			o.logger.Warn("index update failed", "video", item.YoutubeID, "error", err)
		}
	}
	return item, nil
}

func (o *Orchestrator) noteSummarySkipped(ctx context.Context, tc model.TenantContext, item model.VideoItem, cause error) (model.VideoItem, error) {
	o.logger.Warn("summarization skipped",
		"video", item.YoutubeID, "error", cause)

	item.LastError = cause.Error()
	updated, err := o.store.UpdateVideoItem(ctx, tc, item)
	if err != nil {
		return item, err
	}
	if errors.Is(cause, model.ErrAuthFailed) {
		// Missing or bad credentials: transcription-only is the intended
		// degraded mode, not an error.
		return updated, nil
	}
	return updated, cause
}

func (o *Orchestrator) markFailed(ctx context.Context, tc model.TenantContext, item model.VideoItem, stage string, cause error) (model.VideoItem, error) {
	o.logger.Error("stage failed",
		"video", item.YoutubeID, "stage", stage, "error", cause)

	item.Stage = model.StageFailed
	item.FailedStage = stage
	item.LastError = cause.Error()
	item.FailedAt = time.Now()

	updated, err := o.store.UpdateVideoItem(ctx, tc, item)
	if err != nil {
		o.logger.Error("could not persist failure", "video", item.YoutubeID, "error", err)
		return item, cause
	}
	return updated, cause
}
