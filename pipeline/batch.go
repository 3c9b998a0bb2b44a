package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/tubescribe/tubescribe/model"
	"github.com/tubescribe/tubescribe/reference"
)

// ItemResult is the batch's view of one submitted video.
type ItemResult struct {
	YoutubeID model.VideoID `json:"youtube_id"`
	ItemID    uuid.UUID     `json:"item_id"`
	Stage     model.Stage   `json:"stage"`
	Error     string        `json:"error,omitempty"`
}

// RejectedRef is an input that never became an item.
type RejectedRef struct {
	Raw   string `json:"raw"`
	Error string `json:"error"`
}

// BatchStatus is a point-in-time snapshot.
type BatchStatus struct {
	ID        uuid.UUID     `json:"id"`
	Done      bool          `json:"done"`
	Total     int           `json:"total"`
	Pending   int           `json:"pending"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Items     []ItemResult  `json:"items"`
	Rejected  []RejectedRef `json:"rejected,omitempty"`
}

// Batch tracks one submission. All methods are safe for concurrent use.
type Batch struct {
	ID uuid.UUID

	mu       sync.Mutex
	order    []model.VideoID
	results  map[model.VideoID]ItemResult
	rejected []RejectedRef
	done     bool

	doneCh chan struct{}
	cancel context.CancelFunc
}

func newBatch(accepted []reference.Ref, rejected []reference.Rejected, cancel context.CancelFunc) *Batch {
	b := &Batch{
		ID:      uuid.New(),
		results: map[model.VideoID]ItemResult{},
		doneCh:  make(chan struct{}),
		cancel:  cancel,
	}
	for _, ref := range accepted {
		b.order = append(b.order, ref.ID)
		b.results[ref.ID] = ItemResult{YoutubeID: ref.ID, Stage: model.StagePending}
	}
	for _, rej := range rejected {
		b.rejected = append(b.rejected, RejectedRef{Raw: rej.Raw, Error: rej.Err.Error()})
	}
	return b
}

// Cancel stops the batch. In-flight stages finish and persist; items not
// yet started stay pending.
func (b *Batch) Cancel() {
	b.cancel()
}

// Wait blocks until the batch finished or ctx expires.
func (b *Batch) Wait(ctx context.Context) error {
	select {
	case <-b.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Batch) setResult(youtubeID model.VideoID, itemID uuid.UUID, stage model.Stage, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := ItemResult{YoutubeID: youtubeID, ItemID: itemID, Stage: stage}
	if err != nil {
		res.Error = err.Error()
		if errors.Is(err, context.Canceled) {
			res.Error = "canceled"
		}
	}
	b.results[youtubeID] = res
}

func (b *Batch) finished() bool {
	select {
	case <-b.doneCh:
		return true
	default:
		return false
	}
}

func (b *Batch) finish() {
	b.mu.Lock()
	b.done = true
	b.mu.Unlock()
	b.cancel()
	close(b.doneCh)
}

// Status reports current progress in submission order.
func (b *Batch) Status() BatchStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	status := BatchStatus{
		ID:       b.ID,
		Done:     b.done,
		Total:    len(b.order),
		Rejected: append([]RejectedRef{}, b.rejected...),
	}
	for _, id := range b.order {
		res := b.results[id]
		status.Items = append(status.Items, res)
		switch {
		// A transcribed item with a summary-provider note still counts as
		// succeeded: its pipeline output exists.
		case res.Stage == model.StageSummarized || res.Stage == model.StageTranscribed:
			status.Succeeded++
		case res.Stage == model.StageFailed || (res.Error != "" && res.Error != "canceled"):
			status.Failed++
		default:
			status.Pending++
		}
	}
	return status
}
