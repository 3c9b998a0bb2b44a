package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/tubescribe/tubescribe/pipeline"
)

type BatchAPI struct {
	orchestrator *pipeline.Orchestrator
	logger       *slog.Logger
}

func NewBatchAPI(orchestrator *pipeline.Orchestrator, logger *slog.Logger) *BatchAPI {
	return &BatchAPI{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

func (b *BatchAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	head, _ := ShiftPath(r.URL.Path)

	switch {
	case r.Method == http.MethodPost && head == "":
		b.Submit(w, r)
	case r.Method == http.MethodGet && head != "":
		b.Status(w, r, head)
	case r.Method == http.MethodDelete && head != "":
		b.Cancel(w, r, head)
	default:
		Error(w, http.StatusNotFound, "not found",
			fmt.Errorf("method %s with subpath %q was not registered in the batch api", r.Method, head))
	}
}

func (b *BatchAPI) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refs        []string `json:"refs"`
		Force       bool     `json:"force"`
		SkipSummary bool     `json:"skip_summary"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Refs) == 0 {
		Error(w, http.StatusBadRequest, "empty batch", fmt.Errorf("refs is required"))
		return
	}

	batch := b.orchestrator.SubmitBatch(r.Context(), tenant(r), req.Refs, pipeline.SubmitOptions{
		Force:       req.Force,
		SkipSummary: req.SkipSummary,
	})
	writeJSON(w, http.StatusAccepted, batch.Status())
}

func (b *BatchAPI) Status(w http.ResponseWriter, r *http.Request, id string) {
	batch, ok := b.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, batch.Status())
}

func (b *BatchAPI) Cancel(w http.ResponseWriter, r *http.Request, id string) {
	batch, ok := b.lookup(w, id)
	if !ok {
		return
	}
	batch.Cancel()
	Message(w, http.StatusOK, "batch canceled")
}

func (b *BatchAPI) lookup(w http.ResponseWriter, id string) (*pipeline.Batch, bool) {
	batchID, err := uuid.Parse(id)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid batch id", err)
		return nil, false
	}
	batch, ok := b.orchestrator.GetBatch(batchID)
	if !ok {
		Error(w, http.StatusNotFound, "batch not found", fmt.Errorf("no batch with id %s", batchID))
		return nil, false
	}
	return batch, true
}
