package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/tubescribe/tubescribe/model"
	"github.com/tubescribe/tubescribe/storage"
)

type VideoAPI struct {
	store  storage.VideoStore
	logger *slog.Logger
}

func NewVideoAPI(store storage.VideoStore, logger *slog.Logger) *VideoAPI {
	return &VideoAPI{
		store:  store,
		logger: logger,
	}
}

func (v *VideoAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	head, _ := ShiftPath(r.URL.Path)

	switch {
	case r.Method == http.MethodGet && head == "":
		v.List(w, r)
	case r.Method == http.MethodGet && head == "stats":
		v.Stats(w, r)
	case r.Method == http.MethodGet:
		v.Get(w, r, head)
	default:
		Error(w, http.StatusNotFound, "not found",
			fmt.Errorf("method %s with subpath %q was not registered in the video api", r.Method, head))
	}
}

type respVideo struct {
	ID          string `json:"id"`
	YoutubeID   string `json:"youtube_id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Channel     string `json:"channel"`
	Duration    int64  `json:"duration_seconds"`
	UploadDate  string `json:"upload_date,omitempty"`
	Views       int64  `json:"views"`
	Stage       string `json:"stage"`
	FailedStage string `json:"failed_stage,omitempty"`
	LastError   string `json:"last_error,omitempty"`
}

func toRespVideo(item model.VideoItem) respVideo {
	return respVideo{
		ID:          item.ID.String(),
		YoutubeID:   string(item.YoutubeID),
		URL:         item.URL,
		Title:       item.Title,
		Channel:     item.Channel,
		Duration:    item.DurationSeconds,
		UploadDate:  item.UploadDate,
		Views:       item.Views,
		Stage:       string(item.Stage),
		FailedStage: item.FailedStage,
		LastError:   item.LastError,
	}
}

func (v *VideoAPI) List(w http.ResponseWriter, r *http.Request) {
	tc := tenant(r)
	q := r.URL.Query()

	var items []model.VideoItem
	var err error
	if search := q.Get("q"); search != "" {
		items, err = v.store.SearchTranscripts(r.Context(), tc, search, intParam(q.Get("limit"), 50))
	} else {
		items, err = v.store.ListVideoItems(r.Context(), tc, storage.ListFilter{
			Stage:      model.Stage(q.Get("stage")),
			Category:   q.Get("category"),
			AllTenants: q.Get("all") == "true",
			Limit:      intParam(q.Get("limit"), 100),
			Offset:     intParam(q.Get("offset"), 0),
		})
	}
	if err != nil {
		v.returnErr(r.Context(), w, http.StatusInternalServerError, "could not list videos", err)
		return
	}

	resp := make([]respVideo, 0, len(items))
	for _, item := range items {
		resp = append(resp, toRespVideo(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (v *VideoAPI) Get(w http.ResponseWriter, r *http.Request, id string) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid video id", err)
		return
	}

	tc := tenant(r)
	item, err := v.store.GetVideoItem(r.Context(), tc, itemID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		Error(w, http.StatusNotFound, "video not found", err)
		return
	case errors.Is(err, model.ErrOwnershipViolation):
		Error(w, http.StatusForbidden, "video belongs to another tenant", err)
		return
	case err != nil:
		v.returnErr(r.Context(), w, http.StatusInternalServerError, "could not get video", err)
		return
	}

	resp := struct {
		respVideo
		Description string `json:"description,omitempty"`
		Transcript  string `json:"transcript,omitempty"`
		Summary     string `json:"summary,omitempty"`
		Category    string `json:"category,omitempty"`
	}{
		respVideo:   toRespVideo(item),
		Description: item.Description,
	}

	if transcript, err := v.store.GetTranscript(r.Context(), tc, itemID); err == nil {
		resp.Transcript = transcript.Text
	}
	if summary, err := v.store.GetSummary(r.Context(), tc, itemID); err == nil {
		resp.Summary = summary.Text
		resp.Category = summary.Category
	}

	writeJSON(w, http.StatusOK, resp)
}

func (v *VideoAPI) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := v.store.Statistics(r.Context(), tenant(r))
	if err != nil {
		v.returnErr(r.Context(), w, http.StatusInternalServerError, "could not compute statistics", err)
		return
	}

	resp := struct {
		Total      int            `json:"total"`
		ByStage    map[string]int `json:"by_stage"`
		ByCategory map[string]int `json:"by_category"`
	}{
		Total:      stats.Total,
		ByStage:    map[string]int{},
		ByCategory: stats.ByCategory,
	}
	for stage, count := range stats.ByStage {
		resp.ByStage[string(stage)] = count
	}
	writeJSON(w, http.StatusOK, resp)
}

func (v *VideoAPI) returnErr(_ context.Context, w http.ResponseWriter, status int, message string, err error, details ...any) {
	v.logger.Error(message, "error", err, "details", fmt.Sprintf("%+v", details))
	Error(w, status, message, err, details...)
}

func intParam(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
