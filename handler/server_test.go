package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tubescribe/tubescribe/fetcher"
	"github.com/tubescribe/tubescribe/handler"
	"github.com/tubescribe/tubescribe/model"
	"github.com/tubescribe/tubescribe/pipeline"
	"github.com/tubescribe/tubescribe/retry"
	"github.com/tubescribe/tubescribe/storage"
)

type fakeMetadata struct{}

func (fakeMetadata) FetchMetadata(_ context.Context, id model.VideoID) (fetcher.Metadata, error) {
	return fetcher.Metadata{VideoID: id, Title: "Title " + string(id), Channel: "chan"}, nil
}

type fakeTranscripts struct{}

func (fakeTranscripts) FetchTranscript(_ context.Context, id model.VideoID) (fetcher.Transcript, error) {
	return fetcher.Transcript{Text: "words of " + string(id), Language: "en", Source: model.SourceCaptions}, nil
}

type testAPI struct {
	store        *storage.SQL
	orchestrator *pipeline.Orchestrator
	server       *handler.Server
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := storage.NewSQLite(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	_, err = store.EnsureDefaultTenant(ctx)
	require.NoError(t, err)
	_, err = store.CreateTenant(ctx, "acme", false)
	require.NoError(t, err)
	_, err = store.CreateTenant(ctx, "rival", false)
	require.NoError(t, err)

	orchestrator := pipeline.New(store, fakeMetadata{}, fakeTranscripts{},
		pipeline.WithLogger(logger),
		pipeline.WithRetrier(retry.New(retry.DefaultPolicy,
			retry.WithSleep(func(context.Context, time.Duration) error { return nil }))))

	return testAPI{
		store:        store,
		orchestrator: orchestrator,
		server:       handler.NewServer(store, orchestrator, handler.HeaderResolver(store), logger),
	}
}

func (a testAPI) do(t *testing.T, method, target, tenantName, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if tenantName != "" {
		req.Header.Set(handler.TenantHeader, tenantName)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "tubescribe index")
}

func TestUnknownPath(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/nope", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownTenant(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/video", "ghost", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBatchLifecycle(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/batch", "acme",
		`{"refs":["https://www.youtube.com/watch?v=aaaaaaaaaaa","garbage"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var submitted pipeline.BatchStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	require.Equal(t, 1, submitted.Total)
	require.Len(t, submitted.Rejected, 1)

	batch, ok := a.orchestrator.GetBatch(submitted.ID)
	require.True(t, ok)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, batch.Wait(ctx))

	rec = a.do(t, http.MethodGet, "/batch/"+submitted.ID.String(), "acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status pipeline.BatchStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.True(t, status.Done)
	require.Equal(t, 1, status.Succeeded)
}

func TestBatchValidation(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/batch", "acme", `{"refs":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/batch", "acme", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/batch/not-a-uuid", "acme", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVideoListAndGet(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/batch", "acme", `{"refs":["aaaaaaaaaaa"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var submitted pipeline.BatchStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	batch, _ := a.orchestrator.GetBatch(submitted.ID)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, batch.Wait(ctx))

	rec = a.do(t, http.MethodGet, "/video", "acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []struct {
		ID    string `json:"id"`
		Stage string `json:"stage"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, "transcribed", list[0].Stage)

	rec = a.do(t, http.MethodGet, "/video/"+list[0].ID, "acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Transcript string `json:"transcript"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Equal(t, "words of aaaaaaaaaaa", detail.Transcript)

	// another tenant sees nothing, and direct access is forbidden
	rec = a.do(t, http.MethodGet, "/video", "rival", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = a.do(t, http.MethodGet, "/video/"+list[0].ID, "rival", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVideoStats(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/batch", "acme", `{"refs":["aaaaaaaaaaa"]}`)
	var submitted pipeline.BatchStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	batch, _ := a.orchestrator.GetBatch(submitted.ID)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, batch.Wait(ctx))

	rec = a.do(t, http.MethodGet, "/video/stats", "acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Total   int            `json:"total"`
		ByStage map[string]int `json:"by_stage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, 1, stats.Total)
	require.Equal(t, 1, stats.ByStage["transcribed"])
}
