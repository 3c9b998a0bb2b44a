package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tubescribe/tubescribe/model"
)

func newTestStore(t *testing.T) *SQL {
	t.Helper()
	s, err := NewSQLite(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestTenant(t *testing.T, s *SQL, name string) (model.Tenant, model.TenantContext) {
	t.Helper()
	tenant, err := s.CreateTenant(context.Background(), name, false)
	require.NoError(t, err)
	return tenant, model.TenantContext{TenantID: tenant.ID}
}

func TestTenantLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateTenant(ctx, "acme", false)
	require.NoError(t, err)

	got, err := s.GetTenantByName(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.False(t, got.Superuser)

	_, err = s.GetTenantByName(ctx, "nope")
	require.ErrorIs(t, err, model.ErrNotFound)

	first, err := s.EnsureDefaultTenant(ctx)
	require.NoError(t, err)
	second, err := s.EnsureDefaultTenant(ctx)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	tenants, err := s.ListTenants(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 2)
}

func TestTenantSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant, _ := newTestTenant(t, s, "acme")

	got, err := s.GetTenantSettings(ctx, tenant.ID)
	require.NoError(t, err)
	require.Nil(t, got, "tenant without settings yields nil")

	require.NoError(t, s.UpsertTenantSettings(ctx, model.TenantSettings{
		TenantID:  tenant.ID,
		OpenAIKey: "sk-one",
		Provider:  model.ProviderOpenAI,
	}))
	require.NoError(t, s.UpsertTenantSettings(ctx, model.TenantSettings{
		TenantID:  tenant.ID,
		GeminiKey: "g-two",
		Provider:  model.ProviderGemini,
	}))

	got, err = s.GetTenantSettings(ctx, tenant.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, model.ProviderGemini, got.Provider)
	require.Equal(t, "g-two", got.GeminiKey)
	require.Empty(t, got.OpenAIKey, "upsert replaces the whole row")
}

func TestUpsertVideoItemIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, tcA := newTestTenant(t, s, "a")
	_, tcB := newTestTenant(t, s, "b")

	first, err := s.UpsertVideoItem(ctx, tcA, model.VideoItem{YoutubeID: "dQw4w9WgXcQ", URL: "u"})
	require.NoError(t, err)
	require.Equal(t, model.StagePending, first.Stage)

	again, err := s.UpsertVideoItem(ctx, tcA, model.VideoItem{YoutubeID: "dQw4w9WgXcQ", URL: "u"})
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID, "same tenant, same video, same row")

	other, err := s.UpsertVideoItem(ctx, tcB, model.VideoItem{YoutubeID: "dQw4w9WgXcQ", URL: "u"})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID, "tenants get independent rows")
}

func TestUpsertVideoItemKeepsProgress(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, tc := newTestTenant(t, s, "a")

	item, err := s.UpsertVideoItem(ctx, tc, model.VideoItem{YoutubeID: "dQw4w9WgXcQ"})
	require.NoError(t, err)

	item.Stage = model.StageMetadataFetched
	item.Title = "Got metadata"
	item.MetadataFetchedAt = time.Now()
	_, err = s.UpdateVideoItem(ctx, tc, item)
	require.NoError(t, err)

	again, err := s.UpsertVideoItem(ctx, tc, model.VideoItem{YoutubeID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	require.Equal(t, model.StageMetadataFetched, again.Stage)
	require.Equal(t, "Got metadata", again.Title)
}

func TestStageTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, tc := newTestTenant(t, s, "a")

	item, err := s.UpsertVideoItem(ctx, tc, model.VideoItem{YoutubeID: "dQw4w9WgXcQ"})
	require.NoError(t, err)

	item.Stage = model.StageTranscribed
	item, err = s.UpdateVideoItem(ctx, tc, item)
	require.NoError(t, err)

	// backwards is refused
	item.Stage = model.StageMetadataFetched
	_, err = s.UpdateVideoItem(ctx, tc, item)
	require.ErrorIs(t, err, model.ErrStageRegression)

	// failed absorbs from anywhere
	item.Stage = model.StageFailed
	item.FailedStage = "summarize"
	item.LastError = "quota exceeded"
	item.FailedAt = time.Now()
	item, err = s.UpdateVideoItem(ctx, tc, item)
	require.NoError(t, err)

	// and is terminal without a reset
	item.Stage = model.StageSummarized
	_, err = s.UpdateVideoItem(ctx, tc, item)
	require.ErrorIs(t, err, model.ErrStageRegression)

	reset, err := s.ResetVideoItem(ctx, tc, item.ID)
	require.NoError(t, err)
	require.Equal(t, model.StagePending, reset.Stage)
	require.Empty(t, reset.FailedStage)
	require.Empty(t, reset.LastError)
	require.True(t, reset.FailedAt.IsZero())
}

func TestOwnership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, tcA := newTestTenant(t, s, "a")
	_, tcB := newTestTenant(t, s, "b")

	item, err := s.UpsertVideoItem(ctx, tcA, model.VideoItem{YoutubeID: "dQw4w9WgXcQ"})
	require.NoError(t, err)

	_, err = s.GetVideoItem(ctx, tcB, item.ID)
	require.ErrorIs(t, err, model.ErrOwnershipViolation)

	item.Title = "hijacked"
	_, err = s.UpdateVideoItem(ctx, tcB, item)
	require.ErrorIs(t, err, model.ErrOwnershipViolation)

	err = s.UpsertTranscript(ctx, tcB, model.Transcript{VideoItemID: item.ID, Text: "x"})
	require.ErrorIs(t, err, model.ErrOwnershipViolation)

	// superusers read everything but write nothing foreign
	super := model.TenantContext{TenantID: uuid.New(), Superuser: true}
	_, err = s.GetVideoItem(ctx, super, item.ID)
	require.NoError(t, err)
	_, err = s.UpdateVideoItem(ctx, super, item)
	require.ErrorIs(t, err, model.ErrOwnershipViolation)
}

func TestTranscriptReplace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, tc := newTestTenant(t, s, "a")

	item, err := s.UpsertVideoItem(ctx, tc, model.VideoItem{YoutubeID: "dQw4w9WgXcQ"})
	require.NoError(t, err)

	require.NoError(t, s.UpsertTranscript(ctx, tc, model.Transcript{
		VideoItemID: item.ID, Text: "first", Language: "en", Source: model.SourceGenerated,
	}))
	require.NoError(t, s.UpsertTranscript(ctx, tc, model.Transcript{
		VideoItemID: item.ID, Text: "second", Language: "en", Source: model.SourceCaptions,
	}))

	got, err := s.GetTranscript(ctx, tc, item.ID)
	require.NoError(t, err)
	require.Equal(t, "second", got.Text)
	require.Equal(t, model.SourceCaptions, got.Source)
}

func TestSummaryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, tc := newTestTenant(t, s, "a")

	item, err := s.UpsertVideoItem(ctx, tc, model.VideoItem{YoutubeID: "dQw4w9WgXcQ"})
	require.NoError(t, err)

	_, err = s.GetSummary(ctx, tc, item.ID)
	require.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, s.UpsertSummary(ctx, tc, model.Summary{
		VideoItemID: item.ID,
		Text:        "A video about things.",
		Category:    "Education",
		Provider:    model.ProviderOpenAI,
		Model:       "gpt-4o-mini",
	}))

	got, err := s.GetSummary(ctx, tc, item.ID)
	require.NoError(t, err)
	require.Equal(t, "A video about things.", got.Text)
	require.Equal(t, "Education", got.Category)
}

func TestListVideoItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, tcA := newTestTenant(t, s, "a")
	_, tcB := newTestTenant(t, s, "b")

	for _, yt := range []model.VideoID{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"} {
		_, err := s.UpsertVideoItem(ctx, tcA, model.VideoItem{YoutubeID: yt})
		require.NoError(t, err)
	}
	_, err := s.UpsertVideoItem(ctx, tcB, model.VideoItem{YoutubeID: "ddddddddddd"})
	require.NoError(t, err)

	items, err := s.ListVideoItems(ctx, tcA, ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 3)

	items, err = s.ListVideoItems(ctx, tcA, ListFilter{Stage: model.StagePending, Limit: 2})
	require.NoError(t, err)
	require.Len(t, items, 2)

	// AllTenants is a no-op for regular tenants
	items, err = s.ListVideoItems(ctx, tcA, ListFilter{AllTenants: true})
	require.NoError(t, err)
	require.Len(t, items, 3)

	super := model.TenantContext{TenantID: uuid.New(), Superuser: true}
	items, err = s.ListVideoItems(ctx, super, ListFilter{AllTenants: true})
	require.NoError(t, err)
	require.Len(t, items, 4)
}

func TestSearchTranscripts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, tcA := newTestTenant(t, s, "a")
	_, tcB := newTestTenant(t, s, "b")

	itemA, err := s.UpsertVideoItem(ctx, tcA, model.VideoItem{YoutubeID: "aaaaaaaaaaa"})
	require.NoError(t, err)
	require.NoError(t, s.UpsertTranscript(ctx, tcA, model.Transcript{
		VideoItemID: itemA.ID, Text: "how to bake sourdough bread",
	}))

	itemB, err := s.UpsertVideoItem(ctx, tcB, model.VideoItem{YoutubeID: "bbbbbbbbbbb"})
	require.NoError(t, err)
	require.NoError(t, s.UpsertTranscript(ctx, tcB, model.Transcript{
		VideoItemID: itemB.ID, Text: "sourdough starters explained",
	}))

	items, err := s.SearchTranscripts(ctx, tcA, "sourdough", 10)
	require.NoError(t, err)
	require.Len(t, items, 1, "search never crosses tenants")
	require.Equal(t, itemA.ID, items[0].ID)
}

func TestStatistics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, tc := newTestTenant(t, s, "a")

	one, err := s.UpsertVideoItem(ctx, tc, model.VideoItem{YoutubeID: "aaaaaaaaaaa"})
	require.NoError(t, err)
	_, err = s.UpsertVideoItem(ctx, tc, model.VideoItem{YoutubeID: "bbbbbbbbbbb"})
	require.NoError(t, err)

	one.Stage = model.StageSummarized
	one.SummarizedAt = time.Now()
	_, err = s.UpdateVideoItem(ctx, tc, one)
	require.NoError(t, err)
	require.NoError(t, s.UpsertSummary(ctx, tc, model.Summary{
		VideoItemID: one.ID, Text: "s", Category: "Music",
	}))

	stats, err := s.Statistics(ctx, tc)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 1, stats.ByStage[model.StagePending])
	require.Equal(t, 1, stats.ByStage[model.StageSummarized])
	require.Equal(t, 1, stats.ByCategory["Music"])
}
