// Package storage persists tenants, video items, transcripts and
// summaries. Every video-facing operation takes an explicit tenant
// context; nothing infers a tenant from ambient state.
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/tubescribe/tubescribe/model"
)

// DefaultTenantName is the tenant created on first start so single-user
// deployments work without tenant administration.
const DefaultTenantName = "default"

// ListFilter narrows ListVideoItems. AllTenants is honored only for a
// superuser context.
type ListFilter struct {
	Stage      model.Stage
	Category   string
	AllTenants bool
	Limit      int
	Offset     int
}

// Stats aggregates a tenant's pipeline state.
type Stats struct {
	Total      int
	ByStage    map[model.Stage]int
	ByCategory map[string]int
}

type TenantStore interface {
	CreateTenant(ctx context.Context, name string, superuser bool) (model.Tenant, error)
	GetTenant(ctx context.Context, id uuid.UUID) (model.Tenant, error)
	GetTenantByName(ctx context.Context, name string) (model.Tenant, error)
	ListTenants(ctx context.Context) ([]model.Tenant, error)
	EnsureDefaultTenant(ctx context.Context) (model.Tenant, error)
	UpsertTenantSettings(ctx context.Context, settings model.TenantSettings) error
	GetTenantSettings(ctx context.Context, tenantID uuid.UUID) (*model.TenantSettings, error)
}

type VideoStore interface {
	// UpsertVideoItem inserts the item, or returns the tenant's existing
	// row for the same video. It never regresses an existing item.
	UpsertVideoItem(ctx context.Context, tc model.TenantContext, item model.VideoItem) (model.VideoItem, error)
	// UpdateVideoItem writes mutable fields and the stage. Stage changes
	// must move forward or to failed; anything else is ErrStageRegression.
	UpdateVideoItem(ctx context.Context, tc model.TenantContext, item model.VideoItem) (model.VideoItem, error)
	// ResetVideoItem returns an item to pending for reprocessing,
	// clearing failure state.
	ResetVideoItem(ctx context.Context, tc model.TenantContext, id uuid.UUID) (model.VideoItem, error)
	GetVideoItem(ctx context.Context, tc model.TenantContext, id uuid.UUID) (model.VideoItem, error)
	FindByYoutubeID(ctx context.Context, tc model.TenantContext, youtubeID model.VideoID) (model.VideoItem, error)
	ListVideoItems(ctx context.Context, tc model.TenantContext, filter ListFilter) ([]model.VideoItem, error)

	UpsertTranscript(ctx context.Context, tc model.TenantContext, t model.Transcript) error
	GetTranscript(ctx context.Context, tc model.TenantContext, videoItemID uuid.UUID) (model.Transcript, error)
	UpsertSummary(ctx context.Context, tc model.TenantContext, s model.Summary) error
	GetSummary(ctx context.Context, tc model.TenantContext, videoItemID uuid.UUID) (model.Summary, error)

	SearchTranscripts(ctx context.Context, tc model.TenantContext, query string, limit int) ([]model.VideoItem, error)
	Statistics(ctx context.Context, tc model.TenantContext) (Stats, error)
}

// Store is the full persistence surface.
type Store interface {
	TenantStore
	VideoStore
	Close() error
}
