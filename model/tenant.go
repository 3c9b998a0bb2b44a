package model

import (
	"time"

	"github.com/google/uuid"
)

type ProviderName string

const (
	ProviderOpenAI ProviderName = "openai"
	ProviderGemini ProviderName = "gemini"
)

// Tenant is an isolated owner of video items. A superuser tenant can read
// every tenant's rows but never write another tenant's rows.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Superuser bool
	CreatedAt time.Time
}

// TenantSettings holds a tenant's provider credentials and preference.
// Absence of a settings row, or of a key, is a valid state and triggers the
// transcription-only fallback.
type TenantSettings struct {
	TenantID  uuid.UUID
	OpenAIKey string
	GeminiKey string
	Provider  ProviderName
	UpdatedAt time.Time
}

// Key returns the stored API key for the given provider, if any.
func (s *TenantSettings) Key(p ProviderName) string {
	if s == nil {
		return ""
	}
	switch p {
	case ProviderOpenAI:
		return s.OpenAIKey
	case ProviderGemini:
		return s.GeminiKey
	}
	return ""
}

// TenantContext identifies the acting tenant on every store and pipeline
// call. There is no ambient identity; callers pass this explicitly.
type TenantContext struct {
	TenantID  uuid.UUID
	Superuser bool
}

// CanRead reports whether the context may read rows owned by ownerID.
func (tc TenantContext) CanRead(ownerID uuid.UUID) bool {
	return tc.Superuser || tc.TenantID == ownerID
}

// CanWrite reports whether the context may mutate rows owned by ownerID.
// Superuser visibility does not extend to writes.
func (tc TenantContext) CanWrite(ownerID uuid.UUID) bool {
	return tc.TenantID == ownerID
}
