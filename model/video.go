package model

import (
	"time"

	"github.com/google/uuid"
)

// Stage is a persisted checkpoint in a video item's processing lifecycle.
type Stage string

const (
	StagePending         Stage = "pending"
	StageMetadataFetched Stage = "metadata_fetched"
	StageTranscribed     Stage = "transcribed"
	StageSummarized      Stage = "summarized"
	StageFailed          Stage = "failed"
)

// Order returns the position of a stage in the processing sequence.
// StageFailed is absorbing and has no position.
func (s Stage) Order() int {
	switch s {
	case StagePending:
		return 0
	case StageMetadataFetched:
		return 1
	case StageTranscribed:
		return 2
	case StageSummarized:
		return 3
	}
	return -1
}

type VideoID string

type VideoItem struct {
	ID       uuid.UUID
	TenantID uuid.UUID

	YoutubeID VideoID
	URL       string

	Title           string
	Channel         string
	DurationSeconds int64
	UploadDate      string
	Views           int64
	Description     string

	Stage       Stage
	FailedStage string // name of the stage that was running when Stage became StageFailed
	LastError   string

	CreatedAt         time.Time
	UpdatedAt         time.Time
	MetadataFetchedAt time.Time
	TranscribedAt     time.Time
	SummarizedAt      time.Time
	FailedAt          time.Time
}

type TranscriptSource string

const (
	SourceCaptions  TranscriptSource = "captions"
	SourceGenerated TranscriptSource = "generated"
)

// Transcript is the single current transcript of a video item. A re-fetch
// replaces it.
type Transcript struct {
	ID          uuid.UUID
	VideoItemID uuid.UUID
	Text        string
	Language    string
	Source      TranscriptSource
	FetchedAt   time.Time
}

// Summary is the single current AI summary of a video item. Regeneration
// replaces it.
type Summary struct {
	ID          uuid.UUID
	VideoItemID uuid.UUID
	Text        string
	Category    string
	Provider    ProviderName
	Model       string
	CreatedAt   time.Time
}
