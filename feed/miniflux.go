// Package feed turns an RSS reader's unread entries into pipeline
// submissions, so subscribed channels get processed without manual
// intervention.
package feed

import (
	"miniflux.app/client"
)

// Entry is one unread feed item pointing at a video.
type Entry struct {
	EntryID int64
	FeedID  int64
	URL     string
	Title   string
}

// Reader lists unread video entries and acknowledges handled ones.
type Reader interface {
	Unread() ([]Entry, error)
	MarkRead(entryID int64) error
}

type MinifluxInfo struct {
	Endpoint string
	APIKey   string
}

// Miniflux reads entries from a miniflux instance subscribed to channel
// feeds.
type Miniflux struct {
	client *client.Client
}

func NewMiniflux(mflInfo MinifluxInfo) *Miniflux {
	return &Miniflux{
		client: client.New(mflInfo.Endpoint, mflInfo.APIKey),
	}
}

func (m *Miniflux) Unread() ([]Entry, error) {
	result, err := m.client.Entries(&client.Filter{Status: "unread"})
	if err != nil {
		return nil, err
	}

	entries := []Entry{}
	for _, entry := range result.Entries {
		entries = append(entries, Entry{
			EntryID: entry.ID,
			FeedID:  entry.FeedID,
			URL:     entry.URL,
			Title:   entry.Title,
		})
	}

	return entries, nil
}

func (m *Miniflux) MarkRead(entryID int64) error {
	return m.client.UpdateEntries([]int64{entryID}, "read")
}
