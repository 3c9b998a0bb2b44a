// Package reference turns raw user input (URLs or bare ids) into canonical
// video ids. It is pure string work: no side effects, no network.
package reference

import (
	"fmt"
	"regexp"

	"github.com/tubescribe/tubescribe/model"
)

var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/watch\?.*v=([a-zA-Z0-9_-]{11})`),
}

var bareID = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// Ref is one accepted reference within a batch.
type Ref struct {
	Raw string        // input as submitted
	ID  model.VideoID // canonical external id
	URL string        // canonical watch URL
}

// Rejected records one input that failed normalization. The batch itself is
// never rejected because of a single bad input.
type Rejected struct {
	Raw string
	Err error
}

// Normalize extracts the canonical video id from a URL or bare id.
func Normalize(raw string) (model.VideoID, error) {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(raw); len(m) == 2 {
			return model.VideoID(m[1]), nil
		}
	}
	if bareID.MatchString(raw) {
		return model.VideoID(raw), nil
	}
	return "", fmt.Errorf("%w: %q", model.ErrInvalidReference, raw)
}

// WatchURL returns the canonical watch URL for an id.
func WatchURL(id model.VideoID) string {
	return "https://www.youtube.com/watch?v=" + string(id)
}

// NormalizeBatch normalizes a submitted batch, deduplicating by canonical id
// while preserving first-seen order. Malformed inputs are returned in
// rejected, one entry per bad input.
func NormalizeBatch(raws []string) (refs []Ref, rejected []Rejected) {
	seen := make(map[model.VideoID]bool, len(raws))
	for _, raw := range raws {
		id, err := Normalize(raw)
		if err != nil {
			rejected = append(rejected, Rejected{Raw: raw, Err: err})
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		refs = append(refs, Ref{Raw: raw, ID: id, URL: WatchURL(id)})
	}
	return refs, rejected
}
