package reference

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tubescribe/tubescribe/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want model.VideoID
		ok   bool
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"embed url", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"shorts url", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"watch url with extra params", "https://www.youtube.com/watch?list=PL123&v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"bare id", "dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"no scheme", "youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"empty", "", "", false},
		{"garbage", "not a video", "", false},
		{"id too short", "abc123", "", false},
		{"wrong host", "https://vimeo.com/123456789", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if !tt.ok {
				require.ErrorIs(t, err, model.ErrInvalidReference)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeBatch(t *testing.T) {
	refs, rejected := NormalizeBatch([]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"dQw4w9WgXcQ", // same video, different form
		"bogus",
		"https://youtu.be/jNQXAC9IVRw",
	})

	require.Len(t, refs, 2)
	require.Equal(t, model.VideoID("dQw4w9WgXcQ"), refs[0].ID)
	require.Equal(t, model.VideoID("jNQXAC9IVRw"), refs[1].ID)
	require.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", refs[0].URL)

	require.Len(t, rejected, 1)
	require.Equal(t, "bogus", rejected[0].Raw)
	require.True(t, errors.Is(rejected[0].Err, model.ErrInvalidReference))
}

func TestNormalizeBatchPreservesFirstSeenOrder(t *testing.T) {
	refs, rejected := NormalizeBatch([]string{"ccccccccccc", "aaaaaaaaaaa", "ccccccccccc", "bbbbbbbbbbb"})
	require.Empty(t, rejected)

	ids := make([]model.VideoID, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	require.Equal(t, []model.VideoID{"ccccccccccc", "aaaaaaaaaaa", "bbbbbbbbbbb"}, ids)
}
