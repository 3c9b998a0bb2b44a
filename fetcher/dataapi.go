package fetcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/tubescribe/tubescribe/model"
)

// DataAPI fetches metadata through the official Data API. It is the
// preferred metadata source when an API key is configured: no pacing, no
// identity rotation, a clean quota instead of scraping heuristics.
type DataAPI struct {
	service *youtube.Service
}

func NewDataAPI(ctx context.Context, apiKey string) (*DataAPI, error) {
	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &DataAPI{service: service}, nil
}

func (d *DataAPI) FetchMetadata(ctx context.Context, id model.VideoID) (Metadata, error) {
	response, err := d.service.Videos.
		List([]string{"snippet", "contentDetails", "statistics"}).
		Id(string(id)).
		Context(ctx).
		Do()
	if err != nil {
		return Metadata{}, classifyAPIError(err)
	}
	if len(response.Items) == 0 {
		return Metadata{}, fmt.Errorf("%w: video %s", model.ErrNotFound, id)
	}

	item := response.Items[0]
	md := Metadata{
		VideoID:         id,
		Title:           item.Snippet.Title,
		Channel:         item.Snippet.ChannelTitle,
		DurationSeconds: parseISODuration(item.ContentDetails.Duration),
		Description:     truncate(item.Snippet.Description, descriptionLimit),
	}
	if item.Statistics != nil {
		md.Views = int64(item.Statistics.ViewCount)
	}
	if len(item.Snippet.PublishedAt) >= 10 {
		md.UploadDate = item.Snippet.PublishedAt[:10]
	}
	return md, nil
}

func classifyAPIError(err error) error {
	if apiErr, ok := err.(*googleapi.Error); ok {
		switch {
		case apiErr.Code == 404:
			return fmt.Errorf("%w: %v", model.ErrNotFound, err)
		case apiErr.Code == 403 || apiErr.Code == 429:
			return fmt.Errorf("%w: %v", model.ErrRateLimited, err)
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", model.ErrTransientNetwork, err)
		}
	}
	return fmt.Errorf("%w: %v", model.ErrTransientNetwork, err)
}

// parseISODuration converts an ISO 8601 duration like PT1H2M3S to seconds.
func parseISODuration(s string) int64 {
	s = strings.TrimPrefix(s, "P")
	var days, hours, minutes, seconds int64
	if i := strings.Index(s, "D"); i >= 0 {
		days, _ = strconv.ParseInt(s[:i], 10, 64)
		s = s[i+1:]
	}
	s = strings.TrimPrefix(s, "T")
	if i := strings.Index(s, "H"); i >= 0 {
		hours, _ = strconv.ParseInt(s[:i], 10, 64)
		s = s[i+1:]
	}
	if i := strings.Index(s, "M"); i >= 0 {
		minutes, _ = strconv.ParseInt(s[:i], 10, 64)
		s = s[i+1:]
	}
	if i := strings.Index(s, "S"); i >= 0 {
		seconds, _ = strconv.ParseInt(s[:i], 10, 64)
	}
	return days*86400 + hours*3600 + minutes*60 + seconds
}
