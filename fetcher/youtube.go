package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tubescribe/tubescribe/model"
)

const (
	ytWatchBase  = "https://www.youtube.com/watch?v="
	ytPlayerURL  = "https://www.youtube.com/youtubei/v1/player"
	maxWatchPage = 6 * 1024 * 1024
	maxTimedText = 512 * 1024

	// playerResponseMarker marks the start of the player response JSON
	// embedded in watch page HTML.
	playerResponseMarker = "ytInitialPlayerResponse = "

	descriptionLimit = 500
)

type playerResponse struct {
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	VideoDetails *struct {
		VideoID          string `json:"videoId"`
		Title            string `json:"title"`
		LengthSeconds    string `json:"lengthSeconds"`
		ViewCount        string `json:"viewCount"`
		Author           string `json:"author"`
		ShortDescription string `json:"shortDescription"`
	} `json:"videoDetails"`
	Microformat *struct {
		PlayerMicroformatRenderer struct {
			UploadDate  string `json:"uploadDate"`
			PublishDate string `json:"publishDate"`
		} `json:"playerMicroformatRenderer"`
	} `json:"microformat"`
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

type timedText struct {
	Lines []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

// innertubeRequest is the player endpoint payload. The ANDROID client
// context gets an unthrottled response without browser session tokens.
type innertubeRequest struct {
	VideoID string `json:"videoId"`
	Context struct {
		Client struct {
			ClientName        string `json:"clientName"`
			ClientVersion     string `json:"clientVersion"`
			AndroidSDKVersion int    `json:"androidSdkVersion"`
			Hl                string `json:"hl"`
			Gl                string `json:"gl"`
		} `json:"client"`
	} `json:"context"`
	RacyCheckOk    bool `json:"racyCheckOk"`
	ContentCheckOk bool `json:"contentCheckOk"`
}

func newInnertubeRequest(id model.VideoID) innertubeRequest {
	var r innertubeRequest
	r.VideoID = string(id)
	r.Context.Client.ClientName = "ANDROID"
	r.Context.Client.ClientVersion = "19.09.37"
	r.Context.Client.AndroidSDKVersion = 30
	r.Context.Client.Hl = "en"
	r.Context.Client.Gl = "US"
	r.RacyCheckOk = true
	r.ContentCheckOk = true
	return r
}

// FetchMetadata queries the player endpoint and extracts video details.
func (c *Client) FetchMetadata(ctx context.Context, id model.VideoID) (Metadata, error) {
	if err := c.pace(ctx, metadataDelay); err != nil {
		return Metadata{}, err
	}

	pr, err := c.fetchPlayer(ctx, id)
	if err != nil {
		return Metadata{}, err
	}
	if err := playability(pr); err != nil {
		return Metadata{}, err
	}
	if pr.VideoDetails == nil {
		return Metadata{}, fmt.Errorf("%w: player response without video details", model.ErrTransientNetwork)
	}

	d := pr.VideoDetails
	md := Metadata{
		VideoID:         model.VideoID(d.VideoID),
		Title:           d.Title,
		Channel:         d.Author,
		DurationSeconds: parseInt(d.LengthSeconds),
		Views:           parseInt(d.ViewCount),
		Description:     truncate(d.ShortDescription, descriptionLimit),
	}
	if md.VideoID == "" {
		md.VideoID = id
	}
	if pr.Microformat != nil {
		md.UploadDate = normalizeDate(pr.Microformat.PlayerMicroformatRenderer.UploadDate)
		if md.UploadDate == "" {
			md.UploadDate = normalizeDate(pr.Microformat.PlayerMicroformatRenderer.PublishDate)
		}
	}
	return md, nil
}

// FetchTranscript scrapes the watch page for caption tracks and downloads
// the best one. Manual captions are preferred over auto-generated.
func (c *Client) FetchTranscript(ctx context.Context, id model.VideoID) (Transcript, error) {
	if err := c.pace(ctx, transcriptDelay); err != nil {
		return Transcript{}, err
	}

	pr, err := c.fetchWatchPage(ctx, id)
	if err != nil {
		return Transcript{}, err
	}
	if err := playability(pr); err != nil {
		return Transcript{}, err
	}
	if pr.Captions == nil {
		return Transcript{}, fmt.Errorf("%w: transcripts disabled for video %s", model.ErrNotFound, id)
	}
	tracks := pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return Transcript{}, fmt.Errorf("%w: no caption tracks for video %s", model.ErrNotFound, id)
	}

	track := pickTrack(tracks, c.languages)
	text, err := c.fetchTimedText(ctx, track.BaseURL)
	if err != nil {
		return Transcript{}, err
	}
	if text == "" {
		return Transcript{}, fmt.Errorf("%w: empty transcript for video %s", model.ErrNotFound, id)
	}

	source := model.SourceCaptions
	if track.Kind == "asr" {
		source = model.SourceGenerated
	}
	return Transcript{Text: text, Language: track.LanguageCode, Source: source}, nil
}

func (c *Client) fetchPlayer(ctx context.Context, id model.VideoID) (*playerResponse, error) {
	payload, err := json.Marshal(newInnertubeRequest(id))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.playerURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.identities.Pick().apply(req)
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: player endpoint: %v", model.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("upstream call",
		"url", c.playerURL,
		"video", id,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, fmt.Errorf("player endpoint: %w", err)
	}

	var pr playerResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxWatchPage)).Decode(&pr); err != nil {
		return nil, fmt.Errorf("%w: decode player response: %v", model.ErrTransientNetwork, err)
	}
	return &pr, nil
}

func (c *Client) fetchWatchPage(ctx context.Context, id model.VideoID) (*playerResponse, error) {
	body, err := c.get(ctx, c.watchBase+string(id), maxWatchPage)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	idx := strings.Index(string(body), playerResponseMarker)
	if idx < 0 {
		// Consent walls and bot interstitials serve HTML without the
		// player response. Treat as temporary blocking.
		return nil, fmt.Errorf("%w: player response not found in watch page", model.ErrRateLimited)
	}
	raw := extractJSON(body[idx+len(playerResponseMarker):])
	if raw == nil {
		return nil, fmt.Errorf("%w: malformed player response", model.ErrTransientNetwork)
	}

	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("%w: decode player response: %v", model.ErrTransientNetwork, err)
	}
	return &pr, nil
}

func (c *Client) fetchTimedText(ctx context.Context, baseURL string) (string, error) {
	body, err := c.get(ctx, baseURL, maxTimedText)
	if err != nil {
		return "", fmt.Errorf("timedtext: %w", err)
	}

	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("%w: parse timedtext XML: %v", model.ErrTransientNetwork, err)
	}

	var sb strings.Builder
	for _, line := range tt.Lines {
		text := strings.TrimSpace(html.UnescapeString(line.Text))
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
	}
	return collapseSpace(sb.String()), nil
}

// get performs one identity-rotated GET. Session continuity cookies are
// attached when present; their absence is not an error.
func (c *Client) get(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	identity := c.identities.Pick()
	identity.apply(req)
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", model.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("upstream call",
		"url", url,
		"status", resp.StatusCode,
		"identity", identity.UserAgent,
		"elapsed", time.Since(start))

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

// classifyStatus maps HTTP status codes onto the error taxonomy.
func classifyStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return fmt.Errorf("%w: HTTP %d", model.ErrNotFound, code)
	case code == http.StatusTooManyRequests || code == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", model.ErrRateLimited, code)
	default:
		return fmt.Errorf("%w: HTTP %d", model.ErrTransientNetwork, code)
	}
}

// playability maps the player response status onto the error taxonomy.
func playability(pr *playerResponse) error {
	s := pr.PlayabilityStatus
	if s == nil || s.Status == "" || s.Status == "OK" {
		return nil
	}
	if s.Status == "ERROR" {
		return fmt.Errorf("%w: %s", model.ErrNotFound, reasonOr(s.Reason, "video unavailable"))
	}
	// LOGIN_REQUIRED and friends usually mean the client tripped a bot
	// check; a later attempt with a different identity can succeed.
	return fmt.Errorf("%w: playability %s: %s", model.ErrRateLimited, s.Status, s.Reason)
}

func reasonOr(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}

// pickTrack selects a caption track: manual in a preferred language, then
// auto-generated in a preferred language, then any English, then the first.
func pickTrack(tracks []captionTrack, langs []string) captionTrack {
	for _, lang := range langs {
		for _, t := range tracks {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t
			}
		}
	}
	for _, lang := range langs {
		for _, t := range tracks {
			if t.LanguageCode == lang {
				return t
			}
		}
	}
	for _, t := range tracks {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t
		}
	}
	return tracks[0]
}

// extractJSON returns the first balanced JSON object at the start of data.
func extractJSON(data []byte) []byte {
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	depth := 0
	inString := false
	escaped := false
	for i, b := range data {
		if escaped {
			escaped = false
			continue
		}
		switch b {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return data[:i+1]
				}
			}
		}
	}
	return nil
}

var spaceRE = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// normalizeDate converts YYYYMMDD to YYYY-MM-DD; dashed dates pass through.
func normalizeDate(s string) string {
	if len(s) == 8 {
		if _, err := strconv.Atoi(s); err == nil {
			return s[:4] + "-" + s[4:6] + "-" + s[6:]
		}
	}
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}
