// Package fetcher retrieves video metadata and transcripts from an
// upstream that actively rate-limits automated access. Every call rotates
// its request identity and paces itself with a randomized pre-call delay.
// The fetcher never retries; the retry controller wraps it.
package fetcher

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tubescribe/tubescribe/model"
)

// Metadata is what a single metadata fetch yields.
type Metadata struct {
	VideoID         model.VideoID
	Title           string
	Channel         string
	DurationSeconds int64
	UploadDate      string // YYYY-MM-DD
	Views           int64
	Description     string
}

// Transcript is what a single transcript fetch yields.
type Transcript struct {
	Text     string
	Language string
	Source   model.TranscriptSource
}

type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, id model.VideoID) (Metadata, error)
}

type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, id model.VideoID) (Transcript, error)
}

// delayWindow is a uniform random pre-call wait, in time units, emulating
// human request cadence.
type delayWindow struct {
	min, max float64
}

var (
	metadataDelay   = delayWindow{3, 7}
	transcriptDelay = delayWindow{5, 10}
)

// Client fetches from YouTube without an API key. Safe for concurrent use.
type Client struct {
	http       *http.Client
	identities *IdentityPool
	cookies    []*http.Cookie
	limiter    *rate.Limiter
	unit       time.Duration
	languages  []string
	logger     *slog.Logger
	sleep      func(context.Context, time.Duration) error

	playerURL string
	watchBase string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCookies attaches session continuity data to every request. Without
// it the client fetches unauthenticated, which is a valid degraded state.
func WithCookies(cookies []*http.Cookie) Option {
	return func(c *Client) { c.cookies = cookies }
}

// WithLimiter caps the outbound request rate across all workers sharing
// this client.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithDelayUnit scales the pre-call delay windows. The default unit is one
// second; tests pass 0 to disable pacing.
func WithDelayUnit(unit time.Duration) Option {
	return func(c *Client) { c.unit = unit }
}

func WithIdentities(pool *IdentityPool) Option {
	return func(c *Client) { c.identities = pool }
}

func WithLanguages(langs []string) Option {
	return func(c *Client) { c.languages = langs }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// withEndpoints redirects upstream URLs. Test hook.
func withEndpoints(playerURL, watchBase string) Option {
	return func(c *Client) {
		c.playerURL = playerURL
		c.watchBase = watchBase
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		identities: NewIdentityPool(),
		unit:       time.Second,
		languages:  []string{"en", "en-US", "en-GB"},
		logger:     slog.Default(),
		sleep:      sleepCtx,
		playerURL:  ytPlayerURL,
		watchBase:  ytWatchBase,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pace applies the pre-call delay and the shared rate limit. The wait is a
// suspension point: no lock is held across it.
func (c *Client) pace(ctx context.Context, w delayWindow) error {
	if c.unit > 0 {
		d := time.Duration((w.min + rand.Float64()*(w.max-w.min)) * float64(c.unit))
		if err := c.sleep(ctx, d); err != nil {
			return err
		}
	}
	if c.limiter != nil {
		return c.limiter.Wait(ctx)
	}
	return nil
}
