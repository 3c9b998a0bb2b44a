package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tubescribe/tubescribe/model"
	"github.com/tubescribe/tubescribe/pipeline"
)

type stubReader struct {
	entries []Entry
	err     error
	read    []int64
}

func (s *stubReader) Unread() ([]Entry, error) {
	return s.entries, s.err
}

func (s *stubReader) MarkRead(entryID int64) error {
	s.read = append(s.read, entryID)
	return nil
}

type stubSubmitter struct {
	refs [][]string
}

func (s *stubSubmitter) SubmitBatch(ctx context.Context, tc model.TenantContext, refs []string, opts pipeline.SubmitOptions) *pipeline.Batch {
	s.refs = append(s.refs, refs)
	return &pipeline.Batch{}
}

func newTestRunner(reader Reader, submitter Submitter) *Runner {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(reader, submitter, model.TenantContext{}, time.Minute, logger)
}

func TestPollSubmitsAndMarksRead(t *testing.T) {
	reader := &stubReader{entries: []Entry{
		{EntryID: 1, URL: "https://www.youtube.com/watch?v=aaaaaaaaaaa"},
		{EntryID: 2, URL: "https://www.youtube.com/watch?v=bbbbbbbbbbb"},
	}}
	submitter := &stubSubmitter{}

	newTestRunner(reader, submitter).poll(context.Background())

	require.Len(t, submitter.refs, 1)
	require.Equal(t, []string{
		"https://www.youtube.com/watch?v=aaaaaaaaaaa",
		"https://www.youtube.com/watch?v=bbbbbbbbbbb",
	}, submitter.refs[0])
	require.Equal(t, []int64{1, 2}, reader.read)
}

func TestPollSkipsOnReaderError(t *testing.T) {
	reader := &stubReader{err: errors.New("connection refused")}
	submitter := &stubSubmitter{}

	newTestRunner(reader, submitter).poll(context.Background())

	require.Empty(t, submitter.refs)
	require.Empty(t, reader.read)
}

func TestPollNoEntries(t *testing.T) {
	reader := &stubReader{}
	submitter := &stubSubmitter{}

	newTestRunner(reader, submitter).poll(context.Background())

	require.Empty(t, submitter.refs)
}
