package botlog

import (
	"context"
	"io"
	"time"
)

// BlobStore abstracts the destination object store. Keys are slash-separated
// paths; Put overwrites with last-write-wins semantics.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
	GetObject(ctx context.Context, path string) ([]byte, error)
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// FileSource yields remote log files as byte streams keyed by filename.
// Transport and authentication are the implementation's concern.
type FileSource interface {
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// SummaryStore persists daily summaries and doubles as the processed-dates
// ledger. PutDaily must atomically replace the whole partial for the
// summary's date so that re-processing a date overwrites rather than adds.
type SummaryStore interface {
	PutDaily(ctx context.Context, summary DailySummary) error
	GetDaily(ctx context.Context, date time.Time) (DailySummary, bool, error)
	ListDates(ctx context.Context) ([]time.Time, error)
}

// Publisher emits fire-and-forget pipeline events (file synced, date
// processed, report requested).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
