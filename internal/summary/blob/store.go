// Package blob persists daily summaries as JSON documents in a BlobStore.
package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/llmlogs/botwatch/internal/botlog"
)

const summaryPrefix = "summaries/"

// Store keeps one JSON document per processed date under summaries/.
type Store struct {
	blobs botlog.BlobStore
}

// New creates a blob-backed summary store.
func New(blobs botlog.BlobStore) (*Store, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	return &Store{blobs: blobs}, nil
}

func summaryKey(date string) string {
	return fmt.Sprintf("%sdate=%s.json", summaryPrefix, date)
}

// PutDaily overwrites the document for the summary's date.
func (s *Store) PutDaily(ctx context.Context, summary botlog.DailySummary) error {
	if summary.Date == "" {
		return fmt.Errorf("summary date is required")
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if _, err := s.blobs.PutObject(ctx, summaryKey(summary.Date), "application/json", data); err != nil {
		return fmt.Errorf("put summary: %w", err)
	}
	return nil
}

// GetDaily loads the summary for the given date. The second return value
// reports whether the date has been processed.
func (s *Store) GetDaily(ctx context.Context, date time.Time) (botlog.DailySummary, bool, error) {
	data, err := s.blobs.GetObject(ctx, summaryKey(date.Format(botlog.DateLayout)))
	if err != nil {
		if errors.Is(err, botlog.ErrObjectNotFound) {
			return botlog.DailySummary{}, false, nil
		}
		return botlog.DailySummary{}, false, fmt.Errorf("get summary: %w", err)
	}
	var summary botlog.DailySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return botlog.DailySummary{}, false, fmt.Errorf("unmarshal summary: %w", err)
	}
	return summary, true, nil
}

// ListDates returns every processed date, ascending.
func (s *Store) ListDates(ctx context.Context) ([]time.Time, error) {
	keys, err := s.blobs.ListObjects(ctx, summaryPrefix)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	var dates []time.Time
	for _, key := range keys {
		name := path.Base(key)
		name = strings.TrimPrefix(name, "date=")
		name = strings.TrimSuffix(name, ".json")
		date, err := time.ParseInLocation(botlog.DateLayout, name, time.UTC)
		if err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}
