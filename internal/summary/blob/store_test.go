package blob_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmlogs/botwatch/internal/botlog"
	"github.com/llmlogs/botwatch/internal/storage/memory"
	"github.com/llmlogs/botwatch/internal/summary/blob"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := blob.New(memory.NewBlobStore())
	require.NoError(t, err)
	ctx := context.Background()

	summary := botlog.DailySummary{
		Date:        "2025-10-01",
		AllRequests: 4,
		Bots: []botlog.BotDaily{
			{BotName: "GPTBot", IsLLM: true, TotalHits: 2, UniqueIPs: 1, PathHits: map[string]int64{"/a/": 2}},
		},
	}
	require.NoError(t, store.PutDaily(ctx, summary))

	date := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	got, ok, err := store.GetDaily(ctx, date)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, summary, got)
}

func TestStoreOverwritesDate(t *testing.T) {
	t.Parallel()

	store, err := blob.New(memory.NewBlobStore())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.PutDaily(ctx, botlog.DailySummary{Date: "2025-10-01", AllRequests: 10}))
	require.NoError(t, store.PutDaily(ctx, botlog.DailySummary{Date: "2025-10-01", AllRequests: 3}))

	got, ok, err := store.GetDaily(ctx, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3), got.AllRequests)

	dates, err := store.ListDates(ctx)
	require.NoError(t, err)
	assert.Len(t, dates, 1)
}

func TestStoreMissingDate(t *testing.T) {
	t.Parallel()

	store, err := blob.New(memory.NewBlobStore())
	require.NoError(t, err)

	_, ok, err := store.GetDaily(context.Background(), time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreListDatesSorted(t *testing.T) {
	t.Parallel()

	blobs := memory.NewBlobStore()
	store, err := blob.New(blobs)
	require.NoError(t, err)
	ctx := context.Background()

	for _, d := range []string{"2025-10-03", "2025-10-01", "2025-10-02"} {
		require.NoError(t, store.PutDaily(ctx, botlog.DailySummary{Date: d}))
	}
	// Unrelated keys under the prefix are skipped.
	_, err = blobs.PutObject(ctx, "summaries/readme.txt", "", []byte("x"))
	require.NoError(t, err)

	dates, err := store.ListDates(ctx)
	require.NoError(t, err)
	require.Len(t, dates, 3)
	assert.Equal(t, "2025-10-01", dates[0].Format(botlog.DateLayout))
	assert.Equal(t, "2025-10-03", dates[2].Format(botlog.DateLayout))
}

func TestStoreRejectsEmptyDate(t *testing.T) {
	t.Parallel()

	store, err := blob.New(memory.NewBlobStore())
	require.NoError(t, err)
	assert.Error(t, store.PutDaily(context.Background(), botlog.DailySummary{}))
}
