package api_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/llmlogs/botwatch/internal/api"
	"github.com/llmlogs/botwatch/internal/botlog"
	"github.com/llmlogs/botwatch/internal/pipeline"
	publishermem "github.com/llmlogs/botwatch/internal/publisher/memory"
	sourcemem "github.com/llmlogs/botwatch/internal/source/memory"
	storagemem "github.com/llmlogs/botwatch/internal/storage/memory"
	summaryblob "github.com/llmlogs/botwatch/internal/summary/blob"
)

const sampleLine = `1.2.3.4 example.com - [01/Oct/2025:14:30:00 +0000] "GET /a/ HTTP/1.1" 200 5123 ` +
	`"https://example.com/" "Mozilla/5.0 AppleWebKit/537.36; compatible; ChatGPT-User/1.0; +https://openai.com/bot" ` +
	`| TLSv1.3 | 0.01 0.01 0.01 MISS 0 NC:000000 UP:-`

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type fixture struct {
	server    *api.Server
	source    *sourcemem.Source
	blobs     *storagemem.BlobStore
	publisher *publishermem.Publisher
	pipeline  *pipeline.Pipeline
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	source := sourcemem.NewSource()
	blobs := storagemem.NewBlobStore()
	summaries, err := summaryblob.New(blobs)
	require.NoError(t, err)
	publisher := publishermem.New()

	catalog, err := botlog.NewCatalog([]botlog.Signature{
		{BotName: "ChatGPT-User", MatchType: botlog.MatchUserAgentRegex, Pattern: `ChatGPT-User`, IsLLM: true},
	})
	require.NoError(t, err)
	template, err := botlog.NewTemplate("access.log.{date}.gz")
	require.NoError(t, err)

	clock := fixedClock{now: now}
	p, err := pipeline.New(source, blobs, summaries, catalog, publisher, clock, zap.NewNop(), pipeline.Config{
		Template: template,
		MaxDays:  30,
		DaysBack: 30,
	})
	require.NoError(t, err)

	return &fixture{
		server:    api.NewServer(p, clock, zap.NewNop()),
		source:    source,
		blobs:     blobs,
		publisher: publisher,
		pipeline:  p,
	}
}

func gzipBytes(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func doRequest(t *testing.T, f *fixture, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2025, 10, 2, 6, 0, 0, 0, time.UTC))

	rec := doRequest(t, f, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = doRequest(t, f, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2025, 10, 2, 6, 0, 0, 0, time.UTC))
	rec := doRequest(t, f, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSyncEndpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2025, 10, 2, 6, 0, 0, 0, time.UTC))
	f.source.Add("access.log.2025-10-01.gz", gzipBytes(t, sampleLine+"\n"))

	rec := doRequest(t, f, http.MethodPost, "/v1/sync")
	require.Equal(t, http.StatusOK, rec.Code)

	var result pipeline.SyncResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []string{"access.log.2025-10-01.gz"}, result.Synced)
}

func TestProcessEndpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2025, 10, 2, 6, 0, 0, 0, time.UTC))
	ctx := context.Background()
	_, err := f.blobs.PutObject(ctx, "raw/date=2025-10-01/access.log.2025-10-01.gz", "application/gzip", gzipBytes(t, sampleLine+"\n"))
	require.NoError(t, err)

	rec := doRequest(t, f, http.MethodPost, "/v1/process/2025-10-01")
	require.Equal(t, http.StatusOK, rec.Code)

	var result pipeline.ProcessResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "2025-10-01", result.Date)
	assert.Equal(t, int64(1), result.ClassifiedHits)
}

func TestProcessEndpointRejectsBadDate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2025, 10, 2, 6, 0, 0, 0, time.UTC))
	rec := doRequest(t, f, http.MethodPost, "/v1/process/october-1st")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBuildAndGetReport(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 10, 3, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	ctx := context.Background()
	_, err := f.blobs.PutObject(ctx, "raw/date=2025-10-01/access.log.2025-10-01.gz", "application/gzip", gzipBytes(t, sampleLine+"\n"))
	require.NoError(t, err)
	_, err = f.pipeline.ProcessDate(ctx, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	rec := doRequest(t, f, http.MethodPost, "/v1/reports")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, f, http.MethodGet, "/v1/reports/2025-10-03")
	require.Equal(t, http.StatusOK, rec.Code)

	var report botlog.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "2025-10-03T08:00:00Z", report.GeneratedAt)
}

func TestGetReportMissingReturnsPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2025, 10, 3, 8, 0, 0, 0, time.UTC))

	rec := doRequest(t, f, http.MethodGet, "/v1/reports/2025-10-03")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "pending", body["status"])

	topics := f.publisher.Topics()
	require.Len(t, topics, 1)
	assert.Equal(t, pipeline.TopicReportRequest, topics[0])
}

func TestRequestIDInResponseAndLogs(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 10, 3, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	core, logs := observer.New(zap.InfoLevel)
	srv := api.NewServer(f.pipeline, fixedClock{now: now}, zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	reqID := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, reqID)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, reqID, entries[0].ContextMap()["request_id"])
}
