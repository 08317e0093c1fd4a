// Package pipeline orchestrates the sync, process and report stages of the
// bot-log ETL.
package pipeline

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/llmlogs/botwatch/internal/botlog"
	"github.com/llmlogs/botwatch/internal/metrics"
)

// Event topics published as pipeline stages complete.
const (
	TopicFileSynced    = "log.file.synced"
	TopicDateProcessed = "log.date.processed"
	TopicReportRequest = "report.requested"
)

// storageRetries bounds attempts for blob store reads and writes before the
// invocation fails.
const storageRetries = 3

// Config carries the tunables for a Pipeline.
type Config struct {
	Template     botlog.Template
	MaxDays      int
	RawPrefix    string
	ParsedPrefix string
	ReportPrefix string

	DaysBack            int
	TopPaths            int
	IncludeUnclassified bool
}

// Pipeline wires the source, stores and publisher into the three ETL stages.
type Pipeline struct {
	source    botlog.FileSource
	blobs     botlog.BlobStore
	summaries botlog.SummaryStore
	catalog   *botlog.Catalog
	publisher botlog.Publisher
	clock     botlog.Clock
	logger    *zap.Logger
	cfg       Config
}

// New assembles a Pipeline from its dependencies.
func New(
	source botlog.FileSource,
	blobs botlog.BlobStore,
	summaries botlog.SummaryStore,
	catalog *botlog.Catalog,
	publisher botlog.Publisher,
	clock botlog.Clock,
	logger *zap.Logger,
	cfg Config,
) (*Pipeline, error) {
	if source == nil || blobs == nil || summaries == nil || catalog == nil ||
		publisher == nil || clock == nil || logger == nil {
		return nil, fmt.Errorf("all pipeline dependencies are required")
	}
	metrics.Init()
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = 30
	}
	if cfg.DaysBack <= 0 {
		cfg.DaysBack = 30
	}
	if cfg.RawPrefix == "" {
		cfg.RawPrefix = "raw"
	}
	if cfg.ParsedPrefix == "" {
		cfg.ParsedPrefix = "parsed"
	}
	if cfg.ReportPrefix == "" {
		cfg.ReportPrefix = "reports"
	}
	return &Pipeline{
		source:    source,
		blobs:     blobs,
		summaries: summaries,
		catalog:   catalog,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		cfg:       cfg,
	}, nil
}

// SyncResult reports the outcome of one sync invocation.
type SyncResult struct {
	InvocationID string   `json:"invocation_id"`
	Candidates   int      `json:"candidates"`
	Skipped      int      `json:"skipped"`
	Synced       []string `json:"synced"`
	Failed       []string `json:"failed"`
}

// ProcessResult reports the outcome of processing one date.
type ProcessResult struct {
	InvocationID     string `json:"invocation_id"`
	Date             string `json:"date"`
	Files            int    `json:"files"`
	ParsedLines      int64  `json:"parsed_lines"`
	MalformedLines   int64  `json:"malformed_lines"`
	ClassifiedHits   int64  `json:"classified_hits"`
	UnclassifiedHits int64  `json:"unclassified_hits"`
	Bots             int    `json:"bots"`
}

// ReportResult reports the outcome of one report build.
type ReportResult struct {
	InvocationID  string `json:"invocation_id"`
	ReportURI     string `json:"report_uri"`
	CumulativeURI string `json:"cumulative_uri"`
	Dates         int    `json:"dates"`
}

func (p *Pipeline) rawKey(date, name string) string {
	return fmt.Sprintf("%s/date=%s/%s", p.cfg.RawPrefix, date, name)
}

func (p *Pipeline) rawDatePrefix(date string) string {
	return fmt.Sprintf("%s/date=%s/", p.cfg.RawPrefix, date)
}

// SyncNewFiles pulls rotated log files that have not been copied into the
// blob store yet. A failure on one file does not abort the rest; a listing
// failure does.
func (p *Pipeline) SyncNewFiles(ctx context.Context) (SyncResult, error) {
	start := time.Now()
	result := SyncResult{InvocationID: uuid.NewString()}
	logger := p.logger.With(zap.String("invocation_id", result.InvocationID))

	listing, err := p.source.List(ctx)
	if err != nil {
		metrics.ObserveRun("sync", "error", time.Since(start))
		return result, fmt.Errorf("list source: %w", err)
	}
	stored, err := p.listWithRetry(ctx, p.cfg.RawPrefix+"/")
	if err != nil {
		metrics.ObserveRun("sync", "error", time.Since(start))
		return result, fmt.Errorf("list stored objects: %w", err)
	}

	existing := botlog.ExistingNames(stored)
	today := p.clock.Now().UTC().Truncate(24 * time.Hour)
	candidates := botlog.Candidates(listing, p.cfg.Template, existing, today, p.cfg.MaxDays)
	result.Candidates = len(candidates)
	result.Skipped = len(listing) - len(candidates)
	logger.Info("sync starting",
		zap.Int("listed", len(listing)),
		zap.Int("candidates", len(candidates)),
		zap.Int("skipped", result.Skipped))

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			metrics.ObserveRun("sync", "error", time.Since(start))
			return result, fmt.Errorf("sync aborted: %w", err)
		}
		if err := p.syncOne(ctx, candidate); err != nil {
			logger.Warn("sync file failed",
				zap.String("file", candidate.Name),
				zap.Error(err))
			metrics.ObserveFileSynced("error")
			result.Failed = append(result.Failed, candidate.Name)
			continue
		}
		metrics.ObserveFileSynced("ok")
		result.Synced = append(result.Synced, candidate.Name)
	}

	status := "ok"
	if len(result.Failed) > 0 {
		status = "partial"
	}
	metrics.ObserveRun("sync", status, time.Since(start))
	logger.Info("sync finished",
		zap.Int("synced", len(result.Synced)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

func (p *Pipeline) syncOne(ctx context.Context, file botlog.RemoteFile) error {
	rc, err := p.source.Open(ctx, file.Name)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	data, err := io.ReadAll(rc)
	closeErr := rc.Close()
	if err != nil {
		return fmt.Errorf("read source file: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close source file: %w", closeErr)
	}

	contentType := "text/plain"
	if strings.HasSuffix(file.Name, ".gz") {
		contentType = "application/gzip"
	}
	date := file.Date.Format(botlog.DateLayout)
	key := p.rawKey(date, file.Name)
	uri, err := p.putWithRetry(ctx, key, contentType, data)
	if err != nil {
		return fmt.Errorf("store raw file: %w", err)
	}

	payload := map[string]string{
		"file": file.Name,
		"date": date,
		"uri":  uri,
	}
	if _, err := p.publisher.Publish(ctx, TopicFileSynced, payload); err != nil {
		// The copy already landed; notification loss is tolerable.
		p.logger.Warn("publish sync event failed", zap.String("file", file.Name), zap.Error(err))
	}
	return nil
}

// ProcessDate derives the daily summary and parsed artifacts for one date.
// Re-processing a date replaces its results. A date with no raw files still
// commits an empty summary so the date counts as processed.
func (p *Pipeline) ProcessDate(ctx context.Context, date time.Time) (ProcessResult, error) {
	start := time.Now()
	day := date.UTC().Truncate(24 * time.Hour)
	dateStr := day.Format(botlog.DateLayout)
	result := ProcessResult{InvocationID: uuid.NewString(), Date: dateStr}
	logger := p.logger.With(
		zap.String("invocation_id", result.InvocationID),
		zap.String("date", dateStr))

	keys, err := p.listWithRetry(ctx, p.rawDatePrefix(dateStr))
	if err != nil {
		metrics.ObserveRun("process", "error", time.Since(start))
		return result, fmt.Errorf("list raw files: %w", err)
	}
	result.Files = len(keys)

	var records []botlog.ClassifiedRecord
	var malformed int64
	for _, key := range keys {
		parsed, bad, err := p.readLogObject(ctx, key)
		if err != nil {
			metrics.ObserveRun("process", "error", time.Since(start))
			return result, fmt.Errorf("read %s: %w", key, err)
		}
		malformed += bad
		for _, rec := range parsed {
			records = append(records, botlog.ClassifiedRecord{
				LogRecord:      rec,
				Classification: p.catalog.Classify(rec),
			})
		}
	}

	summary := botlog.Summarize(dateStr, records, malformed)
	result.ParsedLines = int64(len(records))
	result.MalformedLines = malformed
	result.ClassifiedHits = summary.ClassifiedHits()
	result.UnclassifiedHits = result.ParsedLines - result.ClassifiedHits
	result.Bots = len(summary.Bots)

	metrics.ObserveLines(result.ParsedLines, malformed)
	for _, bot := range summary.Bots {
		metrics.ObserveBotHits(bot.BotName, bot.TotalHits)
	}

	if err := p.writeParsedArtifacts(ctx, dateStr, records, summary); err != nil {
		metrics.ObserveRun("process", "error", time.Since(start))
		return result, err
	}
	if err := p.summaries.PutDaily(ctx, summary); err != nil {
		metrics.ObserveRun("process", "error", time.Since(start))
		return result, fmt.Errorf("store daily summary: %w", err)
	}

	payload := map[string]any{
		"date":            dateStr,
		"files":           result.Files,
		"parsed_lines":    result.ParsedLines,
		"malformed_lines": result.MalformedLines,
	}
	if _, err := p.publisher.Publish(ctx, TopicDateProcessed, payload); err != nil {
		p.logger.Warn("publish process event failed", zap.String("date", dateStr), zap.Error(err))
	}

	metrics.ObserveRun("process", "ok", time.Since(start))
	logger.Info("date processed",
		zap.Int("files", result.Files),
		zap.Int64("parsed_lines", result.ParsedLines),
		zap.Int64("malformed_lines", result.MalformedLines),
		zap.Int64("classified_hits", result.ClassifiedHits))
	return result, nil
}

func (p *Pipeline) readLogObject(ctx context.Context, key string) ([]botlog.LogRecord, int64, error) {
	data, err := p.getWithRetry(ctx, key)
	if err != nil {
		return nil, 0, err
	}

	var reader io.Reader = bytes.NewReader(data)
	if strings.HasSuffix(key, ".gz") {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, 0, fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close() //nolint:errcheck // read errors surface via the scanner
		reader = gz
	}

	var records []botlog.LogRecord
	var malformed int64
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := botlog.ParseLine(line)
		if err != nil {
			if errors.Is(err, botlog.ErrMalformedLine) {
				malformed++
				continue
			}
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan lines: %w", err)
	}
	return records, malformed, nil
}

func (p *Pipeline) writeParsedArtifacts(ctx context.Context, date string, records []botlog.ClassifiedRecord, summary botlog.DailySummary) error {
	raw := make([]botlog.LogRecord, len(records))
	for i, rec := range records {
		raw[i] = rec.LogRecord
	}
	parsedCSV, err := botlog.ParsedCSV(raw)
	if err != nil {
		return fmt.Errorf("render parsed csv: %w", err)
	}
	key := fmt.Sprintf("%s/date=%s/records.csv", p.cfg.ParsedPrefix, date)
	if _, err := p.putWithRetry(ctx, key, "text/csv", parsedCSV); err != nil {
		return fmt.Errorf("store parsed csv: %w", err)
	}

	hitsCSV, err := botlog.DailyHitsCSV(summary)
	if err != nil {
		return fmt.Errorf("render daily hits csv: %w", err)
	}
	key = fmt.Sprintf("%s/date=%s/bot-hits.csv", p.cfg.ParsedPrefix, date)
	if _, err := p.putWithRetry(ctx, key, "text/csv", hitsCSV); err != nil {
		return fmt.Errorf("store daily hits csv: %w", err)
	}
	return nil
}

// BuildReport assembles the windowed JSON report and the cumulative CSV from
// the stored daily summaries.
func (p *Pipeline) BuildReport(ctx context.Context, asOf time.Time) (ReportResult, error) {
	start := time.Now()
	day := asOf.UTC().Truncate(24 * time.Hour)
	result := ReportResult{InvocationID: uuid.NewString()}
	logger := p.logger.With(
		zap.String("invocation_id", result.InvocationID),
		zap.String("as_of", day.Format(botlog.DateLayout)))

	dates, err := p.summaries.ListDates(ctx)
	if err != nil {
		metrics.ObserveRun("report", "error", time.Since(start))
		return result, fmt.Errorf("list processed dates: %w", err)
	}

	summaries := make([]botlog.DailySummary, 0, len(dates))
	for _, date := range dates {
		summary, ok, err := p.summaries.GetDaily(ctx, date)
		if err != nil {
			metrics.ObserveRun("report", "error", time.Since(start))
			return result, fmt.Errorf("load summary for %s: %w", date.Format(botlog.DateLayout), err)
		}
		if !ok {
			continue
		}
		summaries = append(summaries, summary)
	}
	result.Dates = len(summaries)

	opts := botlog.ReportOptions{
		From:                day.AddDate(0, 0, -p.cfg.DaysBack).Format(botlog.DateLayout),
		To:                  day.Format(botlog.DateLayout),
		TopPaths:            p.cfg.TopPaths,
		IncludeUnclassified: p.cfg.IncludeUnclassified,
	}
	report := botlog.BuildReport(summaries, p.clock.Now(), opts)
	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		metrics.ObserveRun("report", "error", time.Since(start))
		return result, fmt.Errorf("marshal report: %w", err)
	}

	reportKey := path.Join(p.cfg.ReportPrefix, fmt.Sprintf("bot-report-%s.json", day.Format(botlog.DateLayout)))
	uri, err := p.putWithRetry(ctx, reportKey, "application/json", reportJSON)
	if err != nil {
		metrics.ObserveRun("report", "error", time.Since(start))
		return result, fmt.Errorf("store report: %w", err)
	}
	result.ReportURI = uri

	cumulativeCSV, err := botlog.CumulativeCSV(botlog.Merge(summaries))
	if err != nil {
		metrics.ObserveRun("report", "error", time.Since(start))
		return result, fmt.Errorf("render cumulative csv: %w", err)
	}
	uri, err = p.putWithRetry(ctx, path.Join(p.cfg.ReportPrefix, "cumulative.csv"), "text/csv", cumulativeCSV)
	if err != nil {
		metrics.ObserveRun("report", "error", time.Since(start))
		return result, fmt.Errorf("store cumulative csv: %w", err)
	}
	result.CumulativeURI = uri

	metrics.ObserveRun("report", "ok", time.Since(start))
	logger.Info("report built",
		zap.Int("dates", result.Dates),
		zap.String("report_uri", result.ReportURI))
	return result, nil
}

// GetReport fetches a stored report document by its as-of date.
func (p *Pipeline) GetReport(ctx context.Context, asOf time.Time) ([]byte, error) {
	day := asOf.UTC().Truncate(24 * time.Hour)
	key := path.Join(p.cfg.ReportPrefix, fmt.Sprintf("bot-report-%s.json", day.Format(botlog.DateLayout)))
	return p.getWithRetry(ctx, key)
}

// RequestReport publishes an asynchronous report build request.
func (p *Pipeline) RequestReport(ctx context.Context, asOf time.Time) (string, error) {
	payload := map[string]string{
		"as_of": asOf.UTC().Format(botlog.DateLayout),
	}
	return p.publisher.Publish(ctx, TopicReportRequest, payload)
}

func (p *Pipeline) putWithRetry(ctx context.Context, key, contentType string, data []byte) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= storageRetries; attempt++ {
		uri, err := p.blobs.PutObject(ctx, key, contentType, data)
		if err == nil {
			return uri, nil
		}
		lastErr = err
		if !p.retryWait(ctx, attempt) {
			return "", lastErr
		}
	}
	return "", lastErr
}

func (p *Pipeline) getWithRetry(ctx context.Context, key string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= storageRetries; attempt++ {
		data, err := p.blobs.GetObject(ctx, key)
		if err == nil {
			return data, nil
		}
		// Absence is an answer, not a transient fault.
		if errors.Is(err, botlog.ErrObjectNotFound) {
			return nil, err
		}
		lastErr = err
		if !p.retryWait(ctx, attempt) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (p *Pipeline) listWithRetry(ctx context.Context, prefix string) ([]string, error) {
	var lastErr error
	for attempt := 1; attempt <= storageRetries; attempt++ {
		keys, err := p.blobs.ListObjects(ctx, prefix)
		if err == nil {
			return keys, nil
		}
		lastErr = err
		if !p.retryWait(ctx, attempt) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// retryWait sleeps before the next storage attempt. It reports false when the
// context is cancelled and the caller should give up.
func (p *Pipeline) retryWait(ctx context.Context, attempt int) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		return true
	}
}
