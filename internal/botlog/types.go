// Package botlog contains the core types and algorithms for classifying
// crawler traffic in web-server access logs and aggregating it into daily
// and cumulative statistics.
package botlog

import (
	"sort"
	"time"
)

// DateLayout is the canonical date format used in filenames, storage keys
// and report documents.
const DateLayout = "2006-01-02"

// RemoteFile describes one log file on the remote host that is a candidate
// for synchronization.
type RemoteFile struct {
	Name       string
	RemotePath string
	Date       time.Time // UTC midnight of the date parsed from the filename
}

// LogRecord is one parsed access-log line.
type LogRecord struct {
	ClientIP    string
	VHost       string
	Timestamp   time.Time // normalized to UTC
	Method      string
	Path        string
	Protocol    string
	Status      int
	BytesSent   int64 // -1 when the field was present but unparsable
	Referrer    string
	UserAgent   string
	TLSVersion  string
	Timings     [3]float64 // request/upstream/response seconds, -1 when absent
	CacheStatus string
	Extras      []string // raw trailer tokens past the cache status
}

// Date returns the UTC calendar date of the record.
func (r LogRecord) Date() time.Time {
	return r.Timestamp.UTC().Truncate(24 * time.Hour)
}

// MatchType selects how a signature pattern is applied to a record.
type MatchType string

// Supported signature match types.
const (
	MatchUserAgentRegex MatchType = "user_agent_regex"
	MatchIPCIDR         MatchType = "ip_cidr"
)

// Signature is one entry of the bot signature catalog. Catalog order is
// match precedence: the first signature that matches a record wins.
type Signature struct {
	BotName   string    `json:"bot_name"`
	MatchType MatchType `json:"match_type"`
	Pattern   string    `json:"pattern"`
	IsLLM     bool      `json:"is_llm"`
}

// Classification is the outcome of matching one record against the catalog.
// The zero value means "no signature matched".
type Classification struct {
	BotName string
	IsLLM   bool
}

// IsBot reports whether the record matched any signature.
func (c Classification) IsBot() bool {
	return c.BotName != ""
}

// ClassifiedRecord pairs a parsed record with its classification.
type ClassifiedRecord struct {
	LogRecord
	Classification
}

// BotDaily is the per-bot slice of a DailySummary.
type BotDaily struct {
	BotName   string           `json:"bot_name"`
	IsLLM     bool             `json:"is_llm"`
	TotalHits int64            `json:"total_hits"`
	UniqueIPs int              `json:"unique_ips"`
	PathHits  map[string]int64 `json:"path_hits"`
}

// DailySummary is the aggregate for one calendar date. It is derived purely
// from that date's classified records, so re-deriving it from the same input
// yields an identical value. Bots are sorted by name to keep the serialized
// form deterministic.
type DailySummary struct {
	Date           string     `json:"date"`
	AllRequests    int64      `json:"all_requests"`
	MalformedLines int64      `json:"malformed_lines"`
	Bots           []BotDaily `json:"bots"`
}

// Bot returns the entry for the named bot, if present.
func (s DailySummary) Bot(name string) (BotDaily, bool) {
	for _, b := range s.Bots {
		if b.BotName == name {
			return b, true
		}
	}
	return BotDaily{}, false
}

// ClassifiedHits is the total number of bot-attributed requests in the summary.
func (s DailySummary) ClassifiedHits() int64 {
	var n int64
	for _, b := range s.Bots {
		n += b.TotalHits
	}
	return n
}

// Cumulative holds all-time (bot, path) hit totals. It is never mutated in
// place across invocations; it is recomputed by folding stored per-date
// summaries, which makes repeated processing of a date naturally idempotent.
type Cumulative struct {
	hits  map[string]map[string]int64
	isLLM map[string]bool
}

// NewCumulative returns an empty Cumulative.
func NewCumulative() *Cumulative {
	return &Cumulative{
		hits:  make(map[string]map[string]int64),
		isLLM: make(map[string]bool),
	}
}

// AddDaily folds one daily summary into the totals. Folding summaries for
// distinct dates is commutative and associative; the caller guarantees each
// date contributes at most once by sourcing summaries from the ledger.
func (c *Cumulative) AddDaily(s DailySummary) {
	for _, b := range s.Bots {
		paths := c.hits[b.BotName]
		if paths == nil {
			paths = make(map[string]int64)
			c.hits[b.BotName] = paths
		}
		for p, n := range b.PathHits {
			paths[p] += n
		}
		c.isLLM[b.BotName] = b.IsLLM
	}
}

// Hits returns the stored total for a (bot, path) pair.
func (c *Cumulative) Hits(bot, path string) int64 {
	return c.hits[bot][path]
}

// Bots returns the bot names present in the totals, sorted.
func (c *Cumulative) Bots() []string {
	names := make([]string, 0, len(c.hits))
	for name := range c.hits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Paths returns the paths recorded for a bot, sorted.
func (c *Cumulative) Paths(bot string) []string {
	paths := make([]string, 0, len(c.hits[bot]))
	for p := range c.hits[bot] {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// IsLLM reports whether the bot was tagged as an LLM crawler.
func (c *Cumulative) IsLLM(bot string) bool {
	return c.isLLM[bot]
}

// Report is the JSON document consumed by the external rendering surface.
// Field names and nesting are stable; a separate renderer depends on them.
type Report struct {
	GeneratedAt string        `json:"generated_at"`
	Window      ReportWindow  `json:"window"`
	Overall     ReportOverall `json:"overall"`
	Bots        []BotReport   `json:"bots"`
}

// ReportWindow is the inclusive date range the report covers.
type ReportWindow struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ReportOverall carries the report-wide totals.
type ReportOverall struct {
	TotalRequests int64 `json:"total_requests"`
	UniqueBots    int   `json:"unique_bots"`
	UniquePaths   int   `json:"unique_paths"`
}

// BotReport is the per-bot section of a Report.
type BotReport struct {
	BotName       string       `json:"bot_name"`
	IsLLM         bool         `json:"is_llm"`
	TotalRequests int64        `json:"total_requests"`
	DailyRequests []DailyCount `json:"daily_requests"`
	TopPaths      []PathCount  `json:"top_paths"`
}

// DailyCount is one point of a bot's per-day time series.
type DailyCount struct {
	Date     string `json:"date"`
	Requests int64  `json:"requests"`
}

// PathCount is one entry of a bot's top-paths list.
type PathCount struct {
	Path     string `json:"path"`
	Requests int64  `json:"requests"`
}
