package botlog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// ReportOptions controls report assembly.
type ReportOptions struct {
	// From and To bound the window (inclusive, YYYY-MM-DD).
	From string
	To   string
	// TopPaths truncates each bot's path list. Zero means the default of 20.
	TopPaths int
	// IncludeUnclassified counts non-bot traffic toward
	// overall.total_requests. Bot sections are unaffected either way.
	IncludeUnclassified bool
}

const defaultTopPaths = 20

// BuildReport assembles the report document from stored daily summaries.
// Summaries outside the window are ignored. An empty input yields a valid
// zero report, which consumers must not confuse with "not yet processed" —
// absence of the report document itself carries that meaning.
func BuildReport(summaries []DailySummary, generatedAt time.Time, opts ReportOptions) Report {
	topN := opts.TopPaths
	if topN <= 0 {
		topN = defaultTopPaths
	}

	type botAcc struct {
		isLLM bool
		total int64
		daily map[string]int64
		paths map[string]int64
	}
	acc := make(map[string]*botAcc)

	var overallTotal int64
	overallPaths := make(map[string]struct{})

	for _, s := range summaries {
		if !inWindow(s.Date, opts.From, opts.To) {
			continue
		}
		if opts.IncludeUnclassified {
			overallTotal += s.AllRequests
		} else {
			overallTotal += s.ClassifiedHits()
		}
		for _, b := range s.Bots {
			a := acc[b.BotName]
			if a == nil {
				a = &botAcc{
					isLLM: b.IsLLM,
					daily: make(map[string]int64),
					paths: make(map[string]int64),
				}
				acc[b.BotName] = a
			}
			a.total += b.TotalHits
			a.daily[s.Date] += b.TotalHits
			for p, n := range b.PathHits {
				a.paths[p] += n
				overallPaths[p] = struct{}{}
			}
		}
	}

	bots := make([]BotReport, 0, len(acc))
	for name, a := range acc {
		bots = append(bots, BotReport{
			BotName:       name,
			IsLLM:         a.isLLM,
			TotalRequests: a.total,
			DailyRequests: dailySeries(a.daily),
			TopPaths:      topPaths(a.paths, topN),
		})
	}
	sort.Slice(bots, func(i, j int) bool {
		if bots[i].TotalRequests != bots[j].TotalRequests {
			return bots[i].TotalRequests > bots[j].TotalRequests
		}
		return bots[i].BotName < bots[j].BotName
	})

	return Report{
		GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
		Window:      ReportWindow{From: opts.From, To: opts.To},
		Overall: ReportOverall{
			TotalRequests: overallTotal,
			UniqueBots:    len(acc),
			UniquePaths:   len(overallPaths),
		},
		Bots: bots,
	}
}

func inWindow(date, from, to string) bool {
	if from != "" && date < from {
		return false
	}
	if to != "" && date > to {
		return false
	}
	return true
}

func dailySeries(daily map[string]int64) []DailyCount {
	out := make([]DailyCount, 0, len(daily))
	for d, n := range daily {
		out = append(out, DailyCount{Date: d, Requests: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// topPaths orders paths by descending hit count, ties broken by path
// lexical order so that identical inputs always serialize identically.
func topPaths(paths map[string]int64, n int) []PathCount {
	out := make([]PathCount, 0, len(paths))
	for p, c := range paths {
		out = append(out, PathCount{Path: p, Requests: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Requests != out[j].Requests {
			return out[i].Requests > out[j].Requests
		}
		return out[i].Path < out[j].Path
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// DailyHitsCSV renders one date's bot/path hit table. Column order is fixed;
// rows are sorted by bot then path so repeated runs emit identical bytes.
func DailyHitsCSV(s DailySummary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"date", "bot_name", "is_llm", "path", "hits"}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, b := range s.Bots {
		for _, p := range sortedPathKeys(b.PathHits) {
			row := []string{s.Date, b.BotName, strconv.FormatBool(b.IsLLM), p, strconv.FormatInt(b.PathHits[p], 10)}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("write row: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// CumulativeCSV renders the all-time bot/path hit table.
func CumulativeCSV(c *Cumulative) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"bot_name", "is_llm", "path", "hits"}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, bot := range c.Bots() {
		for _, p := range c.Paths(bot) {
			row := []string{bot, strconv.FormatBool(c.IsLLM(bot)), p, strconv.FormatInt(c.Hits(bot, p), 10)}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("write row: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func sortedPathKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
