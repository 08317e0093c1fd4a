package botlog

import "sort"

// Summarize folds one date's classified records into a DailySummary.
// Unclassified records count toward AllRequests but never toward a bot
// entry. The fold is pure: the same record set always produces an identical
// summary, including serialized form, so re-processing a date re-derives
// rather than accumulates.
//
// A date with zero records still yields a valid (empty) summary; committing
// it marks the date processed, which is distinct from "never processed".
func Summarize(date string, records []ClassifiedRecord, malformed int64) DailySummary {
	type botAcc struct {
		isLLM bool
		hits  int64
		ips   map[string]struct{}
		paths map[string]int64
	}
	acc := make(map[string]*botAcc)

	var all int64
	for _, rec := range records {
		all++
		if !rec.IsBot() {
			continue
		}
		b := acc[rec.BotName]
		if b == nil {
			b = &botAcc{
				isLLM: rec.IsLLM,
				ips:   make(map[string]struct{}),
				paths: make(map[string]int64),
			}
			acc[rec.BotName] = b
		}
		b.hits++
		b.ips[rec.ClientIP] = struct{}{}
		b.paths[normalizePath(rec.Path)]++
	}

	bots := make([]BotDaily, 0, len(acc))
	for name, b := range acc {
		bots = append(bots, BotDaily{
			BotName:   name,
			IsLLM:     b.isLLM,
			TotalHits: b.hits,
			UniqueIPs: len(b.ips),
			PathHits:  b.paths,
		})
	}
	sort.Slice(bots, func(i, j int) bool { return bots[i].BotName < bots[j].BotName })

	return DailySummary{
		Date:           date,
		AllRequests:    all,
		MalformedLines: malformed,
		Bots:           bots,
	}
}

// Merge folds daily summaries into a fresh Cumulative. The result depends
// only on the set of summaries, not their order, and summaries come from
// the per-date ledger, so applying the pipeline any number of times for the
// same date leaves the totals unchanged.
func Merge(summaries []DailySummary) *Cumulative {
	c := NewCumulative()
	for _, s := range summaries {
		c.AddDaily(s)
	}
	return c
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
