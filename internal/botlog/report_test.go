package botlog

import (
	"strings"
	"testing"
	"time"
)

func reportFixture() []DailySummary {
	day1 := Summarize("2025-10-01", []ClassifiedRecord{
		classified("1.2.3.4", "/a/", "ChatGPT-User", true),
		classified("1.2.3.4", "/a/", "ChatGPT-User", true),
		classified("5.6.7.8", "/b/", "ChatGPT-User", true),
		classified("9.9.9.9", "/human/", "", false),
	}, 1)
	day2 := Summarize("2025-10-02", []ClassifiedRecord{
		classified("1.2.3.4", "/a/", "ChatGPT-User", true),
		classified("2.2.2.2", "/docs/", "GPTBot", true),
	}, 0)
	return []DailySummary{day1, day2}
}

var reportTime = time.Date(2025, 10, 3, 8, 0, 0, 0, time.UTC)

func TestBuildReport(t *testing.T) {
	t.Parallel()

	rep := BuildReport(reportFixture(), reportTime, ReportOptions{From: "2025-10-01", To: "2025-10-02"})

	if rep.GeneratedAt != "2025-10-03T08:00:00Z" {
		t.Fatalf("generated_at = %q", rep.GeneratedAt)
	}
	if rep.Window.From != "2025-10-01" || rep.Window.To != "2025-10-02" {
		t.Fatalf("window = %+v", rep.Window)
	}
	// Bot traffic only by default: 5 classified requests across both days.
	if rep.Overall.TotalRequests != 5 {
		t.Fatalf("total_requests = %d, want 5", rep.Overall.TotalRequests)
	}
	if rep.Overall.UniqueBots != 2 || rep.Overall.UniquePaths != 3 {
		t.Fatalf("overall = %+v", rep.Overall)
	}

	if len(rep.Bots) != 2 || rep.Bots[0].BotName != "ChatGPT-User" {
		t.Fatalf("bots sorted by total desc, got %+v", rep.Bots)
	}
	chat := rep.Bots[0]
	if chat.TotalRequests != 4 {
		t.Fatalf("ChatGPT-User total = %d", chat.TotalRequests)
	}
	if len(chat.DailyRequests) != 2 ||
		chat.DailyRequests[0] != (DailyCount{Date: "2025-10-01", Requests: 3}) ||
		chat.DailyRequests[1] != (DailyCount{Date: "2025-10-02", Requests: 1}) {
		t.Fatalf("daily series = %+v", chat.DailyRequests)
	}
	if len(chat.TopPaths) != 2 || chat.TopPaths[0] != (PathCount{Path: "/a/", Requests: 3}) {
		t.Fatalf("top paths = %+v", chat.TopPaths)
	}
}

func TestBuildReportIncludeUnclassified(t *testing.T) {
	t.Parallel()

	rep := BuildReport(reportFixture(), reportTime, ReportOptions{IncludeUnclassified: true})
	// All parsed requests count, including the one unclassified hit.
	if rep.Overall.TotalRequests != 6 {
		t.Fatalf("total_requests = %d, want 6", rep.Overall.TotalRequests)
	}
	// Bot sections are identical under both interpretations.
	if len(rep.Bots) != 2 || rep.Bots[0].TotalRequests != 4 {
		t.Fatalf("bots = %+v", rep.Bots)
	}
}

func TestBuildReportWindowFilter(t *testing.T) {
	t.Parallel()

	rep := BuildReport(reportFixture(), reportTime, ReportOptions{From: "2025-10-02", To: "2025-10-02"})
	if rep.Overall.TotalRequests != 2 {
		t.Fatalf("total_requests = %d, want 2", rep.Overall.TotalRequests)
	}
	for _, b := range rep.Bots {
		for _, d := range b.DailyRequests {
			if d.Date != "2025-10-02" {
				t.Fatalf("date %q leaked through window filter", d.Date)
			}
		}
	}
}

func TestBuildReportTopPathsTruncationAndTies(t *testing.T) {
	t.Parallel()

	records := []ClassifiedRecord{
		classified("1.1.1.1", "/z/", "GPTBot", true),
		classified("1.1.1.1", "/a/", "GPTBot", true),
		classified("1.1.1.1", "/m/", "GPTBot", true),
		classified("1.1.1.1", "/m/", "GPTBot", true),
	}
	day := Summarize("2025-10-01", records, 0)

	rep := BuildReport([]DailySummary{day}, reportTime, ReportOptions{TopPaths: 2})
	paths := rep.Bots[0].TopPaths
	if len(paths) != 2 {
		t.Fatalf("top paths = %+v, want 2 entries", paths)
	}
	if paths[0].Path != "/m/" || paths[1].Path != "/a/" {
		t.Fatalf("expected count desc then lexical tie-break, got %+v", paths)
	}
}

func TestBuildReportEmpty(t *testing.T) {
	t.Parallel()

	rep := BuildReport(nil, reportTime, ReportOptions{From: "2025-01-01", To: "2025-12-31"})
	if rep.Overall.TotalRequests != 0 || rep.Overall.UniqueBots != 0 || rep.Overall.UniquePaths != 0 {
		t.Fatalf("overall = %+v, want zeroes", rep.Overall)
	}
	if len(rep.Bots) != 0 {
		t.Fatalf("bots = %+v, want none", rep.Bots)
	}
}

func TestDailyHitsCSVStable(t *testing.T) {
	t.Parallel()

	day := reportFixture()[0]
	first, err := DailyHitsCSV(day)
	if err != nil {
		t.Fatalf("DailyHitsCSV() error = %v", err)
	}
	second, err := DailyHitsCSV(day)
	if err != nil {
		t.Fatalf("DailyHitsCSV() error = %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("csv output not stable:\n%s\n%s", first, second)
	}

	lines := strings.Split(strings.TrimSpace(string(first)), "\n")
	if lines[0] != "date,bot_name,is_llm,path,hits" {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines) != 3 { // header + /a/ + /b/
		t.Fatalf("rows = %v", lines)
	}
	if lines[1] != "2025-10-01,ChatGPT-User,true,/a/,2" {
		t.Fatalf("first row = %q", lines[1])
	}
}

func TestCumulativeCSV(t *testing.T) {
	t.Parallel()

	c := Merge(reportFixture())
	out, err := CumulativeCSV(c)
	if err != nil {
		t.Fatalf("CumulativeCSV() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if lines[0] != "bot_name,is_llm,path,hits" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "ChatGPT-User,true,/a/,3" {
		t.Fatalf("first row = %q", lines[1])
	}
	if lines[len(lines)-1] != "GPTBot,true,/docs/,1" {
		t.Fatalf("last row = %q", lines[len(lines)-1])
	}
}

func TestParsedCSV(t *testing.T) {
	t.Parallel()

	rec, err := ParseLine(sampleLine)
	if err != nil {
		t.Fatalf("ParseLine() error = %v", err)
	}
	out, err := ParsedCSV([]LogRecord{rec})
	if err != nil {
		t.Fatalf("ParsedCSV() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %v", lines)
	}
	if !strings.HasPrefix(lines[0], "date,timestamp,ip,host,") {
		t.Fatalf("header = %q", lines[0])
	}
	row := strings.Split(lines[1], ",")
	if len(row) != len(parsedColumns) {
		t.Fatalf("row has %d fields, want %d", len(row), len(parsedColumns))
	}
	if row[0] != "2025-10-01" || row[2] != "1.2.3.4" || row[7] != "200" {
		t.Fatalf("row = %v", row)
	}
}
