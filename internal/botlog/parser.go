package botlog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// mainLineRegex matches the combined-log-format segment of a line, before
// the " | " delimited trailer: IP, vhost, identity, bracketed timestamp,
// quoted request line, status, bytes, quoted referrer, quoted user-agent.
var mainLineRegex = regexp.MustCompile(
	`^(\S+)\s+(\S+)\s+(\S+)\s+\[([^\]]+)\]\s+"(\S+)\s+(\S+)\s+([^"]+)"\s+(\d+)\s+(\S+)\s+"([^"]*)"\s+"([^"]*)"`,
)

const timestampLayout = "02/Jan/2006:15:04:05 -0700"

// ParseLine parses one access-log line into a LogRecord. A line that does
// not match the grammar, or whose timestamp or status cannot be parsed,
// yields ErrMalformedLine. Numeric fields other than the status fall back
// to -1 instead of rejecting the line. The function is pure and stateless.
func ParseLine(line string) (LogRecord, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return LogRecord{}, fmt.Errorf("empty line: %w", ErrMalformedLine)
	}

	// Isolate the combined-log segment from the trailing metrics first, so
	// changes to the trailer never break the main grammar.
	parts := strings.Split(line, " | ")
	main := parts[0]
	var tls string
	var trailer []string
	if len(parts) > 1 {
		tls = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		trailer = strings.Fields(parts[2])
	}

	m := mainLineRegex.FindStringSubmatch(main)
	if m == nil {
		return LogRecord{}, ErrMalformedLine
	}

	ts, err := time.Parse(timestampLayout, m[4])
	if err != nil {
		return LogRecord{}, fmt.Errorf("timestamp %q: %w", m[4], ErrMalformedLine)
	}

	status, err := strconv.Atoi(m[8])
	if err != nil {
		// Unreachable with the \d+ capture, but the line is unusable
		// without a status either way.
		return LogRecord{}, fmt.Errorf("status %q: %w", m[8], ErrMalformedLine)
	}

	bytesSent, err := strconv.ParseInt(m[9], 10, 64)
	if err != nil {
		bytesSent = -1
	}

	rec := LogRecord{
		ClientIP:   m[1],
		VHost:      m[2],
		Timestamp:  ts.UTC(),
		Method:     m[5],
		Path:       m[6],
		Protocol:   m[7],
		Status:     status,
		BytesSent:  bytesSent,
		Referrer:   m[10],
		UserAgent:  m[11],
		TLSVersion: tls,
	}

	rec.Timings[0] = trailerFloat(trailer, 0)
	rec.Timings[1] = trailerFloat(trailer, 1)
	rec.Timings[2] = trailerFloat(trailer, 2)
	rec.CacheStatus = trailerToken(trailer, 3)
	if len(trailer) > 4 {
		rec.Extras = trailer[4:]
	}

	return rec, nil
}

func trailerFloat(tokens []string, idx int) float64 {
	if idx >= len(tokens) {
		return -1
	}
	v, err := strconv.ParseFloat(tokens[idx], 64)
	if err != nil {
		return -1
	}
	return v
}

func trailerToken(tokens []string, idx int) string {
	if idx >= len(tokens) {
		return ""
	}
	return tokens[idx]
}
