package botlog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"
)

// parsedColumns is the per-request CSV layout. External tooling reads these
// files, so column order is stable across runs.
var parsedColumns = []string{
	"date",
	"timestamp",
	"ip",
	"host",
	"method",
	"path",
	"protocol",
	"status",
	"body_bytes_sent",
	"referrer",
	"user_agent",
	"tls",
	"time1",
	"time2",
	"time3",
	"cache_status",
	"extra_5",
	"extra_6",
	"extra_7",
}

// ParsedCSV renders parsed records as the per-request CSV, one row per
// request, header included.
func ParsedCSV(records []LogRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(parsedColumns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(parsedRow(rec)); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func parsedRow(rec LogRecord) []string {
	return []string{
		rec.Timestamp.Format(DateLayout),
		rec.Timestamp.Format(time.RFC3339),
		rec.ClientIP,
		rec.VHost,
		rec.Method,
		rec.Path,
		rec.Protocol,
		strconv.Itoa(rec.Status),
		strconv.FormatInt(rec.BytesSent, 10),
		rec.Referrer,
		rec.UserAgent,
		rec.TLSVersion,
		timingField(rec.Timings[0]),
		timingField(rec.Timings[1]),
		timingField(rec.Timings[2]),
		rec.CacheStatus,
		extraField(rec.Extras, 0),
		extraField(rec.Extras, 1),
		extraField(rec.Extras, 2),
	}
}

func timingField(v float64) string {
	if v < 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func extraField(extras []string, idx int) string {
	if idx >= len(extras) {
		return ""
	}
	return extras[idx]
}
