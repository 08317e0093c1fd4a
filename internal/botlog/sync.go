package botlog

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Template is a filename template containing exactly one {date} placeholder,
// e.g. "access.log-{date}.gz". The date token format is YYYY-MM-DD.
type Template struct {
	prefix string
	suffix string
}

const datePlaceholder = "{date}"

// NewTemplate validates and splits a filename template.
func NewTemplate(raw string) (Template, error) {
	if strings.Count(raw, datePlaceholder) != 1 {
		return Template{}, fmt.Errorf("template %q must contain exactly one %s placeholder", raw, datePlaceholder)
	}
	idx := strings.Index(raw, datePlaceholder)
	return Template{
		prefix: raw[:idx],
		suffix: raw[idx+len(datePlaceholder):],
	}, nil
}

// Filename renders the template for a date.
func (t Template) Filename(date time.Time) string {
	return t.prefix + date.UTC().Format(DateLayout) + t.suffix
}

// ExtractDate parses the date token out of a filename that matches the
// template. The token must survive a strict YYYY-MM-DD round trip, so
// "2025-2-3" or trailing garbage never sneaks through.
func (t Template) ExtractDate(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, t.prefix) || !strings.HasSuffix(name, t.suffix) {
		return time.Time{}, false
	}
	token := name[len(t.prefix) : len(name)-len(t.suffix)]
	date, err := time.ParseInLocation(DateLayout, token, time.UTC)
	if err != nil || date.Format(DateLayout) != token {
		return time.Time{}, false
	}
	return date, true
}

// Candidates filters a remote directory listing down to files that should
// still be fetched:
//
//   - the name matches the template and carries a valid date token
//   - the date is strictly before today (today's file is still being written)
//   - the date is within the lookback window of maxDays
//   - the filename is not already present in the destination set
//
// The existing-file check is by exact filename only. A truncated prior
// transfer therefore counts as already fetched; callers accept that risk.
// Output order follows the listing; downstream date-scoped processing must
// tolerate arbitrary order.
func Candidates(listing []string, t Template, existing map[string]struct{}, today time.Time, maxDays int) []RemoteFile {
	today = today.UTC().Truncate(24 * time.Hour)
	oldest := today.AddDate(0, 0, -maxDays)

	var out []RemoteFile
	for _, entry := range listing {
		name := path.Base(entry)
		date, ok := t.ExtractDate(name)
		if !ok {
			continue
		}
		if !date.Before(today) || date.Before(oldest) {
			continue
		}
		if _, done := existing[name]; done {
			continue
		}
		out = append(out, RemoteFile{Name: name, RemotePath: entry, Date: date})
	}
	return out
}

// ExistingNames reduces destination keys to a set of trailing filename
// components, the unit of the dedup check.
func ExistingNames(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[path.Base(key)] = struct{}{}
	}
	return set
}
