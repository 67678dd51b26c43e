package analytics

import (
	"fmt"
	"time"
)

// Granularity identifies the bucketing scheme for rollup rows.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// AllGranularities returns every supported granularity
func AllGranularities() []Granularity {
	return []Granularity{GranularityDaily, GranularityWeekly, GranularityMonthly}
}

// IsValid reports whether g is a known granularity
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityDaily, GranularityWeekly, GranularityMonthly:
		return true
	}
	return false
}

// Range is a single aggregation bucket. Start and End are inclusive
// bounds; Label is the canonical bucket identifier used as the rollup
// row's date component.
type Range struct {
	Start time.Time
	End   time.Time
	Label string
}

// GenerateRanges splits [start, end] into ordered, non-overlapping buckets
// for the given granularity. Weekly buckets are aligned to Monday and
// labelled with the ISO year and week number; the first and last bucket may
// extend beyond the requested span so that labels stay canonical.
// A start after end yields an empty list.
func GenerateRanges(start, end time.Time, granularity Granularity) []Range {
	if start.After(end) {
		return nil
	}

	start = startOfDay(start)
	end = startOfDay(end)

	var ranges []Range
	switch granularity {
	case GranularityWeekly:
		for cur := startOfISOWeek(start); !cur.After(end); cur = cur.AddDate(0, 0, 7) {
			year, week := cur.ISOWeek()
			ranges = append(ranges, Range{
				Start: cur,
				End:   endOfDay(cur.AddDate(0, 0, 6)),
				Label: fmt.Sprintf("%04d-W%02d", year, week),
			})
		}
	case GranularityMonthly:
		first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
		for cur := first; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
			ranges = append(ranges, Range{
				Start: cur,
				End:   endOfDay(cur.AddDate(0, 1, -1)),
				Label: cur.Format("2006-01"),
			})
		}
	default: // daily
		for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
			ranges = append(ranges, Range{
				Start: cur,
				End:   endOfDay(cur),
				Label: cur.Format("2006-01-02"),
			})
		}
	}
	return ranges
}

// bucketStart returns the start of the bucket containing t for the given
// granularity.
func bucketStart(t time.Time, granularity Granularity) time.Time {
	switch granularity {
	case GranularityWeekly:
		return startOfISOWeek(t)
	case GranularityMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return startOfDay(t)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func startOfISOWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 { // Sunday
		weekday = 7
	}
	return startOfDay(t.AddDate(0, 0, 1-weekday))
}
