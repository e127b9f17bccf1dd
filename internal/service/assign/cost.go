package assign

import (
	"sort"
	"time"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/config"
)

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}

// spanDuration picks the smallest configured duration that covers the span.
// Returns ok=false when the span exceeds every configured duration; the
// caller then interpolates from the largest one.
func spanDuration(durations map[string]config.Duration, days int) (key string, d config.Duration, ok bool) {
	keys := sortedByDays(durations)
	for _, k := range keys {
		if durations[k].Days >= days {
			return k, durations[k], true
		}
	}
	return "", config.Duration{}, false
}

// largestDuration returns the configured duration with the most days.
func largestDuration(durations map[string]config.Duration) (string, config.Duration, bool) {
	keys := sortedByDays(durations)
	if len(keys) == 0 {
		return "", config.Duration{}, false
	}
	k := keys[len(keys)-1]
	return k, durations[k], true
}

// interpolateCost prices a span beyond the largest configured duration at the
// largest duration's per-day rate, floored to a whole credit. Approximate
// business rule carried over as-is.
func interpolateCost(baseCost, baseDays, spanDays int) int {
	if baseDays <= 0 {
		return baseCost
	}
	return spanDays * baseCost / baseDays
}

func sortedByDays(durations map[string]config.Duration) []string {
	keys := make([]string, 0, len(durations))
	for k := range durations {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if durations[keys[i]].Days != durations[keys[j]].Days {
			return durations[keys[i]].Days < durations[keys[j]].Days
		}
		return keys[i] < keys[j]
	})
	return keys
}
