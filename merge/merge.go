// Package merge reconciles a freshly normalized batch against the rows
// already persisted for the same calendar days, with guardrails against
// regressing known-good state.
package merge

import (
	"time"

	"matchstream/match"
	"matchstream/scorer"
)

// Start-time guardrail windows. An old start inside (now-6h, now+15m) looks
// like a match that is on or about to kick off; a new start more than 2h
// out is implausible for it and likely a transient re-scheduling glitch.
const (
	nowishPast   = 6 * time.Hour
	nowishFuture = 15 * time.Minute
	farFuture    = 2 * time.Hour
)

// Batch combines the fresh batch with the previously persisted rows.
// Matching is by match_key; upstream row ids are not stable across runs.
// Fresh records without a persisted counterpart are inserted as-is, and a
// match that vanished from the source is not carried forward.
func Batch(fresh, existing []match.Record, now time.Time) []match.Record {
	old := make(map[string]*match.Record, len(existing))
	for i := range existing {
		old[existing[i].MatchKey] = &existing[i]
	}

	out := make([]match.Record, 0, len(fresh))
	seen := make(map[string]bool, len(fresh))
	for _, rec := range fresh {
		if seen[rec.MatchKey] {
			continue
		}
		seen[rec.MatchKey] = true
		if prev, ok := old[rec.MatchKey]; ok {
			rec = reconcile(rec, prev, now)
		}
		out = append(out, rec)
	}
	return out
}

// reconcile applies the guardrails for one matched pair.
func reconcile(fresh match.Record, old *match.Record, now time.Time) match.Record {
	out := fresh

	newSlots := out.StreamSlots()
	oldSlots := old.StreamSlots()
	for i := range newSlots {
		*newSlots[i] = preferExisting(*newSlots[i], *oldSlots[i])
	}

	if startClobberSuspected(old.MatchStart, out.MatchStart, now) {
		out.MatchStart = old.MatchStart
		if old.MatchTime != "" {
			out.MatchTime = old.MatchTime
		}
	} else if out.MatchStart == nil && old.MatchStart != nil {
		out.MatchStart = old.MatchStart
		if old.MatchTime != "" {
			out.MatchTime = old.MatchTime
		}
	}

	if !out.HasScore() && old.HasScore() {
		out.HomeScore = old.HomeScore
		out.AwayScore = old.AwayScore
	}

	return out
}

// preferExisting keeps the old stream URL when the new one would be a
// regression: a confirmed strong URL is never silently replaced by a weak
// one.
func preferExisting(newURL, oldURL string) string {
	switch {
	case newURL == "":
		return oldURL
	case oldURL == "":
		return newURL
	case scorer.IsWeak(newURL) && !scorer.IsWeak(oldURL):
		return oldURL
	}
	return newURL
}

// startClobberSuspected reports whether the old start time looks current
// while the new one is implausibly far out. That is the one situation
// where a present new start time must not win.
func startClobberSuspected(old, incoming *time.Time, now time.Time) bool {
	if old == nil || incoming == nil {
		return false
	}
	oldLooksNowish := old.After(now.Add(-nowishPast)) && old.Before(now.Add(nowishFuture))
	incomingFarFuture := incoming.After(now.Add(farFuture))
	return oldLooksNowish && incomingFarFuture
}
