// Package normalize turns raw per-match signals into canonical persisted
// records: one lifecycle status, bounded integer scores, a durable match
// key and a calendar day.
package normalize

import (
	"time"

	"matchstream/match"
	"matchstream/textnorm"
)

// Status derives the canonical lifecycle state from the available signals,
// in precedence order: markup-class hint (detail page over listing), then
// free status text (detail page over listing), then day context. For the
// "today" tab an unresolved status stays unknown; guessing today's state
// from text alone is how live matches get misreported.
func Status(r match.Resolved) match.Status {
	hint := r.DeepStatusHint
	if hint == match.StatusUnknown || hint == "" {
		hint = r.StatusHint
	}
	if hint != match.StatusUnknown && hint != "" {
		return hint
	}

	if s := match.StatusFromText(r.DeepStatusText); s != match.StatusUnknown {
		return s
	}
	if s := match.StatusFromText(r.StatusText); s != match.StatusUnknown {
		return s
	}

	switch r.Day {
	case match.DayYesterday:
		return match.StatusFinished
	case match.DayTomorrow:
		return match.StatusUpcoming
	}
	return match.StatusUnknown
}

// Record builds the persisted record for one resolved match. ok is false
// when the record is missing identity fields and must be dropped.
func Record(r match.Resolved, now time.Time, loc *time.Location) (rec match.Record, ok bool) {
	start := textnorm.StartFromAttr(r.StartAttr, loc)

	day := ""
	if !start.IsZero() {
		day = textnorm.DayOf(start, loc)
	} else {
		day = r.Day.Date(now, loc)
	}

	status := Status(r)

	// An upcoming fixture never carries a score, whatever placeholder text
	// the page showed.
	var home, away *int
	if status != match.StatusUpcoming {
		home = textnorm.ParseScore(pick(r.DeepHomeScore, r.HomeScore))
		away = textnorm.ParseScore(pick(r.DeepAwayScore, r.AwayScore))
	}

	displayTime := textnorm.PrettyTime(start, loc)
	if status == match.StatusUpcoming && r.TimeText != "" {
		displayTime = r.TimeText
	} else if displayTime == "—" && r.TimeText != "" {
		displayTime = r.TimeText
	}

	streamURL := r.StreamURL
	if streamURL == "" {
		streamURL = r.DetailURL
	}

	rec = match.Record{
		MatchKey:  match.Key(day, r.HomeTeam, r.AwayTeam),
		HomeTeam:  r.HomeTeam,
		AwayTeam:  r.AwayTeam,
		HomeLogo:  r.HomeLogo,
		AwayLogo:  r.AwayLogo,
		StreamURL: streamURL,
		MatchDay:  day,
		MatchTime: displayTime,
		HomeScore: home,
		AwayScore: away,
		Status:    status,
	}
	if !start.IsZero() {
		rec.MatchStart = &start
	}

	if rec.HomeTeam == "" || rec.AwayTeam == "" || rec.MatchDay == "" || rec.StreamURL == "" {
		return rec, false
	}
	return rec, true
}

// Batch normalizes a resolved batch, dropping records that lost their
// identity along the way.
func Batch(resolved []match.Resolved, now time.Time, loc *time.Location) []match.Record {
	out := make([]match.Record, 0, len(resolved))
	for _, r := range resolved {
		if rec, ok := Record(r, now, loc); ok {
			out = append(out, rec)
		}
	}
	return out
}

func pick(first, second string) string {
	if first != "" {
		return first
	}
	return second
}
