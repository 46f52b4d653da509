// Package match defines the records flowing through the scraping pipeline
// and the durable identity that ties re-scrapes of the same fixture together.
package match

import (
	"sort"
	"strings"
	"time"

	"matchstream/textnorm"
)

// Status is the canonical lifecycle state of a match.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusLive     Status = "live"
	StatusFinished Status = "finished"
	StatusUnknown  Status = "unknown"
)

// DayKey identifies one of the three rolling calendar days a run refreshes,
// relative to the run time in the source site's local zone.
type DayKey string

const (
	DayYesterday DayKey = "yesterday"
	DayToday     DayKey = "today"
	DayTomorrow  DayKey = "tomorrow"
)

// Days lists the rolling day keys in harvest order.
var Days = []DayKey{DayYesterday, DayToday, DayTomorrow}

// Date returns the calendar day (YYYY-MM-DD) a day key names, relative to
// now in the given source-local zone.
func (d DayKey) Date(now time.Time, loc *time.Location) string {
	offset := 0
	switch d {
	case DayYesterday:
		offset = -1
	case DayTomorrow:
		offset = 1
	}
	return textnorm.DayOf(now.AddDate(0, 0, offset), loc)
}

// Key derives the durable match identity from a calendar day and the two
// team display names. It is insensitive to home/away order and to digit,
// diacritic and letter-variant differences in the names.
func Key(day, home, away string) string {
	pair := []string{textnorm.CanonTeam(home), textnorm.CanonTeam(away)}
	sort.Strings(pair)
	return strings.ToLower(strings.TrimSpace(day)) + "||" + pair[0] + "__" + pair[1]
}

// Summary is one listing-page card, scoped to the day tab it was read from.
// Identity has not been assigned yet; raw signals are kept verbatim.
type Summary struct {
	Day        DayKey
	HomeTeam   string
	AwayTeam   string
	HomeLogo   string
	AwayLogo   string
	StartAttr  string // raw data-start attribute, possibly empty
	TimeText   string // visible kick-off label
	StatusText string // free-text status label
	StatusHint Status // markup-class-derived status, StatusUnknown when absent
	DetailURL  string
	HomeScore  string // raw score text, empty when the card shows none
	AwayScore  string
}

// Resolved is a Summary enriched by the primary deep resolver. Detail-page
// signals take precedence over the listing card's when both are present.
type Resolved struct {
	Summary

	StreamURL      string // best candidate stream URL, empty when none cleared the floor
	DeepStatusText string
	DeepStatusHint Status
	DeepHomeScore  string
	DeepAwayScore  string
}

// SecondaryItem is one card from the alternate provider's listing.
type SecondaryItem struct {
	Day       DayKey
	HomeTeam  string
	AwayTeam  string
	PageURL   string
	StartAttr string
}

// SecondaryStream pairs a match identity with a resolved second-source
// player URL, or "" when resolution failed.
type SecondaryStream struct {
	Key string
	URL string
}

// Record is the persisted unit: one row of the match-stream table.
type Record struct {
	ID         int64      `json:"id,omitempty"`
	MatchKey   string     `json:"match_key"`
	HomeTeam   string     `json:"home_team"`
	AwayTeam   string     `json:"away_team"`
	HomeLogo   string     `json:"home_logo"`
	AwayLogo   string     `json:"away_logo"`
	StreamURL  string     `json:"stream_url"`
	StreamURL2 string     `json:"stream_url_2,omitempty"`
	StreamURL3 string     `json:"stream_url_3,omitempty"`
	StreamURL4 string     `json:"stream_url_4,omitempty"`
	StreamURL5 string     `json:"stream_url_5,omitempty"`
	MatchDay   string     `json:"match_day"`
	MatchStart *time.Time `json:"match_start"`
	MatchTime  string     `json:"match_time"`
	HomeScore  *int       `json:"home_score"`
	AwayScore  *int       `json:"away_score"`
	Status     Status     `json:"status_key"`
}

// HasScore reports whether either side of the scoreline is known.
func (r *Record) HasScore() bool {
	return r.HomeScore != nil || r.AwayScore != nil
}

// StreamSlots returns pointers to the five stream URL slots in order,
// so merge logic can treat them uniformly.
func (r *Record) StreamSlots() [5]*string {
	return [5]*string{&r.StreamURL, &r.StreamURL2, &r.StreamURL3, &r.StreamURL4, &r.StreamURL5}
}
