// Package harvest drives a browser session over a day's listing page and
// extracts one summary per visible match card.
package harvest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"matchstream/browser"
	"matchstream/diag"
	"matchstream/match"
	"matchstream/scorer"
)

// scoreTextRe matches a "2-1" / "2 : 1" style combined scoreline.
var scoreTextRe = regexp.MustCompile(`(\d{1,2})\s*[-:]\s*(\d{1,2})`)

// Site describes one listing provider.
type Site struct {
	Name    string
	BaseURL string
	DayURLs map[match.DayKey]string
}

// Options bound the waits involved in reading an asynchronously rendered
// listing.
type Options struct {
	ListTimeout time.Duration // whole-page navigation bound
	SettleMax   time.Duration // max wait for the card count to stabilize
	SettleFor   time.Duration // how long the count must hold still
	PollStep    time.Duration
}

// DefaultOptions mirrors how long the listing sites actually take to settle.
func DefaultOptions() Options {
	return Options{
		ListTimeout: 60 * time.Second,
		SettleMax:   20 * time.Second,
		SettleFor:   1400 * time.Millisecond,
		PollStep:    400 * time.Millisecond,
	}
}

// Harvester reads listing pages for one site.
type Harvester struct {
	Site Site
	Opts Options
	Log  *logrus.Logger
	Diag *diag.Recorder
}

// Day loads the listing for a day key and returns one Summary per card that
// carries both team names and a detail link. Cards missing any of those are
// dropped; they cannot be resolved or consolidated later.
func (h *Harvester) Day(sess *browser.Session, day match.DayKey) ([]match.Summary, error) {
	url, ok := h.Site.DayURLs[day]
	if !ok || url == "" {
		return nil, fmt.Errorf("no listing URL for day %q", day)
	}

	log := h.Log.WithFields(logrus.Fields{"site": h.Site.Name, "day": day})
	log.WithField("url", url).Info("harvesting listing")

	if err := sess.Navigate(url, h.Opts.ListTimeout); err != nil {
		return nil, fmt.Errorf("loading %s listing for %s: %w", h.Site.Name, day, err)
	}

	count := h.waitForStableCount(sess, ".AY_Match")
	log.WithField("cards", count).Debug("card count settled")

	// One scroll pass so lazy-loaded logos get real sources.
	_ = sess.Scroll(1400)
	_ = sess.Sleep(700 * time.Millisecond)

	h.Diag.Screenshot(sess, fmt.Sprintf("list/%s_%s.png", h.Site.Name, day))

	if body, err := sess.BodyText(4000); err == nil && scorer.HasBotHint(body) {
		log.Warn("bot challenge hints detected on listing page")
		h.Diag.WriteText(fmt.Sprintf("list/%s_%s.body.txt", h.Site.Name, day), body)
	}

	html, err := sess.HTML()
	if err != nil {
		return nil, fmt.Errorf("snapshotting %s listing for %s: %w", h.Site.Name, day, err)
	}
	h.Diag.WriteText(fmt.Sprintf("list/%s_%s.html", h.Site.Name, day), truncate(html, 350000))

	rows, err := ParseCards(html, day, h.Site.BaseURL)
	if err != nil {
		return nil, err
	}
	log.WithField("matches", len(rows)).Info("listing harvested")
	return rows, nil
}

// waitForStableCount polls the card count until it holds still for the
// settle window or the overall bound expires. It returns the last count.
func (h *Harvester) waitForStableCount(sess *browser.Session, sel string) int {
	deadline := time.Now().Add(h.Opts.SettleMax)
	last := -1
	var stableFor time.Duration

	for time.Now().Before(deadline) {
		count, err := sess.CountSelector(sel)
		if err != nil {
			count = 0
		}
		if count > 0 && count == last {
			stableFor += h.Opts.PollStep
		} else {
			stableFor = 0
		}
		last = count
		if count > 0 && stableFor >= h.Opts.SettleFor {
			return count
		}
		if err := sess.Sleep(h.Opts.PollStep); err != nil {
			return last
		}
	}
	return last
}

// ParseCards extracts match summaries from a rendered listing document.
// Pure: it sees only the HTML snapshot, so it tests without a browser.
func ParseCards(html string, day match.DayKey, baseURL string) ([]match.Summary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing listing HTML: %w", err)
	}

	var rows []match.Summary
	doc.Find(".AY_Match").Each(func(_ int, card *goquery.Selection) {
		teams := card.Find(".TM_Name").Map(func(_ int, s *goquery.Selection) string {
			return strings.TrimSpace(s.Text())
		})
		detail := scorer.Normalize(card.Find("a[href]").First().AttrOr("href", ""), baseURL)

		s := match.Summary{
			Day:        day,
			DetailURL:  detail,
			StartAttr:  strings.TrimSpace(firstAttr(card, "data-start", ".MT_Time")),
			TimeText:   pickText(card, ".MT_Time", ".TM_Time", ".match-time", ".MatchTime", ".AY_Time"),
			StatusText: pickText(card, ".MT_Stat"),
			StatusHint: match.StatusFromClass(card.AttrOr("class", "")),
		}
		if len(teams) > 0 {
			s.HomeTeam = teams[0]
		}
		if len(teams) > 1 {
			s.AwayTeam = teams[1]
		}

		logos := card.Find(".TM_Logo img")
		if logos.Length() > 0 {
			s.HomeLogo = scorer.Normalize(logoSrc(logos.Eq(0)), baseURL)
		}
		if logos.Length() > 1 {
			s.AwayLogo = scorer.Normalize(logoSrc(logos.Eq(1)), baseURL)
		}

		s.HomeScore, s.AwayScore = scorePair(card, s.StatusHint)

		if s.HomeTeam == "" || s.AwayTeam == "" || s.DetailURL == "" {
			return
		}
		rows = append(rows, s)
	})
	return rows, nil
}

// logoSrc prefers lazy-load attributes over the eager src, which is often a
// placeholder until the card scrolls into view.
func logoSrc(img *goquery.Selection) string {
	for _, attr := range []string{"data-src", "data-lazy-src", "data-original", "src"} {
		if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}

// firstAttr reads an attribute from the card itself, falling back to a
// child selector known to carry it on some layouts.
func firstAttr(card *goquery.Selection, attr, childSel string) string {
	if v := card.AttrOr(attr, ""); v != "" {
		return v
	}
	return card.Find(childSel).First().AttrOr(attr, "")
}

// pickText returns the first non-empty trimmed text among the selectors.
func pickText(root *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if t := strings.TrimSpace(root.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// scorePair pulls the raw scoreline from a card. Upcoming fixtures never
// report one; a hidden 0-0 placeholder on an unknown-status card is treated
// as absent rather than a real result.
func scorePair(card *goquery.Selection, hint match.Status) (home, away string) {
	if hint == match.StatusUpcoming {
		return "", ""
	}

	hidden := resultHidden(card)
	goals := card.Find(".RS-goals").Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
	if len(goals) >= 2 && goals[0] != "" && goals[1] != "" {
		if hint == match.StatusUnknown && hidden && goals[0] == "0" && goals[1] == "0" {
			return "", ""
		}
		return goals[0], goals[1]
	}

	text := pickText(card, ".RS-score", ".RS-Score", ".MT_Score", ".MatchScore", ".match-score", ".score")
	if m := scoreTextRe.FindStringSubmatch(text); m != nil {
		return m[1], m[2]
	}
	return "", ""
}

// resultHidden reports whether the card's result block is display:none.
func resultHidden(card *goquery.Selection) bool {
	res := card.Find(".MT_Result").First()
	if res.Length() == 0 {
		return true
	}
	style := strings.ToLower(res.AttrOr("style", ""))
	return strings.Contains(style, "display") && strings.Contains(style, "none")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
