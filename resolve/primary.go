// Package resolve visits match detail pages and turns everything observed
// there (network traffic, popups, frames, DOM) into a best-candidate
// stream URL plus refined status and score signals.
package resolve

import (
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

// Options bound a single deep resolution.
type Options struct {
	DeepTimeout   time.Duration // navigation bound for a detail page
	SettleDelay   time.Duration // pause after load before the first DOM read
	ObserveWindow time.Duration // extra window for late requests and popups
	SecondaryPoll time.Duration // step between secondary-source poll passes
	SecondaryMax  time.Duration // total secondary-source poll budget
}

// DefaultOptions matches the timing the sites need in practice.
func DefaultOptions() Options {
	return Options{
		DeepTimeout:   45 * time.Second,
		SettleDelay:   1400 * time.Millisecond,
		ObserveWindow: 800 * time.Millisecond,
		SecondaryPoll: 500 * time.Millisecond,
		SecondaryMax:  8 * time.Second,
	}
}

// Primary resolves the first-source detail pages.
type Primary struct {
	Scorer *scorer.Scorer
	Opts   Options
	Log    *logrus.Logger
	Diag   *diag.Recorder
}

// Resolve visits one detail page. Any error degrades to a Resolved carrying
// the original summary with no stream URL and no refined signals; a failed
// match never aborts its batch.
func (p *Primary) Resolve(sess *browser.Session, sum match.Summary) match.Resolved {
	res := match.Resolved{Summary: sum, DeepStatusHint: match.StatusUnknown}
	if sum.DetailURL == "" {
		return res
	}

	log := p.Log.WithFields(logrus.Fields{"home": sum.HomeTeam, "away": sum.AwayTeam})

	col := browser.NewCollector()
	detach := sess.Observe(col)
	defer detach()

	if err := sess.Navigate(sum.DetailURL, p.Opts.DeepTimeout); err != nil {
		log.WithError(err).Warn("deep resolution failed, degrading to null")
		return res
	}
	_ = sess.Sleep(p.Opts.SettleDelay)

	var domURLs []string
	meta := Meta{StatusHint: match.StatusUnknown}

	if html, err := sess.HTML(); err == nil {
		meta = ParseDetailMeta(html)
		domURLs = append(domURLs, ParseCandidateURLs(html, sum.DetailURL)...)
	}
	if frames, err := sess.FrameURLs(); err == nil {
		domURLs = append(domURLs, frames...)
	}

	// Live state can change mid-resolution; read the DOM again after the
	// observation window and prefer the later signals.
	_ = sess.Sleep(p.Opts.ObserveWindow)
	if html, err := sess.HTML(); err == nil {
		meta = meta.override(ParseDetailMeta(html))
		domURLs = append(domURLs, ParseCandidateURLs(html, sum.DetailURL)...)
	}

	pool := append(col.URLs(), domURLs...)
	clean := make([]string, 0, len(pool))
	for _, raw := range pool {
		u := scorer.Normalize(raw, sum.DetailURL)
		if u == "" || u == sum.DetailURL || scorer.IsJunk(u) || scorer.IsAdHost(u) {
			continue
		}
		clean = append(clean, u)
	}

	best := p.Scorer.PickBest(clean)
	log.WithFields(logrus.Fields{"candidates": len(clean), "stream": best != ""}).Debug("deep resolution done")

	res.StreamURL = best
	res.DeepStatusText = meta.StatusText
	res.DeepStatusHint = meta.StatusHint
	res.DeepHomeScore = meta.HomeScore
	res.DeepAwayScore = meta.AwayScore
	return res
}

// Meta carries the refined signals read from a detail page.
type Meta struct {
	StatusText string
	StatusHint match.Status
	HomeScore  string
	AwayScore  string
}

// override prefers the later reading's fields when it has them.
func (m Meta) override(later Meta) Meta {
	out := m
	if later.StatusText != "" {
		out.StatusText = later.StatusText
	}
	if later.StatusHint != match.StatusUnknown {
		out.StatusHint = later.StatusHint
	}
	if later.HomeScore != "" {
		out.HomeScore = later.HomeScore
	}
	if later.AwayScore != "" {
		out.AwayScore = later.AwayScore
	}
	return out
}

var detailStatusSelectors = []string{".MT_Stat", ".MT_Status", ".match-status", ".MatchStatus", ".RS-status", ".status"}
var detailScoreSelectors = []string{".RS-score", ".RS-Score", ".MT_Score", ".MatchScore", ".match-score", ".score"}

// ParseDetailMeta reads status and score signals from a rendered detail
// page snapshot.
func ParseDetailMeta(html string) Meta {
	meta := Meta{StatusHint: match.StatusUnknown}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return meta
	}

	statusText := firstText(doc, detailStatusSelectors)
	hint := match.StatusFromClass(doc.Find(".AY_Match").First().AttrOr("class", ""))
	if hint == match.StatusUnknown {
		hint = match.StatusFromText(statusText)
	}
	if statusText == "" {
		statusText = strings.TrimSpace(doc.Find("title").First().Text())
	}
	meta.StatusText = statusText
	meta.StatusHint = hint

	if hint == match.StatusUpcoming {
		return meta
	}

	goals := doc.Find(".RS-goals").Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
	if len(goals) >= 2 && goals[0] != "" && goals[1] != "" {
		meta.HomeScore, meta.AwayScore = goals[0], goals[1]
		return meta
	}
	if m := scoreTextRe.FindStringSubmatch(firstText(doc, detailScoreSelectors)); m != nil {
		meta.HomeScore, meta.AwayScore = m[1], m[2]
	}
	return meta
}

// ParseCandidateURLs scans a rendered page snapshot for explicit
// server-selector links, embedded frame sources and media element sources.
func ParseCandidateURLs(html, base string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var urls []string
	add := func(raw string) {
		if u := scorer.Normalize(raw, base); u != "" {
			urls = append(urls, u)
		}
	}

	doc.Find(".video-serv a[href], .server-tab[href]").Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("href", ""))
	})
	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("src", ""))
		add(s.AttrOr("data-src", ""))
	})
	doc.Find("video, video source, source").Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("src", ""))
	})
	return urls
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// scoreTextRe matches a "2-1" / "2 : 1" style combined scoreline.
var scoreTextRe = regexp.MustCompile(`(\d{1,2})\s*[-:]\s*(\d{1,2})`)
