package resolve

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"matchstream/browser"
	"matchstream/diag"
	"matchstream/match"
	"matchstream/scorer"
	"matchstream/textnorm"
)

// playerShapeRe is the exact player-endpoint shape the secondary source
// serves. Nothing else is embeddable; anything else is a failure, not a
// fallback.
var playerShapeRe = regexp.MustCompile(`(?i)/playerv2\.php(\?|$)`)

// wrapperShapeRe matches the interstitial wrapper pages that look like
// candidates but never embed. They are blacklisted even when nothing
// better was found.
var wrapperShapeRe = regexp.MustCompile(`(?i)/hard/.+\.html\?match=`)

var (
	// playerURLRe finds a full player URL dropped into inline script text.
	playerURLRe = regexp.MustCompile(`(?i)https://[^"'` + "`" + `\s]+/playerv2\.php\?[^"'` + "`" + `\s]+`)

	// playerHostRes locate the host that serves playerv2.php; the sites
	// rotate domains, so the host is always read from the scripts.
	playerHostRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)https://([^/\s"'` + "`" + `]+)/playerv2\.php`),
		regexp.MustCompile(`(?i)playerurl\s*[:=]\s*["'` + "`" + `]?https://([^/\s"'` + "`" + `]+)/playerv2\.php`),
		regexp.MustCompile(`(?i)src\s*[:=]\s*["'` + "`" + `]?https://([^/\s"'` + "`" + `]+)/playerv2\.php`),
	}

	// playerKeyRes locate the access key, which appears in a few shapes.
	playerKeyRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bkey\s*=\s*["'` + "`" + `]?([A-Za-z0-9]+)\b`),
		regexp.MustCompile(`(?i)\bkey\s*:\s*["'` + "`" + `]?([A-Za-z0-9]+)\b`),
		regexp.MustCompile(`(?i)&key=([^&"'` + "`" + `\s]+)`),
	}

	matchIDRe = regexp.MustCompile(`^\d{1,5}$`)
)

// IsPlayerURL reports whether a URL matches the secondary source's exact
// player-endpoint shape.
func IsPlayerURL(u string) bool {
	return u != "" && playerShapeRe.MatchString(u)
}

// IsWrapperURL reports whether a URL is a known unembeddable wrapper page.
func IsWrapperURL(u string) bool {
	return wrapperShapeRe.MatchString(u)
}

// Secondary resolves the alternate provider's wrapper pages into player
// URLs.
type Secondary struct {
	Scorer *scorer.Scorer
	Opts   Options
	Log    *logrus.Logger
	Diag   *diag.Recorder
}

// Resolve visits one wrapper page and returns the player URL, or "" when no
// URL of the exact player shape could be discovered or derived.
func (s *Secondary) Resolve(sess *browser.Session, item match.SecondaryItem) string {
	if item.PageURL == "" {
		return ""
	}

	log := s.Log.WithFields(logrus.Fields{"home": item.HomeTeam, "away": item.AwayTeam})

	col := browser.NewCollector()
	detach := sess.Observe(col)
	defer detach()

	if err := sess.Navigate(item.PageURL, s.Opts.DeepTimeout); err != nil {
		log.WithError(err).Warn("secondary resolution failed, degrading to null")
		return ""
	}

	// Phase 1: poll frames, DOM and observed requests for a URL already in
	// player shape. The wrapper builds its variables late, hence the loop.
	deadline := time.Now().Add(s.Opts.SecondaryMax)
	for time.Now().Before(deadline) {
		if frames, err := sess.FrameURLs(); err == nil {
			for _, fu := range frames {
				if IsPlayerURL(fu) {
					log.WithField("url", fu).Debug("player URL found in frame")
					return fu
				}
			}
		}

		if html, err := sess.HTML(); err == nil {
			for _, raw := range scanWrapperDOM(html) {
				if u := scorer.Normalize(raw, item.PageURL); IsPlayerURL(u) {
					log.WithField("url", u).Debug("player URL found in DOM")
					return u
				}
			}
		}

		if scripts, err := sess.ScriptText(); err == nil && scripts != "" {
			if derived := DerivePlayerURL(currentURL(sess, item.PageURL), scripts); derived != "" {
				log.WithField("url", derived).Debug("player URL derived from scripts")
				return derived
			}
		}

		for _, cu := range col.URLs() {
			if u := scorer.Normalize(cu, item.PageURL); IsPlayerURL(u) {
				log.WithField("url", u).Debug("player URL found in requests")
				return u
			}
		}

		if err := sess.Sleep(s.Opts.SecondaryPoll); err != nil {
			break
		}
	}

	// Phase 2: among everything collected, accept only exact player shapes.
	var players []string
	for _, raw := range col.URLs() {
		u := scorer.Normalize(raw, item.PageURL)
		if u == "" || u == item.PageURL || scorer.IsAdHost(u) || scorer.IsJunk(u) {
			continue
		}
		if IsPlayerURL(u) && !IsWrapperURL(u) {
			players = append(players, u)
		}
	}
	if len(players) > 0 {
		if best := s.Scorer.PickBest(players); best != "" {
			return best
		}
		return players[0]
	}

	log.Debug("no player URL found, resolving to null")
	return ""
}

// DerivePlayerURL reconstructs the player endpoint the wrapper page would
// have built client-side: the numeric match id comes from the wrapper URL,
// the host and access key from inline script text.
func DerivePlayerURL(pageURL, scripts string) string {
	if pageURL == "" || scripts == "" {
		return ""
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	if IsPlayerURL(pageURL) {
		return pageURL
	}

	id := strings.TrimSpace(textnorm.Digits(u.Query().Get("match")))
	id = strings.TrimPrefix(strings.ToLower(id), "match")
	if !matchIDRe.MatchString(id) {
		return ""
	}

	host := ""
	for _, re := range playerHostRes {
		if m := re.FindStringSubmatch(scripts); m != nil {
			host = strings.TrimSpace(m[1])
			break
		}
	}
	if host == "" {
		return ""
	}

	key := ""
	for _, re := range playerKeyRes {
		if m := re.FindStringSubmatch(scripts); m != nil {
			key = strings.TrimSpace(m[1])
			break
		}
	}
	if key == "" {
		return ""
	}

	return fmt.Sprintf("https://%s/playerv2.php?match=match%s&key=%s",
		host, url.QueryEscape(id), url.QueryEscape(key))
}

// scanWrapperDOM pulls candidate URLs out of a wrapper page snapshot:
// iframe sources, anchors, and full player URLs in script text.
func scanWrapperDOM(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var urls []string
	doc.Find("iframe[src], iframe[data-src]").Each(func(_ int, s *goquery.Selection) {
		if v := s.AttrOr("src", ""); v != "" {
			urls = append(urls, v)
		}
		if v := s.AttrOr("data-src", ""); v != "" {
			urls = append(urls, v)
		}
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if v := s.AttrOr("href", ""); v != "" {
			urls = append(urls, v)
		}
	})

	var scripts strings.Builder
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		scripts.WriteString(s.Text())
		scripts.WriteByte('\n')
	})
	urls = append(urls, playerURLRe.FindAllString(scripts.String(), -1)...)
	return urls
}

// currentURL reads the page's live URL, falling back to the original when
// the session cannot report it.
func currentURL(sess *browser.Session, fallback string) string {
	if loc, err := sess.Location(); err == nil && loc != "" {
		return loc
	}
	return fallback
}
