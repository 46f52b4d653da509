package harvest

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"matchstream/browser"
	"matchstream/match"
	"matchstream/scorer"
)

// secondaryLinkSelectors are tried in order when a card carries several
// anchors; player-shaped links beat the generic first anchor.
var secondaryLinkSelectors = []string{
	`a[href*="/hard/"]`,
	`a[href*="playerv2.php"]`,
	`a[href]`,
}

// SecondaryDay loads the alternate provider's listing for a day key and
// returns its cards. The secondary source shares the primary's card markup
// but links to wrapper pages instead of match detail pages.
func (h *Harvester) SecondaryDay(sess *browser.Session, day match.DayKey) ([]match.SecondaryItem, error) {
	url, ok := h.Site.DayURLs[day]
	if !ok || url == "" {
		return nil, fmt.Errorf("no secondary listing URL for day %q", day)
	}

	log := h.Log.WithFields(logrus.Fields{"site": h.Site.Name, "day": day})
	log.WithField("url", url).Info("harvesting secondary listing")

	if err := sess.Navigate(url, h.Opts.ListTimeout); err != nil {
		return nil, fmt.Errorf("loading %s listing for %s: %w", h.Site.Name, day, err)
	}

	h.waitForStableCount(sess, ".AY_Match")
	_ = sess.Sleep(900 * time.Millisecond)

	h.Diag.Screenshot(sess, fmt.Sprintf("secondary/list_%s.png", day))

	html, err := sess.HTML()
	if err != nil {
		return nil, fmt.Errorf("snapshotting %s listing for %s: %w", h.Site.Name, day, err)
	}
	h.Diag.WriteText(fmt.Sprintf("secondary/list_%s.html", day), truncate(html, 350000))

	items, err := ParseSecondaryCards(html, day, h.Site.BaseURL)
	if err != nil {
		return nil, err
	}
	log.WithField("matches", len(items)).Info("secondary listing harvested")
	return items, nil
}

// ParseSecondaryCards extracts the alternate provider's cards from a
// rendered listing document.
func ParseSecondaryCards(html string, day match.DayKey, baseURL string) ([]match.SecondaryItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing secondary listing HTML: %w", err)
	}

	var items []match.SecondaryItem
	doc.Find(".AY_Match").Each(func(_ int, card *goquery.Selection) {
		teams := card.Find(".TM_Name").Map(func(_ int, s *goquery.Selection) string {
			return strings.TrimSpace(s.Text())
		})
		var names []string
		for _, t := range teams {
			if t != "" {
				names = append(names, t)
			}
		}
		if len(names) < 2 {
			return
		}

		href := ""
		for _, sel := range secondaryLinkSelectors {
			if v := card.Find(sel).First().AttrOr("href", ""); v != "" {
				href = v
				break
			}
		}
		page := scorer.Normalize(href, baseURL)
		if page == "" {
			return
		}

		items = append(items, match.SecondaryItem{
			Day:       day,
			HomeTeam:  names[0],
			AwayTeam:  names[1],
			PageURL:   page,
			StartAttr: strings.TrimSpace(card.Find(".MT_Time").First().AttrOr("data-start", "")),
		})
	})
	return items, nil
}
