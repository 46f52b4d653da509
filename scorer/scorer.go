// Package scorer ranks candidate stream URLs discovered during deep
// resolution and picks the one most likely to be a playable endpoint.
//
// The heuristics live in an ordered rule table per source so they can be
// tested and extended without touching control flow.
package scorer

import (
	"net/url"
	"regexp"
	"strings"
)

// rejectFloor is the score below which a candidate is never returned.
const rejectFloor = -1000

// AdHosts are advertising and tracking networks whose URLs can never be
// stream endpoints. Workers consult this list read-only.
var AdHosts = []string{
	"doubleclick.net",
	"googlesyndication.com",
	"googleadservices.com",
	"googletagservices.com",
	"adservice.google.com",
	"adsystem.com",
	"taboola.com",
	"outbrain.com",
	"mgid.com",
	"propellerads.com",
	"popads.net",
	"onclickalgo.com",
	"pushwelcome.com",
	"pushpushgo.com",
	"hilltopads.net",
	"identitylumber.com",
}

// botHints are substrings that mark an anti-bot challenge page.
var botHints = []string{
	"captcha",
	"recaptcha",
	"turnstile",
	"cloudflare",
	"challenge",
	"verify",
	"verification",
	"not-a-robot",
	"not a robot",
	"robot",
}

// staticAssetRe matches style/script/image/font/archive URLs that are page
// furniture, not streams.
var staticAssetRe = regexp.MustCompile(`\.(css|js|png|jpg|jpeg|gif|svg|webp|avif|woff|woff2|ttf|eot|ico|json|map|zip|rar)(\?.*)?$`)

// junkFragments are path fragments of known non-stream infrastructure.
var junkFragments = []string{
	"cloudflareinsights.com",
	"beacon.min.js",
	"cf-beacon",
	"wp-content/uploads/",
	"/assets/css/",
	"/wp-content/themes/",
	"/wp-includes/",
}

// Rule awards (or withdraws) weight when its predicate matches a lowercased
// candidate URL. Rules are evaluated in order and their weights accumulate.
type Rule struct {
	Name   string
	Match  func(u string) bool
	Weight int
}

func contains(sub string) func(string) bool {
	return func(u string) bool { return strings.Contains(u, sub) }
}

// defaultRules is the marker vocabulary shared by both sources. The most
// specific marker (the secondary source's exact player endpoint) carries the
// largest single weight; generic player-ish substrings carry the least.
var defaultRules = []Rule{
	{Name: "playerv2", Match: contains("playerv2.php"), Weight: 1200},
	{Name: "hls-manifest", Match: contains("m3u8"), Weight: 300},
	{Name: "albaplayer", Match: contains("albaplayer"), Weight: 250},
	{Name: "kora-live", Match: contains("kora-live"), Weight: 200},
	{Name: "embed", Match: contains("embed"), Weight: 80},
	{Name: "player", Match: contains("player"), Weight: 60},
	{Name: "iframe", Match: contains("iframe"), Weight: 40},
	{Name: "live", Match: contains("live"), Weight: 20},

	// Plausible-looking links that are not stream endpoints.
	{Name: "listing-self-link", Match: func(u string) bool {
		return strings.Contains(u, "bein-live.com") && strings.Contains(u, "match")
	}, Weight: -120},
	{Name: "hard-wrapper", Match: func(u string) bool {
		return strings.Contains(u, "/hard/") && strings.Contains(u, "match=")
	}, Weight: -1200},
	{Name: "uploads-asset", Match: contains("/wp-content/uploads/"), Weight: -500},
}

// Scorer scores candidate URLs against a rule table.
type Scorer struct {
	rules []Rule
}

// New returns a scorer over the shared marker vocabulary.
func New() *Scorer {
	return &Scorer{rules: defaultRules}
}

// NewWithRules returns a scorer over a source-specific rule table.
func NewWithRules(rules []Rule) *Scorer {
	return &Scorer{rules: rules}
}

// Score rates a single absolute URL. Disqualified URLs score below the
// acceptability floor and are never picked.
func (s *Scorer) Score(rawURL string) int {
	if rawURL == "" {
		return -99999
	}
	u := strings.ToLower(rawURL)

	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return -99999
	}
	if IsJunk(u) || u == "about:blank" {
		return -99999
	}
	if IsAdHost(u) || strings.Contains(u, "googleads") || strings.Contains(u, "doubleclick") {
		return -5000
	}
	if HasBotHint(u) {
		return -4000
	}

	score := 0
	for _, r := range s.rules {
		if r.Match(u) {
			score += r.Weight
		}
	}
	return score
}

// PickBest returns the highest-scoring candidate, or "" when no candidate
// clears the acceptability floor. Duplicates are dropped; ties break on
// first-seen order.
func (s *Scorer) PickBest(urls []string) string {
	seen := make(map[string]bool, len(urls))
	best := ""
	bestScore := 0
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		sc := s.Score(u)
		if best == "" || sc > bestScore {
			best, bestScore = u, sc
		}
	}
	if best == "" || bestScore <= rejectFloor {
		return ""
	}
	return best
}

// IsAdHost reports whether the URL's host belongs to a known ad network.
func IsAdHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range AdHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// IsJunk reports whether a URL is a static asset or known non-stream
// infrastructure endpoint.
func IsJunk(rawURL string) bool {
	if rawURL == "" {
		return true
	}
	u := strings.ToLower(rawURL)
	if staticAssetRe.MatchString(u) {
		return true
	}
	for _, frag := range junkFragments {
		if strings.Contains(u, frag) {
			return true
		}
	}
	return false
}

// HasBotHint reports whether a URL or page text smells like an anti-bot
// challenge.
func HasBotHint(s string) bool {
	lower := strings.ToLower(s)
	for _, h := range botHints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

// IsWeak reports whether a stream URL structurally cannot be a real stream:
// a listing-site self-link, an unembeddable wrapper page, or a URL carrying
// none of the accepted player markers. The merge engine refuses to replace a
// strong URL with a weak one.
func IsWeak(rawURL string) bool {
	if rawURL == "" {
		return true
	}
	u := strings.ToLower(rawURL)

	if strings.Contains(u, "bein-live.com") && strings.Contains(u, "match") {
		return true
	}
	if strings.Contains(u, "/hard/") && strings.Contains(u, "match=") {
		return true
	}
	if strings.Contains(u, "playerv2.php") {
		return false
	}
	for _, hint := range []string{"m3u8", "embed", "player", "iframe", "albaplayer", "kora-live"} {
		if strings.Contains(u, hint) {
			return false
		}
	}
	return true
}

// Normalize resolves a raw candidate against the page it was seen on and
// returns an absolute http(s) URL, or "" when it cannot be one.
func Normalize(raw, base string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "data:") {
		return ""
	}
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		baseURL, err := url.Parse(base)
		if err != nil {
			return ""
		}
		ref, err := url.Parse(u)
		if err != nil {
			return ""
		}
		u = baseURL.ResolveReference(ref).String()
	}
	lower = strings.ToLower(u)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return ""
	}
	return u
}
