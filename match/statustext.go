package match

import (
	"regexp"
	"strings"
)

// The listing and detail pages describe match state in free Arabic or
// English text. Keyword sets below mirror what the sites actually emit.
var (
	upcomingTextRe = regexp.MustCompile(`لم\s*تبدأ|لم\s*تبدا|not started|upcoming|scheduled`)
	liveEnglishRe  = regexp.MustCompile(`\blive\b|in progress|\bnow\b`)
	endedEnglishRe = regexp.MustCompile(`\bft\b|full ?time|\bfinished\b|\bended\b|\bfinal\b`)

	liveArabic  = []string{"جارية", "مباشر", "الآن"}
	endedArabic = []string{"انتهت", "انتهى", "نهاية"}
)

// StatusFromText maps a free-text status label to a canonical status.
// Unrecognized or empty text maps to StatusUnknown.
func StatusFromText(text string) Status {
	s := strings.TrimSpace(text)
	if s == "" {
		return StatusUnknown
	}
	lower := strings.ToLower(s)

	if upcomingTextRe.MatchString(lower) {
		return StatusUpcoming
	}
	for _, kw := range liveArabic {
		if strings.Contains(s, kw) {
			return StatusLive
		}
	}
	for _, kw := range endedArabic {
		if strings.Contains(s, kw) {
			return StatusFinished
		}
	}
	if liveEnglishRe.MatchString(lower) {
		return StatusLive
	}
	if endedEnglishRe.MatchString(lower) {
		return StatusFinished
	}
	return StatusUnknown
}

// StatusFromClass maps a match card's CSS class list to a canonical status.
// The markup hint is the most authoritative signal the sites expose.
func StatusFromClass(class string) Status {
	cls := strings.ToLower(class)
	switch {
	case strings.Contains(cls, "not-started"):
		return StatusUpcoming
	case strings.Contains(cls, "live"):
		return StatusLive
	case strings.Contains(cls, "finished"), strings.Contains(cls, "ended"):
		return StatusFinished
	}
	return StatusUnknown
}
