// Package textnorm converts localized digits, free-form status text and
// partial timestamps from the source sites into canonical values.
package textnorm

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// digitMap translates Arabic-Indic and Extended Arabic-Indic digits to ASCII.
var digitMap = map[rune]rune{
	'٠': '0', '١': '1', '٢': '2', '٣': '3', '٤': '4',
	'٥': '5', '٦': '6', '٧': '7', '٨': '8', '٩': '9',
	'۰': '0', '۱': '1', '۲': '2', '۳': '3', '۴': '4',
	'۵': '5', '۶': '6', '۷': '7', '۸': '8', '۹': '9',
}

// Digits replaces localized digit runes with their ASCII equivalents.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if d, ok := digitMap[r]; ok {
			return d
		}
		return r
	}, s)
}

// asciiDigits matches a strict one-or-two digit goal count.
var asciiDigits = regexp.MustCompile(`^\d{1,2}$`)

// maxGoals bounds a believable score; anything above parses to nil.
const maxGoals = 30

// ParseScore parses a goal count. It returns nil unless the input, after
// digit normalization, is one or two ASCII digits in the range 0-30.
func ParseScore(raw string) *int {
	s := strings.TrimSpace(Digits(raw))
	if !asciiDigits.MatchString(s) {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > maxGoals {
		return nil
	}
	return &n
}

// arabicDiacritics strips tashkeel, the superscript alef and tatweel.
var arabicDiacritics = regexp.MustCompile(`[\x{064B}-\x{0652}\x{0670}\x{0640}]`)

var letterVariants = strings.NewReplacer(
	"إ", "ا",
	"أ", "ا",
	"آ", "ا",
	"ى", "ي",
	"ة", "ه",
	"ؤ", "و",
	"ئ", "ي",
)

// CanonTeam canonicalizes a team display name for identity matching:
// digits normalized, diacritics stripped, letter variants unified, and
// everything that is not a letter or digit removed.
func CanonTeam(name string) string {
	s := strings.TrimSpace(Digits(name))
	s = arabicDiacritics.ReplaceAllString(s, "")
	s = letterVariants.Replace(s)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// startAttrLayouts are the timestamp shapes the listing sites put in the
// data-start attribute. They carry no zone; the source-local zone applies.
var startAttrLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// StartFromAttr parses a raw data-start attribute in the given source-local
// location. Returns the zero time when the attribute is absent or malformed.
func StartFromAttr(raw string, loc *time.Location) time.Time {
	s := strings.TrimSpace(Digits(raw))
	if s == "" {
		return time.Time{}
	}
	for _, layout := range startAttrLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc)
	}
	return time.Time{}
}

// DayOf formats a calendar day (YYYY-MM-DD) in the source-local zone.
func DayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// PrettyTime renders a start instant as the display string shown to users:
// 12-hour clock in the source-local zone with Arabic meridiem markers.
// The zero time renders as an em dash, matching an unknown kick-off.
func PrettyTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "—"
	}
	local := t.In(loc)
	marker := "ص"
	if local.Hour() >= 12 {
		marker = "م"
	}
	return local.Format("03:04") + " " + marker
}
