package resolve

import (
	"strings"
	"testing"

	"matchstream/match"
)

func TestIsPlayerURL(t *testing.T) {
	cases := map[string]bool{
		"https://x.sbs/playerv2.php?match=match7&key=abc": true,
		"https://x.sbs/PLAYERV2.PHP?match=match7":         true,
		"https://x.sbs/playerv2.php":                      true,
		"https://x.sbs/hard/ahly.html?match=7":            false,
		"https://x.sbs/player.php?ch=1":                   false,
		"":                                                false,
	}
	for u, want := range cases {
		if got := IsPlayerURL(u); got != want {
			t.Errorf("IsPlayerURL(%q) = %v, want %v", u, got, want)
		}
	}
}

func TestIsWrapperURL(t *testing.T) {
	if !IsWrapperURL("https://x.sbs/hard/ahly.html?match=7") {
		t.Error("wrapper page not recognized")
	}
	if IsWrapperURL("https://x.sbs/playerv2.php?match=match7") {
		t.Error("player endpoint misclassified as wrapper")
	}
}

func TestDerivePlayerURL(t *testing.T) {
	page := "https://x.sbs/hard/ahly.html?match=7"
	scripts := `
		var server = "https://stream.example.sbs/playerv2.php";
		var key = "a1b2c3";
	`
	got := DerivePlayerURL(page, scripts)
	want := "https://stream.example.sbs/playerv2.php?match=match7&key=a1b2c3"
	if got != want {
		t.Errorf("DerivePlayerURL = %q, want %q", got, want)
	}
}

func TestDerivePlayerURLMatchPrefix(t *testing.T) {
	// Some wrappers pass match=match7 rather than the bare id.
	page := "https://x.sbs/hard/ahly.html?match=match7"
	scripts := `src = "https://s.example.sbs/playerv2.php"; key = "k9";`
	got := DerivePlayerURL(page, scripts)
	want := "https://s.example.sbs/playerv2.php?match=match7&key=k9"
	if got != want {
		t.Errorf("DerivePlayerURL = %q, want %q", got, want)
	}
}

func TestDerivePlayerURLMissingPieces(t *testing.T) {
	page := "https://x.sbs/hard/ahly.html?match=7"
	if got := DerivePlayerURL(page, `var key = "abc";`); got != "" {
		t.Errorf("missing host should derive nothing, got %q", got)
	}
	if got := DerivePlayerURL(page, `var s = "https://h.sbs/playerv2.php";`); got != "" {
		t.Errorf("missing key should derive nothing, got %q", got)
	}
	if got := DerivePlayerURL("https://x.sbs/hard/ahly.html", `anything`); got != "" {
		t.Errorf("missing match id should derive nothing, got %q", got)
	}
	if got := DerivePlayerURL("https://x.sbs/hard/a.html?match=123456789", `x`); got != "" {
		t.Errorf("oversized match id should derive nothing, got %q", got)
	}
}

func TestDerivePlayerURLAlreadyPlayer(t *testing.T) {
	u := "https://h.sbs/playerv2.php?match=match7&key=k"
	if got := DerivePlayerURL(u, "whatever"); got != u {
		t.Errorf("player-shaped page should pass through, got %q", got)
	}
}

func TestScanWrapperDOM(t *testing.T) {
	const html = `<html><body>
	<iframe src="https://a.sbs/frame" data-src="https://b.sbs/lazy"></iframe>
	<a href="/other">x</a>
	<script>var u = "https://c.sbs/playerv2.php?match=match7&key=k";</script>
	</body></html>`
	urls := scanWrapperDOM(html)
	joined := strings.Join(urls, " ")
	for _, want := range []string{
		"https://a.sbs/frame",
		"https://b.sbs/lazy",
		"/other",
		"https://c.sbs/playerv2.php?match=match7&key=k",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("scanWrapperDOM missing %q in %v", want, urls)
		}
	}
}

func TestParseDetailMeta(t *testing.T) {
	const html = `<html><body>
	<div class="AY_Match live">
		<div class="MT_Stat">جارية الآن</div>
		<span class="RS-goals">1</span>
		<span class="RS-goals">0</span>
	</div>
	</body></html>`
	meta := ParseDetailMeta(html)
	if meta.StatusHint != match.StatusLive {
		t.Errorf("status hint = %q, want live", meta.StatusHint)
	}
	if meta.StatusText != "جارية الآن" {
		t.Errorf("status text = %q", meta.StatusText)
	}
	if meta.HomeScore != "1" || meta.AwayScore != "0" {
		t.Errorf("score = %q-%q, want 1-0", meta.HomeScore, meta.AwayScore)
	}
}

func TestParseDetailMetaUpcomingNoScore(t *testing.T) {
	const html = `<html><body>
	<div class="AY_Match not-started">
		<div class="MT_Stat">لم تبدأ</div>
		<span class="RS-goals">0</span>
		<span class="RS-goals">0</span>
	</div>
	</body></html>`
	meta := ParseDetailMeta(html)
	if meta.StatusHint != match.StatusUpcoming {
		t.Errorf("status hint = %q, want upcoming", meta.StatusHint)
	}
	if meta.HomeScore != "" || meta.AwayScore != "" {
		t.Errorf("upcoming detail page carried a score: %q-%q", meta.HomeScore, meta.AwayScore)
	}
}

func TestParseCandidateURLs(t *testing.T) {
	const html = `<html><body>
	<div class="video-serv"><a href="/servers/ch1">S1</a></div>
	<iframe src="https://e.sbs/embed/1" data-src="https://e.sbs/embed/2"></iframe>
	<video><source src="https://cdn.sbs/live/stream.m3u8"></video>
	</body></html>`
	urls := ParseCandidateURLs(html, "https://www.bein-live.com/match/x/")
	joined := strings.Join(urls, " ")
	for _, want := range []string{
		"https://www.bein-live.com/servers/ch1",
		"https://e.sbs/embed/1",
		"https://e.sbs/embed/2",
		"https://cdn.sbs/live/stream.m3u8",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("ParseCandidateURLs missing %q in %v", want, urls)
		}
	}
}

func TestMetaOverride(t *testing.T) {
	first := Meta{StatusText: "لم تبدأ", StatusHint: match.StatusUpcoming}
	later := Meta{StatusText: "جارية الآن", StatusHint: match.StatusLive, HomeScore: "1", AwayScore: "0"}
	got := first.override(later)
	if got.StatusHint != match.StatusLive || got.HomeScore != "1" {
		t.Errorf("later signals should win: %+v", got)
	}

	// A later reading with nothing new keeps the first reading.
	got = first.override(Meta{StatusHint: match.StatusUnknown})
	if got.StatusText != "لم تبدأ" || got.StatusHint != match.StatusUpcoming {
		t.Errorf("empty later reading should not erase signals: %+v", got)
	}
}
