package harvest

import (
	"testing"

	"matchstream/match"
)

const listingFixture = `<!DOCTYPE html>
<html>
<body>
<div class="AY_Match live" data-start="2025-03-10T21:00">
	<a href="/match/ahly-vs-zamalek/"></a>
	<div class="TM_Name">الأهلي</div>
	<div class="TM_Logo"><img src="placeholder.gif" data-src="/logos/ahly.png"></div>
	<div class="MT_Result">
		<span class="RS-goals">2</span>
		<span class="RS-goals">1</span>
	</div>
	<div class="MT_Time">09:00 م</div>
	<div class="MT_Stat">جارية الآن</div>
	<div class="TM_Name">الزمالك</div>
	<div class="TM_Logo"><img src="/logos/zamalek.png"></div>
</div>
<div class="AY_Match not-started" data-start="2025-03-10T23:00">
	<a href="/match/real-vs-barca/"></a>
	<div class="TM_Name">ريال مدريد</div>
	<div class="TM_Logo"><img src="/logos/real.png"></div>
	<div class="MT_Result" style="display:none">
		<span class="RS-goals">0</span>
		<span class="RS-goals">0</span>
	</div>
	<div class="MT_Time">11:00 م</div>
	<div class="MT_Stat">لم تبدأ</div>
	<div class="TM_Name">برشلونة</div>
	<div class="TM_Logo"><img src="/logos/barca.png"></div>
</div>
<div class="AY_Match">
	<a href="/match/broken/"></a>
	<div class="TM_Name">فريق وحيد</div>
</div>
</body>
</html>`

func TestParseCards(t *testing.T) {
	rows, err := ParseCards(listingFixture, match.DayToday, "https://www.bein-live.com")
	if err != nil {
		t.Fatalf("ParseCards failed: %v", err)
	}
	// The one-team card is dropped.
	if len(rows) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(rows))
	}

	live := rows[0]
	if live.HomeTeam != "الأهلي" || live.AwayTeam != "الزمالك" {
		t.Errorf("teams = %q / %q", live.HomeTeam, live.AwayTeam)
	}
	if live.DetailURL != "https://www.bein-live.com/match/ahly-vs-zamalek/" {
		t.Errorf("detail URL = %q", live.DetailURL)
	}
	if live.StatusHint != match.StatusLive {
		t.Errorf("status hint = %q, want live", live.StatusHint)
	}
	if live.HomeScore != "2" || live.AwayScore != "1" {
		t.Errorf("score = %q-%q, want 2-1", live.HomeScore, live.AwayScore)
	}
	if live.StartAttr != "2025-03-10T21:00" {
		t.Errorf("start attr = %q", live.StartAttr)
	}
	// Lazy-load attribute beats the placeholder src.
	if live.HomeLogo != "https://www.bein-live.com/logos/ahly.png" {
		t.Errorf("home logo = %q", live.HomeLogo)
	}
	if live.AwayLogo != "https://www.bein-live.com/logos/zamalek.png" {
		t.Errorf("away logo = %q", live.AwayLogo)
	}

	upcoming := rows[1]
	if upcoming.StatusHint != match.StatusUpcoming {
		t.Errorf("status hint = %q, want upcoming", upcoming.StatusHint)
	}
	// An upcoming fixture never reports the placeholder 0-0.
	if upcoming.HomeScore != "" || upcoming.AwayScore != "" {
		t.Errorf("upcoming card carried a score: %q-%q", upcoming.HomeScore, upcoming.AwayScore)
	}
	if upcoming.TimeText != "11:00 م" {
		t.Errorf("time text = %q", upcoming.TimeText)
	}
}

func TestParseCardsHiddenPlaceholderScore(t *testing.T) {
	const fixture = `<div class="AY_Match">
	<a href="/match/x/"></a>
	<div class="TM_Name">A</div>
	<div class="TM_Name">B</div>
	<div class="MT_Result" style="display: none">
		<span class="RS-goals">0</span>
		<span class="RS-goals">0</span>
	</div>
</div>`
	rows, err := ParseCards(fixture, match.DayToday, "https://www.bein-live.com")
	if err != nil {
		t.Fatalf("ParseCards failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 card, got %d", len(rows))
	}
	if rows[0].HomeScore != "" || rows[0].AwayScore != "" {
		t.Errorf("hidden 0-0 on unknown-status card should be dropped, got %q-%q",
			rows[0].HomeScore, rows[0].AwayScore)
	}
}

func TestParseSecondaryCards(t *testing.T) {
	const fixture = `<div class="AY_Match">
	<a href="/hard/ahly.html?match=7"></a>
	<div class="TM_Name">الأهلي</div>
	<div class="TM_Name">الزمالك</div>
	<div class="MT_Time" data-start="2025-03-10T21:00"></div>
</div>
<div class="AY_Match">
	<div class="TM_Name">وحيد</div>
	<a href="/hard/x.html?match=8"></a>
</div>`
	items, err := ParseSecondaryCards(fixture, match.DayToday, "https://siiir.sbs")
	if err != nil {
		t.Fatalf("ParseSecondaryCards failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.PageURL != "https://siiir.sbs/hard/ahly.html?match=7" {
		t.Errorf("page URL = %q", it.PageURL)
	}
	if it.HomeTeam != "الأهلي" || it.AwayTeam != "الزمالك" {
		t.Errorf("teams = %q / %q", it.HomeTeam, it.AwayTeam)
	}
	if it.StartAttr != "2025-03-10T21:00" {
		t.Errorf("start attr = %q", it.StartAttr)
	}
}
