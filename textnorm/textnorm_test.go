package textnorm

import (
	"testing"
	"time"
)

func TestDigits(t *testing.T) {
	cases := map[string]string{
		"٠١٢٣٤٥٦٧٨٩": "0123456789",
		"۱۲:۳۰":      "12:30",
		"2-1":        "2-1",
		"مباراة ٣":   "مباراة 3",
	}
	for in, want := range cases {
		if got := Digits(in); got != want {
			t.Errorf("Digits(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseScore(t *testing.T) {
	three := 3
	zero := 0
	cases := []struct {
		in   string
		want *int
	}{
		{"3", &three},
		{"٠٣", &three},
		{"0", &zero},
		{" 3 ", &three},
		{"", nil},
		{"abc", nil},
		{"-1", nil},
		{"99", nil},
		{"3-1", nil},
		{"3.5", nil},
	}
	for _, c := range cases {
		got := ParseScore(c.in)
		switch {
		case got == nil && c.want != nil:
			t.Errorf("ParseScore(%q) = nil, want %d", c.in, *c.want)
		case got != nil && c.want == nil:
			t.Errorf("ParseScore(%q) = %d, want nil", c.in, *got)
		case got != nil && c.want != nil && *got != *c.want:
			t.Errorf("ParseScore(%q) = %d, want %d", c.in, *got, *c.want)
		}
	}
}

func TestCanonTeam(t *testing.T) {
	// Hamza variants and diacritics must not split identities.
	if CanonTeam("الأهلي") != CanonTeam("الاهلي") {
		t.Error("hamza variant produced a different canonical name")
	}
	if CanonTeam("النَّصر") != CanonTeam("النصر") {
		t.Error("diacritics produced a different canonical name")
	}
	if got := CanonTeam("  Real Madrid  "); got != "realmadrid" {
		t.Errorf("CanonTeam latin = %q, want realmadrid", got)
	}
	if got := CanonTeam("برشلونة"); got != CanonTeam("برشلونه") {
		t.Errorf("taa marbuta variant split identity: %q vs %q", got, CanonTeam("برشلونه"))
	}
	if CanonTeam("") != "" {
		t.Error("empty name should canonicalize to empty")
	}
}

func TestStartFromAttr(t *testing.T) {
	loc := time.FixedZone("EET", 2*3600)

	got := StartFromAttr("2025-03-10T21:00", loc)
	want := time.Date(2025, 3, 10, 21, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("StartFromAttr = %v, want %v", got, want)
	}

	got = StartFromAttr("2025-03-10 21:00:00", loc)
	if !got.Equal(want) {
		t.Errorf("space layout = %v, want %v", got, want)
	}

	// Arabic-Indic digits normalize before parsing.
	got = StartFromAttr("٢٠٢٥-٠٣-١٠T٢١:٠٠", loc)
	if !got.Equal(want) {
		t.Errorf("localized digits = %v, want %v", got, want)
	}

	if !StartFromAttr("", loc).IsZero() {
		t.Error("empty attribute should parse to zero time")
	}
	if !StartFromAttr("tomorrow", loc).IsZero() {
		t.Error("garbage attribute should parse to zero time")
	}
}

func TestDayOf(t *testing.T) {
	loc := time.FixedZone("EET", 2*3600)
	// 23:30 UTC is already the next day in EET.
	utc := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	if got := DayOf(utc, loc); got != "2025-03-11" {
		t.Errorf("DayOf = %q, want 2025-03-11", got)
	}
}

func TestPrettyTime(t *testing.T) {
	loc := time.FixedZone("EET", 2*3600)
	evening := time.Date(2025, 3, 10, 21, 30, 0, 0, loc)
	if got := PrettyTime(evening, loc); got != "09:30 م" {
		t.Errorf("PrettyTime evening = %q, want 09:30 م", got)
	}
	morning := time.Date(2025, 3, 10, 9, 5, 0, 0, loc)
	if got := PrettyTime(morning, loc); got != "09:05 ص" {
		t.Errorf("PrettyTime morning = %q, want 09:05 ص", got)
	}
	if got := PrettyTime(time.Time{}, loc); got != "—" {
		t.Errorf("PrettyTime zero = %q, want placeholder", got)
	}
}
