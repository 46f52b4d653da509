package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"matchstream/match"
)

type stubReader struct {
	byID  map[int64]*match.Record
	byDay map[string][]match.Record
	err   error
}

func (s *stubReader) MatchByID(_ context.Context, id int64) (*match.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byID[id], nil
}

func (s *stubReader) MatchesByDay(_ context.Context, day string) ([]match.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byDay[day], nil
}

func newServer(store Reader) *Server {
	log, _ := test.NewNullLogger()
	return &Server{Store: store, Log: log, Loc: time.UTC}
}

func TestGetMatch(t *testing.T) {
	rec := &match.Record{ID: 7, MatchKey: "k", HomeTeam: "A", AwayTeam: "B", MatchDay: "2025-03-10"}
	srv := newServer(&stubReader{byID: map[int64]*match.Record{7: rec}})

	req := httptest.NewRequest(http.MethodGet, "/api/match/7", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got match.Record
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.ID != 7 || got.HomeTeam != "A" {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestGetMatchNotFound(t *testing.T) {
	srv := newServer(&stubReader{})
	req := httptest.NewRequest(http.MethodGet, "/api/match/99", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetMatchesByDate(t *testing.T) {
	srv := newServer(&stubReader{byDay: map[string][]match.Record{
		"2025-03-10": {{MatchKey: "k1"}, {MatchKey: "k2"}},
	}})
	req := httptest.NewRequest(http.MethodGet, "/api/matches?day=2025-03-10", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got struct {
		Day     string         `json:"day"`
		Matches []match.Record `json:"matches"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Day != "2025-03-10" || len(got.Matches) != 2 {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestGetMatchesByDayKey(t *testing.T) {
	today := match.DayToday.Date(time.Now(), time.UTC)
	srv := newServer(&stubReader{byDay: map[string][]match.Record{
		today: {{MatchKey: "k1"}},
	}})
	req := httptest.NewRequest(http.MethodGet, "/api/matches?day=today", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got struct {
		Day     string         `json:"day"`
		Matches []match.Record `json:"matches"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Day != today || len(got.Matches) != 1 {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestGetMatchesInvalidDay(t *testing.T) {
	srv := newServer(&stubReader{})
	req := httptest.NewRequest(http.MethodGet, "/api/matches?day=someday", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetMatchesEmptyDayIsArray(t *testing.T) {
	srv := newServer(&stubReader{})
	req := httptest.NewRequest(http.MethodGet, "/api/matches?day=2025-03-10", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if string(got["matches"]) != "[]" {
		t.Errorf("empty day should serialize as [], got %s", got["matches"])
	}
}

func TestStoreErrorIs500(t *testing.T) {
	srv := newServer(&stubReader{err: errors.New("db down")})
	req := httptest.NewRequest(http.MethodGet, "/api/matches?day=2025-03-10", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := newServer(&stubReader{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
