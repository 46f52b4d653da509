// Package web serves the read-side HTTP API over the persisted match rows.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"matchstream/match"
)

// Reader is the slice of the store the API needs.
type Reader interface {
	MatchByID(ctx context.Context, id int64) (*match.Record, error)
	MatchesByDay(ctx context.Context, day string) ([]match.Record, error)
}

// Server exposes the persisted rows as JSON.
type Server struct {
	Store Reader
	Log   *logrus.Logger
	Loc   *time.Location
}

var dayRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/match/{id:[0-9]+}", s.handleMatch).Methods(http.MethodGet)
	api.HandleFunc("/matches", s.handleMatches).Methods(http.MethodGet)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	return cors.Default().Handler(r)
}

// ListenAndServe runs the API until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.Log.WithField("addr", addr).Info("serving API")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}
	rec, err := s.Store.MatchByID(r.Context(), id)
	if err != nil {
		s.Log.WithError(err).Error("match lookup failed")
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "match not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleMatches serves ?day= as either a calendar date (YYYY-MM-DD) or one
// of the rolling keys yesterday/today/tomorrow; the default is today.
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	switch {
	case day == "":
		day = match.DayToday.Date(time.Now(), s.location())
	case dayRe.MatchString(day):
		// already a calendar date
	default:
		key := match.DayKey(day)
		ok := false
		for _, d := range match.Days {
			if d == key {
				ok = true
				break
			}
		}
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid day")
			return
		}
		day = key.Date(time.Now(), s.location())
	}

	recs, err := s.Store.MatchesByDay(r.Context(), day)
	if err != nil {
		s.Log.WithError(err).Error("day listing failed")
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if recs == nil {
		recs = []match.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"day": day, "matches": recs})
}

func (s *Server) location() *time.Location {
	if s.Loc != nil {
		return s.Loc
	}
	return time.UTC
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
