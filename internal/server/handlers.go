package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/workout"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Single-user deployment; every row is owned by this ID.
const defaultUserID = 1

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	var rec models.SessionRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if rec.ID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session ID required"})
		return
	}
	rec.UserID = defaultUserID

	inserted, err := s.db.InsertSession(r.Context(), rec)
	if err != nil {
		s.log.Error("save session error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":       rec.ID,
		"inserted": inserted,
	})
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var t models.Template
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.UserID = defaultUserID
	if err := t.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.db.InsertTemplate(r.Context(), t); err != nil {
		s.log.Error("create template error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": t.ID})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.db.ListTemplates(r.Context(), defaultUserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, ok := s.templateFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	t, ok := s.templateFromPath(w, r)
	if !ok {
		return
	}

	suggestions := s.advisor.SuggestTemplate(r.Context(), defaultUserID, *t)
	writeJSON(w, http.StatusOK, suggestions)
}

func (s *Server) handleDuration(w http.ResponseWriter, r *http.Request) {
	t, ok := s.templateFromPath(w, r)
	if !ok {
		return
	}

	estimate := workout.EstimateDuration(*t)

	past, err := s.db.RecentSessionsByTemplate(r.Context(), defaultUserID, t.ID, 5)
	if err != nil {
		s.log.Error("duration history error", "error", err)
		past = nil
	}

	resp := map[string]any{
		"estimate_sec": int(estimate.Seconds()),
		"source":       "estimate",
	}
	if avg, ok := workout.HistoricalAverageDuration(*t, past); ok {
		resp["estimate_sec"] = int(avg.Seconds())
		resp["source"] = "history"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuerySessions(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := s.db.QuerySessions(r.Context(), start, end, defaultUserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}

	rec, err := s.db.GetSession(r.Context(), sessionID, defaultUserID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleVolumeSummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	bucket := r.URL.Query().Get("bucket")
	switch bucket {
	case "day", "week", "month":
	case "":
		bucket = "week"
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bucket must be day, week, or month"})
		return
	}

	periods, err := s.db.GetVolumeSummary(r.Context(), start, end, bucket, defaultUserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, periods)
}

// templateFromPath loads the template named by the {id} URL param,
// writing the error response itself when it fails.
func (s *Server) templateFromPath(w http.ResponseWriter, r *http.Request) (*models.Template, bool) {
	templateID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid template ID"})
		return nil, false
	}

	t, err := s.db.GetTemplate(r.Context(), templateID, defaultUserID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "template not found"})
		return nil, false
	}
	return t, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 30 days
		end = time.Now()
		start = end.AddDate(0, 0, -30)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
