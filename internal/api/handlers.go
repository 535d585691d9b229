package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/newspulse/sentinel/internal/monitor"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

func (s *Server) collectFull(w http.ResponseWriter, r *http.Request) {
	run := s.scheduler.RunFull(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func (s *Server) collectTier(w http.ResponseWriter, r *http.Request) {
	tier := monitor.Tier(strings.ToLower(chi.URLParam(r, "tier")))
	run, err := s.scheduler.RunTier(r.Context(), tier)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func (s *Server) collectCategory(w http.ResponseWriter, r *http.Request) {
	category := monitor.Category(strings.ToLower(chi.URLParam(r, "category")))
	run, err := s.scheduler.RunCategory(r.Context(), category)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func (s *Server) collectSource(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "source_id")
	run, err := s.scheduler.RunSource(r.Context(), sourceID)
	if err != nil {
		if errors.Is(err, monitor.ErrNotFound) {
			writeError(w, http.StatusNotFound, "source not found")
			return
		}
		s.logger.Error("single source run failed", zap.String("source_id", sourceID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "collection failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func (s *Server) getSchedule(w http.ResponseWriter, _ *http.Request) {
	tiers, lastEvaluation := s.scheduler.State()
	payload := map[string]any{"tiers": tiers}
	if !lastEvaluation.IsZero() {
		payload["last_evaluation_at"] = lastEvaluation
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	status := monitor.AlertStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	switch status {
	case "", monitor.AlertStatusActive, monitor.AlertStatusResolved:
	default:
		writeError(w, http.StatusBadRequest, "invalid status filter")
		return
	}
	limit, err := parseLimit(r, defaultAlertLimit, maxAlertLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := s.alerts.ListAlerts(r.Context(), status, limit)
	if err != nil {
		s.logger.Error("list alerts failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []monitor.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) getAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alert_id")
	alert, err := s.alerts.GetAlert(r.Context(), alertID)
	if err != nil {
		if errors.Is(err, monitor.ErrNotFound) {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		s.logger.Error("get alert failed", zap.String("alert_id", alertID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load alert")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alert": alert})
}

func (s *Server) resolveAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alert_id")
	if err := s.alerts.ResolveAlert(r.Context(), alertID, s.clock.Now()); err != nil {
		if errors.Is(err, monitor.ErrNotFound) {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		s.logger.Error("resolve alert failed", zap.String("alert_id", alertID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to resolve alert")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"alert_id": alertID,
		"status":   string(monitor.AlertStatusResolved),
	})
}

func (s *Server) trendingKeywords(w http.ResponseWriter, r *http.Request) {
	window := s.cfg.KeywordWindow()
	if hoursParam := r.URL.Query().Get("hours"); hoursParam != "" {
		hours, err := strconv.Atoi(hoursParam)
		if err != nil || hours <= 0 {
			writeError(w, http.StatusBadRequest, "invalid hours")
			return
		}
		window = time.Duration(hours) * time.Hour
	}
	limit, err := parseLimit(r, s.cfg.Keywords.Limit, 500)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recent, err := s.content.Recent(r.Context(), window)
	if err != nil {
		s.logger.Error("load recent content failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load recent content")
		return
	}

	counts := s.aggregator.Aggregate(recent, s.clock.Now(), limit)
	if counts == nil {
		counts = []monitor.KeywordCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"keywords":       counts,
		"analyzed_items": len(recent),
		"window_hours":   int(window.Hours()),
	})
}

func parseLimit(r *http.Request, def, max int) (int, error) {
	limitParam := r.URL.Query().Get("limit")
	if limitParam == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(limitParam)
	if err != nil || limit <= 0 {
		return 0, errors.New("invalid limit")
	}
	if limit > max {
		limit = max
	}
	return limit, nil
}
