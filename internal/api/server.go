// Package api provides the HTTP surface for observing the network and
// driving scenarios. GET endpoints are public read-only observation;
// POST endpoints require a bearer token and are rate limited. The core
// simulation never depends on this package.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/talgya/health-grid/internal/entity"
	"github.com/talgya/health-grid/internal/scenario"
	"github.com/talgya/health-grid/internal/store"
)

// Server serves network state over HTTP.
type Server struct {
	Store      store.Store
	Activities store.ActivityLog
	Metrics    store.MetricsLog
	Sim        *scenario.Simulator
	Port       int
	AdminKey   string // Bearer token for POST endpoints. Empty = POST disabled.

	started time.Time
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	mux := s.routes()
	go func() {
		slog.Info("API server listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("API server failed", "error", err)
		}
	}()
}

// routes builds the request mux.
func (s *Server) routes() *http.ServeMux {
	s.started = time.Now()

	// Scenario writes are expensive (they force a full update pass);
	// keep them to a trickle.
	scenarioLimiter := rate.NewLimiter(rate.Every(10*time.Second), 5)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/entities", s.handleEntities)
	mux.HandleFunc("GET /api/v1/entity/{id}", s.handleEntityDetail)
	mux.HandleFunc("GET /api/v1/activities", s.handleActivities)
	mux.HandleFunc("GET /api/v1/metrics/{id}", s.handleMetrics)
	mux.HandleFunc("GET /api/v1/scenarios", s.handleScenarios)
	mux.HandleFunc("GET /api/v1/scenarios/statistics", s.handleStatistics)

	mux.HandleFunc("POST /api/v1/scenarios/{id}/trigger",
		s.adminOnly(s.rateLimited(scenarioLimiter, s.handleTrigger)))
	mux.HandleFunc("POST /api/v1/diseases/{disease}/reset",
		s.adminOnly(s.rateLimited(scenarioLimiter, s.handleReset)))

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// adminOnly gates a handler behind the bearer token. No token
// configured means the control plane is disabled entirely.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, "control plane disabled")
			return
		}
		auth := r.Header.Get("Authorization")
		if auth != "Bearer "+s.AdminKey {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

func (s *Server) rateLimited(l *rate.Limiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	entities, err := s.Store.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	counts := make(map[string]int)
	for _, e := range entities {
		counts[string(e.Type)]++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uptime":   time.Since(s.started).Round(time.Second).String(),
		"entities": counts,
	})
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	var (
		entities []*entity.Entity
		err      error
	)
	zone := r.URL.Query().Get("zone")
	typ := entity.Type(r.URL.Query().Get("type"))

	switch {
	case zone != "" && typ != "":
		entities, err = s.Store.FindByZoneAndType(r.Context(), zone, typ)
	case typ != "":
		entities, err = s.Store.FindByType(r.Context(), typ)
	default:
		entities, err = s.Store.All(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, entities)
}

func (s *Server) handleEntityDetail(w http.ResponseWriter, r *http.Request) {
	e, err := s.Store.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	activities, err := s.Activities.RecentActivities(r.Context(), r.URL.Query().Get("entity"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	records, err := s.Metrics.RecentMetrics(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	active := s.Sim.ActiveTriggers()
	presets := scenario.Presets()

	type listed struct {
		scenario.Preset
		Active bool `json:"active"`
	}
	out := make([]listed, 0, len(presets))
	for _, p := range presets {
		isActive := false
		for _, t := range active {
			if t.Disease == p.Disease {
				isActive = true
				break
			}
		}
		out = append(out, listed{Preset: p, Active: isActive})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Sim.Statistics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch statistics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"statistics": stats,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	preset, ok := scenario.PresetByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "scenario not found")
		return
	}

	outbreakID, err := s.Sim.TriggerOutbreak(r.Context(), preset.Disease, preset.Zones, preset.Multiplier)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to trigger scenario")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"outbreakId": outbreakID,
		"scenario":   preset,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	dis := strings.ToLower(r.PathValue("disease"))
	if err := s.Sim.ResetDisease(r.Context(), dis); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset disease")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "disease": dis})
}
