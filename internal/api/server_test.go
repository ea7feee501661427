package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/health-grid/internal/activity"
	"github.com/talgya/health-grid/internal/config"
	"github.com/talgya/health-grid/internal/entity"
	"github.com/talgya/health-grid/internal/scenario"
	"github.com/talgya/health-grid/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	sim := scenario.New(m, activity.New(m),
		config.ScenarioConfig{OutbreakTTL: 5 * time.Minute, DefaultMultiplier: 3}, 1)
	return &Server{
		Store:      m,
		Activities: m,
		Metrics:    m,
		Sim:        sim,
		AdminKey:   "secret",
	}, m
}

func seedEntities(t *testing.T, m *store.Memory) {
	t.Helper()
	labState := &entity.LabState{}
	labState.EnsureDefaults()
	require.NoError(t, m.Save(context.Background(), &entity.Entity{
		ID: "lab-1", Name: "Zone-1 Lab", Type: entity.TypeLab, Zone: "Zone-1", State: labState,
	}))
	hospState := &entity.HospitalState{}
	hospState.EnsureDefaults()
	require.NoError(t, m.Save(context.Background(), &entity.Entity{
		ID: "hosp-1", Name: "Zone-2 General", Type: entity.TypeHospital, Zone: "Zone-2", State: hospState,
	}))
}

func do(t *testing.T, s *Server, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.routes().ServeHTTP(w, req)
	return w
}

func TestStatus(t *testing.T) {
	s, m := newTestServer(t)
	seedEntities(t, m)

	w := do(t, s, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	counts := body["entities"].(map[string]any)
	assert.Equal(t, float64(1), counts["lab"])
	assert.Equal(t, float64(1), counts["hospital"])
}

func TestEntities_Filters(t *testing.T) {
	s, m := newTestServer(t)
	seedEntities(t, m)

	w := do(t, s, http.MethodGet, "/api/v1/entities?type=lab", "")
	require.Equal(t, http.StatusOK, w.Code)
	var labs []json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &labs))
	assert.Len(t, labs, 1)

	w = do(t, s, http.MethodGet, "/api/v1/entities?zone=Zone-2&type=hospital", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hospitals []json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hospitals))
	assert.Len(t, hospitals, 1)

	w = do(t, s, http.MethodGet, "/api/v1/entities", "")
	require.Equal(t, http.StatusOK, w.Code)
	var all []json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 2)
}

func TestEntityDetail(t *testing.T) {
	s, m := newTestServer(t)
	seedEntities(t, m)

	w := do(t, s, http.MethodGet, "/api/v1/entity/lab-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var e map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, "lab-1", e["id"])

	w = do(t, s, http.MethodGet, "/api/v1/entity/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActivities(t *testing.T) {
	s, m := newTestServer(t)
	require.NoError(t, m.AppendActivity(context.Background(), store.Activity{
		EntityID: "lab-1", AgentType: "Lab", ActivityType: "STATUS", Message: "processing tests",
	}))

	w := do(t, s, http.MethodGet, "/api/v1/activities?entity=lab-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var acts []store.Activity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &acts))
	require.Len(t, acts, 1)
	assert.Equal(t, "processing tests", acts[0].Message)
}

func TestScenarios_ListsCatalog(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/scenarios", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed, 5)
	for _, p := range listed {
		assert.Equal(t, false, p["active"])
	}
}

func TestTrigger_RequiresToken(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/scenarios/dengue/trigger", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/scenarios/dengue/trigger", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTrigger_DisabledWithoutKey(t *testing.T) {
	s, _ := newTestServer(t)
	s.AdminKey = ""

	w := do(t, s, http.MethodPost, "/api/v1/scenarios/dengue/trigger", "anything")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTrigger_RunsScenario(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/scenarios/dengue/trigger", "secret")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["outbreakId"])

	active := s.Sim.ActiveTriggers()
	require.Len(t, active, 1)
	assert.Equal(t, "dengue", active[0].Disease)
}

func TestTrigger_UnknownScenario(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/scenarios/zombies/trigger", "secret")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReset(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/diseases/DENGUE/reset", "secret")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "dengue", body["disease"], "disease names normalize to lower case")
}
