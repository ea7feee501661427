package agents

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/health-grid/internal/entity"
	"github.com/talgya/health-grid/internal/store"
)

func saveLab(t *testing.T, m *store.Memory, st *entity.LabState) {
	t.Helper()
	require.NoError(t, m.Save(context.Background(), &entity.Entity{
		ID:    "lab-1",
		Name:  "Zone-1 Diagnostics",
		Type:  entity.TypeLab,
		Zone:  "Zone-1",
		State: st,
	}))
}

func TestRiskLevel(t *testing.T) {
	tests := []struct {
		growthRate float64
		want       string
	}{
		{2.0, "critical"},
		{1.51, "critical"},
		{1.5, "high"}, // boundary: strictly greater
		{1.0, "high"},
		{0.81, "high"},
		{0.8, "medium"},
		{0.5, "medium"},
		{0.4, "low"},
		{0.1, "low"},
		{-0.5, "low"},
	}
	for _, tt := range tests {
		if got := riskLevel(tt.growthRate); got != tt.want {
			t.Errorf("riskLevel(%v) = %q, want %q", tt.growthRate, got, tt.want)
		}
	}
}

func TestOutbreakEvent(t *testing.T) {
	assert.Equal(t, "DENGUE_OUTBREAK_PREDICTED", OutbreakEvent("dengue"))
	assert.Equal(t, "COVID_OUTBREAK_PREDICTED", OutbreakEvent("covid"))
}

func TestCheckOutbreak_TriggersAboveOneAndAHalfTimesAverage(t *testing.T) {
	deps, m := newTestDeps()
	saveLab(t, m, &entity.LabState{})

	alerts := make(chan any, 1)
	deps.Bus.Subscribe(OutbreakEvent("dengue"), func(p any) { alerts <- p })

	l := NewLab("lab-1", deps, rand.New(rand.NewSource(1)))
	e, ok := l.loadOwn(context.Background())
	require.True(t, ok)

	data := &entity.DiseaseTests{
		Today:        16, // avg of [10,10] is 10; threshold is 15, so 16 fires
		Positive:     4,
		Capacity:     200,
		History:      []int{10, 10},
		PositiveRate: 25,
	}
	l.checkOutbreak(context.Background(), e, "dengue", data)

	select {
	case p := <-alerts:
		alert := p.(*OutbreakAlert)
		assert.Equal(t, "dengue", alert.Disease)
		assert.Equal(t, "Zone-1", alert.Zone)
		assert.InDelta(t, 0.6, alert.GrowthRate, 0.001)
		assert.Equal(t, "medium", alert.RiskLevel)
		assert.InDelta(t, 0.65, alert.Confidence, 0.001, "short history means low confidence")
		assert.Equal(t, 26, alert.PredictedCases, "round(16 * 1.6)")
	case <-time.After(time.Second):
		t.Fatal("no outbreak alert published")
	}
}

func TestCheckOutbreak_BoundaryDoesNotTrigger(t *testing.T) {
	deps, m := newTestDeps()
	saveLab(t, m, &entity.LabState{})

	alerts := make(chan any, 1)
	deps.Bus.Subscribe(OutbreakEvent("dengue"), func(p any) { alerts <- p })

	l := NewLab("lab-1", deps, rand.New(rand.NewSource(1)))
	e, ok := l.loadOwn(context.Background())
	require.True(t, ok)

	// Exactly 1.5x the average must NOT fire; the comparison is strict.
	l.checkOutbreak(context.Background(), e, "dengue", &entity.DiseaseTests{
		Today:   15,
		History: []int{10, 10},
	})

	select {
	case <-alerts:
		t.Fatal("alert fired at exactly 1.5x average")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCheckOutbreak_NeedsTwoHistorySamples(t *testing.T) {
	deps, m := newTestDeps()
	saveLab(t, m, &entity.LabState{})

	alerts := make(chan any, 1)
	deps.Bus.Subscribe(OutbreakEvent("dengue"), func(p any) { alerts <- p })

	l := NewLab("lab-1", deps, rand.New(rand.NewSource(1)))
	e, ok := l.loadOwn(context.Background())
	require.True(t, ok)

	l.checkOutbreak(context.Background(), e, "dengue", &entity.DiseaseTests{
		Today:   1000,
		History: []int{1},
	})

	select {
	case <-alerts:
		t.Fatal("alert fired with a single history sample")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCheckOutbreak_LongHistoryRaisesConfidence(t *testing.T) {
	deps, m := newTestDeps()
	saveLab(t, m, &entity.LabState{})

	alerts := make(chan any, 1)
	deps.Bus.Subscribe(OutbreakEvent("covid"), func(p any) { alerts <- p })

	l := NewLab("lab-1", deps, rand.New(rand.NewSource(1)))
	e, ok := l.loadOwn(context.Background())
	require.True(t, ok)

	l.checkOutbreak(context.Background(), e, "covid", &entity.DiseaseTests{
		Today:   100,
		History: []int{8, 9, 10, 9, 10}, // 5 samples
	})

	select {
	case p := <-alerts:
		alert := p.(*OutbreakAlert)
		assert.InDelta(t, 0.85, alert.Confidence, 0.001)
		assert.Equal(t, "critical", alert.RiskLevel, "ten-fold spike")
	case <-time.After(time.Second):
		t.Fatal("no outbreak alert published")
	}
}

func TestGrowthStep_ArchivesHistoryEverySixthTick(t *testing.T) {
	deps, _ := newTestDeps()
	l := NewLab("lab-1", deps, rand.New(rand.NewSource(42)))

	data := &entity.DiseaseTests{Today: 50, Capacity: 200, History: []int{}}
	now := time.Date(2025, time.March, 3, 20, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		l.growthStep("dengue", data, now)
	}
	assert.Empty(t, data.History, "no archive before the sixth tick")

	l.growthStep("dengue", data, now)
	assert.Len(t, data.History, 1, "sixth tick archives one sample")
	assert.Equal(t, 0, data.TickCount, "counter resets after archiving")

	for i := 0; i < 60; i++ {
		l.growthStep("dengue", data, now)
	}
	assert.LessOrEqual(t, len(data.History), historyWindow, "window stays bounded")
}

func TestGrowthStep_NeverGoesNegative(t *testing.T) {
	deps, _ := newTestDeps()
	l := NewLab("lab-1", deps, rand.New(rand.NewSource(7)))

	data := &entity.DiseaseTests{Today: 0, Capacity: 200, History: []int{}}
	now := time.Date(2025, time.March, 3, 20, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		l.growthStep("typhoid", data, now)
		if data.Today < 0 {
			t.Fatalf("volume went negative on step %d", i)
		}
		if data.Positive < 0 {
			t.Fatalf("positives went negative on step %d", i)
		}
	}
}

func TestLabTick_PersistsState(t *testing.T) {
	deps, m := newTestDeps()
	saveLab(t, m, &entity.LabState{})

	l := NewLab("lab-1", deps, rand.New(rand.NewSource(9)))
	l.tick(context.Background())

	e, err := m.Load(context.Background(), "lab-1")
	require.NoError(t, err)
	st, ok := e.State.(*entity.LabState)
	require.True(t, ok)
	assert.NotEmpty(t, st.TestData, "tick must leave initialized test data behind")

	// Tick counters advanced for every lane.
	for d, lane := range st.TestData {
		if lane.TickCount != 1 {
			t.Errorf("%s: tickCount = %d, want 1 after a single tick", d, lane.TickCount)
		}
	}
}

func TestLabStart_MissingRecordFails(t *testing.T) {
	deps, _ := newTestDeps()
	l := NewLab("ghost", deps, rand.New(rand.NewSource(1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Start(ctx, time.Hour))
}
