package agents

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/talgya/health-grid/internal/disease"
	"github.com/talgya/health-grid/internal/entity"
)

// historyWindow bounds each disease's sliding window of daily counts.
const historyWindow = 7

// historyEvery is how many ticks pass between history samples.
const historyEvery = 6

// Lab simulates diagnostic throughput per disease and detects
// outbreaks from test-volume growth.
type Lab struct {
	base
	rng *rand.Rand
}

// NewLab builds a lab agent. The random source drives the growth
// simulation; seed it for deterministic tests.
func NewLab(id string, d Deps, rng *rand.Rand) *Lab {
	return &Lab{base: base{id: id, deps: d}, rng: rng}
}

// Start loads the lab's record and begins ticking. A missing record is
// fatal to this agent only: it logs and never starts its loop.
func (l *Lab) Start(ctx context.Context, period time.Duration) error {
	e, ok := l.loadOwn(ctx)
	if !ok {
		return fmt.Errorf("lab %s not found", l.id)
	}

	st := l.labState(e)
	l.saveOwn(ctx, e)

	l.deps.Activity.Log(l.id, e.Name, "Lab", "INIT",
		fmt.Sprintf("Lab %s initialized - testing %d diseases in %s", e.Name, len(st.TestData), e.Zone),
		map[string]any{"zone": e.Zone})

	runTicks(ctx, period, l.tick)
	return nil
}

// labState extracts the lab variant, lazily initializing a missing or
// mistyped state. Records written before a field existed recover here.
func (l *Lab) labState(e *entity.Entity) *entity.LabState {
	st, ok := e.State.(*entity.LabState)
	if !ok || st == nil {
		st = &entity.LabState{}
	}
	st.EnsureDefaults()
	if st.TestData != nil {
		for _, d := range st.TestData {
			if d.History == nil {
				d.History = []int{}
			}
		}
	}
	e.State = st
	return st
}

func (l *Lab) tick(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.loadOwn(ctx)
	if !ok {
		return
	}
	st := l.labState(e)
	now := time.Now()

	for _, d := range disease.All {
		data := st.TestData[d]
		if data == nil {
			continue
		}
		l.growthStep(d, data, now)
	}

	totalTests, totalPositive := 0, 0
	var concerning []string
	for _, d := range disease.All {
		data := st.TestData[d]
		if data == nil {
			continue
		}
		totalTests += data.Today
		totalPositive += data.Positive
		if data.Today > 0 && float64(data.Positive)/float64(data.Today) > 0.1 {
			concerning = append(concerning, d)
		}
	}
	sort.Strings(concerning)

	positiveRate := 0.0
	if totalTests > 0 {
		positiveRate = float64(totalPositive) / float64(totalTests) * 100
	}

	msg := fmt.Sprintf("%s: processing %d tests today | positive rate %.1f%%", e.Name, totalTests, positiveRate)
	if len(concerning) > 0 {
		msg += " | monitoring: " + strings.Join(concerning, ", ")
	}
	l.deps.Activity.Log(l.id, e.Name, "Lab", "STATUS", msg,
		map[string]any{"totalTests": totalTests, "positiveRate": positiveRate})

	for _, d := range disease.All {
		if data := st.TestData[d]; data != nil {
			l.checkOutbreak(ctx, e, d, data)
		}
	}
	l.checkCapacity(e, st)

	l.saveOwn(ctx, e)
	l.deps.Metrics.Record(l.id, string(entity.TypeLab), e.Zone, map[string]any{
		"testData":     st.TestData,
		"totalTests":   totalTests,
		"positiveRate": positiveRate,
	})
}

// growthStep advances one disease's testing lane by one tick: a
// seasonal random walk with a rare surge, positivity resampled each
// tick, and the pre-update volume archived into the bounded history
// window every sixth tick.
func (l *Lab) growthStep(d string, data *entity.DiseaseTests, now time.Time) {
	seasonal := disease.SeasonalFactorAt(d, now)
	delta := int(math.Floor((l.rng.Float64()*11 - 3) * seasonal))

	prev := data.Today
	data.Today = max(0, data.Today+delta)

	data.TickCount++
	if data.TickCount >= historyEvery {
		data.TickCount = 0
		data.History = append(data.History, prev)
		if len(data.History) > historyWindow {
			data.History = data.History[1:]
		}
	}

	rate := 0.08 + l.rng.Float64()*0.17
	data.Positive = int(float64(data.Today) * rate)

	// Rare surge injection (~5% of ticks).
	if l.rng.Float64() < 0.05 {
		data.Today += 3 + l.rng.Intn(8)
		data.Positive = int(float64(data.Today) * rate * 1.3)
	}

	if data.Today > 0 {
		data.PositiveRate = float64(data.Positive) / float64(data.Today) * 100
	} else {
		data.PositiveRate = 0
	}
}

// checkOutbreak runs the outbreak detector for one disease and, on
// trigger, broadcasts the alert. The trigger is a level condition
// (today > 1.5× the average of the last two history samples), so the
// alert repeats every tick it keeps holding.
func (l *Lab) checkOutbreak(ctx context.Context, e *entity.Entity, d string, data *entity.DiseaseTests) {
	if len(data.History) < 2 {
		return
	}

	last := data.History[len(data.History)-1]
	secondLast := data.History[len(data.History)-2]
	avg := float64(last+secondLast) / 2

	growthRate := 0.0
	if avg > 0 {
		growthRate = (float64(data.Today) - avg) / avg
	}

	if !(avg > 0 && float64(data.Today) > 1.5*avg) {
		return
	}

	confidence := 0.65
	if len(data.History) >= 5 {
		confidence = 0.85
	}

	alert := &OutbreakAlert{
		LabID:          l.id,
		LabName:        e.Name,
		Zone:           e.Zone,
		Disease:        d,
		Today:          data.Today,
		Avg:            avg,
		GrowthRate:     growthRate,
		RiskLevel:      riskLevel(growthRate),
		Confidence:     confidence,
		PositiveRate:   data.PositiveRate,
		PredictedCases: int(math.Round(float64(data.Today) * (1 + growthRate))),
	}

	l.deps.Activity.Log(l.id, e.Name, "Lab", "OUTBREAK_DETECTED",
		fmt.Sprintf("%s: %s OUTBREAK DETECTED! Tests: %d (+%.0f%% spike) | positive rate %.1f%%",
			e.Name, strings.ToUpper(d), data.Today, growthRate*100, data.PositiveRate),
		map[string]any{"zone": e.Zone, "disease": d, "riskLevel": alert.RiskLevel, "confidence": confidence})

	l.narrateBroadcast(ctx, e, d)
	l.deps.Bus.Publish(OutbreakEvent(d), alert)
}

// narrateBroadcast logs which same-zone facilities are being alerted.
// Store lookups here are narration only; a failure is not an error.
func (l *Lab) narrateBroadcast(ctx context.Context, e *entity.Entity, d string) {
	hospitals, err := l.deps.Store.FindByZoneAndType(ctx, e.Zone, entity.TypeHospital)
	if err != nil {
		return
	}
	pharmacies, err := l.deps.Store.FindByZoneAndType(ctx, e.Zone, entity.TypePharmacy)
	if err != nil {
		return
	}

	names := func(es []*entity.Entity) []string {
		out := make([]string, len(es))
		for i, x := range es {
			out[i] = x.Name
		}
		return out
	}

	l.deps.Activity.Log(l.id, e.Name, "Lab", "COORDINATION",
		fmt.Sprintf("%s: broadcasting %s alert to %d hospitals & %d pharmacies in %s",
			e.Name, strings.ToUpper(d), len(hospitals), len(pharmacies), e.Zone),
		map[string]any{
			"zone": e.Zone, "disease": d,
			"hospitals": names(hospitals), "pharmacies": names(pharmacies),
		})
}

// checkCapacity warns when total test volume crosses 85% of capacity.
func (l *Lab) checkCapacity(e *entity.Entity, st *entity.LabState) {
	totalTests, totalCapacity := 0, 0
	for _, data := range st.TestData {
		totalTests += data.Today
		totalCapacity += data.Capacity
	}
	if totalCapacity == 0 {
		return
	}

	utilization := float64(totalTests) / float64(totalCapacity)
	if utilization <= 0.85 {
		return
	}

	l.deps.Activity.Log(l.id, e.Name, "Lab", "CAPACITY_WARNING",
		fmt.Sprintf("%s: high capacity utilization %.1f%% (%d/%d tests)",
			e.Name, utilization*100, totalTests, totalCapacity),
		map[string]any{"utilization": utilization})

	l.deps.Bus.Publish(EventLabCapacityWarning, &LabCapacityWarning{
		LabID:         l.id,
		Zone:          e.Zone,
		Utilization:   utilization,
		TotalTests:    totalTests,
		TotalCapacity: totalCapacity,
	})
}
