package agents

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/talgya/health-grid/internal/disease"
	"github.com/talgya/health-grid/internal/entity"
)

// generalOccupancyFactor converts total admitted cases to general-ward
// bed demand; critical cases map one-to-one onto ICU beds.
const generalOccupancyFactor = 0.7

// overloadThreshold is the predicted-occupancy high-water mark.
const overloadThreshold = 0.8

// equipmentShortageThreshold: an item with less than this fraction
// available is a critical shortage.
const equipmentShortageThreshold = 0.2

// Hospital tracks bed and equipment occupancy and reserves capacity
// when labs predict outbreaks in its zone.
type Hospital struct {
	base
	rng *rand.Rand
}

// NewHospital builds a hospital agent and registers its outbreak
// subscriptions on the bus.
func NewHospital(id string, d Deps, rng *rand.Rand) *Hospital {
	h := &Hospital{base: base{id: id, deps: d}, rng: rng}
	for _, dis := range disease.All {
		dis := dis
		d.Bus.Subscribe(OutbreakEvent(dis), func(payload any) { h.onOutbreak(dis, payload) })
	}
	return h
}

// Start loads the hospital's record and begins ticking. A missing
// record is fatal to this agent only.
func (h *Hospital) Start(ctx context.Context, period time.Duration) error {
	e, ok := h.loadOwn(ctx)
	if !ok {
		return fmt.Errorf("hospital %s not found", h.id)
	}

	st := h.hospitalState(e)
	h.saveOwn(ctx, e)

	used, total := st.TotalBeds()
	h.deps.Activity.Log(h.id, e.Name, "Hospital", "INIT",
		fmt.Sprintf("Hospital %s initialized - %d/%d beds occupied in %s", e.Name, used, total, e.Zone),
		map[string]any{"zone": e.Zone})

	runTicks(ctx, period, h.tick)
	return nil
}

func (h *Hospital) hospitalState(e *entity.Entity) *entity.HospitalState {
	st, ok := e.State.(*entity.HospitalState)
	if !ok || st == nil {
		st = &entity.HospitalState{}
	}
	st.EnsureDefaults()
	e.State = st
	return st
}

func (h *Hospital) tick(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.loadOwn(ctx)
	if !ok {
		return
	}
	st := h.hospitalState(e)

	// Natural case churn between simulator passes: admissions and
	// discharges drift each disease a little.
	for _, load := range st.DiseaseCases {
		drift := h.rng.Intn(7) - 3
		load.Total = max(0, load.Total+drift)
		if load.Critical > load.Total {
			load.Critical = load.Total
		}
		load.Moderate = max(0, load.Total-load.Critical-load.Serious)
	}

	h.recomputeBedUsage(st)
	clampResources(st.Beds)
	clampResources(st.Equipment)

	used, total := st.TotalBeds()
	occupancy := 0.0
	if total > 0 {
		occupancy = float64(used) / float64(total)
	}

	h.deps.Activity.Log(h.id, e.Name, "Hospital", "STATUS",
		fmt.Sprintf("%s: %d/%d beds occupied (%.1f%%)", e.Name, used, total, occupancy*100),
		map[string]any{"occupancy": occupancy})

	if occupancy > overloadThreshold && total > 0 {
		h.publishOverload(e, used, total, occupancy)
	}
	h.checkEquipment(e, st)

	h.saveOwn(ctx, e)
	h.deps.Metrics.Record(h.id, string(entity.TypeHospital), e.Zone, map[string]any{
		"beds":         st.Beds,
		"equipment":    st.Equipment,
		"diseaseCases": st.DiseaseCases,
		"occupancy":    occupancy,
	})
}

// recomputeBedUsage derives bed demand from the caseload: general
// wards absorb a fixed fraction of all cases, the ICU takes criticals
// one-to-one. Usage is clamped to capacity afterwards.
func (h *Hospital) recomputeBedUsage(st *entity.HospitalState) {
	totalCases, criticalCases := 0, 0
	for _, load := range st.DiseaseCases {
		totalCases += load.Total
		criticalCases += load.Critical
	}

	if general, ok := st.Beds["general"]; ok {
		general.Used = int(float64(totalCases) * generalOccupancyFactor)
	}
	if icu, ok := st.Beds["icu"]; ok {
		icu.Used = criticalCases
	}
}

// clampResources enforces used ≤ total (and ≥ 0) on every resource.
func clampResources(resources map[string]*entity.ResourceLevel) {
	for _, r := range resources {
		if r.Used > r.Total {
			r.Used = r.Total
		}
		if r.Used < 0 {
			r.Used = 0
		}
	}
}

func (h *Hospital) publishOverload(e *entity.Entity, used, total int, occupancy float64) {
	h.deps.Activity.Log(h.id, e.Name, "Hospital", "BED_CAPACITY_WARNING",
		fmt.Sprintf("%s: occupancy at %.0f%% (%d/%d beds) - overload risk", e.Name, occupancy*100, used, total),
		map[string]any{"occupancy": occupancy})

	h.deps.Bus.Publish(EventHospitalOverloadRisk, &HospitalOverload{
		HospitalID:    h.id,
		Name:          e.Name,
		Zone:          e.Zone,
		Occupancy:     occupancy,
		PredictedBeds: used,
		TotalBeds:     total,
	})
}

// checkEquipment publishes a shortage for every item with less than
// 20% availability left.
func (h *Hospital) checkEquipment(e *entity.Entity, st *entity.HospitalState) {
	for item, r := range st.Equipment {
		if r.Total == 0 {
			continue
		}
		available := r.Total - r.Used
		if float64(available)/float64(r.Total) >= equipmentShortageThreshold {
			continue
		}

		h.deps.Activity.Log(h.id, e.Name, "Hospital", "EQUIPMENT_SHORTAGE",
			fmt.Sprintf("%s: critical equipment shortage - %s at %d/%d available", e.Name, item, available, r.Total),
			map[string]any{"equipment": item, "available": available})

		h.deps.Bus.Publish(EventEquipmentShortage, &EquipmentShortage{
			HospitalID:   h.id,
			HospitalName: e.Name,
			Zone:         e.Zone,
			Equipment:    item,
			Available:    available,
			Total:        r.Total,
		})
	}
}

// onOutbreak folds a lab's prediction into this hospital's projections
// and reserves bed capacity ahead of admissions. Alerts from other
// zones (or with no zone at all) are ignored.
func (h *Hospital) onOutbreak(dis string, payload any) {
	alert, ok := payload.(*OutbreakAlert)
	if !ok || alert == nil || alert.Zone == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok2 := h.loadOwn(ctx)
	if !ok2 || e.Zone != alert.Zone {
		return
	}
	st := h.hospitalState(e)

	load := st.DiseaseCases[dis]
	if load == nil {
		load = &entity.CaseLoad{}
		st.DiseaseCases[dis] = load
	}

	projected := max(1, alert.PredictedCases-alert.Today)
	load.Total += projected
	load.NewToday += projected
	load.Critical += projected / 10
	load.Serious += projected / 5
	load.Moderate = max(0, load.Total-load.Critical-load.Serious)
	load.Trend = "increasing"

	h.recomputeBedUsage(st)
	clampResources(st.Beds)

	used, total := st.TotalBeds()
	occupancy := 0.0
	if total > 0 {
		occupancy = float64(used) / float64(total)
	}

	h.deps.Activity.Log(h.id, e.Name, "Hospital", "WARD_PREPARED",
		fmt.Sprintf("%s: preparing for %s surge - reserving capacity for %d projected cases (%s risk)",
			e.Name, strings.ToUpper(dis), projected, alert.RiskLevel),
		map[string]any{"disease": dis, "projected": projected, "riskLevel": alert.RiskLevel})

	if occupancy > overloadThreshold && total > 0 {
		h.publishOverload(e, used, total, occupancy)
	}

	h.saveOwn(ctx, e)
}
