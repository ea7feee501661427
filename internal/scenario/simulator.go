package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/health-grid/internal/activity"
	"github.com/talgya/health-grid/internal/config"
	"github.com/talgya/health-grid/internal/disease"
	"github.com/talgya/health-grid/internal/entity"
	"github.com/talgya/health-grid/internal/store"
)

// Trigger is one active outbreak multiplier, keyed by disease and zone
// membership and bounded in time.
type Trigger struct {
	ID         string    `json:"id"`
	Disease    string    `json:"disease"`
	Zones      []string  `json:"zones"`
	Multiplier float64   `json:"multiplier"`
	StartedAt  time.Time `json:"startedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (t Trigger) covers(zone string) bool {
	for _, z := range t.Zones {
		if z == zone {
			return true
		}
	}
	return false
}

// Simulator periodically regenerates lab, hospital, and pharmacy state
// and hosts the outbreak trigger registry. Where two triggers for the
// same disease cover the same zone, the most recently registered one
// wins.
type Simulator struct {
	store store.Store
	act   *activity.Logger
	gen   *disease.Generator
	rng   *rand.Rand
	cfg   config.ScenarioConfig
	now   func() time.Time

	mu       sync.Mutex
	triggers []*Trigger // registration order
}

// New builds a Simulator. The seed makes its generation deterministic.
func New(st store.Store, act *activity.Logger, cfg config.ScenarioConfig, seed int64) *Simulator {
	return &Simulator{
		store: st,
		act:   act,
		gen:   disease.NewGenerator(seed),
		rng:   rand.New(rand.NewSource(seed ^ 0x5eed)),
		cfg:   cfg,
		now:   time.Now,
	}
}

// Run updates all entities once, then keeps updating on the period
// until ctx is canceled. Blocks; run it on its own goroutine.
func (s *Simulator) Run(ctx context.Context, period time.Duration) {
	slog.Info("disease simulator started", "period", period)
	s.updateAll(ctx)

	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("disease simulator stopped")
			return
		case <-t.C:
			s.updateAll(ctx)
		}
	}
}

// ActiveTrigger returns the winning trigger for a zone, if any.
// Expired triggers are pruned on the way.
func (s *Simulator) ActiveTrigger(zone string) *Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	// Latest registration wins, so scan from the back.
	for i := len(s.triggers) - 1; i >= 0; i-- {
		if s.triggers[i].covers(zone) {
			return s.triggers[i]
		}
	}
	return nil
}

// ActiveTriggers returns a snapshot of every unexpired trigger.
func (s *Simulator) ActiveTriggers() []Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	out := make([]Trigger, len(s.triggers))
	for i, t := range s.triggers {
		out[i] = *t
	}
	return out
}

func (s *Simulator) pruneLocked() {
	now := s.now()
	kept := s.triggers[:0]
	for _, t := range s.triggers {
		if t.ExpiresAt.After(now) {
			kept = append(kept, t)
		} else {
			slog.Info("outbreak simulation ended", "id", t.ID, "disease", t.Disease)
		}
	}
	s.triggers = kept
}

// TriggerOutbreak installs a time-bounded multiplier for a disease in
// the given zones and forces an immediate update pass. A multiplier
// ≤ 0 falls back to the configured default.
func (s *Simulator) TriggerOutbreak(ctx context.Context, dis string, zones []string, multiplier float64) (string, error) {
	if len(zones) == 0 {
		return "", fmt.Errorf("trigger outbreak: no zones given")
	}
	if multiplier <= 0 {
		multiplier = s.cfg.DefaultMultiplier
	}

	now := s.now()
	t := &Trigger{
		ID:         dis + "-" + uuid.NewString(),
		Disease:    dis,
		Zones:      zones,
		Multiplier: multiplier,
		StartedAt:  now,
		ExpiresAt:  now.Add(s.cfg.OutbreakTTL),
	}

	s.mu.Lock()
	s.triggers = append(s.triggers, t)
	s.mu.Unlock()

	slog.Info("outbreak triggered", "id", t.ID, "disease", dis, "zones", zones, "multiplier", multiplier)
	s.act.Log("CITY_ADMIN", "City Health Department", "City", "SCENARIO_TRIGGERED",
		fmt.Sprintf("Scenario triggered: %s outbreak in %d zones (x%.0f volume)", dis, len(zones), multiplier),
		map[string]any{"disease": dis, "zones": zones, "outbreakId": t.ID})

	s.updateAll(ctx)
	return t.ID, nil
}

// ResetDisease clears every active trigger for a disease and settles
// all labs' volumes for it back into the [5, 25) baseline band.
func (s *Simulator) ResetDisease(ctx context.Context, dis string) error {
	s.mu.Lock()
	kept := s.triggers[:0]
	for _, t := range s.triggers {
		if t.Disease != dis {
			kept = append(kept, t)
		}
	}
	s.triggers = kept
	s.mu.Unlock()

	labs, err := s.store.FindByType(ctx, entity.TypeLab)
	if err != nil {
		return fmt.Errorf("reset %s: %w", dis, err)
	}
	for _, lab := range labs {
		st, ok := lab.State.(*entity.LabState)
		if !ok || st == nil || st.TestData == nil {
			continue
		}
		data := st.TestData[dis]
		if data == nil {
			continue
		}

		data.Today = 5 + s.rng.Intn(20)
		data.Positive = data.Today / 10
		data.PositiveRate = float64(data.Positive) / float64(data.Today) * 100
		data.TickCount = 0
		// Re-baseline the window so the detector sees calm, not the
		// outbreak it just left behind.
		data.History = []int{data.Today, data.Today}

		if err := s.store.Save(ctx, lab); err != nil {
			slog.Warn("reset save failed", "entity", lab.ID, "error", err)
		}
	}

	slog.Info("disease reset", "disease", dis, "labs", len(labs))
	return nil
}

// updateAll refreshes labs, hospitals, then pharmacies. Each phase
// logs and continues on failure; a broken pass never stops the loop.
func (s *Simulator) updateAll(ctx context.Context) {
	if err := s.updateLabs(ctx); err != nil {
		slog.Warn("lab update failed", "error", err)
	}
	if err := s.updateHospitals(ctx); err != nil {
		slog.Warn("hospital update failed", "error", err)
	}
	if err := s.updatePharmacies(ctx); err != nil {
		slog.Warn("pharmacy update failed", "error", err)
	}
}

func (s *Simulator) updateLabs(ctx context.Context) error {
	labs, err := s.store.FindByType(ctx, entity.TypeLab)
	if err != nil {
		return err
	}

	for _, lab := range labs {
		st, ok := lab.State.(*entity.LabState)
		if !ok || st == nil {
			st = &entity.LabState{}
		}
		st.EnsureDefaults()
		lab.State = st

		opts := disease.LabTestOptions{
			Capacity: lab.Profile.TestCapacity,
			BaseLoad: 0.4 + s.rng.Float64()*0.2,
			Now:      s.now(),
		}
		if t := s.ActiveTrigger(lab.Zone); t != nil {
			opts.OutbreakDisease = t.Disease
			opts.OutbreakMultiplier = t.Multiplier
		}

		for dis, sample := range s.gen.GenerateLabTests(opts) {
			data := st.TestData[dis]
			if data == nil {
				data = &entity.DiseaseTests{Capacity: max(100, lab.Profile.TestCapacity/len(disease.All))}
				st.TestData[dis] = data
			}
			data.Today = sample.Tested
			data.Positive = sample.Positive
			data.PositiveRate = sample.PositiveRate * 100
		}

		if err := s.store.Save(ctx, lab); err != nil {
			slog.Warn("lab update save failed", "entity", lab.ID, "error", err)
		}
	}
	return nil
}

func (s *Simulator) updateHospitals(ctx context.Context) error {
	hospitals, err := s.store.FindByType(ctx, entity.TypeHospital)
	if err != nil {
		return err
	}

	for _, h := range hospitals {
		st, ok := h.State.(*entity.HospitalState)
		if !ok || st == nil {
			st = &entity.HospitalState{}
		}
		st.EnsureDefaults()
		h.State = st

		used, total := st.TotalBeds()
		occupancy := 0.4
		if total > 0 {
			occupancy = float64(used) / float64(total)
		}
		occupancy = min(0.85, occupancy+(s.rng.Float64()*0.1-0.05))

		opts := disease.HospitalCaseOptions{TotalBeds: total, Occupancy: occupancy}
		if t := s.ActiveTrigger(h.Zone); t != nil {
			opts.OutbreakDisease = t.Disease
			opts.OutbreakMultiplier = t.Multiplier
		}
		st.DiseaseCases = s.gen.GenerateHospitalCases(opts)

		totalCases, criticalCases := 0, 0
		for _, load := range st.DiseaseCases {
			totalCases += load.Total
			criticalCases += load.Critical
		}
		if general := st.Beds["general"]; general != nil {
			general.Used = min(general.Total, int(float64(totalCases)*0.7))
		}
		if icu := st.Beds["icu"]; icu != nil {
			icu.Used = min(icu.Total, criticalCases)
		}

		if err := s.store.Save(ctx, h); err != nil {
			slog.Warn("hospital update save failed", "entity", h.ID, "error", err)
		}
	}
	return nil
}

func (s *Simulator) updatePharmacies(ctx context.Context) error {
	pharmacies, err := s.store.FindByType(ctx, entity.TypePharmacy)
	if err != nil {
		return err
	}

	for _, p := range pharmacies {
		st, ok := p.State.(*entity.PharmacyState)
		if !ok || st == nil {
			st = &entity.PharmacyState{}
		}
		st.EnsureDefaults()
		p.State = st

		// Demand flows from the caseloads of same-zone hospitals.
		hospitals, err := s.store.FindByZoneAndType(ctx, p.Zone, entity.TypeHospital)
		if err != nil {
			slog.Warn("pharmacy demand lookup failed", "entity", p.ID, "error", err)
			continue
		}
		aggregated := make(map[string]*entity.CaseLoad)
		for _, h := range hospitals {
			hst, ok := h.State.(*entity.HospitalState)
			if !ok || hst == nil {
				continue
			}
			for dis, load := range hst.DiseaseCases {
				agg := aggregated[dis]
				if agg == nil {
					agg = &entity.CaseLoad{}
					aggregated[dis] = agg
				}
				agg.Total += load.Total
				agg.NewToday += load.NewToday
			}
		}

		opts := disease.PharmacyStockOptions{LowStock: s.rng.Float64() > 0.7}
		if t := s.ActiveTrigger(p.Zone); t != nil {
			opts.OutbreakMedicine = disease.MedicineFor(t.Disease)
		}
		demand := s.gen.GenerateMedicineDemand(aggregated)
		st.Medicines = s.gen.GeneratePharmacyStock(demand, opts)

		if err := s.store.Save(ctx, p); err != nil {
			slog.Warn("pharmacy update save failed", "entity", p.ID, "error", err)
		}
	}
	return nil
}
