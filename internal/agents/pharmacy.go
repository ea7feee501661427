package agents

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/health-grid/internal/disease"
	"github.com/talgya/health-grid/internal/entity"
)

// Pharmacy monitors medicine stock against demand and raises shortage
// risks before shelves empty.
type Pharmacy struct {
	base
	rng *rand.Rand
}

// NewPharmacy builds a pharmacy agent and subscribes it to outbreak
// alerts so it can pre-emptively check the affected medicine.
func NewPharmacy(id string, d Deps, rng *rand.Rand) *Pharmacy {
	p := &Pharmacy{base: base{id: id, deps: d}, rng: rng}
	for _, dis := range disease.All {
		dis := dis
		d.Bus.Subscribe(OutbreakEvent(dis), func(payload any) { p.onOutbreak(dis, payload) })
	}
	return p
}

// Start loads the pharmacy's record and begins ticking. A missing
// record is fatal to this agent only.
func (p *Pharmacy) Start(ctx context.Context, period time.Duration) error {
	e, ok := p.loadOwn(ctx)
	if !ok {
		return fmt.Errorf("pharmacy %s not found", p.id)
	}

	st := p.pharmacyState(e)
	p.saveOwn(ctx, e)

	p.deps.Activity.Log(p.id, e.Name, "Pharmacy", "INIT",
		fmt.Sprintf("Pharmacy %s initialized - %d medicines on shelf in %s", e.Name, len(st.Medicines), e.Zone),
		map[string]any{"zone": e.Zone})

	runTicks(ctx, period, p.tick)
	return nil
}

func (p *Pharmacy) pharmacyState(e *entity.Entity) *entity.PharmacyState {
	st, ok := e.State.(*entity.PharmacyState)
	if !ok || st == nil {
		st = &entity.PharmacyState{}
	}
	st.EnsureDefaults()
	e.State = st
	return st
}

func (p *Pharmacy) tick(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.loadOwn(ctx)
	if !ok {
		return
	}
	st := p.pharmacyState(e)

	lowCount := 0
	for med, m := range st.Medicines {
		// Dispense a slice of the daily usage each tick.
		if m.DailyUsage > 0 {
			dispensed := int(float64(m.DailyUsage) * (0.05 + 0.10*p.rng.Float64()))
			m.Stock = max(0, m.Stock-dispensed)
		}
		m.Status = entity.StockStatus(m.Stock, m.ReorderLevel)

		if m.Status == "low" {
			lowCount++
			p.publishShortage(e, med, m)
		}
	}

	p.deps.Activity.Log(p.id, e.Name, "Pharmacy", "STATUS",
		fmt.Sprintf("%s: %d medicines tracked | %d below reorder level", e.Name, len(st.Medicines), lowCount),
		map[string]any{"lowCount": lowCount})

	p.saveOwn(ctx, e)
	p.deps.Metrics.Record(p.id, string(entity.TypePharmacy), e.Zone, map[string]any{
		"medicines": st.Medicines,
		"lowCount":  lowCount,
	})
}

// publishShortage raises MEDICINE_SHORTAGE_RISK for one medicine. The
// order quantity restocks to twice the reorder level.
func (p *Pharmacy) publishShortage(e *entity.Entity, med string, m *entity.MedicineStock) {
	daysLeft := 0.0
	if m.DailyUsage > 0 {
		daysLeft = float64(m.Stock) / float64(m.DailyUsage)
	}
	urgency, criticality := shortageSeverity(daysLeft)

	p.deps.Activity.Log(p.id, e.Name, "Pharmacy", "STOCK_LOW",
		fmt.Sprintf("%s: %s low - %s units left (~%.1f days), ordering from supplier",
			e.Name, med, humanize.Comma(int64(m.Stock)), daysLeft),
		map[string]any{"medicine": med, "stock": m.Stock, "daysLeft": daysLeft, "urgency": urgency})

	p.deps.Bus.Publish(EventMedicineShortageRisk, &MedicineShortage{
		PharmacyID:    p.id,
		PharmacyName:  e.Name,
		Zone:          e.Zone,
		Medicine:      med,
		Stock:         m.Stock,
		DaysLeft:      daysLeft,
		Urgency:       urgency,
		Criticality:   criticality,
		OrderQuantity: max(m.ReorderLevel, m.ReorderLevel*2-m.Stock),
	})
}

// shortageSeverity maps remaining days of supply onto the two severity
// axes suppliers score orders by.
func shortageSeverity(daysLeft float64) (entity.Urgency, entity.Criticality) {
	switch {
	case daysLeft < 2:
		return entity.UrgencyCritical, entity.CriticalityHigh
	case daysLeft < 4:
		return entity.UrgencyHigh, entity.CriticalityHigh
	case daysLeft < 7:
		return entity.UrgencyMedium, entity.CriticalityMedium
	}
	return entity.UrgencyLow, entity.CriticalityLow
}

// onOutbreak pre-emptively checks the stock of the disease's medicine
// instead of waiting for the next tick. Foreign-zone alerts (or alerts
// with no zone) are ignored.
func (p *Pharmacy) onOutbreak(dis string, payload any) {
	alert, ok := payload.(*OutbreakAlert)
	if !ok || alert == nil || alert.Zone == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok2 := p.loadOwn(ctx)
	if !ok2 || e.Zone != alert.Zone {
		return
	}
	st := p.pharmacyState(e)

	med := disease.MedicineFor(dis)
	m := st.Medicines[med]
	if m == nil {
		return
	}

	p.deps.Activity.Log(p.id, e.Name, "Pharmacy", "DISEASE_MONITORING",
		fmt.Sprintf("%s: %s outbreak alert - checking %s stock (%s units)",
			e.Name, strings.ToUpper(dis), med, humanize.Comma(int64(m.Stock))),
		map[string]any{"disease": dis, "medicine": med, "stock": m.Stock})

	m.Status = entity.StockStatus(m.Stock, m.ReorderLevel)
	if m.Status == "low" {
		p.publishShortage(e, med, m)
	}
	p.saveOwn(ctx, e)
}
