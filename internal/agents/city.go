package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/talgya/health-grid/internal/disease"
	"github.com/talgya/health-grid/internal/entity"
)

// spareCapacityThreshold: a hospital under this occupancy counts as
// spare capacity during an overload search.
const spareCapacityThreshold = 0.7

// City is the citywide coordinator: a pure observer and aggregator
// with no mutable state of its own. It narrates everything and raises
// a critical-shortage signal when a zone runs out of slack.
type City struct {
	base
}

// NewCity builds the city agent and subscribes it to every alert topic.
func NewCity(id string, d Deps) *City {
	c := &City{base: base{id: id, deps: d}}

	for _, dis := range disease.All {
		dis := dis
		d.Bus.Subscribe(OutbreakEvent(dis), func(payload any) { c.onOutbreak(dis, payload) })
	}
	d.Bus.Subscribe(EventHospitalOverloadRisk, c.onHospitalOverload)
	d.Bus.Subscribe(EventMedicineShortageRisk, c.onMedicineShortage)
	d.Bus.Subscribe(EventLabCapacityWarning, c.onLabCapacity)
	d.Bus.Subscribe(EventEquipmentShortage, c.onEquipmentShortage)
	return c
}

// Start verifies the city record exists and begins the periodic
// citywide summary. A missing record is fatal to this agent only.
func (c *City) Start(ctx context.Context, period time.Duration) error {
	e, ok := c.loadOwn(ctx)
	if !ok {
		return fmt.Errorf("city admin %s not found", c.id)
	}
	c.name = e.Name

	c.deps.Activity.Log(c.id, e.Name, "City", "INIT",
		"City agent initialized - coordinating citywide healthcare across all zones", nil)

	runTicks(ctx, period, c.tick)
	return nil
}

// tick summarizes aggregate bed occupancy across every hospital.
func (c *City) tick(ctx context.Context) {
	hospitals, err := c.deps.Store.FindByType(ctx, entity.TypeHospital)
	if err != nil {
		return
	}
	labs, err := c.deps.Store.FindByType(ctx, entity.TypeLab)
	if err != nil {
		return
	}

	usedBeds, totalBeds := 0, 0
	for _, h := range hospitals {
		if st, ok := h.State.(*entity.HospitalState); ok && st != nil {
			u, t := st.TotalBeds()
			usedBeds += u
			totalBeds += t
		}
	}

	utilization := 0.0
	if totalBeds > 0 {
		utilization = float64(usedBeds) / float64(totalBeds) * 100
	}

	risk := "low"
	status := "STABLE"
	switch {
	case utilization > 80:
		risk, status = "high", "HIGH-RISK"
	case utilization > 60:
		risk, status = "medium", "MONITORING"
	}

	c.deps.Activity.Log(c.id, c.name, "City", "STATUS",
		fmt.Sprintf("City health status: %s | %d hospitals, %d labs | %d/%d beds available (%.1f%% used)",
			status, len(hospitals), len(labs), totalBeds-usedBeds, totalBeds, utilization),
		map[string]any{"overallRisk": risk, "bedOccupancy": utilization})

	c.deps.Metrics.Record(c.id, string(entity.TypeCityAdmin), "", map[string]any{
		"hospitals":    len(hospitals),
		"labs":         len(labs),
		"totalBeds":    totalBeds,
		"usedBeds":     usedBeds,
		"bedOccupancy": utilization,
		"overallRisk":  risk,
	})
}

func (c *City) onOutbreak(dis string, payload any) {
	alert, ok := payload.(*OutbreakAlert)
	if !ok || alert == nil {
		return
	}

	c.deps.Activity.Log(c.id, c.name, "City", "CITY_ALERT",
		fmt.Sprintf("CITY ALERT: %s outbreak detected in %s | risk %s | %s reports %d cases (+%.0f%% spike)",
			strings.ToUpper(dis), alert.Zone, alert.RiskLevel, alert.LabName, alert.Today, alert.GrowthRate*100),
		map[string]any{"disease": dis, "zone": alert.Zone, "riskLevel": alert.RiskLevel, "labId": alert.LabID})

	c.deps.Activity.Log(c.id, c.name, "City", "COORDINATION",
		fmt.Sprintf("CITY COORDINATION: monitoring %s response in %s - facilities alerted and preparing",
			dis, alert.Zone),
		map[string]any{"disease": dis, "zone": alert.Zone, "action": "monitor_response"})
}

// onHospitalOverload searches the overloaded hospital's zone for spare
// capacity; none left means a citywide critical-shortage signal.
func (c *City) onHospitalOverload(payload any) {
	ev, ok := payload.(*HospitalOverload)
	if !ok || ev == nil || ev.Zone == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.deps.Activity.Log(c.id, c.name, "City", "CAPACITY_ALERT",
		fmt.Sprintf("CITY ALERT: hospital capacity warning - %s (%s) at %.0f%% occupancy (%d/%d beds)",
			ev.Name, ev.Zone, ev.Occupancy*100, ev.PredictedBeds, ev.TotalBeds),
		map[string]any{"hospitalId": ev.HospitalID, "zone": ev.Zone, "occupancy": ev.Occupancy})

	zoneHospitals, err := c.deps.Store.FindByZoneAndType(ctx, ev.Zone, entity.TypeHospital)
	if err != nil {
		return
	}

	var available []string
	for _, h := range zoneHospitals {
		if h.ID == ev.HospitalID {
			continue
		}
		st, ok := h.State.(*entity.HospitalState)
		if !ok || st == nil {
			continue
		}
		used, total := st.TotalBeds()
		if total > 0 && float64(used)/float64(total) < spareCapacityThreshold {
			available = append(available, h.Name)
		}
	}

	if len(available) > 0 {
		c.deps.Activity.Log(c.id, c.name, "City", "RESOURCE_AVAILABLE",
			fmt.Sprintf("CITY COORDINATION: %d nearby hospitals with capacity available - %s",
				len(available), strings.Join(available, ", ")),
			map[string]any{"zone": ev.Zone, "availableHospitals": available})
		return
	}

	c.deps.Activity.Log(c.id, c.name, "City", "CRITICAL_SHORTAGE",
		fmt.Sprintf("CITY ALERT: critical - no spare capacity in %s, all hospitals near capacity", ev.Zone),
		map[string]any{"zone": ev.Zone, "resource": "hospital_beds"})

	c.deps.Bus.Publish(EventCityCriticalShortage, &CriticalShortage{
		Zone:     ev.Zone,
		Resource: "hospital_beds",
	})
}

// onMedicineShortage checks whether a single pharmacy's shortage is
// actually zone-wide.
func (c *City) onMedicineShortage(payload any) {
	ev, ok := payload.(*MedicineShortage)
	if !ok || ev == nil || ev.Zone == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.deps.Activity.Log(c.id, c.name, "City", "MEDICINE_ALERT",
		fmt.Sprintf("CITY ALERT: medicine shortage risk - %s (%s): %s at %d units (~%.1f days)",
			ev.PharmacyName, ev.Zone, ev.Medicine, ev.Stock, ev.DaysLeft),
		map[string]any{"pharmacyId": ev.PharmacyID, "medicine": ev.Medicine, "urgency": ev.Urgency})

	zonePharmacies, err := c.deps.Store.FindByZoneAndType(ctx, ev.Zone, entity.TypePharmacy)
	if err != nil {
		return
	}

	shortages := 0
	for _, p := range zonePharmacies {
		st, ok := p.State.(*entity.PharmacyState)
		if !ok || st == nil {
			continue
		}
		if m := st.Medicines[ev.Medicine]; m != nil && m.Stock < 200 {
			shortages++
		}
	}

	if shortages > 1 {
		c.deps.Activity.Log(c.id, c.name, "City", "COORDINATION",
			fmt.Sprintf("CITY COORDINATION: multiple pharmacies in %s report %s shortage (%d/%d) - coordinating with suppliers",
				ev.Zone, ev.Medicine, shortages, len(zonePharmacies)),
			map[string]any{"zone": ev.Zone, "medicine": ev.Medicine, "affectedCount": shortages})
	}
}

func (c *City) onLabCapacity(payload any) {
	ev, ok := payload.(*LabCapacityWarning)
	if !ok || ev == nil {
		return
	}
	c.deps.Activity.Log(c.id, c.name, "City", "LAB_ALERT",
		fmt.Sprintf("CITY ALERT: lab capacity warning in %s - %.1f%% utilization (%d/%d tests)",
			ev.Zone, ev.Utilization*100, ev.TotalTests, ev.TotalCapacity),
		map[string]any{"labId": ev.LabID, "zone": ev.Zone, "utilization": ev.Utilization})
}

func (c *City) onEquipmentShortage(payload any) {
	ev, ok := payload.(*EquipmentShortage)
	if !ok || ev == nil {
		return
	}
	c.deps.Activity.Log(c.id, c.name, "City", "EQUIPMENT_ALERT",
		fmt.Sprintf("CITY ALERT: critical equipment shortage - %s at %s in %s: %d/%d available",
			ev.Equipment, ev.HospitalName, ev.Zone, ev.Available, ev.Total),
		map[string]any{"hospitalId": ev.HospitalID, "equipment": ev.Equipment, "zone": ev.Zone})
}
