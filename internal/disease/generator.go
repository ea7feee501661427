package disease

import (
	"math"
	"math/rand"
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/health-grid/internal/entity"
)

// Generator produces synthetic operational data for labs, hospitals,
// pharmacies, and suppliers. All randomness flows through the injected
// source, so a seeded Generator is deterministic. Not safe for
// concurrent use; give each agent its own.
type Generator struct {
	rng   *rand.Rand
	noise opensimplex.Noise
}

// NewGenerator builds a Generator from a seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng:   rand.New(rand.NewSource(seed)),
		noise: opensimplex.NewNormalized(seed),
	}
}

// demandDrift smoothly modulates demand over time per disease, so
// consecutive simulator passes trend rather than jitter independently.
// Returns a multiplier in [0.85, 1.15].
func (g *Generator) demandDrift(diseaseIdx int, now time.Time) float64 {
	t := float64(now.Unix()) / 3600.0
	return 0.85 + 0.3*g.noise.Eval2(t, float64(diseaseIdx)*17.0)
}

// LabTestOptions configures GenerateLabTests.
type LabTestOptions struct {
	Capacity           int     // daily tests across all diseases
	BaseLoad           float64 // fraction of capacity at baseline
	OutbreakDisease    string  // disease under an active trigger, if any
	OutbreakMultiplier float64
	Now                time.Time
}

// LabSample is one disease's generated testing volume.
type LabSample struct {
	Tested       int
	Positive     int
	PositiveRate float64
}

// GenerateLabTests produces per-disease test volumes for a lab.
// Outbreak diseases run multiplied volume and elevated positivity.
func (g *Generator) GenerateLabTests(opts LabTestOptions) map[string]LabSample {
	if opts.Capacity <= 0 {
		opts.Capacity = 1000
	}
	if opts.BaseLoad <= 0 {
		opts.BaseLoad = 0.3
	}
	if opts.OutbreakMultiplier <= 0 {
		opts.OutbreakMultiplier = 1
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	out := make(map[string]LabSample, len(All))
	for i, d := range All {
		mult := 1.0
		if d == opts.OutbreakDisease {
			mult = opts.OutbreakMultiplier
		}
		seasonal := SeasonalFactorAt(d, opts.Now)
		drift := g.demandDrift(i, opts.Now)

		tested := int(float64(opts.Capacity) * opts.BaseLoad *
			(0.5 + g.rng.Float64()) * mult * seasonal * drift / float64(len(All)))
		if tested < 0 {
			tested = 0
		}

		rate := 0.05 + g.rng.Float64()*0.25
		if d == opts.OutbreakDisease {
			rate = 0.3 + g.rng.Float64()*0.3
		}
		positive := int(float64(tested) * rate)

		out[d] = LabSample{Tested: tested, Positive: positive, PositiveRate: rate}
	}
	return out
}

// HospitalCaseOptions configures GenerateHospitalCases.
type HospitalCaseOptions struct {
	TotalBeds          int
	Occupancy          float64 // fraction of beds in use
	OutbreakDisease    string
	OutbreakMultiplier float64
}

// GenerateHospitalCases distributes a hospital's occupied beds across
// diseases, with a severity split per disease. The outbreak disease
// takes a multiplied share.
func (g *Generator) GenerateHospitalCases(opts HospitalCaseOptions) map[string]*entity.CaseLoad {
	if opts.TotalBeds <= 0 {
		opts.TotalBeds = 150
	}
	if opts.Occupancy <= 0 {
		opts.Occupancy = 0.4
	}
	if opts.OutbreakMultiplier <= 0 {
		opts.OutbreakMultiplier = 2.5
	}

	remaining := int(float64(opts.TotalBeds) * opts.Occupancy)
	out := make(map[string]*entity.CaseLoad, len(All))

	for i, d := range All {
		var cases int
		if i == len(All)-1 {
			cases = remaining
		} else {
			share := 0.1 + g.rng.Float64()*0.15
			if d == opts.OutbreakDisease {
				share = 0.4
			}
			cases = int(float64(remaining) * share)
			if d == opts.OutbreakDisease {
				cases = int(float64(cases) * opts.OutbreakMultiplier)
			}
			if cases > remaining {
				cases = remaining
			}
		}
		remaining -= cases

		critical := int(float64(cases) * (0.1 + g.rng.Float64()*0.15))
		serious := int(float64(cases) * (0.2 + g.rng.Float64()*0.2))
		moderate := cases - critical - serious

		trend := "stable"
		switch {
		case d == opts.OutbreakDisease:
			trend = "increasing"
		case g.rng.Float64() > 0.5:
			trend = "decreasing"
		}

		out[d] = &entity.CaseLoad{
			Total:    cases,
			Critical: critical,
			Serious:  serious,
			Moderate: moderate,
			NewToday: int(float64(cases) * (0.1 + g.rng.Float64()*0.15)),
			Trend:    trend,
		}
	}
	return out
}

// GenerateMedicineDemand converts a caseload into daily medicine
// demand. Each new case needs a full treatment course: 2-4 doses a day
// for 7-14 days.
func (g *Generator) GenerateMedicineDemand(cases map[string]*entity.CaseLoad) map[string]int {
	demand := make(map[string]int)
	for d, load := range cases {
		if load == nil {
			continue
		}
		perDay := load.NewToday
		if perDay == 0 {
			perDay = load.Total
		}
		for _, med := range MedicinesFor(d) {
			doses := 2 + g.rng.Float64()*2
			days := 7 + g.rng.Float64()*7
			demand[med] += int(math.Ceil(float64(perDay) * doses * days))
		}
	}
	return demand
}

// PharmacyStockOptions configures GeneratePharmacyStock.
type PharmacyStockOptions struct {
	LowStock         bool   // start the shelf already depleted
	OutbreakMedicine string // medicine under outbreak pressure, if any
}

// GeneratePharmacyStock derives shelf positions from daily demand.
// Normal shelves carry 10-30 days of supply, depleted ones 1-5, and
// the outbreak medicine 2-7. Reorder level is a week of demand.
func (g *Generator) GeneratePharmacyStock(demand map[string]int, opts PharmacyStockOptions) map[string]*entity.MedicineStock {
	out := make(map[string]*entity.MedicineStock, len(demand))
	for med, daily := range demand {
		if daily <= 0 {
			daily = 50
		}

		var daysSupply float64
		switch {
		case med == opts.OutbreakMedicine:
			daysSupply = 2 + g.rng.Float64()*5
		case opts.LowStock:
			daysSupply = 1 + g.rng.Float64()*4
		default:
			daysSupply = 10 + g.rng.Float64()*20
		}

		stock := int(float64(daily) * daysSupply)
		reorder := daily * 7
		out[med] = &entity.MedicineStock{
			Stock:        stock,
			ReorderLevel: reorder,
			DailyUsage:   daily,
			Status:       entity.StockStatus(stock, reorder),
		}
	}
	return out
}

// GenerateSupplierInventory produces a warehouse with large medicine
// stocks and a modest equipment reserve.
func (g *Generator) GenerateSupplierInventory() map[string]*entity.InventoryItem {
	out := make(map[string]*entity.InventoryItem)
	for _, meds := range medicines {
		for _, med := range meds {
			if _, ok := out[med]; ok {
				continue
			}
			out[med] = &entity.InventoryItem{Stock: 10000 + g.rng.Intn(40000)}
		}
	}
	for item, stock := range map[string]int{"ventilators": 50, "oxygenCylinders": 500, "monitors": 120} {
		out[item] = &entity.InventoryItem{Stock: stock + g.rng.Intn(stock)}
	}
	return out
}

// Progress advances a caseload one step. The trending disease grows
// 10-50%; everything else drifts within ±10%.
func (g *Generator) Progress(cases map[string]*entity.CaseLoad, trending string) {
	for d, load := range cases {
		if load == nil {
			continue
		}
		var growth float64
		if d == trending {
			growth = 0.1 + g.rng.Float64()*0.4
		} else {
			growth = -0.1 + g.rng.Float64()*0.2
		}

		load.Total = int(math.Max(0, float64(load.Total)*(1+growth)))
		load.NewToday = int(float64(load.Total) * (0.1 + g.rng.Float64()*0.1))
		switch {
		case growth > 0.05:
			load.Trend = "increasing"
		case growth < -0.05:
			load.Trend = "decreasing"
		default:
			load.Trend = "stable"
		}
	}
}
