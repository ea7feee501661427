// Package seed populates an empty store with a demonstration city.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talgya/health-grid/internal/config"
	"github.com/talgya/health-grid/internal/disease"
	"github.com/talgya/health-grid/internal/entity"
	"github.com/talgya/health-grid/internal/store"
)

// City creates one hospital, lab, and pharmacy per zone, plus a single
// citywide supplier and the city administration. Existing records are
// left alone. Returns how many entities were created.
func City(ctx context.Context, st store.Store, cfg config.Config) (int, error) {
	gen := disease.NewGenerator(cfg.Seed)
	created := 0

	save := func(e *entity.Entity) error {
		if _, err := st.Load(ctx, e.ID); err == nil {
			return nil // already seeded
		}
		if err := st.Save(ctx, e); err != nil {
			return fmt.Errorf("seed %s: %w", e.ID, err)
		}
		created++
		return nil
	}

	for i, zone := range cfg.Zones {
		slug := strings.ToLower(zone)

		hospState := &entity.HospitalState{}
		hospState.EnsureDefaults()
		if err := save(&entity.Entity{
			ID:   "hospital-" + slug,
			Name: fmt.Sprintf("%s General Hospital", zone),
			Type: entity.TypeHospital,
			Zone: zone,
			Profile: entity.Profile{
				Beds:      map[string]int{"general": 120, "icu": 20, "isolation": 30},
				Equipment: map[string]int{"ventilators": 25, "oxygenCylinders": 200, "monitors": 60},
			},
			State: hospState,
		}); err != nil {
			return created, err
		}

		labState := &entity.LabState{}
		labState.EnsureDefaults()
		if err := save(&entity.Entity{
			ID:      "lab-" + slug,
			Name:    fmt.Sprintf("%s Diagnostics Lab", zone),
			Type:    entity.TypeLab,
			Zone:    zone,
			Profile: entity.Profile{TestCapacity: 900 + 150*i},
			State:   labState,
		}); err != nil {
			return created, err
		}

		pharmState := &entity.PharmacyState{}
		pharmState.EnsureDefaults()
		if err := save(&entity.Entity{
			ID:    "pharmacy-" + slug,
			Name:  fmt.Sprintf("%s Central Pharmacy", zone),
			Type:  entity.TypePharmacy,
			Zone:  zone,
			State: pharmState,
		}); err != nil {
			return created, err
		}
	}

	if err := save(&entity.Entity{
		ID:    "supplier-metro",
		Name:  "Metro Medical Supplies",
		Type:  entity.TypeSupplier,
		State: &entity.SupplierState{Inventory: gen.GenerateSupplierInventory(), ActiveOrders: []entity.Order{}},
	}); err != nil {
		return created, err
	}

	if err := save(&entity.Entity{
		ID:    "city-admin",
		Name:  "City Health Department",
		Type:  entity.TypeCityAdmin,
		State: &entity.CityState{},
	}); err != nil {
		return created, err
	}

	slog.Info("seed complete", "created", created, "zones", len(cfg.Zones))
	return created, nil
}
