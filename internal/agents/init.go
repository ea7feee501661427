package agents

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/health-grid/internal/config"
	"github.com/talgya/health-grid/internal/entity"
)

// StartAll discovers every registered entity in the store, builds an
// agent per instance, and starts their tick loops. Agents whose record
// cannot be loaded are skipped (fatal to that agent only); the rest of
// the network runs on. Returns how many agents started.
func StartAll(ctx context.Context, cfg config.Config, d Deps) (int, error) {
	started := 0
	// Derive a distinct, reproducible seed per agent.
	seedCounter := cfg.Seed

	nextRng := func() *rand.Rand {
		seedCounter++
		return rand.New(rand.NewSource(seedCounter))
	}

	labs, err := d.Store.FindByType(ctx, entity.TypeLab)
	if err != nil {
		return 0, fmt.Errorf("find labs: %w", err)
	}
	for _, e := range labs {
		if err := NewLab(e.ID, d, nextRng()).Start(ctx, cfg.Ticks.Lab); err != nil {
			slog.Error("lab agent did not start", "entity", e.ID, "error", err)
			continue
		}
		started++
	}

	hospitals, err := d.Store.FindByType(ctx, entity.TypeHospital)
	if err != nil {
		return started, fmt.Errorf("find hospitals: %w", err)
	}
	for _, e := range hospitals {
		if err := NewHospital(e.ID, d, nextRng()).Start(ctx, cfg.Ticks.Hospital); err != nil {
			slog.Error("hospital agent did not start", "entity", e.ID, "error", err)
			continue
		}
		started++
	}

	pharmacies, err := d.Store.FindByType(ctx, entity.TypePharmacy)
	if err != nil {
		return started, fmt.Errorf("find pharmacies: %w", err)
	}
	for _, e := range pharmacies {
		if err := NewPharmacy(e.ID, d, nextRng()).Start(ctx, cfg.Ticks.Pharmacy); err != nil {
			slog.Error("pharmacy agent did not start", "entity", e.ID, "error", err)
			continue
		}
		started++
	}

	suppliers, err := d.Store.FindByType(ctx, entity.TypeSupplier)
	if err != nil {
		return started, fmt.Errorf("find suppliers: %w", err)
	}
	for _, e := range suppliers {
		if err := NewSupplier(e.ID, d).Start(ctx, cfg.Ticks.Supplier); err != nil {
			slog.Error("supplier agent did not start", "entity", e.ID, "error", err)
			continue
		}
		started++
	}

	admins, err := d.Store.FindByType(ctx, entity.TypeCityAdmin)
	if err != nil {
		return started, fmt.Errorf("find city admins: %w", err)
	}
	for _, e := range admins {
		if err := NewCity(e.ID, d).Start(ctx, cfg.Ticks.City); err != nil {
			slog.Error("city agent did not start", "entity", e.ID, "error", err)
			continue
		}
		started++
	}

	slog.Info("agents initialized",
		"labs", len(labs), "hospitals", len(hospitals),
		"pharmacies", len(pharmacies), "suppliers", len(suppliers),
		"started", started)
	return started, nil
}
