package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/health-grid/internal/config"
	"github.com/talgya/health-grid/internal/entity"
	"github.com/talgya/health-grid/internal/store"
)

func TestCity(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	cfg := config.Default()

	created, err := City(ctx, m, cfg)
	require.NoError(t, err)
	// One hospital, lab, and pharmacy per zone, plus supplier and city admin.
	assert.Equal(t, 3*len(cfg.Zones)+2, created)

	for _, typ := range []entity.Type{entity.TypeHospital, entity.TypeLab, entity.TypePharmacy} {
		got, err := m.FindByType(ctx, typ)
		require.NoError(t, err)
		assert.Len(t, got, len(cfg.Zones), "one %s per zone", typ)
	}

	suppliers, err := m.FindByType(ctx, entity.TypeSupplier)
	require.NoError(t, err)
	require.Len(t, suppliers, 1)
	supState, ok := suppliers[0].State.(*entity.SupplierState)
	require.True(t, ok)
	assert.NotEmpty(t, supState.Inventory)

	admins, err := m.FindByType(ctx, entity.TypeCityAdmin)
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}

func TestCity_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	cfg := config.Default()

	_, err := City(ctx, m, cfg)
	require.NoError(t, err)

	again, err := City(ctx, m, cfg)
	require.NoError(t, err)
	assert.Zero(t, again, "second seed must not create anything")

	all, err := m.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3*len(cfg.Zones)+2)
}

func TestCity_ZonesCarried(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	cfg := config.Default()

	_, err := City(ctx, m, cfg)
	require.NoError(t, err)

	for _, zone := range cfg.Zones {
		hospitals, err := m.FindByZoneAndType(ctx, zone, entity.TypeHospital)
		require.NoError(t, err)
		assert.Len(t, hospitals, 1, "zone %s", zone)
	}
}
