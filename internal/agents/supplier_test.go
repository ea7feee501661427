package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/health-grid/internal/activity"
	"github.com/talgya/health-grid/internal/bus"
	"github.com/talgya/health-grid/internal/entity"
	"github.com/talgya/health-grid/internal/metrics"
	"github.com/talgya/health-grid/internal/store"
)

func newTestDeps() (Deps, *store.Memory) {
	m := store.NewMemory()
	return Deps{
		Store:    m,
		Bus:      bus.New(),
		Activity: activity.New(m),
		Metrics:  metrics.New(m),
	}, m
}

func testOrder(item string, qty int, u entity.Urgency, c entity.Criticality, age time.Duration, now time.Time) entity.Order {
	o := entity.NewOrder("pharm-1", "Test Pharmacy", item, qty, u, c, "Zone-1")
	o.CreatedAt = now.Add(-age)
	return o
}

func saveSupplier(t *testing.T, m *store.Memory, st *entity.SupplierState) {
	t.Helper()
	st.EnsureDefaults()
	require.NoError(t, m.Save(context.Background(), &entity.Entity{
		ID:    "supp-1",
		Name:  "Metro Supplies",
		Type:  entity.TypeSupplier,
		State: st,
	}))
}

func loadSupplierState(t *testing.T, m *store.Memory) *entity.SupplierState {
	t.Helper()
	e, err := m.Load(context.Background(), "supp-1")
	require.NoError(t, err)
	st, ok := e.State.(*entity.SupplierState)
	require.True(t, ok)
	return st
}

func TestOrderScore(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		order entity.Order
		want  float64
	}{
		{"critical high fresh", testOrder("x", 1, entity.UrgencyCritical, entity.CriticalityHigh, 0, now), 150},
		{"low low fresh", testOrder("x", 1, entity.UrgencyLow, entity.CriticalityLow, 0, now), 35},
		{"medium medium 5h", testOrder("x", 1, entity.UrgencyMedium, entity.CriticalityMedium, 5 * time.Hour, now), 90},
		{"age bonus caps at 30", testOrder("x", 1, entity.UrgencyLow, entity.CriticalityLow, 100 * time.Hour, now), 65},
		{"future timestamp scores as fresh", testOrder("x", 1, entity.UrgencyLow, entity.CriticalityLow, -time.Hour, now), 35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, OrderScore(tt.order, now), 0.01)
		})
	}
}

func TestOrderScore_CriticalOutranksAgedLow(t *testing.T) {
	// Age alone can never carry a low order past a critical one.
	now := time.Now()
	critical := testOrder("x", 1, entity.UrgencyCritical, entity.CriticalityLow, 0, now)
	agedLow := testOrder("x", 1, entity.UrgencyLow, entity.CriticalityHigh, 1000*time.Hour, now)
	if OrderScore(critical, now) <= OrderScore(agedLow, now) {
		t.Errorf("critical %.0f must outrank aged low %.0f", OrderScore(critical, now), OrderScore(agedLow, now))
	}
}

func TestPrioritize(t *testing.T) {
	now := time.Now()
	low := testOrder("a", 1, entity.UrgencyLow, entity.CriticalityLow, 0, now)
	high := testOrder("b", 1, entity.UrgencyHigh, entity.CriticalityHigh, 0, now)
	medium := testOrder("c", 1, entity.UrgencyMedium, entity.CriticalityMedium, 0, now)

	ranked := prioritize([]entity.Order{low, high, medium}, now)

	require.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].Item)
	assert.Equal(t, "c", ranked[1].Item)
	assert.Equal(t, "a", ranked[2].Item)
}

func TestPrioritize_StableOnTies(t *testing.T) {
	now := time.Now()
	first := testOrder("first", 1, entity.UrgencyMedium, entity.CriticalityMedium, time.Hour, now)
	second := testOrder("second", 1, entity.UrgencyMedium, entity.CriticalityMedium, time.Hour, now)

	ranked := prioritize([]entity.Order{first, second}, now)

	assert.Equal(t, "first", ranked[0].Item, "equal scores keep queue order")
	assert.Equal(t, "second", ranked[1].Item)
}

func TestSupplierTick_FulfillsOrder(t *testing.T) {
	deps, m := newTestDeps()
	now := time.Now()
	saveSupplier(t, m, &entity.SupplierState{
		Inventory:    map[string]*entity.InventoryItem{"dengueMed": {Stock: 1000}},
		ActiveOrders: []entity.Order{testOrder("dengueMed", 300, entity.UrgencyHigh, entity.CriticalityHigh, 0, now)},
	})

	delivered := make(chan any, 1)
	deps.Bus.Subscribe(EventDeliveryConfirmed, func(p any) { delivered <- p })

	s := NewSupplier("supp-1", deps)
	s.tick(context.Background())

	st := loadSupplierState(t, m)
	assert.Empty(t, st.ActiveOrders, "fulfilled order must leave the queue")
	assert.Equal(t, 700, st.Inventory["dengueMed"].Stock)

	select {
	case p := <-delivered:
		ev := p.(*DeliveryConfirmed)
		assert.Equal(t, "dengueMed", ev.Item)
		assert.Equal(t, 300, ev.Quantity)
	case <-time.After(time.Second):
		t.Fatal("no delivery confirmation published")
	}
}

func TestSupplierTick_InsufficientStockLeavesOrderQueued(t *testing.T) {
	deps, m := newTestDeps()
	now := time.Now()
	saveSupplier(t, m, &entity.SupplierState{
		Inventory:    map[string]*entity.InventoryItem{"dengueMed": {Stock: 100}},
		ActiveOrders: []entity.Order{testOrder("dengueMed", 300, entity.UrgencyHigh, entity.CriticalityHigh, 0, now)},
	})

	shortage := make(chan any, 1)
	deps.Bus.Subscribe(EventSupplyShortage, func(p any) { shortage <- p })

	s := NewSupplier("supp-1", deps)
	s.tick(context.Background())

	st := loadSupplierState(t, m)
	require.Len(t, st.ActiveOrders, 1, "unfulfillable order stays queued")
	assert.Equal(t, 100, st.Inventory["dengueMed"].Stock, "no partial delivery")

	select {
	case p := <-shortage:
		ev := p.(*SupplyShortage)
		assert.Equal(t, 300, ev.Requested)
		assert.Equal(t, 100, ev.Available)
	case <-time.After(time.Second):
		t.Fatal("no supply shortage published")
	}
}

func TestSupplierTick_UnknownItemStaysQueued(t *testing.T) {
	deps, m := newTestDeps()
	now := time.Now()
	saveSupplier(t, m, &entity.SupplierState{
		Inventory:    map[string]*entity.InventoryItem{"dengueMed": {Stock: 1000}},
		ActiveOrders: []entity.Order{testOrder("unicornDust", 10, entity.UrgencyCritical, entity.CriticalityHigh, 0, now)},
	})

	s := NewSupplier("supp-1", deps)
	s.tick(context.Background())

	st := loadSupplierState(t, m)
	assert.Len(t, st.ActiveOrders, 1, "order for uncarried item stays until intervention")
}

func TestSupplierTick_ProcessesAtMostThreeOrders(t *testing.T) {
	deps, m := newTestDeps()
	now := time.Now()
	var orders []entity.Order
	for i := 0; i < 5; i++ {
		orders = append(orders, testOrder("paracetamol", 10, entity.UrgencyMedium, entity.CriticalityMedium, 0, now))
	}
	saveSupplier(t, m, &entity.SupplierState{
		Inventory:    map[string]*entity.InventoryItem{"paracetamol": {Stock: 10000}},
		ActiveOrders: orders,
	})

	s := NewSupplier("supp-1", deps)
	s.tick(context.Background())

	st := loadSupplierState(t, m)
	assert.Len(t, st.ActiveOrders, 2, "only the top three attempted per tick")
}

func TestSupplierTick_NeverGoesNegative(t *testing.T) {
	deps, m := newTestDeps()
	now := time.Now()
	// Three orders each individually coverable, but not jointly.
	saveSupplier(t, m, &entity.SupplierState{
		Inventory: map[string]*entity.InventoryItem{"monitors": {Stock: 100}},
		ActiveOrders: []entity.Order{
			testOrder("monitors", 60, entity.UrgencyHigh, entity.CriticalityHigh, 0, now),
			testOrder("monitors", 60, entity.UrgencyHigh, entity.CriticalityHigh, 0, now),
			testOrder("monitors", 60, entity.UrgencyHigh, entity.CriticalityHigh, 0, now),
		},
	})

	s := NewSupplier("supp-1", deps)
	s.tick(context.Background())

	st := loadSupplierState(t, m)
	assert.GreaterOrEqual(t, st.Inventory["monitors"].Stock, 0)
	assert.Len(t, st.ActiveOrders, 2, "first order fulfilled, the rest wait for restock")
}

func TestSupplier_OnMedicineShortageQueuesOrder(t *testing.T) {
	deps, m := newTestDeps()
	saveSupplier(t, m, &entity.SupplierState{})

	s := NewSupplier("supp-1", deps)
	s.onMedicineShortage(&MedicineShortage{
		PharmacyID:    "pharm-1",
		PharmacyName:  "Central Pharmacy",
		Zone:          "Zone-1",
		Medicine:      "chloroquine",
		Stock:         50,
		Urgency:       entity.UrgencyHigh,
		Criticality:   entity.CriticalityHigh,
		OrderQuantity: 400,
	})

	st := loadSupplierState(t, m)
	require.Len(t, st.ActiveOrders, 1)
	o := st.ActiveOrders[0]
	assert.Equal(t, "chloroquine", o.Item)
	assert.Equal(t, 400, o.Quantity)
	assert.Equal(t, entity.UrgencyHigh, o.Urgency)
	assert.Equal(t, "pharm-1", o.RequesterID)
}

func TestSupplier_OnMedicineShortageIgnoresMalformed(t *testing.T) {
	deps, m := newTestDeps()
	saveSupplier(t, m, &entity.SupplierState{})

	s := NewSupplier("supp-1", deps)
	s.onMedicineShortage("not an event")
	s.onMedicineShortage(&MedicineShortage{Medicine: ""})

	st := loadSupplierState(t, m)
	assert.Empty(t, st.ActiveOrders)
}

func TestSupplier_OnEquipmentShortageOrdersHalfShortfall(t *testing.T) {
	deps, m := newTestDeps()
	saveSupplier(t, m, &entity.SupplierState{})

	s := NewSupplier("supp-1", deps)
	s.onEquipmentShortage(&EquipmentShortage{
		HospitalID:   "hosp-1",
		HospitalName: "General",
		Zone:         "Zone-1",
		Equipment:    "ventilators",
		Available:    4,
		Total:        25,
	})

	st := loadSupplierState(t, m)
	require.Len(t, st.ActiveOrders, 1)
	o := st.ActiveOrders[0]
	assert.Equal(t, "ventilators", o.Item)
	assert.Equal(t, 11, o.Quantity, "ceil(21 * 0.5)")
	assert.Equal(t, entity.UrgencyCritical, o.Urgency)
	assert.Equal(t, entity.CriticalityHigh, o.Criticality)
}
