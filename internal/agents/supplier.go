package agents

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/health-grid/internal/entity"
)

// ordersPerTick bounds fulfillment work per cycle. It is backpressure,
// not a queue limit: the queue itself is unbounded.
const ordersPerTick = 3

// lowInventoryThreshold triggers warehouse warnings.
const lowInventoryThreshold = 100

// Supplier maintains warehouse inventory and fulfills resupply orders
// raised by pharmacies and hospitals.
type Supplier struct {
	base
	// now is swappable for deterministic age-scoring tests.
	now func() time.Time
}

// NewSupplier builds a supplier agent and registers its order-intake
// subscriptions.
func NewSupplier(id string, d Deps) *Supplier {
	s := &Supplier{base: base{id: id, deps: d}, now: time.Now}
	d.Bus.Subscribe(EventMedicineShortageRisk, s.onMedicineShortage)
	d.Bus.Subscribe(EventEquipmentShortage, s.onEquipmentShortage)
	d.Bus.Subscribe(EventHospitalOverloadRisk, s.onHospitalOverload)
	return s
}

// Start loads the supplier's record and begins ticking. A missing
// record is fatal to this agent only.
func (s *Supplier) Start(ctx context.Context, period time.Duration) error {
	e, ok := s.loadOwn(ctx)
	if !ok {
		return fmt.Errorf("supplier %s not found", s.id)
	}

	st := s.supplierState(e)
	s.saveOwn(ctx, e)

	s.deps.Activity.Log(s.id, e.Name, "Supplier", "INIT",
		fmt.Sprintf("Supplier %s initialized - %d items in warehouse", e.Name, len(st.Inventory)),
		nil)

	runTicks(ctx, period, s.tick)
	return nil
}

func (s *Supplier) supplierState(e *entity.Entity) *entity.SupplierState {
	st, ok := e.State.(*entity.SupplierState)
	if !ok || st == nil {
		st = &entity.SupplierState{}
	}
	st.EnsureDefaults()
	e.State = st
	return st
}

func (s *Supplier) tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.loadOwn(ctx)
	if !ok {
		return
	}
	st := s.supplierState(e)

	lowItems := 0
	for item, inv := range st.Inventory {
		if inv.Stock < lowInventoryThreshold {
			lowItems++
			s.deps.Activity.Log(s.id, e.Name, "Supplier", "INVENTORY_LOW",
				fmt.Sprintf("%s: low inventory warning - %s at %d units", e.Name, item, inv.Stock),
				map[string]any{"item": item, "stock": inv.Stock})
		}
	}

	status := "READY"
	if len(st.ActiveOrders) > 2 {
		status = "BUSY"
	}
	s.deps.Activity.Log(s.id, e.Name, "Supplier", "STATUS",
		fmt.Sprintf("%s: %s | %d active orders | %d low stock alerts",
			e.Name, status, len(st.ActiveOrders), lowItems),
		map[string]any{"activeOrders": len(st.ActiveOrders), "lowStockItems": lowItems})

	s.processOrders(e, st)

	s.saveOwn(ctx, e)
	s.deps.Metrics.Record(s.id, string(entity.TypeSupplier), e.Zone, map[string]any{
		"inventory":     st.Inventory,
		"activeOrders":  len(st.ActiveOrders),
		"lowStockItems": lowItems,
	})
}

// OrderScore computes an order's priority: urgency dominates,
// criticality refines, and age adds up to 30 points (2 per hour) so
// nothing starves forever. A critical order always outranks a low one
// regardless of age, since 100 > 25+30.
func OrderScore(o entity.Order, now time.Time) float64 {
	score := 0.0

	switch o.Urgency {
	case entity.UrgencyCritical:
		score += 100
	case entity.UrgencyHigh:
		score += 75
	case entity.UrgencyMedium:
		score += 50
	default:
		score += 25
	}

	switch o.Criticality {
	case entity.CriticalityHigh:
		score += 50
	case entity.CriticalityMedium:
		score += 30
	default:
		score += 10
	}

	hoursOld := now.Sub(o.CreatedAt).Hours()
	if hoursOld < 0 {
		hoursOld = 0
	}
	score += math.Min(hoursOld*2, 30)

	return score
}

// prioritize sorts orders by descending score. The sort is stable, so
// equal scores keep queue insertion order (oldest enqueued first).
func prioritize(orders []entity.Order, now time.Time) []entity.Order {
	out := make([]entity.Order, len(orders))
	copy(out, orders)
	sort.SliceStable(out, func(i, j int) bool {
		return OrderScore(out[i], now) > OrderScore(out[j], now)
	})
	return out
}

// processOrders attempts the top-scored orders, each independently:
// an unfulfillable order stays queued without blocking the ones behind
// it, and fulfillment is all-or-nothing per order.
func (s *Supplier) processOrders(e *entity.Entity, st *entity.SupplierState) {
	if len(st.ActiveOrders) == 0 {
		return
	}

	ranked := prioritize(st.ActiveOrders, s.now())
	n := min(ordersPerTick, len(ranked))
	for _, order := range ranked[:n] {
		s.fulfill(e, st, order)
	}
}

func (s *Supplier) fulfill(e *entity.Entity, st *entity.SupplierState, order entity.Order) {
	inv := st.Inventory[order.Item]
	if inv == nil {
		// Item this warehouse does not carry; the order stays queued
		// until an operator intervenes.
		return
	}

	if inv.Stock < order.Quantity {
		s.deps.Activity.Log(s.id, e.Name, "Supplier", "SUPPLY_SHORTAGE",
			fmt.Sprintf("%s: insufficient stock for %s - requested %s, available %s",
				e.Name, order.Item, humanize.Comma(int64(order.Quantity)), humanize.Comma(int64(inv.Stock))),
			map[string]any{"item": order.Item, "requested": order.Quantity, "available": inv.Stock})

		s.deps.Bus.Publish(EventSupplyShortage, &SupplyShortage{
			SupplierID: s.id,
			OrderID:    order.ID,
			Item:       order.Item,
			Requested:  order.Quantity,
			Available:  inv.Stock,
		})
		return
	}

	inv.Stock -= order.Quantity
	st.ActiveOrders = removeOrder(st.ActiveOrders, order.ID)

	recipient := order.RequesterName
	if recipient == "" {
		recipient = order.RequesterID
	}

	s.deps.Activity.Log(s.id, e.Name, "Supplier", "DELIVERY_COMPLETE",
		fmt.Sprintf("%s: fulfilled order for %s - delivered %s units of %s",
			e.Name, recipient, humanize.Comma(int64(order.Quantity)), order.Item),
		map[string]any{"item": order.Item, "quantity": order.Quantity, "recipient": recipient})

	s.deps.Bus.Publish(EventDeliveryConfirmed, &DeliveryConfirmed{
		SupplierID:    s.id,
		SupplierName:  e.Name,
		OrderID:       order.ID,
		RequesterID:   order.RequesterID,
		RequesterName: order.RequesterName,
		Item:          order.Item,
		Quantity:      order.Quantity,
	})
}

func removeOrder(orders []entity.Order, id string) []entity.Order {
	out := orders[:0]
	for _, o := range orders {
		if o.ID != id {
			out = append(out, o)
		}
	}
	return out
}

// onMedicineShortage queues a pharmacy's resupply request.
func (s *Supplier) onMedicineShortage(payload any) {
	ev, ok := payload.(*MedicineShortage)
	if !ok || ev == nil || ev.Medicine == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok2 := s.loadOwn(ctx)
	if !ok2 {
		return
	}
	st := s.supplierState(e)

	quantity := ev.OrderQuantity
	if quantity <= 0 {
		quantity = ev.Stock + 1 // defensive: malformed payload, order something
	}
	order := entity.NewOrder(ev.PharmacyID, ev.PharmacyName, ev.Medicine, quantity, ev.Urgency, ev.Criticality, ev.Zone)
	if order.Urgency == "" {
		order.Urgency = entity.UrgencyMedium
	}
	if order.Criticality == "" {
		order.Criticality = entity.CriticalityMedium
	}
	st.ActiveOrders = append(st.ActiveOrders, order)

	s.deps.Activity.Log(s.id, e.Name, "Supplier", "ORDER_RECEIVED",
		fmt.Sprintf("%s: received %s priority order from %s for %s (%s units) - %d orders pending",
			e.Name, order.Urgency, ev.PharmacyName, ev.Medicine, humanize.Comma(int64(quantity)), len(st.ActiveOrders)),
		map[string]any{"pharmacyId": ev.PharmacyID, "medicine": ev.Medicine, "urgency": order.Urgency})

	s.saveOwn(ctx, e)
}

// onEquipmentShortage queues an emergency equipment order covering
// half the reported shortfall.
func (s *Supplier) onEquipmentShortage(payload any) {
	ev, ok := payload.(*EquipmentShortage)
	if !ok || ev == nil || ev.Equipment == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok2 := s.loadOwn(ctx)
	if !ok2 {
		return
	}
	st := s.supplierState(e)

	shortfall := ev.Total - ev.Available
	if shortfall <= 0 {
		return
	}
	quantity := int(math.Ceil(float64(shortfall) * 0.5))

	order := entity.NewOrder(ev.HospitalID, ev.HospitalName, ev.Equipment, quantity,
		entity.UrgencyCritical, entity.CriticalityHigh, ev.Zone)
	st.ActiveOrders = append(st.ActiveOrders, order)

	s.deps.Activity.Log(s.id, e.Name, "Supplier", "EQUIPMENT_SHORTAGE_ALERT",
		fmt.Sprintf("%s: critical equipment shortage at %s - %s: %d/%d, queuing emergency order for %d",
			e.Name, ev.HospitalName, ev.Equipment, ev.Available, ev.Total, quantity),
		map[string]any{"hospitalId": ev.HospitalID, "equipment": ev.Equipment, "quantity": quantity})

	s.saveOwn(ctx, e)
}

// onHospitalOverload is informational: suppliers do not act on bed
// pressure directly, equipment orders arrive separately.
func (s *Supplier) onHospitalOverload(payload any) {
	ev, ok := payload.(*HospitalOverload)
	if !ok || ev == nil {
		return
	}
	s.deps.Activity.Log(s.id, s.name, "Supplier", "HOSPITAL_ALERT",
		fmt.Sprintf("alert - hospital %s in %s at %.0f%% capacity", ev.Name, ev.Zone, ev.Occupancy*100),
		map[string]any{"hospitalId": ev.HospitalID})
}
