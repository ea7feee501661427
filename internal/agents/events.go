// Package agents holds the coordination core: one autonomous,
// periodically ticking agent per entity, wired together through the
// event bus. Agents never write each other's state; every cross-entity
// effect travels as a published event.
package agents

import (
	"strings"

	"github.com/talgya/health-grid/internal/entity"
)

// Event names. Outbreak events are disease-specific; everything else is
// a fixed topic.
const (
	EventLabCapacityWarning   = "LAB_CAPACITY_WARNING"
	EventHospitalOverloadRisk = "HOSPITAL_OVERLOAD_RISK"
	EventMedicineShortageRisk = "MEDICINE_SHORTAGE_RISK"
	EventEquipmentShortage    = "EQUIPMENT_SHORTAGE"
	EventDeliveryConfirmed    = "DELIVERY_CONFIRMED"
	EventSupplyShortage       = "SUPPLY_SHORTAGE"
	EventCityCriticalShortage = "CITY_CRITICAL_SHORTAGE"
)

// OutbreakEvent returns the event name for a disease's outbreak alerts,
// e.g. "DENGUE_OUTBREAK_PREDICTED".
func OutbreakEvent(disease string) string {
	return strings.ToUpper(disease) + "_OUTBREAK_PREDICTED"
}

// OutbreakAlert is published by a lab whose detector fired. The
// detector is edge-triggered on a level condition, so the same alert
// re-fires every tick the condition holds.
type OutbreakAlert struct {
	LabID          string  `json:"labId"`
	LabName        string  `json:"labName"`
	Zone           string  `json:"zone"`
	Disease        string  `json:"disease"`
	Today          int     `json:"today"`
	Avg            float64 `json:"avg"`
	GrowthRate     float64 `json:"growthRate"`
	RiskLevel      string  `json:"riskLevel"`
	Confidence     float64 `json:"confidence"`
	PositiveRate   float64 `json:"positiveRate"`
	PredictedCases int     `json:"predictedCases"`
}

// LabCapacityWarning is published when a lab's total test volume
// crosses 85% of its capacity.
type LabCapacityWarning struct {
	LabID         string  `json:"labId"`
	Zone          string  `json:"zone"`
	Utilization   float64 `json:"utilization"`
	TotalTests    int     `json:"totalTests"`
	TotalCapacity int     `json:"totalCapacity"`
}

// HospitalOverload is published when a hospital's predicted occupancy
// crosses the high-water mark.
type HospitalOverload struct {
	HospitalID    string  `json:"hospitalId"`
	Name          string  `json:"name"`
	Zone          string  `json:"zone"`
	Occupancy     float64 `json:"occupancy"`
	PredictedBeds int     `json:"predictedBeds"`
	TotalBeds     int     `json:"totalBeds"`
}

// MedicineShortage is published by a pharmacy whose stock fell below
// its reorder level, and doubles as the supplier's order request.
type MedicineShortage struct {
	PharmacyID    string             `json:"pharmacyId"`
	PharmacyName  string             `json:"pharmacyName"`
	Zone          string             `json:"zone"`
	Medicine      string             `json:"medicine"`
	Stock         int                `json:"stock"`
	DaysLeft      float64            `json:"daysLeft"`
	Urgency       entity.Urgency     `json:"urgency"`
	Criticality   entity.Criticality `json:"criticality"`
	OrderQuantity int                `json:"orderQuantity"`
}

// EquipmentShortage is published by a hospital running out of a
// critical equipment item.
type EquipmentShortage struct {
	HospitalID   string `json:"hospitalId"`
	HospitalName string `json:"hospitalName"`
	Zone         string `json:"zone"`
	Equipment    string `json:"equipment"`
	Available    int    `json:"available"`
	Total        int    `json:"total"`
}

// DeliveryConfirmed is published by a supplier after fulfilling an
// order in full. Partial deliveries do not exist.
type DeliveryConfirmed struct {
	SupplierID    string `json:"supplierId"`
	SupplierName  string `json:"supplierName"`
	OrderID       string `json:"orderId"`
	RequesterID   string `json:"requesterId"`
	RequesterName string `json:"requesterName"`
	Item          string `json:"item"`
	Quantity      int    `json:"quantity"`
}

// SupplyShortage is published when a supplier cannot cover an order
// from stock. The order stays queued.
type SupplyShortage struct {
	SupplierID string `json:"supplierId"`
	OrderID    string `json:"orderId"`
	Item       string `json:"item"`
	Requested  int    `json:"requested"`
	Available  int    `json:"available"`
}

// CriticalShortage is the city's signal that a zone has no spare
// capacity left for a resource.
type CriticalShortage struct {
	Zone     string `json:"zone"`
	Resource string `json:"resource"`
}

// riskLevel maps a growth rate to the alert tier labs and dashboards
// share.
func riskLevel(growthRate float64) string {
	switch {
	case growthRate > 1.5:
		return "critical"
	case growthRate > 0.8:
		return "high"
	case growthRate > 0.4:
		return "medium"
	}
	return "low"
}
