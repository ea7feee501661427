package entity

import (
	"time"

	"github.com/google/uuid"
)

// Urgency says how soon an order is needed.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Criticality says how important the ordered item is, independent of
// how soon it is needed.
type Criticality string

const (
	CriticalityLow    Criticality = "low"
	CriticalityMedium Criticality = "medium"
	CriticalityHigh   Criticality = "high"
)

// Order is one resupply request queued at a supplier.
type Order struct {
	ID            string      `json:"id"`
	RequesterID   string      `json:"requesterId"`
	RequesterName string      `json:"requesterName,omitempty"`
	Item          string      `json:"item"`
	Quantity      int         `json:"quantity"`
	Urgency       Urgency     `json:"urgency"`
	Criticality   Criticality `json:"criticality"`
	CreatedAt     time.Time   `json:"timestamp"`
	Zone          string      `json:"zone,omitempty"`
}

// NewOrder builds an Order with a fresh ID and the current time.
func NewOrder(requesterID, requesterName, item string, quantity int, urgency Urgency, criticality Criticality, zone string) Order {
	return Order{
		ID:            uuid.NewString(),
		RequesterID:   requesterID,
		RequesterName: requesterName,
		Item:          item,
		Quantity:      quantity,
		Urgency:       urgency,
		Criticality:   criticality,
		CreatedAt:     time.Now().UTC(),
		Zone:          zone,
	}
}
