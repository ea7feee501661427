package entity

import "testing"

func TestNewOrder(t *testing.T) {
	o := NewOrder("pharm-1", "Central Pharmacy", "dengueMed", 500, UrgencyHigh, CriticalityMedium, "Zone-1")

	if o.ID == "" {
		t.Error("order must get an ID")
	}
	if o.CreatedAt.IsZero() {
		t.Error("order must be timestamped")
	}
	if o.Item != "dengueMed" || o.Quantity != 500 || o.Zone != "Zone-1" {
		t.Errorf("fields not carried: %+v", o)
	}

	other := NewOrder("pharm-1", "Central Pharmacy", "dengueMed", 500, UrgencyHigh, CriticalityMedium, "Zone-1")
	if other.ID == o.ID {
		t.Error("two orders must not share an ID")
	}
}
