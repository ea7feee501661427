// Package entity defines the participants of the healthcare network:
// hospitals, diagnostic labs, pharmacies, suppliers, and the city
// administration. Each participant carries a static Profile and a
// mutable, type-tagged State owned by exactly one agent.
package entity

import (
	"encoding/json"
	"fmt"
)

// Type identifies the kind of participant.
type Type string

const (
	TypeHospital  Type = "hospital"
	TypeLab       Type = "lab"
	TypePharmacy  Type = "pharmacy"
	TypeSupplier  Type = "supplier"
	TypeCityAdmin Type = "cityadmin"
)

// Valid reports whether t is one of the known entity types.
func (t Type) Valid() bool {
	switch t {
	case TypeHospital, TypeLab, TypePharmacy, TypeSupplier, TypeCityAdmin:
		return true
	}
	return false
}

// Coordinates is a geographic point (display only, never used for routing).
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Profile is the static capability description of an entity, set at
// registration and rarely mutated afterwards.
type Profile struct {
	TestCapacity int            `json:"testCapacity,omitempty"` // labs: daily tests across all diseases
	Beds         map[string]int `json:"beds,omitempty"`          // hospitals: bed type → total
	Equipment    map[string]int `json:"equipment,omitempty"`     // hospitals: item → total
	Address      string         `json:"address,omitempty"`
	Coordinates  *Coordinates   `json:"coordinates,omitempty"`
}

// Entity is one participant record. Zone is empty for suppliers and the
// city administration, which operate citywide.
type Entity struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Type    Type    `json:"entityType"`
	Zone    string  `json:"zone,omitempty"`
	Profile Profile `json:"profile"`
	State   State   `json:"currentState"`
}

// State is the tagged union of per-type operational snapshots. Access
// goes through a type switch on the concrete variant; there are no
// shared optional fields.
type State interface {
	entityType() Type
}

// stateEnvelope is the persisted JSON form of a State: the tag selects
// the variant on load.
type stateEnvelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalState encodes a State with its type tag.
func MarshalState(s State) ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return json.Marshal(stateEnvelope{Type: s.entityType(), Data: data})
}

// UnmarshalState decodes an envelope produced by MarshalState. A null
// or empty document yields a nil State; callers lazily initialize
// defaults before first use.
func UnmarshalState(raw []byte) (State, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var env stateEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal state envelope: %w", err)
	}

	var s State
	switch env.Type {
	case TypeLab:
		s = &LabState{}
	case TypeHospital:
		s = &HospitalState{}
	case TypePharmacy:
		s = &PharmacyState{}
	case TypeSupplier:
		s = &SupplierState{}
	case TypeCityAdmin:
		s = &CityState{}
	default:
		return nil, fmt.Errorf("unknown state type %q", env.Type)
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, s); err != nil {
			return nil, fmt.Errorf("unmarshal %s state: %w", env.Type, err)
		}
	}
	return s, nil
}
