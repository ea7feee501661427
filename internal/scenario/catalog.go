// Package scenario drives the background disease simulation and the
// outbreak trigger entry points. It is an external stimulus: it only
// ever mutates the store, and agents consume its effects exactly like
// any other state change.
package scenario

import "time"

// Preset is one runnable outbreak scenario.
type Preset struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Disease     string        `json:"disease"`
	Multiplier  float64       `json:"diseaseMultiplier"`
	Zones       []string      `json:"affectedZones"`
	Duration    time.Duration `json:"duration"`
	Severity    string        `json:"severity"`
}

// Presets returns the built-in scenario catalog.
func Presets() []Preset {
	return []Preset{
		{
			ID: "dengue", Name: "Dengue Outbreak",
			Description: "Sudden spike in dengue fever cases",
			Disease:     "dengue", Multiplier: 5,
			Zones: []string{"Zone-1", "Zone-2"}, Duration: 72 * time.Hour, Severity: "high",
		},
		{
			ID: "covid19", Name: "COVID-19 Wave",
			Description: "New COVID-19 variant spreading",
			Disease:     "covid", Multiplier: 8,
			Zones: []string{"Zone-1", "Zone-2", "Zone-3"}, Duration: 168 * time.Hour, Severity: "critical",
		},
		{
			ID: "typhoid", Name: "Typhoid Outbreak",
			Description: "Water contamination leading to typhoid",
			Disease:     "typhoid", Multiplier: 4,
			Zones: []string{"Zone-3"}, Duration: 96 * time.Hour, Severity: "high",
		},
		{
			ID: "malaria", Name: "Malaria Outbreak",
			Description: "Increased mosquito activity",
			Disease:     "malaria", Multiplier: 6,
			Zones: []string{"Zone-2", "Zone-3"}, Duration: 120 * time.Hour, Severity: "high",
		},
		{
			ID: "influenza", Name: "Seasonal Flu",
			Description: "Influenza season outbreak",
			Disease:     "influenza", Multiplier: 3,
			Zones: []string{"Zone-1", "Zone-2", "Zone-3"}, Duration: 144 * time.Hour, Severity: "medium",
		},
	}
}

// PresetByID returns the preset with the given ID, if any.
func PresetByID(id string) (Preset, bool) {
	for _, p := range Presets() {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}
