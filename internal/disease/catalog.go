// Package disease holds the disease catalog and the stateless data
// generators the simulation draws its synthetic epidemiology from. The
// numbers are demonstration-grade: plausible shapes and seasonal bias,
// not a scientific model.
package disease

// Known diseases, in the order the generators iterate them.
var All = []string{"dengue", "malaria", "typhoid", "influenza", "covid"}

// Info is display metadata for one disease.
type Info struct {
	Name       string   `json:"name"`
	Kind       string   `json:"type"` // viral, bacterial, parasitic
	Vector     string   `json:"vector"`
	Incubation string   `json:"incubation"`
	Severity   string   `json:"severity"`
	Symptoms   []string `json:"symptoms"`
}

var catalog = map[string]Info{
	"dengue": {
		Name: "Dengue Fever", Kind: "viral", Vector: "mosquito",
		Incubation: "4-7 days", Severity: "medium-high",
		Symptoms: []string{"high fever", "severe headache", "joint pain", "rash"},
	},
	"malaria": {
		Name: "Malaria", Kind: "parasitic", Vector: "mosquito",
		Incubation: "10-15 days", Severity: "high",
		Symptoms: []string{"fever", "chills", "sweating", "headache"},
	},
	"typhoid": {
		Name: "Typhoid Fever", Kind: "bacterial", Vector: "waterborne",
		Incubation: "6-30 days", Severity: "medium",
		Symptoms: []string{"sustained fever", "weakness", "abdominal pain"},
	},
	"influenza": {
		Name: "Influenza", Kind: "viral", Vector: "airborne",
		Incubation: "1-4 days", Severity: "low-medium",
		Symptoms: []string{"fever", "cough", "body aches", "fatigue"},
	},
	"covid": {
		Name: "COVID-19", Kind: "viral", Vector: "airborne",
		Incubation: "2-14 days", Severity: "medium-high",
		Symptoms: []string{"fever", "cough", "shortness of breath"},
	},
}

// Lookup returns catalog metadata for a disease, with a generic entry
// for unknown names.
func Lookup(disease string) Info {
	if info, ok := catalog[disease]; ok {
		return info
	}
	return Info{Name: disease, Kind: "unknown", Severity: "medium"}
}

// medicines maps each disease to the medicines its cases consume, in
// priority order. The first entry is the disease-specific medicine.
var medicines = map[string][]string{
	"dengue":    {"dengueMed", "paracetamol"},
	"malaria":   {"chloroquine", "paracetamol"},
	"typhoid":   {"ceftriaxone", "paracetamol"},
	"covid":     {"covidMed", "oseltamivir"},
	"influenza": {"oseltamivir", "paracetamol"},
}

// MedicineFor returns the primary medicine for a disease.
func MedicineFor(disease string) string {
	if m, ok := medicines[disease]; ok {
		return m[0]
	}
	return "paracetamol"
}

// MedicinesFor returns every medicine a disease's caseload consumes.
func MedicinesFor(disease string) []string {
	return medicines[disease]
}
