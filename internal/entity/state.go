package entity

// DiseaseTests is one disease's testing lane at a lab. History is a
// bounded sliding window of daily counts, sampled every sixth tick
// rather than every tick, max 7 entries, oldest dropped first.
type DiseaseTests struct {
	Today        int     `json:"today"`
	Positive     int     `json:"positive"`
	Capacity     int     `json:"capacity"`
	History      []int   `json:"history"`
	PositiveRate float64 `json:"positiveRate"`
	TickCount    int     `json:"tickCount"`
}

// LabState is the mutable snapshot of a diagnostic lab.
type LabState struct {
	TestData map[string]*DiseaseTests `json:"testData"`
}

func (*LabState) entityType() Type { return TypeLab }

// EnsureDefaults populates missing sub-maps. Called before first use on
// records that predate a field.
func (s *LabState) EnsureDefaults() {
	if s.TestData == nil {
		s.TestData = DefaultTestData()
	}
}

// DefaultTestData seeds a lab's testing lanes with the baseline volumes
// and short histories a newly registered lab starts from.
func DefaultTestData() map[string]*DiseaseTests {
	return map[string]*DiseaseTests{
		"dengue":    {Today: 12, Positive: 2, Capacity: 200, History: []int{10, 11, 12}},
		"malaria":   {Today: 8, Positive: 1, Capacity: 150, History: []int{7, 8, 8}},
		"typhoid":   {Today: 5, Positive: 0, Capacity: 100, History: []int{4, 5, 5}},
		"influenza": {Today: 15, Positive: 3, Capacity: 180, History: []int{12, 14, 15}},
		"covid":     {Today: 20, Positive: 1, Capacity: 500, History: []int{18, 19, 20}},
	}
}

// ResourceLevel is a countable hospital resource (beds of one type, or
// one equipment item). Used never exceeds Total after a tick completes.
type ResourceLevel struct {
	Total int `json:"total"`
	Used  int `json:"used"`
}

// CaseLoad is one disease's admitted-case breakdown at a hospital.
type CaseLoad struct {
	Total    int    `json:"total"`
	Critical int    `json:"critical"`
	Serious  int    `json:"serious"`
	Moderate int    `json:"moderate"`
	NewToday int    `json:"newToday"`
	Trend    string `json:"trend"` // "increasing", "stable", "decreasing"
}

// HospitalState is the mutable snapshot of a hospital.
type HospitalState struct {
	Beds         map[string]*ResourceLevel `json:"beds"`
	Equipment    map[string]*ResourceLevel `json:"equipment"`
	DiseaseCases map[string]*CaseLoad      `json:"diseaseCases"`
}

func (*HospitalState) entityType() Type { return TypeHospital }

// EnsureDefaults populates missing sub-maps with a mid-size hospital's
// baseline resources.
func (s *HospitalState) EnsureDefaults() {
	if s.Beds == nil {
		s.Beds = map[string]*ResourceLevel{
			"general":   {Total: 120, Used: 48},
			"icu":       {Total: 20, Used: 6},
			"isolation": {Total: 30, Used: 8},
		}
	}
	if s.Equipment == nil {
		s.Equipment = map[string]*ResourceLevel{
			"ventilators":     {Total: 25, Used: 8},
			"oxygenCylinders": {Total: 200, Used: 70},
			"monitors":        {Total: 60, Used: 22},
		}
	}
	if s.DiseaseCases == nil {
		s.DiseaseCases = make(map[string]*CaseLoad)
	}
}

// TotalBeds returns (used, total) summed across bed types.
func (s *HospitalState) TotalBeds() (used, total int) {
	for _, b := range s.Beds {
		used += b.Used
		total += b.Total
	}
	return used, total
}

// MedicineStock is one medicine's shelf position at a pharmacy.
// Status is "low" exactly when Stock < ReorderLevel.
type MedicineStock struct {
	Stock        int    `json:"stock"`
	ReorderLevel int    `json:"reorderLevel"`
	DailyUsage   int    `json:"dailyUsage"`
	Status       string `json:"status"`
}

// PharmacyState is the mutable snapshot of a pharmacy.
type PharmacyState struct {
	Medicines map[string]*MedicineStock `json:"medicines"`
}

func (*PharmacyState) entityType() Type { return TypePharmacy }

// EnsureDefaults populates a missing medicines map with a comfortable
// baseline (well above reorder levels).
func (s *PharmacyState) EnsureDefaults() {
	if s.Medicines == nil {
		s.Medicines = map[string]*MedicineStock{
			"paracetamol": {Stock: 2400, ReorderLevel: 560, DailyUsage: 80},
			"dengueMed":   {Stock: 900, ReorderLevel: 280, DailyUsage: 40},
			"chloroquine": {Stock: 700, ReorderLevel: 210, DailyUsage: 30},
			"ceftriaxone": {Stock: 500, ReorderLevel: 175, DailyUsage: 25},
			"oseltamivir": {Stock: 1100, ReorderLevel: 350, DailyUsage: 50},
			"covidMed":    {Stock: 800, ReorderLevel: 245, DailyUsage: 35},
		}
		for _, m := range s.Medicines {
			m.Status = StockStatus(m.Stock, m.ReorderLevel)
		}
	}
}

// StockStatus returns "low" when stock has fallen below the reorder
// level, "normal" otherwise.
func StockStatus(stock, reorderLevel int) string {
	if stock < reorderLevel {
		return "low"
	}
	return "normal"
}

// InventoryItem is one warehouse line at a supplier.
type InventoryItem struct {
	Stock    int `json:"stock"`
	Incoming int `json:"incoming"`
}

// SupplierState is the mutable snapshot of a supplier: warehouse
// inventory plus the queue of unfulfilled orders. Orders leave the
// queue only on full fulfillment.
type SupplierState struct {
	Inventory    map[string]*InventoryItem `json:"inventory"`
	ActiveOrders []Order                   `json:"activeOrders"`
}

func (*SupplierState) entityType() Type { return TypeSupplier }

// EnsureDefaults populates a missing warehouse with the reference
// starting inventory.
func (s *SupplierState) EnsureDefaults() {
	if s.Inventory == nil {
		s.Inventory = map[string]*InventoryItem{
			"dengueMed":       {Stock: 5000},
			"chloroquine":     {Stock: 3000},
			"ceftriaxone":     {Stock: 2500},
			"paracetamol":     {Stock: 10000},
			"oseltamivir":     {Stock: 2000},
			"covidMed":        {Stock: 3500},
			"ventilators":     {Stock: 50},
			"oxygenCylinders": {Stock: 500},
			"monitors":        {Stock: 120},
		}
	}
	if s.ActiveOrders == nil {
		s.ActiveOrders = []Order{}
	}
}

// CityState exists so the city administration round-trips through the
// store like any other entity; the city agent keeps no mutable state.
type CityState struct{}

func (*CityState) entityType() Type { return TypeCityAdmin }
