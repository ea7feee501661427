package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalState_RoundTripsEveryVariant(t *testing.T) {
	lab := &LabState{}
	lab.EnsureDefaults()
	hospital := &HospitalState{}
	hospital.EnsureDefaults()
	pharmacy := &PharmacyState{}
	pharmacy.EnsureDefaults()
	supplier := &SupplierState{}
	supplier.EnsureDefaults()

	tests := []struct {
		name  string
		state State
	}{
		{"lab", lab},
		{"hospital", hospital},
		{"pharmacy", pharmacy},
		{"supplier", supplier},
		{"city", &CityState{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := MarshalState(tt.state)
			require.NoError(t, err)

			got, err := UnmarshalState(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.state, got)
		})
	}
}

func TestMarshalState_NilYieldsNull(t *testing.T) {
	raw, err := MarshalState(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))

	got, err := UnmarshalState(raw)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnmarshalState_EmptyYieldsNil(t *testing.T) {
	got, err := UnmarshalState(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnmarshalState_UnknownTypeErrors(t *testing.T) {
	_, err := UnmarshalState([]byte(`{"type":"bakery","data":{}}`))
	assert.Error(t, err)
}

func TestUnmarshalState_MalformedEnvelopeErrors(t *testing.T) {
	_, err := UnmarshalState([]byte(`not json`))
	assert.Error(t, err)
}

func TestTypeValid(t *testing.T) {
	for _, typ := range []Type{TypeHospital, TypeLab, TypePharmacy, TypeSupplier, TypeCityAdmin} {
		if !typ.Valid() {
			t.Errorf("%s must be valid", typ)
		}
	}
	if Type("bakery").Valid() {
		t.Error("bakery must not be valid")
	}
}

func TestStockStatus(t *testing.T) {
	tests := []struct {
		stock, reorder int
		want           string
	}{
		{100, 200, "low"},
		{199, 200, "low"},
		{200, 200, "normal"}, // boundary: equal is not low
		{201, 200, "normal"},
		{0, 1, "low"},
	}
	for _, tt := range tests {
		if got := StockStatus(tt.stock, tt.reorder); got != tt.want {
			t.Errorf("StockStatus(%d, %d) = %q, want %q", tt.stock, tt.reorder, got, tt.want)
		}
	}
}

func TestHospitalState_TotalBeds(t *testing.T) {
	st := &HospitalState{Beds: map[string]*ResourceLevel{
		"general": {Total: 100, Used: 40},
		"icu":     {Total: 20, Used: 5},
	}}
	used, total := st.TotalBeds()
	assert.Equal(t, 45, used)
	assert.Equal(t, 120, total)
}

func TestEnsureDefaults_Idempotent(t *testing.T) {
	st := &LabState{}
	st.EnsureDefaults()
	st.TestData["dengue"].Today = 999
	st.EnsureDefaults()
	if st.TestData["dengue"].Today != 999 {
		t.Error("EnsureDefaults must not overwrite existing data")
	}
}

func TestPharmacyEnsureDefaults_StatusConsistent(t *testing.T) {
	st := &PharmacyState{}
	st.EnsureDefaults()
	for med, m := range st.Medicines {
		if m.Status != StockStatus(m.Stock, m.ReorderLevel) {
			t.Errorf("%s: status %q inconsistent with stock", med, m.Status)
		}
	}
}
