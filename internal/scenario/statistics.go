package scenario

import (
	"context"

	"github.com/talgya/health-grid/internal/entity"
)

// Statistics is the citywide snapshot served to dashboards.
type Statistics struct {
	TotalCases       int            `json:"totalCases"`
	TotalTests       int            `json:"totalTests"`
	DiseaseBreakdown map[string]int `json:"diseaseBreakdown"`
	ZoneBreakdown    map[string]int `json:"zoneBreakdown"`
	Outbreaks        []Trigger      `json:"outbreaks"`
}

// Statistics aggregates current disease pressure across every hospital
// and lab.
func (s *Simulator) Statistics(ctx context.Context) (Statistics, error) {
	stats := Statistics{
		DiseaseBreakdown: make(map[string]int),
		ZoneBreakdown:    make(map[string]int),
		Outbreaks:        s.ActiveTriggers(),
	}

	hospitals, err := s.store.FindByType(ctx, entity.TypeHospital)
	if err != nil {
		return stats, err
	}
	for _, h := range hospitals {
		st, ok := h.State.(*entity.HospitalState)
		if !ok || st == nil {
			continue
		}
		zoneCases := 0
		for dis, load := range st.DiseaseCases {
			stats.DiseaseBreakdown[dis] += load.Total
			stats.TotalCases += load.Total
			zoneCases += load.Total
		}
		stats.ZoneBreakdown[h.Zone] += zoneCases
	}

	labs, err := s.store.FindByType(ctx, entity.TypeLab)
	if err != nil {
		return stats, err
	}
	for _, l := range labs {
		st, ok := l.State.(*entity.LabState)
		if !ok || st == nil {
			continue
		}
		for _, data := range st.TestData {
			stats.TotalTests += data.Today
		}
	}

	return stats, nil
}
