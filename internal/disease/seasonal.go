package disease

import "time"

// SeasonalFactor returns the demand multiplier for a disease at a given
// month and hour of day. Vector-borne diseases peak in the wet season,
// respiratory ones in winter; mornings run hotter than afternoons.
func SeasonalFactor(disease string, month time.Month, hour int) float64 {
	factor := 1.0

	switch disease {
	case "dengue":
		switch month {
		case time.June, time.July, time.August, time.September:
			factor = 1.6
		case time.May, time.October:
			factor = 1.3
		}
	case "malaria":
		switch month {
		case time.July, time.August, time.September, time.October:
			factor = 1.5
		}
	case "influenza":
		switch month {
		case time.November, time.December, time.January, time.February:
			factor = 1.7
		}
	case "covid":
		switch month {
		case time.December, time.January, time.February:
			factor = 1.3
		}
	case "typhoid":
		switch month {
		case time.April, time.May, time.June:
			factor = 1.4
		}
	}

	switch {
	case hour >= 8 && hour <= 12:
		factor *= 1.2
	case hour >= 13 && hour <= 16:
		factor *= 1.1
	}

	return factor
}

// SeasonalFactorAt is SeasonalFactor evaluated at a timestamp.
func SeasonalFactorAt(disease string, t time.Time) float64 {
	return SeasonalFactor(disease, t.Month(), t.Hour())
}
