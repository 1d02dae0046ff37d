package forecast

import "time"

// windowDays is the forward-looking reconciliation window: observations
// dated [today, today+windowDays) are retained, everything else is dropped.
const windowDays = 7

// kelvinOffset converts Kelvin to Celsius.
const kelvinOffset = 273.15

// Normalize converts raw observations to Celsius and buckets them by
// calendar date. The window is computed against now's local date; it is
// routine for forecast horizons to exceed the window, so out-of-window
// observations are dropped silently rather than treated as errors.
func Normalize(obs []RawObservation, unit Unit, now time.Time) map[string][]float64 {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	limit := today.AddDate(0, 0, windowDays)

	buckets := make(map[string][]float64)
	for _, o := range obs {
		ts := o.Timestamp.In(loc)
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)
		if day.Before(today) || !day.Before(limit) {
			continue
		}

		v := o.Value
		if unit == UnitKelvin {
			v -= kelvinOffset
		}

		key := day.Format(DateLayout)
		buckets[key] = append(buckets[key], v)
	}
	return buckets
}
