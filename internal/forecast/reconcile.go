package forecast

import (
	"fmt"
	"math"
)

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// AggregateBucket reduces one date's observations to a DailyRecord.
// Min and max are taken over the whole bucket; the representative
// "current" value, when the source carries one, is the last observation
// in adapter order, i.e. the nearest-horizon reading. All values are
// rounded to the source's precision (decimal places).
func AggregateBucket(date string, values []float64, precision int, withCurrent bool) DailyRecord {
	rec := DailyRecord{Date: date}
	if len(values) == 0 {
		return rec
	}

	minV, maxV := values[0], values[0]
	for _, v := range values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	rec.Min = roundTo(minV, precision)
	rec.Max = roundTo(maxV, precision)
	if withCurrent {
		cur := roundTo(values[len(values)-1], precision)
		rec.Current = &cur
	}
	return rec
}

// Merge reconciles a freshly aggregated record against the previously
// stored row for the same (source, date) key. With no existing row the
// aggregate is persisted as-is; otherwise each value is replaced by the
// rounded pairwise average of old and new. Repeated runs for the same
// date therefore converge toward the most recent aggregate exponentially
// rather than averaging all historical samples equally; that damping is
// the intended behavior and must not be changed to a true running mean.
//
// The merged row is validated before it may be persisted: min > max means
// the upstream fed us garbage and the row is rejected.
func Merge(existing *DailyRecord, agg DailyRecord, precision int) (DailyRecord, error) {
	out := agg

	if existing != nil {
		out.Min = roundTo((existing.Min+agg.Min)/2, precision)
		out.Max = roundTo((existing.Max+agg.Max)/2, precision)
		if agg.Current != nil {
			cur := *agg.Current
			if existing.Current != nil {
				cur = roundTo((*existing.Current+*agg.Current)/2, precision)
			}
			out.Current = &cur
		}
	}

	if out.Min > out.Max {
		return DailyRecord{}, fmt.Errorf("%w: reconciled min %.2f exceeds max %.2f for %s",
			ErrParse, out.Min, out.Max, agg.Date)
	}
	return out, nil
}
