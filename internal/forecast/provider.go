package forecast

import "context"

// Source abstracts one upstream forecast provider (scraped MET Malaysia
// page, OpenWeatherMap forecast API, Windy point-forecast API). Adapters
// are stateless and safe to invoke concurrently.
type Source interface {
	Tag() SourceTag

	// Unit is the native temperature unit of the source's observations.
	Unit() Unit

	// Precision is the number of decimal places values are stored at.
	Precision() int

	// HasCurrent reports whether the source yields a representative
	// "current" value alongside min/max.
	HasCurrent() bool

	Fetch(ctx context.Context) ([]RawObservation, error)
}

// PointConditions is a non-persisted per-point weather reading used by
// the map-snapshot view.
type PointConditions struct {
	Temperature float64
	Humidity    float64
	WindSpeed   float64
	Condition   string
}

// PointSource is implemented by sources that support on-demand
// per-coordinate current-weather queries.
type PointSource interface {
	FetchPoint(ctx context.Context, lat, lon float64) (PointConditions, error)
}

// Store is the persistence contract the pipeline writes through and the
// query service reads from. ReconcileUpsert must treat the existing-row
// lookup, the merge, and the upsert as one atomic unit per (source, date)
// key so that overlapping runs cannot both average against a stale value.
type Store interface {
	ReconcileUpsert(ctx context.Context, tag SourceTag, agg DailyRecord,
		merge func(existing *DailyRecord) (DailyRecord, error)) error
	Today(ctx context.Context, tag SourceTag, date string) ([]DailyRecord, error)
	Week(ctx context.Context, tag SourceTag, from, to string) ([]DailyRecord, error)
}
