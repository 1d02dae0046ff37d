package forecast

import (
	"time"
)

// SourceTag identifies one of the upstream forecast providers.
type SourceTag string

const (
	SourceMETMalaysia    SourceTag = "metmalaysia"
	SourceOpenWeatherMap SourceTag = "openweathermap"
	SourceWindy          SourceTag = "windy"
)

// Tags lists every known source tag.
func Tags() []SourceTag {
	return []SourceTag{SourceMETMalaysia, SourceOpenWeatherMap, SourceWindy}
}

// Unit is the temperature unit a source reports in.
type Unit string

const (
	UnitCelsius Unit = "celsius"
	UnitKelvin  Unit = "kelvin"
)

// DateLayout is the canonical calendar-date key used across the pipeline
// and as the primary key of every source table.
const DateLayout = "2006-01-02"

// RawObservation is a single timestamped temperature reading in the
// source's native unit. Observations live only for the duration of one
// ingestion run; they are discarded after aggregation.
type RawObservation struct {
	Timestamp time.Time
	Value     float64
}

// DailyRecord is the reconciled row for one (source, date) pair.
// Current is nil for sources that report only min/max.
type DailyRecord struct {
	Date    string   `json:"date"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Current *float64 `json:"current,omitempty"`
}
