package forecast

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/penang-weather/forecast-aggregation/internal/geo"
)

// weekSpanDays is how far past today the weekly view reaches (inclusive).
const weekSpanDays = 5

// PointSnapshot is one map-snapshot entry. Temperature, humidity and
// wind are null when the fetch for that point failed; the map view
// prefers a degraded entry over a missing one.
type PointSnapshot struct {
	Name        string   `json:"name"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	WindSpeed   *float64 `json:"windSpeed"`
	Condition   *string  `json:"weatherCondition,omitempty"`
	Date        string   `json:"date"`
}

// Service runs the per-source ingestion pipeline and serves the read
// views. Sources never share state; a failing source only affects its
// own run.
type Service struct {
	store        Store
	sources      map[SourceTag]Source
	pointSources map[SourceTag]PointSource
	points       []geo.Point
	clk          clock.Clock
}

// NewService wires the store and sources. Sources that also implement
// PointSource gain map-snapshot support.
func NewService(store Store, sources []Source, points []geo.Point, clk clock.Clock) *Service {
	s := &Service{
		store:        store,
		sources:      make(map[SourceTag]Source, len(sources)),
		pointSources: make(map[SourceTag]PointSource),
		points:       points,
		clk:          clk,
	}
	for _, src := range sources {
		s.sources[src.Tag()] = src
		if ps, ok := src.(PointSource); ok {
			s.pointSources[src.Tag()] = ps
		}
	}
	return s
}

// SupportsMap reports whether the tag serves per-point map snapshots.
func (s *Service) SupportsMap(tag SourceTag) bool {
	_, ok := s.pointSources[tag]
	return ok
}

// Ingest runs the full pipeline for one source: fetch, normalize,
// aggregate per date, reconcile against the stored row, upsert. A
// storage or validation failure for one date is logged and does not
// abort the remaining dates; the run only fails outright when fetching
// fails, nothing falls inside the window, or no date persisted at all.
func (s *Service) Ingest(ctx context.Context, tag SourceTag) error {
	src, ok := s.sources[tag]
	if !ok {
		return fmt.Errorf("unknown source %q", tag)
	}

	obs, err := src.Fetch(ctx)
	if err != nil {
		return err
	}

	buckets := Normalize(obs, src.Unit(), s.clk.Now())
	if len(buckets) == 0 {
		return fmt.Errorf("%w: no observations within reconciliation window", ErrParse)
	}

	dates := make([]string, 0, len(buckets))
	for d := range buckets {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var persisted int
	var lastErr error
	for _, date := range dates {
		agg := AggregateBucket(date, buckets[date], src.Precision(), src.HasCurrent())

		err := s.store.ReconcileUpsert(ctx, tag, agg, func(existing *DailyRecord) (DailyRecord, error) {
			return Merge(existing, agg, src.Precision())
		})
		if err != nil {
			log.Printf("ingest %s: reconcile %s failed: %v", tag, date, err)
			lastErr = err
			continue
		}
		persisted++
	}

	if persisted == 0 {
		return fmt.Errorf("ingest %s: no dates persisted: %w", tag, lastErr)
	}
	return nil
}

// Daily returns the stored row for the current calendar date (0 or 1).
func (s *Service) Daily(ctx context.Context, tag SourceTag) ([]DailyRecord, error) {
	today := s.clk.Now().Format(DateLayout)
	return s.store.Today(ctx, tag, today)
}

// Weekly returns stored rows for [today, today+5 days], ascending.
func (s *Service) Weekly(ctx context.Context, tag SourceTag) ([]DailyRecord, error) {
	now := s.clk.Now()
	from := now.Format(DateLayout)
	to := now.AddDate(0, 0, weekSpanDays).Format(DateLayout)
	return s.store.Week(ctx, tag, from, to)
}

// MapSnapshot fans out one fetch per geo point and assembles the
// response once every fetch settles. A failed point degrades to a
// null-temperature entry; the response always carries every point.
// Completion order is unordered, so entries are written by index.
func (s *Service) MapSnapshot(ctx context.Context, tag SourceTag) ([]PointSnapshot, error) {
	ps, ok := s.pointSources[tag]
	if !ok {
		return nil, fmt.Errorf("source %q does not support map snapshots", tag)
	}

	date := s.clk.Now().Format(DateLayout)
	results := make([]PointSnapshot, len(s.points))

	var wg sync.WaitGroup
	for i, pt := range s.points {
		i, pt := i, pt
		wg.Add(1)
		go func() {
			defer wg.Done()

			entry := PointSnapshot{Name: pt.Name, Lat: pt.Lat, Lon: pt.Lon, Date: date}

			fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			cond, err := ps.FetchPoint(fetchCtx, pt.Lat, pt.Lon)
			if err != nil {
				log.Printf("map snapshot %s: fetch failed for %s: %v", tag, pt.Name, err)
				results[i] = entry
				return
			}

			temp, hum, wind := cond.Temperature, cond.Humidity, cond.WindSpeed
			entry.Temperature = &temp
			entry.Humidity = &hum
			entry.WindSpeed = &wind
			if cond.Condition != "" {
				c := cond.Condition
				entry.Condition = &c
			}
			results[i] = entry
		}()
	}
	wg.Wait()

	return results, nil
}
