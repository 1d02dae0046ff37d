package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/penang-weather/forecast-aggregation/internal/forecast"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func passThrough(agg forecast.DailyRecord) func(*forecast.DailyRecord) (forecast.DailyRecord, error) {
	return func(*forecast.DailyRecord) (forecast.DailyRecord, error) {
		return agg, nil
	}
}

func TestReconcileUpsertInsertsAndReads(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cur := 28.0
	agg := forecast.DailyRecord{Date: "2025-03-10", Min: 24, Max: 32, Current: &cur}

	if err := s.ReconcileUpsert(ctx, forecast.SourceOpenWeatherMap, agg, passThrough(agg)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	records, err := s.Today(ctx, forecast.SourceOpenWeatherMap, "2025-03-10")
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.Min != 24 || got.Max != 32 || got.Current == nil || *got.Current != 28 {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestReconcileUpsertMergesAgainstExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := forecast.DailyRecord{Date: "2025-03-10", Min: 20, Max: 30}
	if err := s.ReconcileUpsert(ctx, forecast.SourceWindy, first, passThrough(first)); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := forecast.DailyRecord{Date: "2025-03-10", Min: 24, Max: 34}
	err := s.ReconcileUpsert(ctx, forecast.SourceWindy, second, func(existing *forecast.DailyRecord) (forecast.DailyRecord, error) {
		if existing == nil {
			t.Fatal("expected the stored row to be visible to the merge")
		}
		return forecast.Merge(existing, second, 0)
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	records, err := s.Today(ctx, forecast.SourceWindy, "2025-03-10")
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if records[0].Min != 22 || records[0].Max != 32 {
		t.Fatalf("expected merged (22, 32), got (%f, %f)", records[0].Min, records[0].Max)
	}
}

// TestReconcileUpsertMergeRejectionPersistsNothing checks that a merge
// error rolls the transaction back.
func TestReconcileUpsertMergeRejectionPersistsNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	agg := forecast.DailyRecord{Date: "2025-03-10", Min: 35, Max: 20}
	err := s.ReconcileUpsert(ctx, forecast.SourceMETMalaysia, agg, func(existing *forecast.DailyRecord) (forecast.DailyRecord, error) {
		return forecast.Merge(existing, agg, 0)
	})
	if !errors.Is(err, forecast.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}

	records, err := s.Today(ctx, forecast.SourceMETMalaysia, "2025-03-10")
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("rejected row must not be persisted, got %+v", records)
	}
}

// TestReconcileUpsertSerializesOverlappingRuns races two ingestion runs
// against the same (source, date) key. The immediate transaction forces
// the second run to merge against the first run's committed row, in
// either commit order, so the final row must be the pairwise average of
// both aggregates rather than one of them persisted as-is.
func TestReconcileUpsertSerializesOverlappingRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	aggs := []forecast.DailyRecord{
		{Date: "2025-03-10", Min: 20, Max: 30},
		{Date: "2025-03-10", Min: 24, Max: 34},
	}

	errs := make([]error, len(aggs))
	var wg sync.WaitGroup
	for i, agg := range aggs {
		i, agg := i, agg
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.ReconcileUpsert(ctx, forecast.SourceOpenWeatherMap, agg, func(existing *forecast.DailyRecord) (forecast.DailyRecord, error) {
				return forecast.Merge(existing, agg, 0)
			})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	records, err := s.Today(ctx, forecast.SourceOpenWeatherMap, "2025-03-10")
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Min != 22 || records[0].Max != 32 {
		t.Fatalf("overlapping runs must reconcile to (22, 32), got (%f, %f)", records[0].Min, records[0].Max)
	}
}

func TestWeekOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, d := range []string{"2025-03-12", "2025-03-10", "2025-03-11", "2025-03-16"} {
		agg := forecast.DailyRecord{Date: d, Min: 24, Max: 32}
		if err := s.ReconcileUpsert(ctx, forecast.SourceWindy, agg, passThrough(agg)); err != nil {
			t.Fatalf("upsert %s: %v", d, err)
		}
	}

	records, err := s.Week(ctx, forecast.SourceWindy, "2025-03-10", "2025-03-15")
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records in range, got %d", len(records))
	}
	for i, want := range []string{"2025-03-10", "2025-03-11", "2025-03-12"} {
		if records[i].Date != want {
			t.Errorf("position %d: expected %s, got %s", i, want, records[i].Date)
		}
	}
}

// TestSourceTableIsolation writes the same date through two sources and
// verifies neither write leaks into the other's table.
func TestSourceTableIsolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	owm := forecast.DailyRecord{Date: "2025-03-10", Min: 26, Max: 34}
	windy := forecast.DailyRecord{Date: "2025-03-10", Min: 24.5, Max: 31.5}

	if err := s.ReconcileUpsert(ctx, forecast.SourceOpenWeatherMap, owm, passThrough(owm)); err != nil {
		t.Fatalf("owm upsert: %v", err)
	}
	if err := s.ReconcileUpsert(ctx, forecast.SourceWindy, windy, passThrough(windy)); err != nil {
		t.Fatalf("windy upsert: %v", err)
	}

	owmRows, err := s.Today(ctx, forecast.SourceOpenWeatherMap, "2025-03-10")
	if err != nil {
		t.Fatalf("owm today: %v", err)
	}
	if owmRows[0].Min != 26 || owmRows[0].Max != 34 {
		t.Fatalf("owm row corrupted: %+v", owmRows[0])
	}

	windyRows, err := s.Today(ctx, forecast.SourceWindy, "2025-03-10")
	if err != nil {
		t.Fatalf("windy today: %v", err)
	}
	if windyRows[0].Min != 24.5 || windyRows[0].Max != 31.5 {
		t.Fatalf("windy row corrupted: %+v", windyRows[0])
	}

	metRows, err := s.Today(ctx, forecast.SourceMETMalaysia, "2025-03-10")
	if err != nil {
		t.Fatalf("met today: %v", err)
	}
	if len(metRows) != 0 {
		t.Fatalf("met table should be untouched, got %+v", metRows)
	}
}

// TestSourceTableIsolationConcurrent ingests the same date through
// every source at once and verifies each table ends up holding exactly
// its own row.
func TestSourceTableIsolationConcurrent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := map[forecast.SourceTag]forecast.DailyRecord{
		forecast.SourceMETMalaysia:    {Date: "2025-03-10", Min: 23, Max: 33},
		forecast.SourceOpenWeatherMap: {Date: "2025-03-10", Min: 26, Max: 34},
		forecast.SourceWindy:          {Date: "2025-03-10", Min: 24.5, Max: 31.5},
	}

	var wg sync.WaitGroup
	errs := make(map[forecast.SourceTag]error, len(rows))
	var mu sync.Mutex
	for tag, agg := range rows {
		tag, agg := tag, agg
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.ReconcileUpsert(ctx, tag, agg, passThrough(agg))
			mu.Lock()
			errs[tag] = err
			mu.Unlock()
		}()
	}
	wg.Wait()

	for tag, want := range rows {
		if errs[tag] != nil {
			t.Fatalf("%s upsert: %v", tag, errs[tag])
		}

		got, err := s.Today(ctx, tag, "2025-03-10")
		if err != nil {
			t.Fatalf("%s today: %v", tag, err)
		}
		if len(got) != 1 {
			t.Fatalf("%s: expected 1 record, got %d", tag, len(got))
		}
		if got[0].Min != want.Min || got[0].Max != want.Max {
			t.Fatalf("%s row corrupted by a sibling source: %+v", tag, got[0])
		}
	}
}

func TestUnknownSourceIsStorageError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	agg := forecast.DailyRecord{Date: "2025-03-10", Min: 24, Max: 32}
	err := s.ReconcileUpsert(ctx, forecast.SourceTag("nope"), agg, passThrough(agg))
	if !errors.Is(err, forecast.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}
