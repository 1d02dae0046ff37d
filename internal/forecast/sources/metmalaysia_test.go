package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"

	"github.com/penang-weather/forecast-aggregation/internal/forecast"
)

const metSamplePage = `<!DOCTYPE html>
<html><body>
<table class="table table-zebra"><tbody>
<tr><td>Mon</td><td>Thunderstorms</td><td>Morning rain. Min: 24 Max: 32</td></tr>
<tr><td>Tue</td><td>Cloudy</td><td>Min: 25 Max: 33</td></tr>
<tr><td>Wed</td><td>Clear</td><td>Min: 24 Max: 31</td></tr>
<tr><td>Thu</td><td>Rain</td><td>Min: 23 Max: 30</td></tr>
<tr><td>Fri</td><td>Cloudy</td><td>Min: 25 Max: 32</td></tr>
<tr><td>Sat</td><td>Clear</td><td>Min: 26 Max: 34</td></tr>
<tr><td>Sun</td><td>Clear</td><td>Min: 27 Max: 35</td></tr>
</tbody></table>
</body></html>`

func metRunDate() time.Time {
	return time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
}

func TestMETMalaysiaFetchParsesSixRows(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(metSamplePage))
	}))
	defer srv.Close()

	src := NewMETMalaysiaSource(srv.Client(), srv.URL, fakeclock.NewFakeClock(metRunDate()))

	obs, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only the first 6 of 7 rows count, three observations each.
	if len(obs) != 18 {
		t.Fatalf("expected 18 observations, got %d", len(obs))
	}
	if gotUA == "" || gotUA == "Go-http-client/1.1" {
		t.Errorf("expected a browser user-agent, got %q", gotUA)
	}

	// First row: min, max, midpoint, all dated to the run date.
	if obs[0].Value != 24 || obs[1].Value != 32 || obs[2].Value != 28 {
		t.Errorf("row 0 should yield 24, 32, 28; got %f, %f, %f", obs[0].Value, obs[1].Value, obs[2].Value)
	}
	wantDay0 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if !obs[0].Timestamp.Equal(wantDay0) {
		t.Errorf("row 0 should be dated %v, got %v", wantDay0, obs[0].Timestamp)
	}

	// Row index derives the date: row 5 lands 5 days out.
	wantDay5 := wantDay0.AddDate(0, 0, 5)
	if !obs[15].Timestamp.Equal(wantDay5) {
		t.Errorf("row 5 should be dated %v, got %v", wantDay5, obs[15].Timestamp)
	}
}

func TestMETMalaysiaMissingTableIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>maintenance</p></body></html>`))
	}))
	defer srv.Close()

	src := NewMETMalaysiaSource(srv.Client(), srv.URL, fakeclock.NewFakeClock(metRunDate()))

	_, err := src.Fetch(context.Background())
	if !errors.Is(err, forecast.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestMETMalaysiaNoMatchingRowsIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><table class="table-zebra"><tbody>
			<tr><td>Mon</td><td>x</td><td>no temperatures here</td></tr>
		</tbody></table></body></html>`))
	}))
	defer srv.Close()

	src := NewMETMalaysiaSource(srv.Client(), srv.URL, fakeclock.NewFakeClock(metRunDate()))

	_, err := src.Fetch(context.Background())
	if !errors.Is(err, forecast.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}
