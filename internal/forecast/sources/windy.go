package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/penang-weather/forecast-aggregation/internal/forecast"
)

// WindySource fetches the Windy point-forecast for a fixed coordinate.
// The API answers with parallel arrays of millisecond timestamps and
// surface temperatures in Kelvin.
type WindySource struct {
	tag      forecast.SourceTag
	apiKey   string
	baseURL  string
	lat, lon float64
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

func NewWindySource(client *http.Client, baseURL, apiKey string, lat, lon float64) *WindySource {
	return &WindySource{
		tag:     forecast.SourceWindy,
		apiKey:  apiKey,
		baseURL: baseURL,
		lat:     lat,
		lon:     lon,
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("windy"),
	}
}

func (s *WindySource) Tag() forecast.SourceTag { return s.tag }
func (s *WindySource) Unit() forecast.Unit { return forecast.UnitKelvin }
func (s *WindySource) Precision() int { return 1 }
func (s *WindySource) HasCurrent() bool { return false }

func (s *WindySource) Fetch(ctx context.Context) ([]forecast.RawObservation, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: windy api key is not configured", forecast.ErrSourceUnavailable)
	}

	buildRequest := func() (*http.Request, error) {
		body, err := json.Marshal(map[string]interface{}{
			"lat":        s.lat,
			"lon":        s.lon,
			"model":      "gfs",
			"parameters": []string{"temp"},
			"levels":     []string{"surface"},
			"key":        s.apiKey,
		})
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequest(http.MethodPost, s.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, s.httpCfg, s.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Ts          []int64   `json:"ts"`
		TempSurface []float64 `json:"temp-surface"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding point-forecast payload: %v", forecast.ErrSourceUnavailable, err)
	}
	if payload.Ts == nil || payload.TempSurface == nil {
		return nil, fmt.Errorf("%w: point-forecast payload missing ts or temp-surface", forecast.ErrSourceUnavailable)
	}

	n := len(payload.Ts)
	if len(payload.TempSurface) < n {
		n = len(payload.TempSurface)
	}

	obs := make([]forecast.RawObservation, 0, n)
	for i := 0; i < n; i++ {
		obs = append(obs, forecast.RawObservation{
			Timestamp: time.UnixMilli(payload.Ts[i]),
			Value:     payload.TempSurface[i],
		})
	}
	return obs, nil
}
