package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/penang-weather/forecast-aggregation/internal/forecast"
)

// OpenWeatherSource fetches the 5-day/3-hour forecast list from
// OpenWeatherMap for a fixed coordinate, and additionally serves the
// per-point current-weather queries behind the map-snapshot view.
type OpenWeatherSource struct {
	tag        forecast.SourceTag
	apiKey     string
	baseURL    string
	lat, lon   float64
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
	mapCircuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherSource(client *http.Client, baseURL, apiKey string, lat, lon float64) *OpenWeatherSource {
	return &OpenWeatherSource{
		tag:        forecast.SourceOpenWeatherMap,
		apiKey:     apiKey,
		baseURL:    baseURL,
		lat:        lat,
		lon:        lon,
		httpCfg:    defaultHTTPConfig(client),
		circuit:    newBreaker("openweather-forecast"),
		mapCircuit: newBreaker("openweather-map"),
	}
}

func (s *OpenWeatherSource) Tag() forecast.SourceTag { return s.tag }
func (s *OpenWeatherSource) Unit() forecast.Unit { return forecast.UnitCelsius }
func (s *OpenWeatherSource) Precision() int { return 0 }
func (s *OpenWeatherSource) HasCurrent() bool { return true }

func (s *OpenWeatherSource) Fetch(ctx context.Context) ([]forecast.RawObservation, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: openweather api key is not configured", forecast.ErrSourceUnavailable)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", s.lat))
		values.Set("lon", fmt.Sprintf("%f", s.lon))
		values.Set("units", "metric")
		values.Set("appid", s.apiKey)

		u := fmt.Sprintf("%s/forecast?%s", s.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, s.httpCfg, s.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
		} `json:"list"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding forecast payload: %v", forecast.ErrSourceUnavailable, err)
	}
	if payload.List == nil {
		return nil, fmt.Errorf("%w: forecast payload missing list", forecast.ErrSourceUnavailable)
	}

	obs := make([]forecast.RawObservation, 0, len(payload.List))
	for _, item := range payload.List {
		obs = append(obs, forecast.RawObservation{
			Timestamp: time.Unix(item.Dt, 0),
			Value:     item.Main.Temp,
		})
	}
	return obs, nil
}

// FetchPoint queries current weather for a single coordinate. Used by the
// map-snapshot fan-out; results are never persisted.
func (s *OpenWeatherSource) FetchPoint(ctx context.Context, lat, lon float64) (forecast.PointConditions, error) {
	if s.apiKey == "" {
		return forecast.PointConditions{}, fmt.Errorf("%w: openweather api key is not configured", forecast.ErrSourceUnavailable)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", lat))
		values.Set("lon", fmt.Sprintf("%f", lon))
		values.Set("units", "metric")
		values.Set("appid", s.apiKey)

		u := fmt.Sprintf("%s/weather?%s", s.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, s.httpCfg, s.mapCircuit, buildRequest)
	if err != nil {
		return forecast.PointConditions{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Main *struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return forecast.PointConditions{}, fmt.Errorf("%w: decoding weather payload: %v", forecast.ErrSourceUnavailable, err)
	}
	if payload.Main == nil {
		return forecast.PointConditions{}, fmt.Errorf("%w: weather payload missing main", forecast.ErrSourceUnavailable)
	}

	pc := forecast.PointConditions{
		Temperature: payload.Main.Temp,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
	}
	if len(payload.Weather) > 0 {
		pc.Condition = payload.Weather[0].Main
	}
	return pc, nil
}
