package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type AppConfig struct {
	// API keys for the two REST sources. Deliberately not required at
	// load time: a missing key surfaces as a source-unavailable failure
	// when that source is fetched, never as a startup crash.
	OpenWeatherAPIKey string
	WindyAPIKey       string

	// Upstream endpoints.
	METForecastURL     string `validate:"required,url"`
	OpenWeatherBaseURL string `validate:"required,url"`
	WindyPointURL      string `validate:"required,url"`

	// The coordinate the forecast pipelines ingest for.
	Latitude  float64 `validate:"gte=-90,lte=90"`
	Longitude float64 `validate:"gte=-180,lte=180"`

	// ScheduleAt is the daily wall-clock ingestion time, HH:MM.
	ScheduleAt string `validate:"required,datetime=15:04"`

	// Timeout on every outbound source call.
	HTTPTimeout time.Duration

	// IngestTimeout bounds one source's whole scheduled run.
	IngestTimeout time.Duration

	DBPath string `validate:"required"`
	Port   string `validate:"required"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		OpenWeatherAPIKey: os.Getenv("OWM_API_KEY"),
		WindyAPIKey:       os.Getenv("WINDY_API_KEY"),

		METForecastURL:     getenvDefault("MET_FORECAST_URL", "https://www.met.gov.my/en/forecast/weather/district/Ds014/"),
		OpenWeatherBaseURL: getenvDefault("OWM_BASE_URL", "https://api.openweathermap.org/data/2.5"),
		WindyPointURL:      getenvDefault("WINDY_POINT_URL", "https://api.windy.com/api/point-forecast/v2"),

		Latitude:  getenvFloat("FORECAST_LAT", 5.285153),
		Longitude: getenvFloat("FORECAST_LON", 100.456238),

		ScheduleAt: getenvDefault("SCHEDULE_AT", "00:00"),

		DBPath: getenvDefault("DB_PATH", "nahrim.db"),
		Port:   getenvDefault("PORT", "8080"),
	}

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "15s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	ingestStr := getenvDefault("INGEST_TIMEOUT", "2m")
	ingest, err := time.ParseDuration(ingestStr)
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_TIMEOUT: %w", err)
	}
	cfg.IngestTimeout = ingest

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
