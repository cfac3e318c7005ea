// Package weather summarizes recent and forecast rainfall from Open-Meteo.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"plantprofit/internal/config"
	"plantprofit/internal/domain"
	"plantprofit/internal/upstream"
)

const avgTempWindow = 30

// Summary is the rainfall picture used by scenario projections.
type Summary struct {
	Latitude        float64       `json:"latitude"`
	Longitude       float64       `json:"longitude"`
	RecentPrecip    float64       `json:"recentPrecip"`
	RainfallAnomaly float64       `json:"rainfallAnomaly"`
	AvgTemp         float64       `json:"avgTemp"`
	Forecast        []ForecastDay `json:"forecast"`
}

// ForecastDay is one day of forecast precipitation, Day counting from 1.
type ForecastDay struct {
	Day           int     `json:"day"`
	Precipitation float64 `json:"precipitation"`
}

// Client calls the Open-Meteo forecast API.
type Client struct {
	http *upstream.Client
	cfg  config.WeatherConfig
}

func NewClient(cfg config.WeatherConfig, http *upstream.Client) *Client {
	return &Client{http: http, cfg: cfg}
}

type dailyResponse struct {
	Daily struct {
		Time             []string   `json:"time"`
		PrecipitationSum []*float64 `json:"precipitation_sum"`
		Temperature2mMax []*float64 `json:"temperature_2m_max"`
	} `json:"daily"`
}

// Summary fetches past and forecast daily values around lat/lon. Pass nil
// coordinates to use the configured location.
func (c *Client) Summary(ctx context.Context, lat, lon *float64) (Summary, error) {
	latitude, longitude := c.cfg.Latitude, c.cfg.Longitude
	if lat != nil {
		latitude = *lat
	}
	if lon != nil {
		longitude = *lon
	}
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return Summary{}, fmt.Errorf("coordinates out of range (%v, %v): %w", latitude, longitude, domain.ErrInvalidInput)
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("daily", "precipitation_sum,temperature_2m_max,temperature_2m_min")
	q.Set("past_days", strconv.Itoa(c.cfg.PastDays))
	q.Set("forecast_days", strconv.Itoa(c.cfg.ForecastDays))
	q.Set("temperature_unit", "fahrenheit")
	q.Set("precipitation_unit", "inch")
	q.Set("timezone", c.cfg.Timezone)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Summary{}, fmt.Errorf("build weather request: %w", err)
	}
	resp, err := c.http.Do(ctx, req, q.Encode())
	if err != nil {
		return Summary{}, err
	}
	if err := c.http.Check(resp); err != nil {
		return Summary{}, err
	}

	var body dailyResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return Summary{}, fmt.Errorf("decode weather response: %v: %w", err, domain.ErrServiceUnavailable)
	}
	s := summarize(body, c.cfg.PastDays, c.cfg.ForecastDays, c.cfg.NormalPrecipitation)
	s.Latitude, s.Longitude = latitude, longitude
	return s, nil
}

// summarize sums precipitation over the past days only, treating missing
// values as zero, and reports the anomaly against normal as a percentage.
func summarize(body dailyResponse, pastDays, forecastDays int, normal float64) Summary {
	precip := values(body.Daily.PrecipitationSum)
	temps := values(body.Daily.Temperature2mMax)

	past := precip
	if len(precip) > forecastDays {
		past = precip[:len(precip)-forecastDays]
	}
	if len(past) > pastDays {
		past = past[len(past)-pastDays:]
	}
	recent := 0.0
	for _, v := range past {
		recent += v
	}

	anomaly := 0.0
	if normal > 0 {
		anomaly = (recent - normal) / normal * 100
	}

	window := temps
	if len(window) > avgTempWindow {
		window = window[len(window)-avgTempWindow:]
	}
	avg := 0.0
	if len(window) > 0 {
		for _, v := range window {
			avg += v
		}
		avg /= float64(len(window))
	}

	tail := precip
	if len(tail) > forecastDays {
		tail = tail[len(tail)-forecastDays:]
	}
	forecast := make([]ForecastDay, len(tail))
	for i, v := range tail {
		forecast[i] = ForecastDay{Day: i + 1, Precipitation: v}
	}

	return Summary{
		RecentPrecip:    round(recent, 2),
		RainfallAnomaly: round(anomaly, 1),
		AvgTemp:         round(avg, 1),
		Forecast:        forecast,
	}
}

func values(in []*float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
