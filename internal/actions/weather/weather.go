// Package weather implements the get_weather action on top of Open-Meteo,
// which needs no API key: the location is geocoded first, then current
// conditions are fetched for the resulting coordinates.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gmsas95/playground/internal/actions"
	"github.com/gmsas95/playground/internal/config"
)

// Action fetches current weather for a location.
type Action struct {
	*actions.BaseAction
	geocodingURL string
	forecastURL  string
	client       *http.Client
}

func New(cfg config.WeatherActionConfig) *Action {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10
	}

	return &Action{
		BaseAction: actions.NewBaseAction(
			"get_weather",
			"Get current weather information for a location. Optional parameter: units (metric/imperial), defaults to imperial",
			map[string]string{
				"location": "Name of the city or location, e.g. 'London' or 'New York'",
			},
			[]actions.Example{
				{
					Query: "What's the weather in London?",
					Response: map[string]interface{}{
						"actions": []interface{}{
							map[string]interface{}{
								"name": "get_weather",
								"parameters": map[string]interface{}{
									"location": "London",
									"units":    "imperial",
								},
							},
						},
					},
					Description: "Basic weather query",
				},
				{
					Query: "Get the temperature in New York in Celsius",
					Response: map[string]interface{}{
						"actions": []interface{}{
							map[string]interface{}{
								"name": "get_weather",
								"parameters": map[string]interface{}{
									"location": "New York",
									"units":    "metric",
								},
							},
						},
					},
					Description: "Weather query with metric units",
				},
			},
		),
		geocodingURL: cfg.GeocodingURL,
		forecastURL:  cfg.ForecastURL,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

type place struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
}

type geocodeResult struct {
	Results []place `json:"results"`
}

type forecastResult struct {
	Current struct {
		Temperature         float64 `json:"temperature_2m"`
		ApparentTemperature float64 `json:"apparent_temperature"`
		RelativeHumidity    float64 `json:"relative_humidity_2m"`
		WindSpeed           float64 `json:"wind_speed_10m"`
		WeatherCode         int     `json:"weather_code"`
	} `json:"current"`
}

func (a *Action) Execute(ctx context.Context, params map[string]interface{}) actions.Result {
	location, ok := params["location"].(string)
	if !ok || location == "" {
		return actions.Result{
			Success: false,
			Message: "Invalid location parameter",
			Error:   "location must be a non-empty string",
		}
	}

	units := "imperial"
	if u, ok := params["units"].(string); ok && u != "" {
		units = u
	}
	if units != "metric" && units != "imperial" {
		return actions.Result{
			Success: false,
			Message: "Invalid units parameter",
			Error:   "units must be either 'metric' or 'imperial'",
		}
	}

	place, err := a.geocode(ctx, location)
	if err != nil {
		return actions.Result{
			Success: false,
			Message: "Failed to get weather information",
			Error:   err.Error(),
		}
	}

	current, err := a.current(ctx, place.Latitude, place.Longitude, units)
	if err != nil {
		return actions.Result{
			Success: false,
			Message: "Failed to get weather information",
			Error:   err.Error(),
		}
	}

	tempUnit := "°F"
	speedUnit := "mph"
	if units == "metric" {
		tempUnit = "°C"
		speedUnit = "km/h"
	}

	placeName := place.Name
	if place.Country != "" {
		placeName = place.Name + ", " + place.Country
	}
	description := describeWeatherCode(current.Current.WeatherCode)

	data := map[string]interface{}{
		"location":    placeName,
		"temperature": fmt.Sprintf("%.1f%s", current.Current.Temperature, tempUnit),
		"feels_like":  fmt.Sprintf("%.1f%s", current.Current.ApparentTemperature, tempUnit),
		"humidity":    fmt.Sprintf("%.0f%%", current.Current.RelativeHumidity),
		"wind_speed":  fmt.Sprintf("%.1f %s", current.Current.WindSpeed, speedUnit),
		"description": description,
		"units":       units,
	}

	return actions.Result{
		Success: true,
		Message: fmt.Sprintf(
			"Current weather in %s: %s, Temperature: %s (feels like %s), Humidity: %s, Wind: %s",
			placeName, description, data["temperature"], data["feels_like"], data["humidity"], data["wind_speed"],
		),
		Data: data,
	}
}

func (a *Action) geocode(ctx context.Context, location string) (*place, error) {
	reqURL := fmt.Sprintf("%s?name=%s&count=1", a.geocodingURL, url.QueryEscape(location))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode location: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding request returned status %d", resp.StatusCode)
	}

	var result geocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse geocoding response: %w", err)
	}
	if len(result.Results) == 0 {
		return nil, fmt.Errorf("location not found: %s", location)
	}
	return &result.Results[0], nil
}

func (a *Action) current(ctx context.Context, lat, lon float64, units string) (*forecastResult, error) {
	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%.4f", lat))
	query.Set("longitude", fmt.Sprintf("%.4f", lon))
	query.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,wind_speed_10m,weather_code")
	if units == "imperial" {
		query.Set("temperature_unit", "fahrenheit")
		query.Set("wind_speed_unit", "mph")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.forecastURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather request returned status %d", resp.StatusCode)
	}

	var result forecastResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse weather response: %w", err)
	}
	return &result, nil
}

// describeWeatherCode maps WMO weather codes to readable descriptions.
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code <= 3:
		return "Partly cloudy"
	case code <= 48:
		return "Foggy"
	case code <= 57:
		return "Drizzle"
	case code <= 67:
		return "Rain"
	case code <= 77:
		return "Snow"
	case code <= 82:
		return "Rain showers"
	case code <= 86:
		return "Snow showers"
	case code <= 99:
		return "Thunderstorm"
	default:
		return "Unknown conditions"
	}
}
