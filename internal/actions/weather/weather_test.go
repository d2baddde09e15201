package weather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gmsas95/playground/internal/config"
)

func newTestAction(t *testing.T) *Action {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/geocode", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "Nowhere" {
			json.NewEncoder(w).Encode(map[string]interface{}{"results": []interface{}{}})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"name": "London", "latitude": 51.5074, "longitude": -0.1278, "country": "United Kingdom"},
			},
		})
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("temperature_unit") == "fahrenheit" {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"current": map[string]interface{}{
					"temperature_2m":       59.0,
					"apparent_temperature": 57.2,
					"relative_humidity_2m": 80.0,
					"wind_speed_10m":       9.3,
					"weather_code":         61,
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"current": map[string]interface{}{
				"temperature_2m":       15.0,
				"apparent_temperature": 14.0,
				"relative_humidity_2m": 80.0,
				"wind_speed_10m":       15.0,
				"weather_code":         61,
			},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return New(config.WeatherActionConfig{
		GeocodingURL: server.URL + "/geocode",
		ForecastURL:  server.URL + "/forecast",
	})
}

func TestWeatherImperialDefault(t *testing.T) {
	a := newTestAction(t)

	result := a.Execute(context.Background(), map[string]interface{}{"location": "London"})
	if !result.Success {
		t.Fatalf("expected success, got %s", result.Error)
	}
	if !strings.Contains(result.Message, "Current weather in London, United Kingdom") {
		t.Errorf("unexpected message %q", result.Message)
	}
	if result.Data["temperature"] != "59.0°F" {
		t.Errorf("expected fahrenheit by default, got %v", result.Data["temperature"])
	}
	if result.Data["description"] != "Rain" {
		t.Errorf("expected Rain for code 61, got %v", result.Data["description"])
	}
}

func TestWeatherMetric(t *testing.T) {
	a := newTestAction(t)

	result := a.Execute(context.Background(), map[string]interface{}{
		"location": "London",
		"units":    "metric",
	})
	if !result.Success {
		t.Fatalf("expected success, got %s", result.Error)
	}
	if result.Data["temperature"] != "15.0°C" {
		t.Errorf("expected celsius, got %v", result.Data["temperature"])
	}
	if result.Data["wind_speed"] != "15.0 km/h" {
		t.Errorf("expected km/h, got %v", result.Data["wind_speed"])
	}
}

func TestWeatherLocationNotFound(t *testing.T) {
	a := newTestAction(t)

	result := a.Execute(context.Background(), map[string]interface{}{"location": "Nowhere"})
	if result.Success {
		t.Error("expected failure for unknown location")
	}
	if !strings.Contains(result.Error, "location not found") {
		t.Errorf("unexpected error %q", result.Error)
	}
}

func TestWeatherInvalidParameters(t *testing.T) {
	a := newTestAction(t)

	for _, params := range []map[string]interface{}{
		{},
		{"location": ""},
		{"location": 7},
		{"location": "London", "units": "kelvin"},
	} {
		result := a.Execute(context.Background(), params)
		if result.Success {
			t.Errorf("params %v: expected failure", params)
		}
	}
}

func TestWeatherBackendDown(t *testing.T) {
	a := New(config.WeatherActionConfig{
		GeocodingURL: "http://127.0.0.1:1/geocode",
		ForecastURL:  "http://127.0.0.1:1/forecast",
	})

	result := a.Execute(context.Background(), map[string]interface{}{"location": "London"})
	if result.Success {
		t.Error("expected failure when the backend is unreachable")
	}
	if result.Message != "Failed to get weather information" {
		t.Errorf("unexpected message %q", result.Message)
	}
}

func TestDescribeWeatherCode(t *testing.T) {
	cases := []struct {
		code int
		want string
	}{
		{0, "Clear sky"},
		{2, "Partly cloudy"},
		{45, "Foggy"},
		{51, "Drizzle"},
		{63, "Rain"},
		{71, "Snow"},
		{80, "Rain showers"},
		{85, "Snow showers"},
		{95, "Thunderstorm"},
		{100, "Unknown conditions"},
	}
	for _, tc := range cases {
		if got := describeWeatherCode(tc.code); got != tc.want {
			t.Errorf("code %d: expected %s, got %s", tc.code, tc.want, got)
		}
	}
}
