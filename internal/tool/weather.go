package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const weatherDescription = `Looks up current weather conditions for a location.

Usage notes:
  - Provide a place name ("Berlin", "Austin, TX"); coordinates are resolved
    automatically.
  - Returns temperature, wind speed and a short condition description.`

const weatherTimeout = 15 * time.Second

// WeatherTool implements weather lookup via the Open-Meteo APIs.
type WeatherTool struct {
	geocodeURL  string
	forecastURL string
	client      *http.Client
}

// WeatherInput represents the input for the weather tool.
type WeatherInput struct {
	Location string `json:"location"`
}

// NewWeatherTool creates a new weather tool.
func NewWeatherTool() *WeatherTool {
	return &WeatherTool{
		geocodeURL:  "https://geocoding-api.open-meteo.com/v1/search",
		forecastURL: "https://api.open-meteo.com/v1/forecast",
		client:      &http.Client{Timeout: weatherTimeout},
	}
}

func (t *WeatherTool) Name() string        { return "weather" }
func (t *WeatherTool) Description() string { return weatherDescription }

func (t *WeatherTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "location": {
      "type": "string",
      "description": "Place name to look up, e.g. \"Berlin\" or \"Austin, TX\""
    }
  },
  "required": ["location"]
}`)
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
	CurrentUnits struct {
		Temperature string `json:"temperature_2m"`
		WindSpeed   string `json:"wind_speed_10m"`
	} `json:"current_units"`
}

func (t *WeatherTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var in WeatherInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid weather input: %w", err)
	}
	if strings.TrimSpace(in.Location) == "" {
		return nil, fmt.Errorf("location is required")
	}

	var geo geocodeResponse
	geoURL := t.geocodeURL + "?count=1&name=" + url.QueryEscape(in.Location)
	if err := t.getJSON(ctx, geoURL, &geo); err != nil {
		return nil, fmt.Errorf("geocoding failed: %w", err)
	}
	if len(geo.Results) == 0 {
		return &Result{Output: fmt.Sprintf("Location %q not found.", in.Location)}, nil
	}
	place := geo.Results[0]

	var forecast forecastResponse
	fcURL := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&current=temperature_2m,weather_code,wind_speed_10m",
		t.forecastURL, place.Latitude, place.Longitude)
	if err := t.getJSON(ctx, fcURL, &forecast); err != nil {
		return nil, fmt.Errorf("forecast failed: %w", err)
	}

	output := fmt.Sprintf("Weather in %s, %s: %s, %.1f%s, wind %.1f%s.",
		place.Name, place.Country,
		describeWeatherCode(forecast.Current.WeatherCode),
		forecast.Current.Temperature, forecast.CurrentUnits.Temperature,
		forecast.Current.WindSpeed, forecast.CurrentUnits.WindSpeed)

	return &Result{
		Output:   output,
		Metadata: map[string]any{"location": place.Name, "country": place.Country},
	}, nil
}

func (t *WeatherTool) getJSON(ctx context.Context, reqURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// describeWeatherCode maps WMO weather codes to short descriptions.
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 3:
		return "partly cloudy"
	case code <= 48:
		return "fog"
	case code <= 57:
		return "drizzle"
	case code <= 67:
		return "rain"
	case code <= 77:
		return "snow"
	case code <= 82:
		return "rain showers"
	case code <= 86:
		return "snow showers"
	default:
		return "thunderstorm"
	}
}
