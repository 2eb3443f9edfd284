package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWeatherServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "Nowhere" {
			w.Write([]byte(`{"results":[]}`))
			return
		}
		w.Write([]byte(`{"results":[{"name":"Berlin","country":"Germany","latitude":52.52,"longitude":13.405}]}`))
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("latitude"))
		w.Write([]byte(`{
			"current":{"temperature_2m":18.3,"wind_speed_10m":12.5,"weather_code":2},
			"current_units":{"temperature_2m":"°C","wind_speed_10m":"km/h"}
		}`))
	})
	return httptest.NewServer(mux)
}

func newTestWeatherTool(serverURL string) *WeatherTool {
	tool := NewWeatherTool()
	tool.geocodeURL = serverURL + "/geocode"
	tool.forecastURL = serverURL + "/forecast"
	return tool
}

func TestWeather_Lookup(t *testing.T) {
	srv := newWeatherServer(t)
	defer srv.Close()

	tool := newTestWeatherTool(srv.URL)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"location":"Berlin"}`), nil)
	require.NoError(t, err)

	assert.Contains(t, result.Output, "Berlin, Germany")
	assert.Contains(t, result.Output, "partly cloudy")
	assert.Contains(t, result.Output, "18.3°C")
	assert.Contains(t, result.Output, "12.5km/h")
}

func TestWeather_UnknownLocation(t *testing.T) {
	srv := newWeatherServer(t)
	defer srv.Close()

	tool := newTestWeatherTool(srv.URL)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"location":"Nowhere"}`), nil)
	require.NoError(t, err)
	assert.Contains(t, result.Output, "not found")
}

func TestWeather_MissingLocation(t *testing.T) {
	tool := NewWeatherTool()

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"location":""}`), nil)
	assert.Error(t, err)
}

func TestWeather_GeocodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tool := newTestWeatherTool(srv.URL)
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"location":"Berlin"}`), nil)
	assert.Error(t, err)
}

func TestDescribeWeatherCode(t *testing.T) {
	assert.Equal(t, "clear sky", describeWeatherCode(0))
	assert.Equal(t, "partly cloudy", describeWeatherCode(2))
	assert.Equal(t, "fog", describeWeatherCode(45))
	assert.Equal(t, "rain", describeWeatherCode(63))
	assert.Equal(t, "snow", describeWeatherCode(73))
	assert.Equal(t, "thunderstorm", describeWeatherCode(95))
}
