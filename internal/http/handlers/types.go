// Package handlers provides typed Huma request/response structs and handler
// implementations for the circadiand HTTP API.
package handlers

import (
	"time"

	"github.com/jmylchreest/circadiand/internal/config"
	"github.com/jmylchreest/circadiand/internal/zone"
)

// --- Zone types ---

// ZoneResponse is the API representation of a lighting zone.
type ZoneResponse struct {
	ID          string               `json:"id" doc:"Zone identifier"`
	Name        string               `json:"name" doc:"Display name of the zone"`
	Mode        string               `json:"mode" doc:"Operating mode: adaptive, night, or manual"`
	Brightness  float64              `json:"brightness" doc:"Current brightness as a fraction (0-1)"`
	Temperature float64              `json:"temperature" doc:"Current color temperature as a fraction (0-1, 1 = warmest)"`
	Settings    ZoneSettingsResponse `json:"settings" doc:"Active tuning targets"`
}

// ZoneSettingsResponse carries a zone's tuning targets in whole percentage
// points, the same unit the configuration file uses.
type ZoneSettingsResponse struct {
	SunsetTemp      int `json:"sunset_temp" doc:"Color temperature at the sunset edge (0-100)"`
	NoonTemp        int `json:"noon_temp" doc:"Color temperature at solar noon (0-100)"`
	MinBrightness   int `json:"min_brightness" doc:"Brightness floor (0-100)"`
	MaxBrightness   int `json:"max_brightness" doc:"Brightness at solar noon (0-100)"`
	NightTemp       int `json:"night_temp" doc:"Color temperature in night mode (0-100)"`
	NightBrightness int `json:"night_brightness" doc:"Brightness in night mode (0-100)"`
}

// ZoneFromController converts a zone controller to its API representation.
func ZoneFromController(c *zone.Controller) ZoneResponse {
	st := c.State()
	s := c.Settings()
	return ZoneResponse{
		ID:          c.ID(),
		Name:        c.Name(),
		Mode:        string(st.Mode),
		Brightness:  st.Brightness,
		Temperature: st.Temperature,
		Settings:    settingsResponse(s),
	}
}

func settingsResponse(s zone.Settings) ZoneSettingsResponse {
	return ZoneSettingsResponse{
		SunsetTemp:      fractionToPercent(s.SunsetTemperature),
		NoonTemp:        fractionToPercent(s.NoonTemperature),
		MinBrightness:   fractionToPercent(s.MinBrightness),
		MaxBrightness:   fractionToPercent(s.MaxBrightness),
		NightTemp:       fractionToPercent(s.NightTemperature),
		NightBrightness: fractionToPercent(s.NightBrightness),
	}
}

func fractionToPercent(v float64) int {
	return int(v*100 + 0.5)
}

// ZonesMapFromControllers converts the zone list to a map keyed by ID.
func ZonesMapFromControllers(zones []*zone.Controller) map[string]ZoneResponse {
	result := make(map[string]ZoneResponse, len(zones))
	for _, c := range zones {
		result[c.ID()] = ZoneFromController(c)
	}
	return result
}

// --- API Key types ---

// APIKeyResponse is the API representation of an API key.
type APIKeyResponse struct {
	ID        string    `json:"id" doc:"Key identifier"`
	Name      string    `json:"name" doc:"Display name of the key"`
	Key       string    `json:"key,omitempty" doc:"Full key string (only present on creation)"`
	CreatedAt time.Time `json:"created_at" doc:"When the key was created"`
	ExpiresAt time.Time `json:"expires_at" doc:"When the key expires"`
	Disabled  bool      `json:"disabled" doc:"Whether the key is disabled"`
}

func apiKeyResponse(k *config.APIKey, includeKey bool) APIKeyResponse {
	resp := APIKeyResponse{
		ID:        k.ID,
		Name:      k.Name,
		CreatedAt: k.CreatedAt,
		ExpiresAt: k.ExpiresAt,
		Disabled:  k.Disabled,
	}
	if includeKey {
		resp.Key = k.Key
	}
	return resp
}

// --- Common response types ---

// StatusResponse is a simple status response.
type StatusResponse struct {
	Status string `json:"status" doc:"Operation status"`
}
