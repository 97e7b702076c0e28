// Package routes provides shared route registration for the circadiand HTTP
// API. The main server and the OpenAPI generator use the same definitions so
// the OpenAPI document stays in sync with the implementation.
package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/circadiand/internal/http/mw"
)

// NewHumaConfig creates the shared Huma configuration for the API.
func NewHumaConfig(version, baseURL string) huma.Config {
	cfg := huma.DefaultConfig("circadiand API", version)
	cfg.Info.Description = "REST API for the circadiand adaptive lighting daemon."

	// Disable $schema field in responses
	cfg.CreateHooks = nil

	if baseURL != "" {
		cfg.Servers = []*huma.Server{
			{URL: baseURL, Description: "API Server"},
		}
	}

	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		mw.SecurityScheme: {
			Type:        "http",
			Scheme:      "bearer",
			Description: "API key authentication. Include your API key as `Authorization: Bearer <key>` or `X-API-Key: <key>`.",
		},
	}

	cfg.Tags = []*huma.Tag{
		{Name: "Zones", Description: "Zone state, modes, and tuning targets"},
		{Name: "Cycle", Description: "Day-cycle position"},
		{Name: "API Keys", Description: "API key management"},
		{Name: "Logging", Description: "Runtime log level management"},
	}

	return cfg
}
