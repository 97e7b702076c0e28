package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/circadiand/internal/http/handlers"
	"github.com/jmylchreest/circadiand/internal/http/mw"
)

// Register registers all API routes with the given Huma API instance.
func Register(api huma.API, h *Handlers) {
	// --- Health ---
	mw.PublicGet(api, "/api/v1/health", handlers.HealthCheck,
		mw.WithTags("Health"),
		mw.WithSummary("Health check"),
		mw.WithDescription("Returns service health status. This endpoint does not require authentication."),
		mw.WithOperationID("healthCheck"))

	mw.HiddenGet(api, "/healthz", handlers.HealthCheck)

	// --- Version ---
	mw.PublicGet(api, "/api/v1/version", h.Version.GetVersion,
		mw.WithTags("Version"),
		mw.WithSummary("Daemon version"),
		mw.WithDescription("Returns the running daemon's version, commit, and build date. This endpoint does not require authentication."),
		mw.WithOperationID("getVersion"))

	// --- Zones ---
	mw.ProtectedGet(api, "/api/v1/zones", h.Zone.ListZones,
		mw.WithTags("Zones"),
		mw.WithSummary("List all zones"),
		mw.WithDescription("Returns all configured zones as a map keyed by zone ID."),
		mw.WithOperationID("listZones"))

	mw.ProtectedGet(api, "/api/v1/zones/{id}", h.Zone.GetZone,
		mw.WithTags("Zones"),
		mw.WithSummary("Get a zone"),
		mw.WithOperationID("getZone"))

	mw.ProtectedPost(api, "/api/v1/zones/{id}/state", h.Zone.SetZoneState,
		mw.WithTags("Zones"),
		mw.WithSummary("Set zone state"),
		mw.WithDescription("Switch the operating mode and/or apply manual brightness/temperature overrides. Overriding values moves the zone to manual mode."),
		mw.WithOperationID("setZoneState"))

	mw.ProtectedPut(api, "/api/v1/zones/{id}/settings", h.Zone.SetZoneSettings,
		mw.WithTags("Zones"),
		mw.WithSummary("Set zone settings"),
		mw.WithDescription("Replace a zone's tuning targets. The sunset temperature must be above the noon temperature."),
		mw.WithOperationID("setZoneSettings"))

	// --- Cycle ---
	mw.ProtectedGet(api, "/api/v1/cycle", h.Zone.GetCycle,
		mw.WithTags("Cycle"),
		mw.WithSummary("Get day-cycle position"),
		mw.WithDescription("Returns the current day-cycle percentage: 0 at the sunset edge, 1 at solar noon."),
		mw.WithOperationID("getCycle"))

	// --- API Keys ---
	mw.ProtectedPost(api, "/api/v1/apikeys", h.APIKey.CreateAPIKey,
		mw.WithTags("API Keys"),
		mw.WithSummary("Create an API key"),
		mw.WithOperationID("createApiKey"),
		mw.WithDefaultStatus(201))

	mw.ProtectedGet(api, "/api/v1/apikeys", h.APIKey.ListAPIKeys,
		mw.WithTags("API Keys"),
		mw.WithSummary("List API keys"),
		mw.WithOperationID("listApiKeys"))

	mw.ProtectedDelete(api, "/api/v1/apikeys/{key}", h.APIKey.DeleteAPIKey,
		mw.WithTags("API Keys"),
		mw.WithSummary("Delete an API key"),
		mw.WithOperationID("deleteApiKey"),
		mw.WithDefaultStatus(204))

	mw.ProtectedPut(api, "/api/v1/apikeys/{key}/disabled", h.APIKey.SetAPIKeyDisabled,
		mw.WithTags("API Keys"),
		mw.WithSummary("Enable or disable an API key"),
		mw.WithOperationID("setApiKeyDisabled"))

	// --- Logging ---
	mw.ProtectedGet(api, "/api/v1/logging/level", h.Logging.GetLevel,
		mw.WithTags("Logging"),
		mw.WithSummary("Get global log level"),
		mw.WithOperationID("getLogLevel"))

	mw.ProtectedPut(api, "/api/v1/logging/level", h.Logging.SetLevel,
		mw.WithTags("Logging"),
		mw.WithSummary("Set global log level"),
		mw.WithDescription("Changes the global log level at runtime. Valid values: debug, info, warn, error."),
		mw.WithOperationID("setLogLevel"))
}
