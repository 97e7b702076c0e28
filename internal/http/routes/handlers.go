package routes

import (
	"github.com/jmylchreest/circadiand/internal/http/handlers"
)

// Handlers aggregates the handler interfaces for route registration.
// The main server passes real implementations; the OpenAPI generator can
// pass stubs.
type Handlers struct {
	Zone    handlers.ZoneHandlers
	APIKey  handlers.APIKeyHandlers
	Logging handlers.LoggingHandlers
	Version *handlers.VersionHandler
}
