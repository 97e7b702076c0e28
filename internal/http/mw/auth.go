package mw

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/circadiand/internal/apikey"
)

// HumaAuth returns a Huma middleware enforcing API key auth on operations
// that declare a security requirement. Public operations (health, version,
// the OpenAPI document) carry no Security field and pass through.
func HumaAuth(api huma.API, logger *slog.Logger, keys *apikey.Manager) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if len(ctx.Operation().Security) == 0 {
			next(ctx)
			return
		}

		key := ctx.Header("Authorization")
		const bearerPrefix = "Bearer "
		if strings.HasPrefix(key, bearerPrefix) {
			key = key[len(bearerPrefix):]
		} else {
			key = ctx.Header("X-API-Key")
		}

		if key == "" {
			logger.Warn("http: API key missing", "operation", ctx.Operation().OperationID)
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "API key required")
			return
		}
		if _, err := keys.ValidateAPIKey(key); err != nil {
			logger.Warn("http: invalid API key",
				"key_prefix", keyPrefix(key),
				"operation", ctx.Operation().OperationID,
				"error", err,
			)
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid API key")
			return
		}
		next(ctx)
	}
}

// APIKeyAuth returns a Chi middleware validating API keys on the routes it
// wraps. The key comes from the Authorization: Bearer header, or failing
// that the X-API-Key header. Huma-managed operations are enforced by
// HumaAuth via their Security annotations; this middleware guards the raw
// handlers that bypass Huma (the WebSocket endpoint).
func APIKeyAuth(logger *slog.Logger, keys *apikey.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if strings.HasPrefix(key, bearerPrefix) {
				key = key[len(bearerPrefix):]
			} else {
				key = r.Header.Get("X-API-Key")
			}

			if key == "" {
				logger.Warn("http: API key missing",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, "Unauthorized: API key required", http.StatusUnauthorized)
				return
			}

			valid, err := keys.ValidateAPIKey(key)
			if err != nil {
				logger.Warn("http: invalid API key",
					"key_prefix", keyPrefix(key),
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, fmt.Sprintf("Unauthorized: %s", err.Error()), http.StatusUnauthorized)
				return
			}

			logger.Debug("http: authenticated", "name", valid.Name, "key_prefix", keyPrefix(valid.Key))
			next.ServeHTTP(w, r)
		})
	}
}

// keyPrefix returns the first 4 characters of a key for safe logging.
func keyPrefix(key string) string {
	if len(key) >= 4 {
		return key[:4]
	}
	return key
}
