// Package mw provides middleware and Huma registration helpers for the
// circadiand HTTP API.
package mw

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// SecurityScheme is the name of the security scheme used in OpenAPI.
const SecurityScheme = "apiKeyAuth"

// OperationOption mutates a Huma operation before registration.
type OperationOption func(*huma.Operation)

// WithTags adds tags to the operation.
func WithTags(tags ...string) OperationOption {
	return func(op *huma.Operation) {
		op.Tags = append(op.Tags, tags...)
	}
}

// WithSummary sets the operation summary.
func WithSummary(summary string) OperationOption {
	return func(op *huma.Operation) {
		op.Summary = summary
	}
}

// WithDescription sets the operation description.
func WithDescription(desc string) OperationOption {
	return func(op *huma.Operation) {
		op.Description = desc
	}
}

// WithOperationID sets a custom operation ID.
func WithOperationID(id string) OperationOption {
	return func(op *huma.Operation) {
		op.OperationID = id
	}
}

// WithDefaultStatus sets the HTTP status code for successful responses.
func WithDefaultStatus(status int) OperationOption {
	return func(op *huma.Operation) {
		op.DefaultStatus = status
	}
}

func register[I, O any](api huma.API, method, path string, protected bool, handler func(ctx context.Context, input *I) (*O, error), opts []OperationOption) {
	op := huma.Operation{
		Method: method,
		Path:   path,
	}
	if protected {
		op.Security = []map[string][]string{{SecurityScheme: {}}}
	}
	for _, opt := range opts {
		opt(&op)
	}
	huma.Register(api, op, handler)
}

// PublicGet registers a GET endpoint that needs no authentication.
func PublicGet[I, O any](api huma.API, path string, handler func(ctx context.Context, input *I) (*O, error), opts ...OperationOption) {
	register(api, http.MethodGet, path, false, handler, opts)
}

// HiddenGet registers a GET endpoint excluded from the OpenAPI document.
// Used for probe endpoints like /healthz.
func HiddenGet[I, O any](api huma.API, path string, handler func(ctx context.Context, input *I) (*O, error)) {
	huma.Register(api, huma.Operation{
		Method: http.MethodGet,
		Path:   path,
		Hidden: true,
	}, handler)
}

// ProtectedGet registers a GET endpoint that requires API key auth.
func ProtectedGet[I, O any](api huma.API, path string, handler func(ctx context.Context, input *I) (*O, error), opts ...OperationOption) {
	register(api, http.MethodGet, path, true, handler, opts)
}

// ProtectedPost registers a POST endpoint that requires API key auth.
func ProtectedPost[I, O any](api huma.API, path string, handler func(ctx context.Context, input *I) (*O, error), opts ...OperationOption) {
	register(api, http.MethodPost, path, true, handler, opts)
}

// ProtectedPut registers a PUT endpoint that requires API key auth.
func ProtectedPut[I, O any](api huma.API, path string, handler func(ctx context.Context, input *I) (*O, error), opts ...OperationOption) {
	register(api, http.MethodPut, path, true, handler, opts)
}

// ProtectedDelete registers a DELETE endpoint that requires API key auth.
func ProtectedDelete[I, O any](api huma.API, path string, handler func(ctx context.Context, input *I) (*O, error), opts ...OperationOption) {
	register(api, http.MethodDelete, path, true, handler, opts)
}
