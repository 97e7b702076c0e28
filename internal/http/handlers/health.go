package handlers

import (
	"context"
)

// HealthInput is the input for health check endpoints.
type HealthInput struct{}

// HealthOutput is the output for health check endpoints.
type HealthOutput struct {
	Body struct {
		Status string `json:"status" doc:"Service health status"`
	}
}

// HealthCheck returns the service health status.
// This is a public endpoint (no auth required).
func HealthCheck(_ context.Context, _ *HealthInput) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "ok"
	return out, nil
}

// VersionInput is the input for the version endpoint.
type VersionInput struct{}

// VersionOutput is the output for the version endpoint.
type VersionOutput struct {
	Body struct {
		Version   string `json:"version" doc:"Daemon version"`
		Commit    string `json:"commit" doc:"Git commit the daemon was built from"`
		BuildDate string `json:"build_date" doc:"Build timestamp"`
	}
}

// VersionHandler reports build information.
type VersionHandler struct {
	Version   string
	Commit    string
	BuildDate string
}

// GetVersion returns the daemon's build information.
func (h *VersionHandler) GetVersion(_ context.Context, _ *VersionInput) (*VersionOutput, error) {
	out := &VersionOutput{}
	out.Body.Version = h.Version
	out.Body.Commit = h.Commit
	out.Body.BuildDate = h.BuildDate
	return out, nil
}
