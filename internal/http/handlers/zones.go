package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/circadiand/internal/circadian"
	"github.com/jmylchreest/circadiand/internal/config"
	cerrors "github.com/jmylchreest/circadiand/internal/errors"
	"github.com/jmylchreest/circadiand/internal/zone"
)

// ZoneManager is the subset of the zone manager the HTTP layer needs.
type ZoneManager interface {
	Zone(id string) (*zone.Controller, error)
	Zones() []*zone.Controller
	ApplySettings(id string, zs config.ZoneSettings) error
}

// --- List Zones ---

// ListZonesInput is the input for listing all zones.
type ListZonesInput struct{}

// ListZonesOutput returns zones as a map keyed by zone ID.
type ListZonesOutput struct {
	Body map[string]ZoneResponse
}

// --- Get Zone ---

// GetZoneInput is the input for getting a single zone.
type GetZoneInput struct {
	ID string `path:"id" doc:"Zone identifier"`
}

// GetZoneOutput is the output for getting a single zone.
type GetZoneOutput struct {
	Body ZoneResponse
}

// --- Set Zone State ---

// SetZoneStateInput is the input for changing a zone's mode or values.
// Setting brightness or temperature applies a manual override; setting only
// the mode switches the operating mode.
type SetZoneStateInput struct {
	ID   string `path:"id" doc:"Zone identifier"`
	Body struct {
		Mode        *string  `json:"mode,omitempty" doc:"Operating mode: adaptive, night, or manual" enum:"adaptive,night,manual"`
		Brightness  *float64 `json:"brightness,omitempty" doc:"Brightness override as a fraction" minimum:"0" maximum:"1"`
		Temperature *float64 `json:"temperature,omitempty" doc:"Temperature override as a fraction" minimum:"0" maximum:"1"`
	}
}

// SetZoneStateOutput returns the zone state after the change.
type SetZoneStateOutput struct {
	Body ZoneResponse
}

// --- Set Zone Settings ---

// SetZoneSettingsInput is the input for replacing a zone's tuning targets.
type SetZoneSettingsInput struct {
	ID   string `path:"id" doc:"Zone identifier"`
	Body ZoneSettingsResponse
}

// SetZoneSettingsOutput returns the zone after the settings change.
type SetZoneSettingsOutput struct {
	Body ZoneResponse
}

// --- Cycle ---

// GetCycleInput is the input for reading the day-cycle position.
type GetCycleInput struct{}

// GetCycleOutput reports the current day-cycle percentage.
type GetCycleOutput struct {
	Body struct {
		Percentage float64 `json:"percentage" doc:"Day-cycle progress: 0 at the sunset edge, 1 at solar noon"`
	}
}

// ZoneHandler implements zone-related HTTP handlers.
type ZoneHandler struct {
	Zones  ZoneManager
	Source circadian.Source
}

// ListZones returns all zones as a map keyed by ID.
func (h *ZoneHandler) ListZones(_ context.Context, _ *ListZonesInput) (*ListZonesOutput, error) {
	return &ListZonesOutput{Body: ZonesMapFromControllers(h.Zones.Zones())}, nil
}

// GetZone returns a single zone by ID.
func (h *ZoneHandler) GetZone(_ context.Context, input *GetZoneInput) (*GetZoneOutput, error) {
	c, err := h.Zones.Zone(input.ID)
	if err != nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("Zone not found: %s", input.ID))
	}
	return &GetZoneOutput{Body: ZoneFromController(c)}, nil
}

// SetZoneState changes a zone's mode and/or applies manual value overrides.
// Mode is applied first, so mode=manual plus values sets both in one call.
func (h *ZoneHandler) SetZoneState(_ context.Context, input *SetZoneStateInput) (*SetZoneStateOutput, error) {
	c, err := h.Zones.Zone(input.ID)
	if err != nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("Zone not found: %s", input.ID))
	}

	if input.Body.Mode != nil {
		m, err := zone.ParseMode(*input.Body.Mode)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		if err := c.SetMode(m); err != nil {
			return nil, mapZoneError(err)
		}
	}

	if input.Body.Brightness != nil || input.Body.Temperature != nil {
		if err := c.Override(input.Body.Brightness, input.Body.Temperature); err != nil {
			return nil, mapZoneError(err)
		}
	}

	return &SetZoneStateOutput{Body: ZoneFromController(c)}, nil
}

// SetZoneSettings validates and replaces a zone's tuning targets.
func (h *ZoneHandler) SetZoneSettings(_ context.Context, input *SetZoneSettingsInput) (*SetZoneSettingsOutput, error) {
	zs := config.ZoneSettings{
		SunsetTemp:      input.Body.SunsetTemp,
		NoonTemp:        input.Body.NoonTemp,
		MinBrightness:   input.Body.MinBrightness,
		MaxBrightness:   input.Body.MaxBrightness,
		NightTemp:       input.Body.NightTemp,
		NightBrightness: input.Body.NightBrightness,
	}
	if err := h.Zones.ApplySettings(input.ID, zs); err != nil {
		return nil, mapZoneError(err)
	}

	c, err := h.Zones.Zone(input.ID)
	if err != nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("Zone not found: %s", input.ID))
	}
	return &SetZoneSettingsOutput{Body: ZoneFromController(c)}, nil
}

// GetCycle reports the current day-cycle percentage.
func (h *ZoneHandler) GetCycle(_ context.Context, _ *GetCycleInput) (*GetCycleOutput, error) {
	out := &GetCycleOutput{}
	out.Body.Percentage = h.Source.Percentage()
	return out, nil
}

func mapZoneError(err error) error {
	switch {
	case cerrors.IsNotFound(err):
		return huma.Error404NotFound(err.Error())
	case cerrors.IsInvalidInput(err):
		return huma.Error400BadRequest(err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}

// Ensure ZoneHandler implements the interface at compile time.
var _ ZoneHandlers = (*ZoneHandler)(nil)

// ZoneHandlers defines the interface for zone operations.
type ZoneHandlers interface {
	ListZones(ctx context.Context, input *ListZonesInput) (*ListZonesOutput, error)
	GetZone(ctx context.Context, input *GetZoneInput) (*GetZoneOutput, error)
	SetZoneState(ctx context.Context, input *SetZoneStateInput) (*SetZoneStateOutput, error)
	SetZoneSettings(ctx context.Context, input *SetZoneSettingsInput) (*SetZoneSettingsOutput, error)
	GetCycle(ctx context.Context, input *GetCycleInput) (*GetCycleOutput, error)
}
