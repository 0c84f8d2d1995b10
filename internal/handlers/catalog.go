package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/youthcamp/registration-api/internal/catalog"
	"github.com/youthcamp/registration-api/internal/registration"
)

type CatalogHandler struct {
	catalog  *catalog.Catalog
	capacity *registration.CapacityChecker
}

func NewCatalogHandler(c *catalog.Catalog, capacity *registration.CapacityChecker) *CatalogHandler {
	return &CatalogHandler{catalog: c, capacity: capacity}
}

type OptionsOutput struct {
	Body struct {
		Success bool             `json:"success"`
		Data    []catalog.Option `json:"data"`
	}
}

func (h *CatalogHandler) HandleYouthGroups(ctx context.Context, _ *struct{}) (*OptionsOutput, error) {
	groups, err := h.catalog.YouthGroups(ctx)
	if err != nil {
		return nil, serverError(err, "Failed to load youth groups")
	}
	out := &OptionsOutput{}
	out.Body.Success = true
	out.Body.Data = groups
	return out, nil
}

func (h *CatalogHandler) HandleAllergies(ctx context.Context, _ *struct{}) (*OptionsOutput, error) {
	allergies, err := h.catalog.Allergies(ctx)
	if err != nil {
		return nil, serverError(err, "Failed to load allergies")
	}
	out := &OptionsOutput{}
	out.Body.Success = true
	out.Body.Data = allergies
	return out, nil
}

type ActivitiesOutput struct {
	Body struct {
		Success bool                                `json:"success"`
		Data    []registration.ActivityAvailability `json:"data"`
	}
}

func (h *CatalogHandler) HandleActivities(ctx context.Context, _ *struct{}) (*ActivitiesOutput, error) {
	activities, err := h.capacity.ListAvailableActivities(ctx)
	if err != nil {
		return nil, serverError(err, "Failed to load activities")
	}
	out := &ActivitiesOutput{}
	out.Body.Success = true
	out.Body.Data = activities
	return out, nil
}

type AccommodationsInput struct {
	Gender string `query:"gender" doc:"male or female"`
	Type   string `query:"type" doc:"participant, leader or guest"`
}

type AccommodationsOutput struct {
	Body struct {
		Success bool                                     `json:"success"`
		Data    []registration.AccommodationAvailability `json:"data"`
	}
}

func (h *CatalogHandler) HandleAccommodations(ctx context.Context, input *AccommodationsInput) (*AccommodationsOutput, error) {
	if input.Gender != "male" && input.Gender != "female" {
		return nil, newAPIError(http.StatusBadRequest, `Invalid gender parameter. Must be "male" or "female".`)
	}

	rooms, err := h.capacity.ListAvailableAccommodations(ctx, input.Gender, registration.ParseType(input.Type))
	if err != nil {
		return nil, serverError(err, "Failed to load accommodations")
	}
	out := &AccommodationsOutput{}
	out.Body.Success = true
	out.Body.Data = rooms
	return out, nil
}

// serverError logs err and hides it behind msg.
func serverError(err error, msg string) error {
	log.Error().Err(err).Msg(msg)
	return newAPIError(http.StatusInternalServerError, msg)
}
