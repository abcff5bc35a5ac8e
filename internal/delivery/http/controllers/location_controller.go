package controllers

import (
	"log/slog"
	"net/http"

	h "conduit/internal/delivery/http/helpers"
	"conduit/internal/domain"
)

// UpdateLocationRequest is the request body for POST /location/update.
// Sharing is changed only through PATCH /location/sharing.
type UpdateLocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Accuracy  *float64 `json:"accuracy" validate:"omitempty,gte=0"`
	Heading   *float64 `json:"heading" validate:"omitempty,gte=0,lt=360"`
	Speed     *float64 `json:"speed" validate:"omitempty,gte=0"`
	EventID   *string  `json:"event_id" validate:"omitempty,uuid"`
}

// SharingRequest is the request body for PATCH /location/sharing.
type SharingRequest struct {
	IsShared *bool `json:"is_shared" validate:"required"`
}

// LocationSuccessResponse is the success response envelope for location endpoints.
type LocationSuccessResponse struct {
	Data  *domain.Location `json:"data"`
	Error *h.APIError      `json:"error"`
}

type LocationController struct {
	Logger  *slog.Logger
	Service domain.LocationService
}

func NewLocationController(logger *slog.Logger, svc domain.LocationService) *LocationController {
	return &LocationController{
		Logger:  logger,
		Service: svc,
	}
}

// UpdateLocation godoc
// @Summary Update my location
// @Description Upserts the caller's current location. A first location is shared; later updates keep the sharing flag set with PATCH /location/sharing.
// @Tags location
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateLocationRequest true "Location"
// @Success 200 {object} controllers.LocationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /location/update [post]
func (c *LocationController) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req UpdateLocationRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	loc := &domain.Location{
		UserID:    userID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Accuracy:  req.Accuracy,
		Heading:   req.Heading,
		Speed:     req.Speed,
		EventID:   req.EventID,
		IsShared:  true,
	}
	if err := c.Service.UpdateLocation(r.Context(), loc); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, loc)
}

// SetSharing godoc
// @Summary Toggle location sharing
// @Tags location
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SharingRequest true "Sharing flag"
// @Success 200 {object} controllers.LocationSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /location/sharing [patch]
func (c *LocationController) SetSharing(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req SharingRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	loc, err := c.Service.SetSharing(r.Context(), userID, *req.IsShared)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, loc)
}

// ListEventLocations godoc
// @Summary Locations of event participants
// @Description Every participant with the latest location the caller may see, or null.
// @Tags location
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=[]domain.ParticipantLocation}
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /location/event/{eventID} [get]
func (c *LocationController) ListEventLocations(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	locs, err := c.Service.ListEventLocations(r.Context(), userID, eventID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, locs)
}

// GetUserLocation godoc
// @Summary Location of a user
// @Description Visible only to the owner and to users sharing an active event with them.
// @Tags location
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID (UUID)"
// @Success 200 {object} controllers.LocationSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /location/user/{userID} [get]
func (c *LocationController) GetUserLocation(w http.ResponseWriter, r *http.Request) {
	callerUserID, ok := callerID(w, r)
	if !ok {
		return
	}
	userID, ok := h.PathUUID(w, r, "userID")
	if !ok {
		return
	}
	loc, err := c.Service.GetUserLocation(r.Context(), callerUserID, userID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, loc)
}
