package controllers

import (
	"log/slog"
	"net/http"

	h "conduit/internal/delivery/http/helpers"
	"conduit/internal/domain"
)

// CreatePinRequest is the request body for POST /pins.
type CreatePinRequest struct {
	EventID     string         `json:"event_id" validate:"required,uuid"`
	Title       string         `json:"title" validate:"required,max=100"`
	Description *string        `json:"description" validate:"omitempty,max=1000"`
	Latitude    *float64       `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude   *float64       `json:"longitude" validate:"required,gte=-180,lte=180"`
	PinType     domain.PinType `json:"pin_type" validate:"omitempty,oneof=location meeting_point landmark custom"`
	Color       string         `json:"color" validate:"omitempty,hexcolor"`
	Icon        string         `json:"icon" validate:"omitempty,max=50"`
	IsPublic    *bool          `json:"is_public"`
}

// UpdatePinRequest is the request body for PATCH /pins/{pinID}. Omitted fields are unchanged.
type UpdatePinRequest struct {
	Title       *string         `json:"title" validate:"omitempty,max=100"`
	Description *string         `json:"description" validate:"omitempty,max=1000"`
	Latitude    *float64        `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64        `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	PinType     *domain.PinType `json:"pin_type" validate:"omitempty,oneof=location meeting_point landmark custom"`
	Color       *string         `json:"color" validate:"omitempty,hexcolor"`
	Icon        *string         `json:"icon" validate:"omitempty,max=50"`
	IsPublic    *bool           `json:"is_public"`
}

// PinSuccessResponse is the success response envelope for single-pin endpoints.
type PinSuccessResponse struct {
	Data  *domain.Pin `json:"data"`
	Error *h.APIError `json:"error"`
}

type PinController struct {
	Logger  *slog.Logger
	Service domain.PinService
}

func NewPinController(logger *slog.Logger, svc domain.PinService) *PinController {
	return &PinController{
		Logger:  logger,
		Service: svc,
	}
}

// CreatePin godoc
// @Summary Create a map pin
// @Description The caller must be an active member of the event. Pins are public by default.
// @Tags pins
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreatePinRequest true "Pin"
// @Success 201 {object} controllers.PinSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /pins [post]
func (c *PinController) CreatePin(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req CreatePinRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	pin := &domain.Pin{
		EventID:     req.EventID,
		CreatorID:   userID,
		Title:       req.Title,
		Description: req.Description,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		PinType:     req.PinType,
		Color:       req.Color,
		Icon:        req.Icon,
		IsPublic:    req.IsPublic == nil || *req.IsPublic,
	}
	if err := c.Service.CreatePin(r.Context(), pin); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, pin)
}

// ListEventPins godoc
// @Summary Pins of an event
// @Tags pins
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param type query string false "Pin type filter"
// @Success 200 {object} helpers.APIResponse{data=[]domain.Pin}
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /pins/event/{eventID} [get]
func (c *PinController) ListEventPins(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var pinType *domain.PinType
	if t := r.URL.Query().Get("type"); t != "" {
		pt := domain.PinType(t)
		pinType = &pt
	}
	pins, err := c.Service.ListEventPins(r.Context(), userID, eventID, pinType)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, pins)
}

// ListPinsInBounds godoc
// @Summary Pins inside a bounding box
// @Tags pins
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param north query number true "North latitude"
// @Param south query number true "South latitude"
// @Param east query number true "East longitude"
// @Param west query number true "West longitude"
// @Success 200 {object} helpers.APIResponse{data=[]domain.Pin}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /pins/event/{eventID}/bounds [get]
func (c *PinController) ListPinsInBounds(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var b domain.Bounds
	var fields []h.FieldError
	for _, q := range []struct {
		name string
		dst  *float64
	}{{"north", &b.North}, {"south", &b.South}, {"east", &b.East}, {"west", &b.West}} {
		v, ok := h.QueryFloat(r, q.name)
		if !ok {
			fields = append(fields, h.FieldError{Field: q.name, Message: "must be a number"})
			continue
		}
		*q.dst = v
	}
	if len(fields) > 0 {
		h.WriteValidationError(w, fields)
		return
	}
	pins, err := c.Service.ListPinsInBounds(r.Context(), userID, eventID, b)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, pins)
}

// SearchPins godoc
// @Summary Search pins
// @Description Case-insensitive search over pin title and description.
// @Tags pins
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param q query string true "Search text"
// @Success 200 {object} helpers.APIResponse{data=[]domain.Pin}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /pins/event/{eventID}/search [get]
func (c *PinController) SearchPins(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	pins, err := c.Service.SearchPins(r.Context(), userID, eventID, r.URL.Query().Get("q"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, pins)
}

// GetPin godoc
// @Summary Get a pin
// @Tags pins
// @Produce json
// @Security BearerAuth
// @Param pinID path string true "Pin ID (UUID)"
// @Success 200 {object} controllers.PinSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /pins/{pinID} [get]
func (c *PinController) GetPin(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	pinID, ok := h.PathUUID(w, r, "pinID")
	if !ok {
		return
	}
	pin, err := c.Service.GetPin(r.Context(), userID, pinID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, pin)
}

// UpdatePin godoc
// @Summary Update a pin
// @Description Only the pin's creator may update it.
// @Tags pins
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param pinID path string true "Pin ID (UUID)"
// @Param body body UpdatePinRequest true "Fields to update"
// @Success 200 {object} controllers.PinSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /pins/{pinID} [patch]
func (c *PinController) UpdatePin(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	pinID, ok := h.PathUUID(w, r, "pinID")
	if !ok {
		return
	}
	var req UpdatePinRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	pin, err := c.Service.UpdatePin(r.Context(), userID, pinID, domain.PinUpdate{
		Title:       req.Title,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		PinType:     req.PinType,
		Color:       req.Color,
		Icon:        req.Icon,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, pin)
}

// DeletePin godoc
// @Summary Delete a pin
// @Description Only the pin's creator may delete it.
// @Tags pins
// @Security BearerAuth
// @Param pinID path string true "Pin ID (UUID)"
// @Success 204
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /pins/{pinID} [delete]
func (c *PinController) DeletePin(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	pinID, ok := h.PathUUID(w, r, "pinID")
	if !ok {
		return
	}
	if err := c.Service.DeletePin(r.Context(), userID, pinID); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
