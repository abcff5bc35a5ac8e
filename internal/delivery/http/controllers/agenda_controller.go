package controllers

import (
	"log/slog"
	"net/http"
	"time"

	h "conduit/internal/delivery/http/helpers"
	"conduit/internal/domain"
)

// CreateAgendaItemRequest is the request body for POST /agenda.
type CreateAgendaItemRequest struct {
	EventID     string     `json:"event_id" validate:"required,uuid"`
	PinID       *string    `json:"pin_id" validate:"omitempty,uuid"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	StartTime   time.Time  `json:"start_time" validate:"required"`
	EndTime     *time.Time `json:"end_time"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`
	IsAllDay    bool       `json:"is_all_day"`
}

// Validate implements Validator.
func (c CreateAgendaItemRequest) Validate() []h.FieldError {
	if c.EndTime != nil && c.EndTime.Before(c.StartTime) {
		return []h.FieldError{{Field: "end_time", Message: "must not be before start_time"}}
	}
	return nil
}

// UpdateAgendaItemRequest is the request body for PATCH /agenda/{itemID}. Omitted fields are unchanged.
type UpdateAgendaItemRequest struct {
	PinID       *string    `json:"pin_id" validate:"omitempty,uuid"`
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`
	IsAllDay    *bool      `json:"is_all_day"`
}

// AgendaItemSuccessResponse is the success response envelope for single-item endpoints.
type AgendaItemSuccessResponse struct {
	Data  *domain.AgendaItem `json:"data"`
	Error *h.APIError        `json:"error"`
}

type AgendaController struct {
	Logger  *slog.Logger
	Service domain.AgendaService
}

func NewAgendaController(logger *slog.Logger, svc domain.AgendaService) *AgendaController {
	return &AgendaController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateItem godoc
// @Summary Create an agenda item
// @Description The caller must be an active member of the event.
// @Tags agenda
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateAgendaItemRequest true "Agenda item"
// @Success 201 {object} controllers.AgendaItemSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /agenda [post]
func (c *AgendaController) CreateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req CreateAgendaItemRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	item := &domain.AgendaItem{
		EventID:     req.EventID,
		CreatorID:   userID,
		PinID:       req.PinID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		IsAllDay:    req.IsAllDay,
	}
	if err := c.Service.CreateItem(r.Context(), item); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, item)
}

// ListEventItems godoc
// @Summary Agenda of an event
// @Tags agenda
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param from query string false "Start time lower bound (RFC 3339)"
// @Param to query string false "Start time upper bound (RFC 3339)"
// @Success 200 {object} helpers.APIResponse{data=[]domain.AgendaItem}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /agenda/event/{eventID} [get]
func (c *AgendaController) ListEventItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	tr, ok := parseTimeRange(w, r)
	if !ok {
		return
	}
	items, err := c.Service.ListEventItems(r.Context(), userID, eventID, tr)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, items)
}

// Calendar godoc
// @Summary My calendar
// @Description Agenda items across every event the caller is an active member of.
// @Tags agenda
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start time lower bound (RFC 3339)"
// @Param to query string false "Start time upper bound (RFC 3339)"
// @Success 200 {object} helpers.APIResponse{data=[]domain.AgendaItem}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /agenda/calendar [get]
func (c *AgendaController) Calendar(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	tr, ok := parseTimeRange(w, r)
	if !ok {
		return
	}
	items, err := c.Service.Calendar(r.Context(), userID, tr)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, items)
}

// GetItem godoc
// @Summary Get an agenda item
// @Tags agenda
// @Produce json
// @Security BearerAuth
// @Param itemID path string true "Agenda item ID (UUID)"
// @Success 200 {object} controllers.AgendaItemSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /agenda/{itemID} [get]
func (c *AgendaController) GetItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	itemID, ok := h.PathUUID(w, r, "itemID")
	if !ok {
		return
	}
	item, err := c.Service.GetItem(r.Context(), userID, itemID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, item)
}

// UpdateItem godoc
// @Summary Update an agenda item
// @Description Only the item's creator may update it.
// @Tags agenda
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param itemID path string true "Agenda item ID (UUID)"
// @Param body body UpdateAgendaItemRequest true "Fields to update"
// @Success 200 {object} controllers.AgendaItemSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /agenda/{itemID} [patch]
func (c *AgendaController) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	itemID, ok := h.PathUUID(w, r, "itemID")
	if !ok {
		return
	}
	var req UpdateAgendaItemRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	item, err := c.Service.UpdateItem(r.Context(), userID, itemID, domain.AgendaItemUpdate{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		IsAllDay:    req.IsAllDay,
		PinID:       req.PinID,
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, item)
}

// DeleteItem godoc
// @Summary Delete an agenda item
// @Description Only the item's creator may delete it.
// @Tags agenda
// @Security BearerAuth
// @Param itemID path string true "Agenda item ID (UUID)"
// @Success 204
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /agenda/{itemID} [delete]
func (c *AgendaController) DeleteItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	itemID, ok := h.PathUUID(w, r, "itemID")
	if !ok {
		return
	}
	if err := c.Service.DeleteItem(r.Context(), userID, itemID); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseTimeRange(w http.ResponseWriter, r *http.Request) (domain.TimeRange, bool) {
	from, ok := h.QueryTime(r, "from")
	if !ok {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "from must be an RFC 3339 timestamp")
		return domain.TimeRange{}, false
	}
	to, ok := h.QueryTime(r, "to")
	if !ok {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "to must be an RFC 3339 timestamp")
		return domain.TimeRange{}, false
	}
	return domain.TimeRange{From: from, To: to}, true
}
