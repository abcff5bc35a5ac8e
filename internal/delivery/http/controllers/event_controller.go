package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	h "conduit/internal/delivery/http/helpers"
	"conduit/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	StartDate   time.Time  `json:"start_date" validate:"required"`
	EndDate     *time.Time `json:"end_date"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`
	LocationLat *float64   `json:"location_lat" validate:"omitempty,gte=-90,lte=90"`
	LocationLng *float64   `json:"location_lng" validate:"omitempty,gte=-180,lte=180"`
	IsPrivate   bool       `json:"is_private"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []h.FieldError {
	var errs []h.FieldError
	if c.Title != "" && strings.TrimSpace(c.Title) == "" {
		errs = append(errs, h.FieldError{Field: "title", Message: "must not be blank"})
	}
	if c.EndDate != nil && c.EndDate.Before(c.StartDate) {
		errs = append(errs, h.FieldError{Field: "end_date", Message: "must not be before start_date"})
	}
	if (c.LocationLat == nil) != (c.LocationLng == nil) {
		errs = append(errs, h.FieldError{Field: "location_lat", Message: "location_lat and location_lng must be set together"})
	}
	return errs
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. Omitted fields are unchanged.
type UpdateEventRequest struct {
	Title       *string             `json:"title" validate:"omitempty,max=200"`
	Description *string             `json:"description" validate:"omitempty,max=2000"`
	StartDate   *time.Time          `json:"start_date"`
	EndDate     *time.Time          `json:"end_date"`
	Location    *string             `json:"location" validate:"omitempty,max=255"`
	LocationLat *float64            `json:"location_lat" validate:"omitempty,gte=-90,lte=90"`
	LocationLng *float64            `json:"location_lng" validate:"omitempty,gte=-180,lte=180"`
	IsPrivate   *bool               `json:"is_private"`
	Status      *domain.EventStatus `json:"status" validate:"omitempty,oneof=active completed cancelled"`
}

// ListEventsResponse is the paginated response body for GET /events.
type ListEventsResponse struct {
	Items      []*domain.Event  `json:"items"`
	Pagination h.PaginationMeta `json:"pagination"`
}

// EventSuccessResponse is the success response envelope for single-event endpoints.
type EventSuccessResponse struct {
	Data  *domain.Event `json:"data"`
	Error *h.APIError   `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description The caller becomes the creator and first participant of the event.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req CreateEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	event := domain.NewEvent(req.Title, userID, req.StartDate, req.IsPrivate, time.Now().UTC())
	event.Description = req.Description
	event.EndDate = req.EndDate
	event.Location = req.Location
	event.LocationLat = req.LocationLat
	event.LocationLng = req.LocationLng
	if err := c.Service.CreateEvent(r.Context(), event); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List visible events
// @Description Public events plus private events the caller is an active member of.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse{data=ListEventsResponse}
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	params := h.ParsePagination(r)
	events, total, err := c.Service.ListVisibleEvents(r.Context(), userID, params)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	meta := h.NewPaginationMeta(params, total)
	h.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{Items: events, Pagination: meta})
}

// ListMyEvents godoc
// @Summary List my events
// @Description Events the caller is an active member of.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse{data=[]domain.Event}
// @Router /events/me [get]
func (c *EventController) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	events, err := c.Service.ListMyEvents(r.Context(), userID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, events)
}

// GetEvent godoc
// @Summary Get an event by ID
// @Description Private events are reported as not found to non-members.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	c.withEvent(w, r, c.Service.GetEvent)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Only the creator may update an event.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), userID, eventID, domain.EventUpdate{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Location:    req.Location,
		LocationLat: req.LocationLat,
		LocationLng: req.LocationLng,
		IsPrivate:   req.IsPrivate,
		Status:      req.Status,
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Cancel an event
// @Description Only the creator may cancel. The event is kept with status cancelled.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	c.withEvent(w, r, c.Service.CancelEvent)
}

// JoinEvent godoc
// @Summary Join an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /events/{eventID}/join [post]
func (c *EventController) JoinEvent(w http.ResponseWriter, r *http.Request) {
	c.withEvent(w, r, c.Service.JoinEvent)
}

// LeaveEvent godoc
// @Summary Leave an event
// @Description The creator cannot leave their own event.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /events/{eventID}/leave [post]
func (c *EventController) LeaveEvent(w http.ResponseWriter, r *http.Request) {
	c.withEvent(w, r, c.Service.LeaveEvent)
}

// ListParticipants godoc
// @Summary List event participants
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=[]domain.Participant}
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/participants [get]
func (c *EventController) ListParticipants(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	participants, err := c.Service.ListParticipants(r.Context(), userID, eventID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, participants)
}

type eventAction func(ctx context.Context, callerID, eventID string) (*domain.Event, error)

func (c *EventController) withEvent(w http.ResponseWriter, r *http.Request, action eventAction) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	event, err := action(r.Context(), userID, eventID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}
