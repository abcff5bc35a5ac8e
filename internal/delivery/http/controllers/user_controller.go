package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	h "conduit/internal/delivery/http/helpers"
	"conduit/internal/domain"
)

// UpdateProfileRequest is the request body for PATCH /users/me. All fields are optional.
type UpdateProfileRequest struct {
	FullName    *string `json:"full_name" validate:"omitempty,max=100"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url,max=2048"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=32"`
}

// ProfileSuccessResponse is the success response envelope for profile endpoints (200).
type ProfileSuccessResponse struct {
	Data  *domain.Profile `json:"data"`
	Error *h.APIError     `json:"error"`
}

// UserController handles profile endpoints.
type UserController struct {
	Logger  *slog.Logger
	Service domain.UserService
}

// NewUserController creates a UserController with the given logger and service.
func NewUserController(logger *slog.Logger, svc domain.UserService) *UserController {
	return &UserController{
		Logger:  logger,
		Service: svc,
	}
}

// GetMe godoc
// @Summary Get current user
// @Description Returns the authenticated user's profile.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ProfileSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /users/me [get]
func (c *UserController) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	p, err := c.Service.GetByID(r.Context(), userID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, p)
}

// UpdateMe godoc
// @Summary Update current user
// @Description Update full_name, avatar_url and/or phone_number of the authenticated user.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateProfileRequest true "Fields to update"
// @Success 200 {object} controllers.ProfileSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /users/me [patch]
func (c *UserController) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	p, err := c.Service.UpdateProfile(r.Context(), userID, userID, domain.ProfileUpdate{
		FullName:    req.FullName,
		AvatarURL:   req.AvatarURL,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, p)
}

// Search godoc
// @Summary Search users
// @Description Case-insensitive search over full name and email. The caller is excluded.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param q query string true "Search text (at least 2 characters)"
// @Param limit query int false "Maximum results (1-50, default 10)"
// @Success 200 {object} helpers.APIResponse{data=[]domain.Profile}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /users/search [get]
func (c *UserController) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	limit, ok := h.QueryInt(r, "limit", 0)
	if !ok {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "limit must be an integer")
		return
	}
	profiles, err := c.Service.Search(r.Context(), userID, r.URL.Query().Get("q"), limit)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, profiles)
}

// GetByEmail godoc
// @Summary Find a user by email
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param email query string true "Email address"
// @Success 200 {object} controllers.ProfileSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /users/by-email [get]
func (c *UserController) GetByEmail(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "email is required")
		return
	}
	p, err := c.Service.GetByEmail(r.Context(), email)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, p)
}

// GetByID godoc
// @Summary Get a user by ID
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID (UUID)"
// @Success 200 {object} controllers.ProfileSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /users/{userID} [get]
func (c *UserController) GetByID(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	id, ok := h.PathUUID(w, r, "userID")
	if !ok {
		return
	}
	p, err := c.Service.GetByID(r.Context(), id)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, p)
}
