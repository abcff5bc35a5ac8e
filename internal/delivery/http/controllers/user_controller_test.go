package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/delivery/http/helpers"
	"conduit/internal/domain"
)

func TestUserController_GetMe(t *testing.T) {
	tests := []struct {
		name          string
		contextUserID string
		fakeErr       error
		wantStatus    int
		wantCode      string
	}{
		{name: "success", contextUserID: testUserID, wantStatus: http.StatusOK},
		{name: "no user in context", wantStatus: http.StatusUnauthorized, wantCode: helpers.ErrCodeUnauthorized},
		{name: "user not found", contextUserID: testUserID, fakeErr: domain.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: helpers.ErrCodeNotFound},
		{name: "service error", contextUserID: testUserID, fakeErr: assert.AnError, wantStatus: http.StatusInternalServerError, wantCode: helpers.ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeUserService{profile: &domain.Profile{ID: testUserID, FullName: "Ann"}, err: tt.fakeErr}
			ctrl := NewUserController(testLogger, fake)
			rr := httptest.NewRecorder()

			ctrl.GetMe(rr, newRequest(http.MethodGet, "/api/v1/users/me", "", tt.contextUserID, nil))

			if tt.wantCode != "" {
				requireErrorCode(t, rr, tt.wantStatus, tt.wantCode)
				return
			}
			require.Equal(t, http.StatusOK, rr.Code)
			var p domain.Profile
			decodeEnvelope(t, rr, &p)
			assert.Equal(t, "Ann", p.FullName)
		})
	}
}

func TestUserController_UpdateMe(t *testing.T) {
	fake := &fakeUserService{profile: &domain.Profile{ID: testUserID, FullName: "Ann Lee"}}
	ctrl := NewUserController(testLogger, fake)

	rr := httptest.NewRecorder()
	ctrl.UpdateMe(rr, newRequest(http.MethodPatch, "/api/v1/users/me", `{"full_name":"Ann Lee","avatar_url":"https://cdn.example.com/a.png"}`, testUserID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, fake.lastUpdate.FullName)
	assert.Equal(t, "Ann Lee", *fake.lastUpdate.FullName)
	require.NotNil(t, fake.lastUpdate.AvatarURL)
	assert.Nil(t, fake.lastUpdate.PhoneNumber)

	rr = httptest.NewRecorder()
	ctrl.UpdateMe(rr, newRequest(http.MethodPatch, "/api/v1/users/me", `{"avatar_url":"not a url"}`, testUserID, nil))
	apiErr := requireErrorCode(t, rr, http.StatusBadRequest, helpers.ErrCodeBadRequest)
	require.Len(t, apiErr.Fields, 1)
	assert.Equal(t, "avatar_url", apiErr.Fields[0].Field)

	rr = httptest.NewRecorder()
	ctrl.UpdateMe(rr, newRequest(http.MethodPatch, "/api/v1/users/me", `{invalid`, testUserID, nil))
	requireErrorCode(t, rr, http.StatusBadRequest, helpers.ErrCodeBadRequest)
}

func TestUserController_Search(t *testing.T) {
	fake := &fakeUserService{profiles: []*domain.Profile{{ID: otherUserID}}}
	ctrl := NewUserController(testLogger, fake)

	rr := httptest.NewRecorder()
	ctrl.Search(rr, newRequest(http.MethodGet, "/api/v1/users/search?q=an&limit=5", "", testUserID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "an", fake.lastQuery)
	assert.Equal(t, 5, fake.lastLimit)

	rr = httptest.NewRecorder()
	ctrl.Search(rr, newRequest(http.MethodGet, "/api/v1/users/search?q=an&limit=lots", "", testUserID, nil))
	requireErrorCode(t, rr, http.StatusBadRequest, helpers.ErrCodeBadRequest)

	fake.err = domain.ErrInvalidInput
	rr = httptest.NewRecorder()
	ctrl.Search(rr, newRequest(http.MethodGet, "/api/v1/users/search?q=a", "", testUserID, nil))
	requireErrorCode(t, rr, http.StatusBadRequest, helpers.ErrCodeBadRequest)
}

func TestUserController_Lookups(t *testing.T) {
	fake := &fakeUserService{profile: &domain.Profile{ID: otherUserID}}
	ctrl := NewUserController(testLogger, fake)

	rr := httptest.NewRecorder()
	ctrl.GetByID(rr, newRequest(http.MethodGet, "/api/v1/users/x", "", testUserID, map[string]string{"userID": "not-a-uuid"}))
	requireErrorCode(t, rr, http.StatusBadRequest, helpers.ErrCodeBadRequest)

	rr = httptest.NewRecorder()
	ctrl.GetByID(rr, newRequest(http.MethodGet, "/api/v1/users/"+otherUserID, "", testUserID, map[string]string{"userID": otherUserID}))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	ctrl.GetByEmail(rr, newRequest(http.MethodGet, "/api/v1/users/by-email", "", testUserID, nil))
	requireErrorCode(t, rr, http.StatusBadRequest, helpers.ErrCodeBadRequest)

	fake.err = domain.ErrNotFound
	rr = httptest.NewRecorder()
	ctrl.GetByEmail(rr, newRequest(http.MethodGet, "/api/v1/users/by-email?email=bob@example.com", "", testUserID, nil))
	requireErrorCode(t, rr, http.StatusNotFound, helpers.ErrCodeNotFound)
}
