package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"conduit/internal/delivery/http/controllers"
	h "conduit/internal/delivery/http/helpers"
	"conduit/internal/delivery/http/middleware"
	"conduit/internal/domain"
	"conduit/internal/metrics"
)

const apiPrefix = "/api/v1"

// Controllers groups the HTTP controllers mounted by NewRouter.
type Controllers struct {
	Auth          *controllers.AuthController
	Users         *controllers.UserController
	Events        *controllers.EventController
	Messages      *controllers.MessageController
	Location      *controllers.LocationController
	Video         *controllers.VideoController
	Agenda        *controllers.AgendaController
	Invitations   *controllers.InvitationController
	Pins          *controllers.PinController
	Notifications *controllers.NotificationController
}

// RouterOptions carries the cross-cutting dependencies of the router.
type RouterOptions struct {
	Logger         *slog.Logger
	Verifier       domain.TokenVerifier
	AuthLimiter    *middleware.IPRateLimiter
	AllowedOrigins []string
	// HealthCheck reports whether the service can serve traffic, typically a DB ping.
	HealthCheck func(ctx context.Context) error
}

// NewRouter initializes the HTTP router with all application routes and wraps it
// with metrics, CORS and request logging.
func NewRouter(c Controllers, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(opts.Verifier)
	handle := func(pattern string, fn http.HandlerFunc) {
		method, path := splitPattern(pattern)
		mux.HandleFunc(method+" "+apiPrefix+path, auth(fn))
	}
	public := func(pattern string, fn http.HandlerFunc) {
		method, path := splitPattern(pattern)
		if opts.AuthLimiter != nil {
			fn = opts.AuthLimiter.Middleware(fn)
		}
		mux.HandleFunc(method+" "+apiPrefix+path, fn)
	}

	// Auth
	public("POST /auth/register", c.Auth.Register)
	public("POST /auth/login", c.Auth.Login)
	handle("POST /auth/refresh", c.Auth.Refresh)

	// Users
	handle("GET /users/me", c.Users.GetMe)
	handle("PATCH /users/me", c.Users.UpdateMe)
	handle("GET /users/search", c.Users.Search)
	handle("GET /users/by-email", c.Users.GetByEmail)
	handle("GET /users/{userID}", c.Users.GetByID)

	// Events
	handle("POST /events", c.Events.CreateEvent)
	handle("GET /events", c.Events.ListEvents)
	handle("GET /events/me", c.Events.ListMyEvents)
	handle("GET /events/{eventID}", c.Events.GetEvent)
	handle("PATCH /events/{eventID}", c.Events.UpdateEvent)
	handle("DELETE /events/{eventID}", c.Events.DeleteEvent)
	handle("POST /events/{eventID}/join", c.Events.JoinEvent)
	handle("POST /events/{eventID}/leave", c.Events.LeaveEvent)
	handle("GET /events/{eventID}/participants", c.Events.ListParticipants)

	// Messages
	handle("POST /messages", c.Messages.SendMessage)
	handle("GET /messages/event/{eventID}", c.Messages.ListEventMessages)
	handle("GET /messages/direct/{userID}", c.Messages.ListDirectMessages)
	handle("PATCH /messages/{messageID}/read", c.Messages.MarkRead)
	handle("GET /messages/ws", c.Messages.ServeWS)

	// Location
	handle("POST /location/update", c.Location.UpdateLocation)
	handle("PATCH /location/sharing", c.Location.SetSharing)
	handle("GET /location/event/{eventID}", c.Location.ListEventLocations)
	handle("GET /location/user/{userID}", c.Location.GetUserLocation)

	// Video
	handle("POST /video/calls", c.Video.StartCall)
	handle("GET /video/calls/active", c.Video.ListActiveCalls)
	handle("GET /video/calls/{callID}", c.Video.GetCall)
	handle("POST /video/calls/{callID}/join", c.Video.JoinCall)
	handle("POST /video/calls/{callID}/leave", c.Video.LeaveCall)
	handle("POST /video/calls/{callID}/end", c.Video.EndCall)
	// event/{eventID} and {callID}/participants overlap as mux patterns.
	handle("GET /video/calls/{callID}/{sub}", c.Video.CallSubresource)
	handle("GET /video/ice-servers", c.Video.ICEServers)
	handle("GET /video/ws/{callID}", c.Video.ServeWS)

	// Agenda
	handle("POST /agenda", c.Agenda.CreateItem)
	handle("GET /agenda/event/{eventID}", c.Agenda.ListEventItems)
	handle("GET /agenda/calendar", c.Agenda.Calendar)
	handle("GET /agenda/{itemID}", c.Agenda.GetItem)
	handle("PATCH /agenda/{itemID}", c.Agenda.UpdateItem)
	handle("DELETE /agenda/{itemID}", c.Agenda.DeleteItem)

	// Invitations
	handle("POST /invitations", c.Invitations.Invite)
	handle("GET /invitations/event/{eventID}", c.Invitations.ListEventInvitations)
	handle("GET /invitations/mine", c.Invitations.ListMyInvitations)
	handle("POST /invitations/{invitationID}/respond", c.Invitations.Respond)

	// Pins
	handle("POST /pins", c.Pins.CreatePin)
	handle("GET /pins/event/{eventID}", c.Pins.ListEventPins)
	handle("GET /pins/event/{eventID}/bounds", c.Pins.ListPinsInBounds)
	handle("GET /pins/event/{eventID}/search", c.Pins.SearchPins)
	handle("GET /pins/{pinID}", c.Pins.GetPin)
	handle("PATCH /pins/{pinID}", c.Pins.UpdatePin)
	handle("DELETE /pins/{pinID}", c.Pins.DeletePin)

	// Notifications
	handle("POST /notifications/register-token", c.Notifications.RegisterToken)
	handle("DELETE /notifications/register-token", c.Notifications.UnregisterToken)
	handle("POST /notifications/unregister-token", c.Notifications.UnregisterToken)
	handle("GET /notifications/test", c.Notifications.SendTest)

	// Operational
	mux.HandleFunc("GET /healthz", healthz(opts.HealthCheck))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	var handler http.Handler = mux
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.CORS(opts.AllowedOrigins, handler)
	handler = middleware.LoggingMiddleware(opts.Logger, handler)
	return handler
}

func splitPattern(pattern string) (string, string) {
	method, path, _ := strings.Cut(pattern, " ")
	return method, path
}

func healthz(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				h.WriteJSONError(w, http.StatusServiceUnavailable, h.ErrCodeInternalError, "unhealthy")
				return
			}
		}
		h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
