package handlers

import (
	"context"
	"log/slog"
	"net/http"

	m "eventconnect_services/src/models"
	"eventconnect_services/src/services"

	"github.com/gorilla/mux"
)

// TokenRegistry stores push registrations. *notify.PGTokenStore satisfies it.
type TokenRegistry interface {
	Register(ctx context.Context, token m.DeviceToken) error
}

// Env is everything the endpoints need. Tokens and Bus may be nil when push
// or the notification bus is not configured.
type Env struct {
	Deps     services.Deps
	Verifier TokenVerifier
	Tokens   TokenRegistry
	Bus      Bus
	Logger   *slog.Logger
}

func (env *Env) events(current m.UserSimple) *services.EventService {
	return services.NewEventService(env.Deps, current)
}

func (env *Env) friends(current m.UserSimple) *services.FriendService {
	return services.NewFriendService(env.Deps, current)
}

func (env *Env) users() *services.UserService {
	return services.NewUserService(env.Deps)
}

// withUser resolves the authenticated user before calling next.
func withUser(next func(w http.ResponseWriter, r *http.Request, current m.UserSimple)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current, ok := CurrentUser(r)
		if !ok {
			WriteErrorToWriter(w, http.StatusUnauthorized, "Failed to get validated claims")
			return
		}
		next(w, r, current)
	})
}

// NewRouter wires every endpoint. Everything except the root requires a
// Firebase ID token.
func NewRouter(env *Env) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", GETHandlerRoot).Methods(http.MethodGet)

	protected := router.NewRoute().Subrouter()
	protected.Use(RequireFirebaseUser(env.Verifier))

	protected.Handle("/session", SessionEndpointHandler(env))
	protected.Handle("/users", UsersEndpointHandler(env))
	protected.Handle("/users/me", CurrentUserEndpointHandler(env))
	protected.Handle("/users/{id}/friends", UserFriendsEndpointHandler(env))
	protected.Handle("/search/users", SearchEndpointHandler(env))
	protected.Handle("/events", EventsEndpointHandler(env))
	protected.Handle("/events/{id}", EventEndpointHandler(env))
	protected.Handle("/events/{id}/participants", ParticipantsEndpointHandler(env))
	protected.Handle("/events/{id}/photos", PhotosEndpointHandler(env))
	protected.Handle("/friends", FriendEndpointHandler(env))
	protected.Handle("/friends/check", FriendshipCheckEndpointHandler(env))
	protected.Handle("/friend-requests", FriendRequestEndpointHandler(env))
	protected.Handle("/fcm", FirebaseHandlers(env))
	protected.Handle("/ws", WebSocketEndpointHandler(env))
	protected.Handle("/ws/event", WebSocketEndpointHandler(env))

	router.Use(RequestLogger(env.Logger))
	return router
}
