package handlers

import (
	"encoding/json"
	"net/http"

	m "eventconnect_services/src/models"

	"github.com/gorilla/mux"
)

type createUserRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// SessionEndpointHandler is the authentication bridge: the token was verified
// by the middleware, the login is recorded and the stored profile returned.
func SessionEndpointHandler(env *Env) http.Handler {
	return withUser(func(w http.ResponseWriter, r *http.Request, current m.UserSimple) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		user, err := env.users().RecordLogin(r.Context(), m.User{
			UID:         current.UserID,
			DisplayName: current.Name,
			Email:       current.Email,
			PhotoURL:    current.PhotoURL,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, user)
	})
}

func UsersEndpointHandler(env *Env) http.Handler {
	return withUser(func(w http.ResponseWriter, r *http.Request, current m.UserSimple) {
		switch r.Method {
		case http.MethodGet:
			users, err := env.friends(current).FetchAllUsers(r.Context())
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusOK, users)
		case http.MethodPost:
			var request createUserRequest
			if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
				WriteErrorToWriter(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			user, err := env.users().CreateUser(r.Context(), request.DisplayName, request.Email)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusCreated, user)
		default:
			methodNotAllowed(w)
		}
	})
}

func CurrentUserEndpointHandler(env *Env) http.Handler {
	return withUser(func(w http.ResponseWriter, r *http.Request, current m.UserSimple) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		user, err := env.users().GetUser(r.Context(), current.UserID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, user)
	})
}

// UserFriendsEndpointHandler resolves a user's friends to participant
// summaries for the invite picker.
func UserFriendsEndpointHandler(env *Env) http.Handler {
	return withUser(func(w http.ResponseWriter, r *http.Request, current m.UserSimple) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		friends, err := env.events(current).LoadUserFriends(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, friends)
	})
}
