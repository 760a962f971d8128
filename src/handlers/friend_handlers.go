package handlers

import (
	"encoding/json"
	"net/http"

	m "eventconnect_services/src/models"
	"eventconnect_services/src/services"
)

type addFriendRequest struct {
	Email  string  `json:"email"`
	UserID *string `json:"user_id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func FriendEndpointHandler(env *Env) http.Handler {
	return withUser(func(w http.ResponseWriter, r *http.Request, current m.UserSimple) {
		friends := env.friends(current)

		switch r.Method {
		case http.MethodGet:
			GETFriends(w, r, friends)
		case http.MethodPost:
			POSTFriend(w, r, friends)
		case http.MethodDelete:
			DELETEFriend(w, r, friends)
		default:
			methodNotAllowed(w)
		}
	})
}

func GETFriends(w http.ResponseWriter, r *http.Request, friends *services.FriendService) {
	list, err := friends.FetchFriends(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, friends.FilterFriends(list, r.URL.Query().Get("lookup")))
}

// POSTFriend adds a one-sided edge when the body names the user id, and
// otherwise goes through a friend request by email.
func POSTFriend(w http.ResponseWriter, r *http.Request, friends *services.FriendService) {
	var request addFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		WriteErrorToWriter(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if request.UserID != nil {
		friend, err := friends.AddFriend(r.Context(), *request.UserID, request.Email)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, friend)
		return
	}

	sent, err := friends.AddFriendByEmail(r.Context(), request.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, sent)
}

func DELETEFriend(w http.ResponseWriter, r *http.Request, friends *services.FriendService) {
	message, err := friends.DeleteFriend(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, messageResponse{Message: message})
}

// FriendshipCheckEndpointHandler reports which sides of the friendship
// between the current user and user_id exist.
func FriendshipCheckEndpointHandler(env *Env) http.Handler {
	return withUser(func(w http.ResponseWriter, r *http.Request, current m.UserSimple) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		state, err := env.friends(current).CheckFriendship(r.Context(), current.UserID, r.URL.Query().Get("user_id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, state)
	})
}
