package handlers

import (
	"net/http"

	m "eventconnect_services/src/models"
	"eventconnect_services/src/services"
)

func FriendRequestEndpointHandler(env *Env) http.Handler {
	return withUser(func(w http.ResponseWriter, r *http.Request, current m.UserSimple) {
		friends := env.friends(current)

		switch r.Method {
		case http.MethodGet:
			GETFriendRequests(w, r, friends)
		case http.MethodPost:
			POSTFriendRequest(w, r, friends)
		case http.MethodPut:
			PUTAcceptFriendRequest(w, r, friends, current)
		case http.MethodDelete:
			DELETEDenyFriendRequest(w, r, friends, current)
		default:
			methodNotAllowed(w)
		}
	})
}

func GETFriendRequests(w http.ResponseWriter, r *http.Request, friends *services.FriendService) {
	requests, err := friends.FetchFriendRequests(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, requests)
}

func POSTFriendRequest(w http.ResponseWriter, r *http.Request, friends *services.FriendService) {
	request, err := friends.SendFriendRequest(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, request)
}

// incomingRequest rebuilds the request the current user received from the
// sender named in the query.
func incomingRequest(r *http.Request, current m.UserSimple) m.FriendRequest {
	query := r.URL.Query()
	senderID := query.Get("sender_id")
	return m.FriendRequest{
		RequestID:     m.FriendRequestID(senderID, current.UserID),
		SenderID:      senderID,
		SenderEmail:   query.Get("sender_email"),
		ReceiverID:    current.UserID,
		ReceiverEmail: current.Email,
	}
}

func PUTAcceptFriendRequest(w http.ResponseWriter, r *http.Request, friends *services.FriendService, current m.UserSimple) {
	if err := friends.AcceptRequest(r.Context(), incomingRequest(r, current)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, messageResponse{Message: "Friend request accepted"})
}

func DELETEDenyFriendRequest(w http.ResponseWriter, r *http.Request, friends *services.FriendService, current m.UserSimple) {
	if err := friends.DeclineRequest(r.Context(), incomingRequest(r, current)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, messageResponse{Message: "Friend request declined"})
}
