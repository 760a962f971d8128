package handlers

import (
	"net/http"

	m "eventconnect_services/src/models"
)

func FirebaseHandlers(env *Env) http.Handler {
	return withUser(func(w http.ResponseWriter, r *http.Request, current m.UserSimple) {
		switch r.Method {
		case http.MethodPut:
			PUTFirebaseToken(w, r, env, current.UserID)
		default:
			methodNotAllowed(w)
		}
	})
}

// PUTFirebaseToken registers the calling device for push notifications.
func PUTFirebaseToken(w http.ResponseWriter, r *http.Request, env *Env, uid string) {
	if env.Tokens == nil {
		WriteErrorToWriter(w, http.StatusServiceUnavailable, "Push notifications are not enabled")
		return
	}
	token := m.DeviceToken{
		UserID:   uid,
		Token:    r.URL.Query().Get("token"),
		DeviceID: r.URL.Query().Get("device_id"),
	}
	if token.Token == "" || token.DeviceID == "" {
		WriteErrorToWriter(w, http.StatusBadRequest, "Token and device id cannot be empty")
		return
	}

	if err := env.Tokens.Register(r.Context(), token); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, messageResponse{Message: "updated token - success"})
}
