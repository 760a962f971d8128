package handlers

import (
	"net/http"

	m "eventconnect_services/src/models"
)

func SearchEndpointHandler(env *Env) http.Handler {
	return withUser(func(w http.ResponseWriter, r *http.Request, current m.UserSimple) {
		switch r.Method {
		case http.MethodGet:
			searchVal := r.URL.Query().Get("lookup")
			users, err := env.friends(current).SearchUsers(r.Context(), searchVal)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusOK, users)
		default:
			methodNotAllowed(w)
		}
	})
}
