package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"eventconnect_services/src/logging"
	"eventconnect_services/src/services"
)

func GETHandlerRoot(w http.ResponseWriter, r *http.Request) {
	welcomeString := "Welcome to EventConnect Services.\nRequest one of the following routes:\n /session\n /users\n /events\n /friends\n /friend-requests\n /search/users\n /ws\n"

	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(welcomeString))
}

type errorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes payload indented, the way every endpoint responds.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	responseBytes, err := json.MarshalIndent(payload, "", "\t")
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(responseBytes)
}

func WriteErrorToWriter(w http.ResponseWriter, status int, errorString string) {
	WriteJSON(w, status, errorResponse{Error: errorString})
}

// StatusFor maps an orchestrator error to its HTTP status.
func StatusFor(err error) int {
	var (
		vErr       *services.ValidationError
		friendErr  *services.AlreadyFriendError
		missErr    *services.UserNotFoundError
		partialErr *services.PartialWriteError
		remoteErr  *services.RemoteError
	)
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound), errors.As(err, &missErr):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotHost):
		return http.StatusForbidden
	case errors.Is(err, services.ErrDuplicateRequest),
		errors.Is(err, services.ErrUserExists),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrRequestNotPending),
		errors.As(err, &friendErr):
		return http.StatusConflict
	case errors.As(err, &partialErr), errors.As(err, &remoteErr):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return 499
	}
	return http.StatusInternalServerError
}

// writeServiceError logs err with its kind and writes the user-facing message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	logger := logging.Resolve(r.Context(), nil)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "status", status, "kind", services.ErrorKind(err), "error", err)
	} else {
		logger.InfoContext(r.Context(), "request rejected", "status", status, "kind", services.ErrorKind(err), "error", err)
	}
	WriteErrorToWriter(w, status, services.UserMessage(err))
}

func methodNotAllowed(w http.ResponseWriter) {
	WriteErrorToWriter(w, http.StatusMethodNotAllowed, "Method not allowed")
}
