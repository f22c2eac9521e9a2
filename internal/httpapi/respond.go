package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pollbooth/internal/service"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorView{Error: message})
}

// fail maps service errors onto status codes. Unexpected errors become 500s
// and are logged; their text never reaches the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, forbiddenMessage(err))
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Authentication required.")
	case errors.As(err, &verr):
		writeJSON(w, http.StatusOK, errorView{Error: "Please correct the errors below.", Errors: verr.Problems})
	default:
		s.internalError(w, r, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed",
		"event", "http_request_failed",
		"module", "httpapi",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err.Error(),
	)
	writeError(w, http.StatusInternalServerError, "Internal server error.")
}

func forbiddenMessage(err error) string {
	if errors.Is(err, service.ErrPollInactive) {
		return "This poll is not active."
	}
	return "You don't have permission to modify this poll."
}

// pollID parses the {id} URL parameter. Malformed ids resolve to nothing.
func pollID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chiID(r), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func chiID(r *http.Request) string {
	return chi.URLParam(r, "id")
}
