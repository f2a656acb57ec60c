package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/splax/teamboard/internal/domain"
)

const maxBodyBytes = 1 << 20

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message with its stable code.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

// writeServiceError maps the engine error taxonomy onto HTTP statuses.
// Absent and invisible entities produce the same body.
func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	code := domain.ErrorCode(err)
	switch code {
	case "not_found":
		writeError(w, http.StatusNotFound, code, "not found")
	case "forbidden":
		writeError(w, http.StatusForbidden, code, err.Error())
	case "invalid_input", "invalid_status":
		writeError(w, http.StatusBadRequest, code, err.Error())
	case "invalid_cursor":
		writeError(w, http.StatusConflict, code, err.Error())
	default:
		r.logger.Error("request failed", "path", req.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, code, "internal error")
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: body too large", domain.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid JSON body", domain.ErrInvalidInput)
	}
	return nil
}
