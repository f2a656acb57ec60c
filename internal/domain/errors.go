package domain

import "errors"

// Error taxonomy surfaced by the engine. NotFound deliberately covers both
// absent entities and entities the caller cannot see.
var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidCursor = errors.New("invalid cursor")
)

// ErrorCode returns the stable wire code for an engine error, or "internal"
// for anything outside the taxonomy.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInvalidCursor):
		return "invalid_cursor"
	}
	return "internal"
}
