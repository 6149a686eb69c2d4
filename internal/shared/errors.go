package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrNotAuthenticated indicates the request carries no usable session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// GenericErrorMessage is shown when an error has no user-facing text.
const GenericErrorMessage = "Something went wrong. Please try again."

// UserFacing is implemented by errors that carry text safe to show users.
type UserFacing interface {
	UserMessage() string
}

// UserSafeMessage returns the message an inline alert should display for err.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var uf UserFacing
	if errors.As(err, &uf) {
		if msg := uf.UserMessage(); msg != "" {
			return msg
		}
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found."
	case errors.Is(err, ErrNotAuthenticated):
		return "Your session has expired. Please sign in again."
	}
	return GenericErrorMessage
}
