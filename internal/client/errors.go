package client

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/text/language"

	"dompet/internal/core"
)

// ErrRedirectToLogin is returned instead of calling the network when there is
// no session, and when the server rejects the token.
var ErrRedirectToLogin = errors.New("login required")

// Kind is how a failed user action should be surfaced.
type Kind int

const (
	KindNone Kind = iota
	// KindValidation is shown next to the offending field.
	KindValidation
	// KindUnauthenticated sends the user to the login screen.
	KindUnauthenticated
	// KindTransport is a generic alert; the cause is only logged.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "transport"
	}
}

// APIError is a non-2xx response with the server's {error, field} body.
type APIError struct {
	Status  int
	Message string
	Field   string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("api %d: %s (%s)", e.Status, e.Message, e.Field)
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

// Classify maps any client error onto one of the three kinds.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrRedirectToLogin) {
		return KindUnauthenticated
	}
	if core.IsValidation(err) || errors.Is(err, core.ErrInvalidCredential) {
		return KindValidation
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return KindUnauthenticated
		case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusConflict:
			return KindValidation
		}
	}
	return KindTransport
}

// Field names the form field a validation error belongs to, if any.
func Field(err error) string {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Field
	}
	return ""
}

// UserMessage is the text shown to the user for err in the given locale.
// Transport failures get a generic message; field errors keep the server's
// wording.
func UserMessage(tag language.Tag, err error) string {
	switch Classify(err) {
	case KindNone:
		return ""
	case KindValidation:
		if errors.Is(err, core.ErrInvalidCredential) {
			return localize(tag, msgInvalidCredential)
		}
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			return ve.Error()
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr.Message
		}
		return err.Error()
	case KindUnauthenticated:
		return localize(tag, msgLoginAgain)
	default:
		return localize(tag, msgGeneric)
	}
}
