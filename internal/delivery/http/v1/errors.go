package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/tracker/internal/services"
)

var (
	errInvalidRequestBody = errors.New("invalid request body")
	errMissingOwner       = errors.New("missing owner")
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Field names the offending input of a validation error.
	Field string `json:"field,omitempty"`
	// Dependents is the number of records blocking a delete.
	Dependents int `json:"dependents,omitempty"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	body := gin.H{"error": err.Message}
	if err.Field != "" {
		body["field"] = err.Field
	}
	if err.Dependents > 0 {
		body["dependents"] = err.Dependents
	}
	c.AbortWithStatusJSON(err.Code, body)
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newUnauthorizedError(message string) apiError {
	return newAPIError(http.StatusUnauthorized, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

func newConflictError(message string, dependents int) apiError {
	err := newAPIError(http.StatusConflict, message)
	err.Dependents = dependents
	return err
}

// abortWithServiceError maps a service error onto its HTTP status. Internal
// errors are logged in full and answered with the status text only.
func (h *handlerImpl) abortWithServiceError(c *gin.Context, err error, msg string) {
	var (
		vErr *services.ValidationError
		cErr *services.ConflictError
	)
	switch {
	case errors.As(err, &vErr):
		apiErr := newBadRequestError(vErr.Error())
		apiErr.Field = vErr.Field
		abort(c, apiErr)
	case errors.Is(err, services.ErrNotFound):
		abort(c, newNotFoundError(err.Error()))
	case errors.As(err, &cErr):
		abort(c, newConflictError(cErr.Reason, cErr.Dependents))
	default:
		h.logger.Error().
			Err(err).
			Str("path", c.FullPath()).
			Msg(msg)
		abort(c, newStatusTextError(http.StatusInternalServerError))
	}
}
