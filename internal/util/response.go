package util

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/macchain/backend/internal/errors"
	"github.com/macchain/backend/internal/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondWithAPIError sends a structured API error response
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("path", c.FullPath()),
			zap.Int("status", apiErr.Status),
		)
	} else if apiErr.Status >= http.StatusBadRequest {
		logger.Log.Warn("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("field", apiErr.Field),
		)
	}

	c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Field:   apiErr.Field,
		Details: apiErr.Details,
	})
}

// RespondError answers with err when it already is an APIError, a 404 for
// missing rows, and a 500 otherwise.
func RespondError(c *gin.Context, err error, resource string) {
	var apiErr *errors.APIError
	switch {
	case stderrors.As(err, &apiErr):
		RespondWithAPIError(c, apiErr)
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		RespondNotFound(c, resource)
	default:
		logger.Log.Error("Request failed", zap.String("resource", resource), zap.Error(err))
		RespondInternalError(c, "failed to process "+resource)
	}
}

// RespondUnauthorized sends a 401 Unauthorized response
func RespondUnauthorized(c *gin.Context, message ...string) {
	msg := "user not authenticated"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Unauthorized(msg))
}

// RespondNotFound sends a 404 Not Found response
func RespondNotFound(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.NotFound(resource))
}

// RespondBadRequest sends a 400 Bad Request response
func RespondBadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "bad request"
	}
	RespondWithAPIError(c, errors.BadRequest(message))
}

// RespondForbidden sends a 403 Forbidden response
func RespondForbidden(c *gin.Context, message ...string) {
	msg := "forbidden"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Forbidden(msg))
}

// RespondInternalError sends a 500 Internal Server Error response
func RespondInternalError(c *gin.Context, message string) {
	if message == "" {
		message = "internal server error"
	}
	RespondWithAPIError(c, errors.InternalError(message))
}

// RespondConflict sends a 409 Conflict response
func RespondConflict(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.Conflict(resource))
}

// RespondValidationError sends a 422 Unprocessable Entity response
func RespondValidationError(c *gin.Context, field, message string) {
	RespondWithAPIError(c, errors.ValidationError(field, message))
}
