package api

import "github.com/gin-gonic/gin"

// APIError is the standardized error response format.
type APIError struct {
	Code    string      `json:"code"`              // Application-specific error code
	Message string      `json:"message"`           // Human-readable message
	Details interface{} `json:"details,omitempty"` // Optional additional detail
}

// Application-specific error codes.
const (
	ErrorCodeInternalServerError = "INTERNAL_SERVER_ERROR"
	ErrorCodeValidation          = "VALIDATION_ERROR"
	ErrorCodeNotFound            = "NOT_FOUND"
	ErrorCodeSourceNotFound      = "SOURCE_NOT_FOUND"
	ErrorCodeUpstreamFetch       = "UPSTREAM_FETCH_ERROR"
	ErrorCodeDatasetSchema       = "DATASET_SCHEMA_ERROR"
)

// RespondWithError writes the standardized error payload.
func RespondWithError(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, APIError{Code: code, Message: message, Details: details})
}
