package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes of the JSON error body
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

// APIError is rendered as {"error": {"message", "code", "statusCode"}}
type APIError struct {
	Message    string `json:"message"`
	Code       string `json:"code"`
	StatusCode int    `json:"statusCode"`
}

func (e *APIError) Error() string {
	return e.Message
}

func BadRequest(message string) *APIError {
	return &APIError{Message: message, Code: CodeBadRequest, StatusCode: http.StatusBadRequest}
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "Unauthorized"
	}
	return &APIError{Message: message, Code: CodeUnauthorized, StatusCode: http.StatusUnauthorized}
}

func NotFound(message string) *APIError {
	if message == "" {
		message = "Not found"
	}
	return &APIError{Message: message, Code: CodeNotFound, StatusCode: http.StatusNotFound}
}

func Conflict(message string) *APIError {
	return &APIError{Message: message, Code: CodeConflict, StatusCode: http.StatusConflict}
}

func Internal(message string) *APIError {
	if message == "" {
		message = "Internal server error"
	}
	return &APIError{Message: message, Code: CodeInternal, StatusCode: http.StatusInternalServerError}
}

// abortWithError writes the error body and stops the handler chain.
// Errors that are not an *APIError are logged by the request logger and hidden.
func abortWithError(c *gin.Context, err error) {
	apiErr, ok := err.(*APIError)
	if !ok {
		_ = c.Error(err)
		apiErr = Internal("")
	}
	c.AbortWithStatusJSON(apiErr.StatusCode, gin.H{"error": apiErr})
}
