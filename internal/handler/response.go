package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"fapiao/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates pipeline errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	var inputErr *domain.InputError
	var upstreamErr *domain.UpstreamError
	var timeoutErr *domain.TimeoutError

	switch {
	case errors.Is(err, domain.ErrMissingToken):
		return http.StatusBadRequest, "MISSING_TOKEN", "API token is required"
	case errors.Is(err, domain.ErrMissingFile):
		return http.StatusBadRequest, "MISSING_FILE", "at least one invoice file is required"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: pdf, jpg, png"
	case errors.Is(err, domain.ErrTemplateUnavailable):
		return http.StatusBadRequest, "TEMPLATE_UNAVAILABLE", "spreadsheet reader not configured"
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, "INVALID_INPUT", inputErr.Error()
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", timeoutErr.Error()
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway, "UPSTREAM_ERROR", upstreamErr.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a pipeline error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] %s: %v", requestID, code, err)
	}
	RespondError(c, status, code, msg)
}
