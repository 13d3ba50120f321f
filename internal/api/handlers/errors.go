package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
)

// Error codes as constants for consistent error responses across handlers
const (
	// Validation errors
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeValidationError = "VALIDATION_ERROR"
	ErrCodeInvalidAddress  = "INVALID_ADDRESS"

	// Resource errors
	ErrCodeWalletNotFound = "WALLET_NOT_FOUND"
	ErrCodeWalletExists   = "WALLET_EXISTS"
	ErrCodeConflict       = "CONFLICT"

	// Operation errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeUpdateFailed       = "UPDATE_FAILED"
	ErrCodeOperationFailed    = "OPERATION_FAILED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeReportInProgress   = "REPORT_IN_PROGRESS"
)

// Error messages as constants for consistency
const (
	MsgInvalidRequest     = "Invalid request payload"
	MsgInternalError      = "Internal server error"
	MsgServiceUnavailable = "Service temporarily unavailable"
)

// ErrorResponseBuilder provides a fluent interface for building error responses
type ErrorResponseBuilder struct {
	status  int
	code    string
	message string
	details map[string]interface{}
}

// NewError creates a new ErrorResponseBuilder
func NewError(status int, code string) *ErrorResponseBuilder {
	return &ErrorResponseBuilder{
		status: status,
		code:   code,
	}
}

// Message sets the error message
func (e *ErrorResponseBuilder) Message(msg string) *ErrorResponseBuilder {
	e.message = msg
	return e
}

// Detail adds a single detail to the error response
func (e *ErrorResponseBuilder) Detail(key string, value interface{}) *ErrorResponseBuilder {
	if e.details == nil {
		e.details = make(map[string]interface{})
	}
	e.details[key] = value
	return e
}

// Send sends the error response
func (e *ErrorResponseBuilder) Send(c *gin.Context) {
	c.JSON(e.status, entities.ErrorResponse{
		Code:    e.code,
		Message: e.message,
		Details: e.details,
	})
}

// SendBadRequest sends a 400 Bad Request error
func SendBadRequest(c *gin.Context, code, message string, details ...map[string]interface{}) {
	var det map[string]interface{}
	if len(details) > 0 {
		det = details[0]
	}
	c.JSON(http.StatusBadRequest, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: det,
	})
}

// SendNotFound sends a 404 Not Found error
func SendNotFound(c *gin.Context, code, message string) {
	c.JSON(http.StatusNotFound, entities.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// SendConflict sends a 409 Conflict error
func SendConflict(c *gin.Context, code, message string) {
	c.JSON(http.StatusConflict, entities.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// SendInternalError sends a 500 error carrying the request ID
func SendInternalError(c *gin.Context, code, message string) {
	NewError(http.StatusInternalServerError, code).
		Message(message).
		Detail("request_id", getRequestID(c)).
		Send(c)
}

// SendDomainError maps a domain error onto an HTTP response
func SendDomainError(c *gin.Context, err error, notFoundCode string) {
	switch {
	case apperrors.IsNotFound(err):
		SendNotFound(c, notFoundCode, err.Error())
	case apperrors.IsAlreadyExists(err):
		SendConflict(c, ErrCodeWalletExists, err.Error())
	case apperrors.IsInvalidInput(err):
		SendBadRequest(c, ErrCodeValidationError, err.Error())
	default:
		_ = c.Error(err)
		SendInternalError(c, ErrCodeOperationFailed, MsgInternalError)
	}
}
