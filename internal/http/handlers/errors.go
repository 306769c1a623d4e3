// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and mirror HTTP status semantics so clients
// can branch on them without parsing messages. Every error response carries
// one of them in the ErrorResponse envelope:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "forbidden",
//	  "message": "child belongs to another account"
//	}
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-parental-backend/internal/auth"
	"github.com/tbourn/go-parental-backend/internal/repo"
	"github.com/tbourn/go-parental-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeUnavailable      = "service_unavailable"
)

// failErr translates a service error into the error envelope. Messages of
// client errors are passed through; server errors are logged and hidden.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrAuthenticationFailed),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication failed")
	case errors.Is(err, services.ErrForbidden), errors.Is(err, auth.ErrNotOwner):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "child belongs to another account")
	case errors.Is(err, services.ErrChildNotFound), errors.Is(err, auth.ErrChildNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "child not found")
	case errors.Is(err, services.ErrRuleNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "rule not found")
	case errors.Is(err, services.ErrCategoryNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "category not found")
	case errors.Is(err, repo.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "not found")
	case errors.Is(err, repo.ErrDuplicate):
		fail(c, http.StatusConflict, ErrCodeConflict, "already exists")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		LoggerFrom(c).Warn().Err(err).Msg("request aborted")
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "request timed out")
	default:
		LoggerFrom(c).Error().Err(err).Msg("unhandled service error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
