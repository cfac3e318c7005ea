package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"plantprofit/internal/domain"
	"plantprofit/internal/logging"
)

func badRequest(err error) error {
	return fmt.Errorf("%v: %w", err, domain.ErrInvalidInput)
}

// statusFor maps an error to the HTTP status it is reported with.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidModel):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrServiceUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Errorf("http", "%s %s rid=%s: %v", c.Request.Method, c.Request.URL.Path, c.GetString(requestIDKey), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
