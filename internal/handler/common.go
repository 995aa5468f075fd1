package handler

import (
	"errors"
	"net/http"

	"procureflow/internal/service"
	"procureflow/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// actorFromContext builds the acting identity from the claims RequireRole
// stored on the context.
func actorFromContext(c *gin.Context) service.Actor {
	var actor service.Actor
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			if id, err := uuid.Parse(s); err == nil {
				actor.UserID = &id
			}
		}
	}
	if v, ok := c.Get("userRole"); ok {
		actor.Role, _ = v.(string)
	}
	if v, ok := c.Get("userName"); ok {
		actor.Name, _ = v.(string)
	}
	return actor
}

// statusFromError maps service-layer sentinel errors onto HTTP status codes
func statusFromError(err error) int {
	switch {
	case errors.Is(err, service.ErrRequestNotFound), errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrDuplicateUsername), errors.Is(err, workflow.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, workflow.ErrUnknownAction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
