package handlers

import (
	"errors"
	"net/http"

	"taskify/backend/internal/services"

	"github.com/gin-gonic/gin"
)

const msgInvalidBody = "invalid request body"

// handleServiceError writes the status matching the error kind. Anything
// that is not a service error is reported as a 500 without details.
func handleServiceError(c *gin.Context, err error, fallback string) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": svcErr.Message})
}
