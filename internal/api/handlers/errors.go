package handlers

import (
	"net/http"

	"example.com/stockflow/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// respondError maps a service error onto an HTTP status and writes the JSON
// error body
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, services.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotInstalled):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, services.ErrPersistenceFailure):
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
