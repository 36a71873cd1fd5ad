package handler

import (
	"net/http"

	"playmatch/tags/internal/logger"
	"playmatch/tags/internal/tagging"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

var errTagNotFound = errors.New("tag not found")

// respondError maps engine errors to HTTP statuses. Storage failures are
// logged and reported as a generic 500 carrying fallback.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, tagging.ErrTypeConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, tagging.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errTagNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		logger.Logger.Errorw(fallback, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
