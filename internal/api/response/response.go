// Package response maps service errors onto JSON error responses
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/castle/internal/domain"
)

// Status returns the HTTP status for err
func Status(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrModelNotAllowed),
		errors.Is(err, domain.ErrPromptNotFound),
		errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error writes {"error": ...} with the status matching err
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(Status(err), gin.H{"error": err.Error()})
}

// BadRequest writes a 400 for a request that failed binding
func BadRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
