package api

import (
	"budget_tracker/internal/domain" // Error taxonomy
	"errors"                         // Error inspection
	"net/http"                       // HTTP status codes
	"strconv"                        // Query flag parsing

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
)

// statusFor maps an engine error to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrHasDependents):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}. Client errors carry the error text,
// server errors only msg; the details go to the log.
func respondError(c *gin.Context, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method, // HTTP method
			"path":   c.FullPath(),     // Route pattern
			"error":  err.Error(),      // Error message
		}).Error(msg)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// badRequest answers a request that could not be bound
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
}

// forceFlag reads the ?force= query flag
func forceFlag(c *gin.Context) (bool, error) {
	return strconv.ParseBool(c.DefaultQuery("force", "false"))
}
