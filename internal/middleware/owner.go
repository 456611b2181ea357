package middleware

import (
	"budget_tracker/internal/domain" // Error taxonomy
	"errors"                         // Error inspection
	"net/http"                       // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
)

// OwnerIDKey is the gin context key holding the id of the user owning the
// addressed resource
const OwnerIDKey = "ownerID"

// OwnerResolver returns the id of the user owning the resource addressed by
// the request
type OwnerResolver func(c *gin.Context) (string, error)

// OwnerMiddleware resolves the resource owner and stores it in the context.
// When a JWT user is present it must be the owner; without authentication
// (no userID in context) every owner is accepted.
func OwnerMiddleware(resolve OwnerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, err := resolve(c) // Look up the owner of the resource
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			logrus.WithFields(logrus.Fields{
				"path":  c.FullPath(),
				"error": err.Error(),
			}).Error("Failed to resolve resource owner")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve resource owner"})
			return
		}
		// Compare against the authenticated user, if any
		if userID, exists := c.Get(UserIDKey); exists && userID != ownerID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access to this resource is not allowed"})
			return
		}
		c.Set(OwnerIDKey, ownerID) // Store ownerID in context
		c.Next()                   // Proceed to the next handler
	}
}

// OwnerID returns the owner stored by OwnerMiddleware, or "" if none
func OwnerID(c *gin.Context) string {
	return c.GetString(OwnerIDKey)
}
