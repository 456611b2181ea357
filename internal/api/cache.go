package api

import (
	"budget_tracker/internal/middleware" // Context keys
	"budget_tracker/internal/utils"      // Cache helpers
	"net/http"                           // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
)

// cachedList serves a user-scoped list from the cache, loading and storing
// it on a miss. Cache failures fall through to the loader.
func cachedList[T any](c *gin.Context, cache *utils.Cache, userID, kind string, load func() ([]T, error), failMsg string) {
	ctx := c.Request.Context()
	key, keyErr := cache.ListKey(ctx, userID, kind) // Resolve the generation before loading
	if keyErr != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "kind": kind, "error": keyErr.Error()}).Warn("Cache generation read failed")
	} else {
		var cached []T
		found, err := cache.Get(ctx, key, &cached) // Try to get cached response
		if err != nil {
			logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Cache read failed")
		}
		if err == nil && found {
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, cached)
			return
		}
	}
	items, err := load()
	if err != nil {
		respondError(c, err, failMsg)
		return
	}
	if items == nil {
		items = []T{} // Encode empty lists as []
	}
	if keyErr == nil {
		if err := cache.Set(ctx, key, items); err != nil {
			logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Cache write failed")
		}
	}
	c.Header("X-Cache", "MISS")
	c.JSON(http.StatusOK, items)
}

// invalidateOwner drops the cached lists of the resource owner after a mutation
func invalidateOwner(c *gin.Context, cache *utils.Cache) {
	cache.InvalidateUser(c.Request.Context(), middleware.OwnerID(c))
}
