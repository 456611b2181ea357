package api

import (
	"budget_tracker/internal/accounting" // Accounting engine
	"budget_tracker/internal/domain"     // Domain models
	"budget_tracker/internal/utils"      // Cache helpers
	"net/http"                           // HTTP status codes

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Money
)

// CategoryRequest is the body of category create and edit
type CategoryRequest struct {
	ID             string           `json:"id"`                        // Optional client-chosen UUID
	Name           string           `json:"name" binding:"required"`   // Category name
	Amount         *decimal.Decimal `json:"amount" binding:"required"` // Funds allocated to the category
	MonthlyDefault *decimal.Decimal `json:"monthly_default"`           // Informational monthly budget
}

func (r CategoryRequest) input() accounting.CategoryInput {
	return accounting.CategoryInput{
		ID:             r.ID,
		Name:           r.Name,
		Amount:         *r.Amount,
		MonthlyDefault: r.MonthlyDefault,
	}
}

// CreateCategoryHandler allocates funds of user :id into a new category
func CreateCategoryHandler(engine *accounting.Engine, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CategoryRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		category, err := engine.CreateCategory(c.Request.Context(), c.Param("id"), req.input())
		if err != nil {
			respondError(c, err, "Failed to create category")
			return
		}
		invalidateOwner(c, cache)            // Drop cached lists of the owner
		c.JSON(http.StatusCreated, category) // Return the created category
	}
}

// ListCategoriesHandler returns the categories of user :id
func ListCategoriesHandler(engine *accounting.Engine, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")
		cachedList(c, cache, userID, utils.CacheCategories, func() ([]domain.Category, error) {
			return engine.ListCategories(c.Request.Context(), userID)
		}, "Failed to fetch categories")
	}
}

// GetCategoryHandler returns category :id
func GetCategoryHandler(engine *accounting.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		category, err := engine.GetCategory(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "Failed to fetch category")
			return
		}
		c.JSON(http.StatusOK, category)
	}
}

// EditCategoryHandler updates category :id and rebalances the owner's funds
func EditCategoryHandler(engine *accounting.Engine, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CategoryRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		category, err := engine.EditCategory(c.Request.Context(), c.Param("id"), req.input())
		if err != nil {
			respondError(c, err, "Failed to update category")
			return
		}
		invalidateOwner(c, cache)
		c.JSON(http.StatusOK, category)
	}
}

// DeleteCategoryHandler removes category :id, returning its funds to the owner
func DeleteCategoryHandler(engine *accounting.Engine, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		force, err := forceFlag(c)
		if err != nil {
			badRequest(c, err)
			return
		}
		if err := engine.DeleteCategory(c.Request.Context(), c.Param("id"), force); err != nil {
			respondError(c, err, "Failed to delete category")
			return
		}
		invalidateOwner(c, cache)
		c.Status(http.StatusNoContent)
	}
}
