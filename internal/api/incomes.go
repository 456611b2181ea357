package api

import (
	"budget_tracker/internal/accounting" // Accounting engine
	"budget_tracker/internal/domain"     // Domain models
	"budget_tracker/internal/utils"      // Cache helpers
	"net/http"                           // HTTP status codes

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Money
)

// IncomeRequest is the body of income add and edit
type IncomeRequest struct {
	ID      string           `json:"id"`                        // Optional client-chosen UUID
	Amount  *decimal.Decimal `json:"amount" binding:"required"` // Amount received
	Date    string           `json:"date" binding:"required"`   // YYYY-MM-DD
	Summary *string          `json:"summary"`                   // Optional note
}

// bindIncome binds and converts the request, answering 400 on failure
func bindIncome(c *gin.Context) (accounting.IncomeInput, bool) {
	var req IncomeRequest // Bind JSON request to struct
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return accounting.IncomeInput{}, false
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		respondError(c, err, "Invalid income")
		return accounting.IncomeInput{}, false
	}
	return accounting.IncomeInput{ID: req.ID, Amount: *req.Amount, Date: date, Summary: req.Summary}, true
}

// AddIncomeHandler records an income for user :id
func AddIncomeHandler(engine *accounting.Engine, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindIncome(c)
		if !ok {
			return
		}
		income, err := engine.AddIncome(c.Request.Context(), c.Param("id"), in)
		if err != nil {
			respondError(c, err, "Failed to add income")
			return
		}
		invalidateOwner(c, cache)
		c.JSON(http.StatusCreated, income)
	}
}

// ListIncomesHandler returns the incomes of user :id
func ListIncomesHandler(engine *accounting.Engine, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")
		cachedList(c, cache, userID, utils.CacheIncomes, func() ([]domain.Income, error) {
			return engine.ListIncomes(c.Request.Context(), userID)
		}, "Failed to fetch incomes")
	}
}

// GetIncomeHandler returns income :id
func GetIncomeHandler(engine *accounting.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		income, err := engine.GetIncome(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "Failed to fetch income")
			return
		}
		c.JSON(http.StatusOK, income)
	}
}

// EditIncomeHandler updates income :id
func EditIncomeHandler(engine *accounting.Engine, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindIncome(c)
		if !ok {
			return
		}
		income, err := engine.EditIncome(c.Request.Context(), c.Param("id"), in)
		if err != nil {
			respondError(c, err, "Failed to update income")
			return
		}
		invalidateOwner(c, cache)
		c.JSON(http.StatusOK, income)
	}
}

// DeleteIncomeHandler removes income :id and takes its amount back
func DeleteIncomeHandler(engine *accounting.Engine, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := engine.DeleteIncome(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err, "Failed to delete income")
			return
		}
		invalidateOwner(c, cache)
		c.Status(http.StatusNoContent)
	}
}
