package api

import (
	"budget_tracker/internal/accounting" // Accounting engine
	"budget_tracker/internal/domain"     // Domain models
	"budget_tracker/internal/utils"      // Cache helpers
	"net/http"                           // HTTP status codes

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Money
)

// ExpenseRequest is the body of expense add and edit
type ExpenseRequest struct {
	ID         string           `json:"id"`                        // Optional client-chosen UUID
	CategoryID string           `json:"category_id"`               // Edit only: move to this category
	Amount     *decimal.Decimal `json:"amount" binding:"required"` // Amount spent
	Date       string           `json:"date" binding:"required"`   // YYYY-MM-DD
	Summary    *string          `json:"summary"`                   // Optional note
}

func (r ExpenseRequest) input() (accounting.ExpenseInput, error) {
	date, err := domain.ParseDate(r.Date)
	if err != nil {
		return accounting.ExpenseInput{}, err
	}
	return accounting.ExpenseInput{
		ID:         r.ID,
		CategoryID: r.CategoryID,
		Amount:     *r.Amount,
		Date:       date,
		Summary:    r.Summary,
	}, nil
}

// bindExpense binds and converts the request, answering 400 on failure
func bindExpense(c *gin.Context) (accounting.ExpenseInput, bool) {
	var req ExpenseRequest // Bind JSON request to struct
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return accounting.ExpenseInput{}, false
	}
	in, err := req.input()
	if err != nil {
		respondError(c, err, "Invalid expense")
		return accounting.ExpenseInput{}, false
	}
	return in, true
}

// AddExpenseHandler records an expense against category :id
func AddExpenseHandler(engine *accounting.Engine, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindExpense(c)
		if !ok {
			return
		}
		expense, err := engine.AddExpense(c.Request.Context(), c.Param("id"), in)
		if err != nil {
			respondError(c, err, "Failed to add expense")
			return
		}
		invalidateOwner(c, cache)
		c.JSON(http.StatusCreated, expense)
	}
}

// ListCategoryExpensesHandler returns the expenses of category :id
func ListCategoryExpensesHandler(engine *accounting.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		expenses, err := engine.ListCategoryExpenses(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "Failed to fetch expenses")
			return
		}
		if expenses == nil {
			expenses = []domain.Expense{}
		}
		c.JSON(http.StatusOK, expenses)
	}
}

// GetExpenseHandler returns expense :id
func GetExpenseHandler(engine *accounting.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		expense, err := engine.GetExpense(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "Failed to fetch expense")
			return
		}
		c.JSON(http.StatusOK, expense)
	}
}

// EditExpenseHandler updates expense :id, possibly moving it to another category
func EditExpenseHandler(engine *accounting.Engine, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindExpense(c)
		if !ok {
			return
		}
		expense, err := engine.EditExpense(c.Request.Context(), c.Param("id"), in)
		if err != nil {
			respondError(c, err, "Failed to update expense")
			return
		}
		invalidateOwner(c, cache)
		c.JSON(http.StatusOK, expense)
	}
}

// DeleteExpenseHandler removes expense :id and refunds its category
func DeleteExpenseHandler(engine *accounting.Engine, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := engine.DeleteExpense(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err, "Failed to delete expense")
			return
		}
		invalidateOwner(c, cache)
		c.Status(http.StatusNoContent)
	}
}
