package api

import (
	"budget_tracker/internal/accounting" // Accounting engine
	"budget_tracker/internal/middleware" // Auth and owner checks
	"budget_tracker/internal/utils"      // Cache helpers
	"net/http"                           // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// Deps are the collaborators shared by all handlers
type Deps struct {
	Engine    *accounting.Engine
	Cache     *utils.Cache // May be nil
	JWTSecret string       // Empty disables bearer auth
}

// Owner resolvers for the resources addressed by :id

func userOwner(c *gin.Context) (string, error) {
	return c.Param("id"), nil
}

func categoryOwner(engine *accounting.Engine) middleware.OwnerResolver {
	return func(c *gin.Context) (string, error) {
		category, err := engine.GetCategory(c.Request.Context(), c.Param("id"))
		if err != nil {
			return "", err
		}
		return category.UserID, nil
	}
}

func expenseOwner(engine *accounting.Engine) middleware.OwnerResolver {
	return func(c *gin.Context) (string, error) {
		return engine.ExpenseOwner(c.Request.Context(), c.Param("id"))
	}
}

func incomeOwner(engine *accounting.Engine) middleware.OwnerResolver {
	return func(c *gin.Context) (string, error) {
		income, err := engine.GetIncome(c.Request.Context(), c.Param("id"))
		if err != nil {
			return "", err
		}
		return income.UserID, nil
	}
}

// HealthHandler reports liveness
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RegisterRoutes mounts every route on r
func RegisterRoutes(r *gin.Engine, d Deps) {
	e := d.Engine

	// Public routes
	r.GET("/health", HealthHandler)
	r.POST("/users", RegisterHandler(e))                 // Registration endpoint
	r.POST("/users/login", LoginHandler(e, d.JWTSecret)) // Login endpoint

	// Everything else is scoped to one owner and, with a secret, needs a bearer token
	protected := r.Group("")
	if d.JWTSecret != "" {
		protected.Use(middleware.JWTAuthMiddleware(d.JWTSecret))
	}

	users := protected.Group("/users/:id", middleware.OwnerMiddleware(userOwner))
	users.GET("", GetUserHandler(e))
	users.PUT("", EditUserHandler(e))
	users.DELETE("", DeleteUserHandler(e, d.Cache))
	users.GET("/expenses", ListUserExpensesHandler(e, d.Cache))
	users.POST("/categories", CreateCategoryHandler(e, d.Cache))
	users.GET("/categories", ListCategoriesHandler(e, d.Cache))
	users.POST("/incomes", AddIncomeHandler(e, d.Cache))
	users.GET("/incomes", ListIncomesHandler(e, d.Cache))

	categories := protected.Group("/categories/:id", middleware.OwnerMiddleware(categoryOwner(e)))
	categories.GET("", GetCategoryHandler(e))
	categories.PUT("", EditCategoryHandler(e, d.Cache))
	categories.DELETE("", DeleteCategoryHandler(e, d.Cache))
	categories.POST("/expenses", AddExpenseHandler(e, d.Cache))
	categories.GET("/expenses", ListCategoryExpensesHandler(e))

	expenses := protected.Group("/expenses/:id", middleware.OwnerMiddleware(expenseOwner(e)))
	expenses.GET("", GetExpenseHandler(e))
	expenses.PUT("", EditExpenseHandler(e, d.Cache))
	expenses.DELETE("", DeleteExpenseHandler(e, d.Cache))

	incomes := protected.Group("/incomes/:id", middleware.OwnerMiddleware(incomeOwner(e)))
	incomes.GET("", GetIncomeHandler(e))
	incomes.PUT("", EditIncomeHandler(e, d.Cache))
	incomes.DELETE("", DeleteIncomeHandler(e, d.Cache))
}
