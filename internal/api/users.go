package api

import (
	"budget_tracker/internal/accounting" // Accounting engine
	"budget_tracker/internal/domain"     // Domain models
	"budget_tracker/internal/middleware" // Context keys
	"budget_tracker/internal/utils"      // JWT and cache helpers
	"net/http"                           // HTTP status codes

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Structured logging
)

// UserRequest is the body of register and profile edit
type UserRequest struct {
	ID               string           `json:"id"`                            // Optional client-chosen UUID
	Email            string           `json:"email" binding:"required"`      // Login email
	FirstName        string           `json:"first_name" binding:"required"` // First name
	LastName         string           `json:"last_name"`                     // Last name
	Password         string           `json:"password"`                      // Required on register, optional on edit
	UnallocatedFunds *decimal.Decimal `json:"unallocated_funds"`             // Opening funds, register only
}

func (r UserRequest) input() accounting.UserInput {
	return accounting.UserInput{
		ID:           r.ID,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Password:     r.Password,
		OpeningFunds: r.UnallocatedFunds,
	}
}

// LoginRequest carries credentials; passwd is accepted for older dashboards
type LoginRequest struct {
	Email    string `json:"email" binding:"required"` // Login email
	Password string `json:"password"`                 // Plaintext password
	Passwd   string `json:"passwd"`                   // Legacy field name
}

// LoginResponse returns the user and, when auth is enabled, a bearer token
type LoginResponse struct {
	User  *domain.User `json:"user"`            // Authenticated user
	Token string       `json:"token,omitempty"` // JWT token
}

// RegisterHandler creates a user
func RegisterHandler(engine *accounting.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UserRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err) // If binding fails, return bad request
			return
		}
		user, err := engine.AddUser(c.Request.Context(), req.input())
		if err != nil {
			respondError(c, err, "Failed to register user")
			return
		}
		c.JSON(http.StatusCreated, user) // Return the created user
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(engine *accounting.Engine, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err) // If binding fails, return bad request
			return
		}
		password := req.Password
		if password == "" {
			password = req.Passwd // Fall back to the legacy field
		}
		user, err := engine.LoginUser(c.Request.Context(), req.Email, password)
		if err != nil {
			respondError(c, err, "Login failed")
			return
		}
		resp := LoginResponse{User: user}
		// Issue a token only when bearer auth is configured
		if jwtSecret != "" {
			token, err := utils.GenerateJWT(user.ID, jwtSecret)
			if err != nil {
				respondError(c, err, "Failed to generate token")
				return
			}
			resp.Token = token
		}
		logrus.WithField("user_id", user.ID).Info("User logged in")
		c.JSON(http.StatusOK, resp) // Return the user and token
	}
}

// GetUserHandler returns the user addressed by :id
func GetUserHandler(engine *accounting.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := engine.GetUser(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "Failed to fetch user")
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// EditUserHandler updates the profile of :id
func EditUserHandler(engine *accounting.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UserRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		user, err := engine.EditUser(c.Request.Context(), c.Param("id"), req.input())
		if err != nil {
			respondError(c, err, "Failed to update user")
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// DeleteUserHandler removes :id; ?force=true also removes everything it owns
func DeleteUserHandler(engine *accounting.Engine, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		force, err := forceFlag(c)
		if err != nil {
			badRequest(c, err)
			return
		}
		if err := engine.DeleteUser(c.Request.Context(), c.Param("id"), force); err != nil {
			respondError(c, err, "Failed to delete user")
			return
		}
		cache.InvalidateUser(c.Request.Context(), middleware.OwnerID(c)) // Drop cached lists
		c.Status(http.StatusNoContent)
	}
}

// ListUserExpensesHandler returns every expense of :id with its category
func ListUserExpensesHandler(engine *accounting.Engine, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")
		cachedList(c, cache, userID, utils.CacheExpenses, func() ([]domain.ExpenseView, error) {
			return engine.ListUserExpenses(c.Request.Context(), userID)
		}, "Failed to fetch expenses")
	}
}
