package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"budget_tracker/internal/domain"
	"budget_tracker/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(auth bool, resolve OwnerResolver) *gin.Engine {
	r := gin.New()
	if auth {
		r.Use(JWTAuthMiddleware(secret))
	}
	r.GET("/things/:id", OwnerMiddleware(resolve), func(c *gin.Context) {
		c.String(http.StatusOK, OwnerID(c))
	})
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/things/42", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ownedBy(id string) OwnerResolver {
	return func(*gin.Context) (string, error) { return id, nil }
}

func TestJWTAuthMiddleware(t *testing.T) {
	r := newRouter(true, ownedBy("alice"))

	w := do(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := utils.GenerateJWT("alice", secret)
	require.NoError(t, err)
	w = do(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
}

func TestOwnerMiddleware_ForbidsOtherUsers(t *testing.T) {
	r := newRouter(true, ownedBy("alice"))
	token, err := utils.GenerateJWT("mallory", secret)
	require.NoError(t, err)

	w := do(r, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOwnerMiddleware_WithoutAuth(t *testing.T) {
	w := do(newRouter(false, ownedBy("bob")), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob", w.Body.String())
}

func TestOwnerMiddleware_ResolveErrors(t *testing.T) {
	notFound := func(*gin.Context) (string, error) {
		return "", fmt.Errorf("category 42: %w", domain.ErrNotFound)
	}
	broken := func(*gin.Context) (string, error) {
		return "", fmt.Errorf("%w: connection reset", domain.ErrStorage)
	}

	assert.Equal(t, http.StatusNotFound, do(newRouter(false, notFound), "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(newRouter(false, broken), "").Code)
}
