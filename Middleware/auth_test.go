package Middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()
	claims := &AgentClaims{
		AgentID: "64f000000000000000000001",
		Name:    "Sam Support",
		Email:   "sam@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", RequireAgent(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func doAuth(router *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequireAgentAcceptsBearerHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seen *AgentClaims
	router := gin.New()
	router.GET("/protected", RequireAgent(testSecret), func(c *gin.Context) {
		seen = c.MustGet("agent").(*AgentClaims)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	token := signedToken(t, testSecret, time.Now().Add(time.Hour))
	rec := doAuth(router, "/protected", "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "64f000000000000000000001", seen.AgentID)
	assert.Equal(t, "Sam Support", seen.Name)
}

func TestRequireAgentAcceptsQueryToken(t *testing.T) {
	router := authRouter()

	token := signedToken(t, testSecret, time.Now().Add(time.Hour))
	rec := doAuth(router, "/protected?token="+token, "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAgentRejectsMissingToken(t *testing.T) {
	router := authRouter()

	rec := doAuth(router, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAgentRejectsMalformedHeader(t *testing.T) {
	router := authRouter()

	rec := doAuth(router, "/protected", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAgentRejectsWrongSecret(t *testing.T) {
	router := authRouter()

	token := signedToken(t, "other-secret", time.Now().Add(time.Hour))
	rec := doAuth(router, "/protected", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAgentRejectsExpiredToken(t *testing.T) {
	router := authRouter()

	token := signedToken(t, testSecret, time.Now().Add(-time.Hour))
	rec := doAuth(router, "/protected", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
