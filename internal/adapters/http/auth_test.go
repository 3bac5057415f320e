package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func authTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.String(200, c.GetString("user_name"))
	})
	return r
}

func TestAuthMiddleware_BearerHeader(t *testing.T) {
	req := require.New(t)
	r := authTestRouter()

	w := httptest.NewRecorder()
	hr := httptest.NewRequest("GET", "/whoami", nil)
	hr.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "alice"))
	r.ServeHTTP(w, hr)

	req.Equal(200, w.Code)
	req.Equal("alice", w.Body.String())
}

func TestAuthMiddleware_QueryParameter(t *testing.T) {
	req := require.New(t)
	r := authTestRouter()

	w := httptest.NewRecorder()
	hr := httptest.NewRequest("GET", "/whoami?access_token="+signToken(t, testSecret, "bob"), nil)
	r.ServeHTTP(w, hr)

	req.Equal(200, w.Code)
	req.Equal("bob", w.Body.String())
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	r := authTestRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/whoami", nil))
	require.Equal(t, 401, w.Code)
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	r := authTestRouter()
	w := httptest.NewRecorder()
	hr := httptest.NewRequest("GET", "/whoami", nil)
	hr.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", "alice"))
	r.ServeHTTP(w, hr)
	require.Equal(t, 401, w.Code)
}

func TestAuthMiddleware_MissingSubject(t *testing.T) {
	req := require.New(t)
	r := authTestRouter()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	req.NoError(err)

	w := httptest.NewRecorder()
	hr := httptest.NewRequest("GET", "/whoami", nil)
	hr.Header.Set("Authorization", "Bearer "+s)
	r.ServeHTTP(w, hr)
	req.Equal(401, w.Code)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	req := require.New(t)
	r := authTestRouter()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	req.NoError(err)

	w := httptest.NewRecorder()
	hr := httptest.NewRequest("GET", "/whoami?access_token="+s, nil)
	r.ServeHTTP(w, hr)
	req.Equal(401, w.Code)
}
