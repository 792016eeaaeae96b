package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testJWTSecret = "microscope-secret"

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func adminClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  "teacher",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

func runAuthMiddleware(t *testing.T, authorization string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/admin/lessons", nil)
	if authorization != "" {
		c.Request.Header.Set("Authorization", authorization)
	}

	AuthMiddleware(testJWTSecret)(c)
	return w, c
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	w, c := runAuthMiddleware(t, "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
	if !c.IsAborted() {
		t.Fatalf("expected the chain aborted")
	}
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	w, _ := runAuthMiddleware(t, "Token abc123")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestAuthMiddlewareWrongSecret(t *testing.T) {
	token := signedToken(t, "some-other-secret", adminClaims())
	w, _ := runAuthMiddleware(t, "Bearer "+token)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	claims := adminClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	token := signedToken(t, testJWTSecret, claims)

	w, _ := runAuthMiddleware(t, "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestAuthMiddlewareMissingRole(t *testing.T) {
	claims := adminClaims()
	delete(claims, "role")
	token := signedToken(t, testJWTSecret, claims)

	w, _ := runAuthMiddleware(t, "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	token := signedToken(t, testJWTSecret, adminClaims())
	w, c := runAuthMiddleware(t, "Bearer "+token)

	if c.IsAborted() {
		t.Fatalf("expected the request to pass, got status %d", w.Code)
	}

	username, _ := c.Get("username")
	if username != "teacher" {
		t.Fatalf("expected username stored, got %v", username)
	}
	role, _ := c.Get("role")
	if role != "admin" {
		t.Fatalf("expected role stored, got %v", role)
	}
}

func TestAdminMiddlewareRequiresRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/admin/lessons", nil)

	AdminMiddleware()(c)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 without a role, got %d", w.Code)
	}
}

func TestAdminMiddlewarePassesAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/admin/lessons", nil)
	c.Set("role", "admin")

	AdminMiddleware()(c)

	if c.IsAborted() {
		t.Fatalf("expected the admin through, got status %d", w.Code)
	}
}
