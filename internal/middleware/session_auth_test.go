package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskify/backend/internal/middleware"
	"taskify/backend/internal/repositories"
	"taskify/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

func setupProtectedRouter(t *testing.T) (*gin.Engine, *services.AuthServiceImpl, *repositories.MemoryUserRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := repositories.NewMemoryUserRepository()
	sessions := repositories.NewMemorySessionRepository()
	guard := services.NewSessionGuard(users, sessions, nil)
	auth := services.NewAuthService(users, sessions, nil, guard, nil)

	router := gin.New()
	router.Use(middleware.SessionAuth(guard))
	router.GET("/protected", func(c *gin.Context) {
		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "missing user"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID.String()})
	})
	return router, auth, users
}

func performRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	return body["error"]
}

func TestSessionAuth_NoHeader(t *testing.T) {
	router, _, _ := setupProtectedRouter(t)

	w := performRequest(router, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
	if msg := errorMessage(t, w); msg != "authentication required" {
		t.Errorf("Expected 'authentication required', got '%s'", msg)
	}
}

func TestSessionAuth_MalformedHeader(t *testing.T) {
	router, _, _ := setupProtectedRouter(t)

	for _, header := range []string{"Basic abc", "Bearer ", "Bearer    ", "bearer-token"} {
		w := performRequest(router, header)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Header %q: expected status %d, got %d", header, http.StatusUnauthorized, w.Code)
		}
	}
}

func TestSessionAuth_UnknownSession(t *testing.T) {
	router, _, _ := setupProtectedRouter(t)

	w := performRequest(router, "Bearer "+uuid.Must(uuid.NewV4()).String())
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
	if msg := errorMessage(t, w); msg != "invalid or expired session" {
		t.Errorf("Expected 'invalid or expired session', got '%s'", msg)
	}
}

func TestSessionAuth_ValidSession(t *testing.T) {
	router, auth, _ := setupProtectedRouter(t)

	result, err := auth.Signup(context.Background(), "alice", "alice@x.com", "secret1")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	w := performRequest(router, "Bearer "+result.SessionID)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["user_id"] != result.User.ID {
		t.Errorf("Expected user_id %s, got %s", result.User.ID, body["user_id"])
	}
}

func TestSessionAuth_DeletedUser(t *testing.T) {
	router, auth, users := setupProtectedRouter(t)
	ctx := context.Background()

	result, err := auth.Signup(ctx, "alice", "alice@x.com", "secret1")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	users.Delete(ctx, uuid.FromStringOrNil(result.User.ID))

	w := performRequest(router, "Bearer "+result.SessionID)
	if msg := errorMessage(t, w); msg != "user not found" {
		t.Errorf("Expected 'user not found', got '%s'", msg)
	}

	w = performRequest(router, "Bearer "+result.SessionID)
	if msg := errorMessage(t, w); msg != "invalid or expired session" {
		t.Errorf("Expected evicted session to be unknown, got '%s'", msg)
	}
}

type brokenAuthenticator struct{}

func (brokenAuthenticator) Authenticate(context.Context, string) (uuid.UUID, error) {
	return uuid.Nil, errors.New("redis: connection refused")
}

func TestSessionAuth_BackendFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.SessionAuth(brokenAuthenticator{}))
	router.GET("/protected", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := performRequest(router, "Bearer abc")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}
