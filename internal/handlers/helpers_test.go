package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskify/backend/internal/handlers"
	"taskify/backend/internal/logging"
	"taskify/backend/internal/middleware"
	"taskify/backend/internal/repositories"
	"taskify/backend/internal/services"

	"github.com/gin-gonic/gin"
)

// setupRouter wires the handlers to memory-backed services the same way the
// server does.
func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logging.Discard()

	users := repositories.NewMemoryUserRepository()
	sessions := repositories.NewMemorySessionRepository()
	tasks := repositories.NewMemoryTaskRepository()

	guard := services.NewSessionGuard(users, sessions, logger)
	authService := services.NewAuthService(users, sessions, nil, guard, logger)
	authHandler := handlers.NewAuthHandler(authService, logger)
	taskHandler := handlers.NewTaskHandler(services.NewTaskService(tasks))

	router := gin.New()
	auth := router.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", authHandler.Me)
	auth.GET("/sessions", middleware.SessionAuth(guard), authHandler.Sessions)

	protected := router.Group("/tasks", middleware.SessionAuth(guard))
	protected.GET("", taskHandler.GetTasks)
	protected.POST("", taskHandler.CreateTask)
	protected.GET("/:id", taskHandler.GetTaskByID)
	protected.PUT("/:id", taskHandler.UpdateTask)
	protected.DELETE("/:id", taskHandler.DeleteTask)
	protected.PATCH("/:id/complete", taskHandler.ToggleComplete)
	return router
}

func doRequest(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to unmarshal response %q: %v", w.Body.String(), err)
	}
}

func signup(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()
	w := doRequest(router, "POST", "/auth/signup", "", map[string]string{
		"username": username,
		"email":    username + "@x.com",
		"password": "secret1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Signup %s: expected status %d, got %d: %s", username, http.StatusCreated, w.Code, w.Body.String())
	}
	var result services.AuthResult
	decode(t, w, &result)
	return result.SessionID
}
