package middleware_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taskify/backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

func setupRecoveryRouter(logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(middleware.RecoveryWithLog(logger))
	router.GET("/tasks", func(c *gin.Context) {
		c.JSON(http.StatusOK, []string{})
	})
	router.GET("/tasks/:id", func(c *gin.Context) {
		panic("nil task for " + c.Param("id"))
	})
	router.PATCH("/tasks/:id/complete", func(c *gin.Context) {
		panic(errors.New("store closed"))
	})
	return router
}

func TestRecoveryWithLog_PassesThrough(t *testing.T) {
	var buf bytes.Buffer
	router := setupRecoveryRouter(slog.New(slog.NewTextHandler(&buf, nil)))

	req, _ := http.NewRequest("GET", "/tasks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected nothing logged, got %q", buf.String())
	}
}

func TestRecoveryWithLog_Panics(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		path      string
		wantPanic string
	}{
		{"string value", "GET", "/tasks/42", "nil task for 42"},
		{"error value", "PATCH", "/tasks/42/complete", "store closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			router := setupRecoveryRouter(slog.New(slog.NewJSONHandler(&buf, nil)))

			req, _ := http.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusInternalServerError {
				t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
			}
			if w.Body.String() != `{"error":"internal server error"}` {
				t.Errorf("Unexpected body %s", w.Body.String())
			}

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Expected one JSON log record, got %q: %v", buf.String(), err)
			}
			if entry["level"] != "ERROR" || entry["msg"] != "panic recovered" {
				t.Errorf("Unexpected record header: %v", entry)
			}
			if entry["path"] != tt.path {
				t.Errorf("Expected path %s, got %v", tt.path, entry["path"])
			}
			if entry["panic"] != tt.wantPanic {
				t.Errorf("Expected panic %q, got %v", tt.wantPanic, entry["panic"])
			}
			stack, _ := entry["stack"].(string)
			if !strings.Contains(stack, "recovery_test.go") {
				t.Errorf("Expected stack to reach the panicking handler, got %q", stack)
			}
		})
	}
}

func TestRecoveryWithLog_NilLogger(t *testing.T) {
	router := setupRecoveryRouter(nil)

	req, _ := http.NewRequest("GET", "/tasks/7", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}
