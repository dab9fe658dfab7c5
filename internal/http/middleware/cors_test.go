package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		configured []string
		origin     string
		allowed    bool
	}{
		{"default dashboard origin", nil, "http://localhost:5173", true},
		{"default loopback origin", nil, "http://127.0.0.1:3000", true},
		{"configured origin", []string{"https://app.taskmaster.dev"}, "https://app.taskmaster.dev", true},
		{"defaults dropped once configured", []string{"https://app.taskmaster.dev"}, "http://localhost:5173", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tc.configured...))
			r.PUT("/api/projects/:id/progress", func(c *gin.Context) { c.Status(http.StatusOK) })

			// preflight for a progress save
			req := httptest.NewRequest(http.MethodOptions, "/api/projects/p1/progress", nil)
			req.Header.Set("Origin", tc.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPut)
			req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tc.allowed && got != tc.origin {
				t.Fatalf("allow-origin: want=%q got=%q (status %d)", tc.origin, got, rec.Code)
			}
			if !tc.allowed && got != "" {
				t.Fatalf("origin %q should be rejected, got allow-origin %q", tc.origin, got)
			}
			if tc.allowed && !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut) {
				t.Fatalf("PUT missing from allowed methods: %q", rec.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}
}

func TestCORSExposesDownloadHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS())
	r.GET("/api/projects/:id/progress/exports/:exportId/download", func(c *gin.Context) {
		c.Header("Content-Disposition", `attachment; filename="apollo.md"`)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/projects/p1/progress/exports/e1/download", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	exposed := rec.Header().Get("Access-Control-Expose-Headers")
	for _, h := range []string{"Content-Disposition", "X-Request-Id"} {
		if !strings.Contains(exposed, h) {
			t.Fatalf("expected %s in exposed headers, got %q", h, exposed)
		}
	}
}
