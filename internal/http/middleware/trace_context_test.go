package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/taskmaster-backend/internal/platform/ctxutil"
)

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.RequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name   string
		header string
		keep   bool
	}{
		{"caller id kept", "req-123_abc", true},
		{"generated when missing", "", false},
		{"control characters rejected", "evil\nlog line", false},
		{"overlong rejected", strings.Repeat("a", maxRequestIDLen+1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.header != "" {
				req.Header.Set(headerRequestID, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(headerRequestID)
			if got == "" || got != seen {
				t.Fatalf("request id header=%q context=%q", got, seen)
			}
			if tc.keep && got != tc.header {
				t.Fatalf("want caller id %q, got %q", tc.header, got)
			}
			if !tc.keep && got == tc.header {
				t.Fatalf("caller id %q should have been replaced", tc.header)
			}
			if w.Header().Get(headerTraceID) == "" {
				t.Fatalf("missing trace id header")
			}
		})
	}
}
