package gcp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
)

func TestEmulatorDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("alt") != "media" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if r.URL.EscapedPath() != "/storage/v1/b/exports/o/progress%2Fp1%2Fapollo-v3.md" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/markdown")
		_, _ = io.WriteString(w, "# Apollo Progress\n")
	}))
	defer srv.Close()

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Setenv("STORAGE_EMULATOR_HOST", srv.URL)
	bucket, err := NewBucketServiceWithConfig(log, BucketConfig{
		Mode:         StorageModeGCSEmulator,
		EmulatorHost: srv.URL,
		Bucket:       "exports",
	})
	if err != nil {
		t.Fatalf("NewBucketServiceWithConfig: %v", err)
	}
	defer bucket.Close()

	rc, err := bucket.Download(context.Background(), "progress/p1/apollo-v3.md")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "# Apollo Progress\n" {
		t.Fatalf("body: got %q", body)
	}

	if _, err := bucket.Download(context.Background(), "progress/p1/missing.md"); err == nil {
		t.Fatalf("expected error for missing object")
	}
}

func TestCredentialOptions(t *testing.T) {
	cases := []struct {
		creds string
		want  int
	}{
		{"", 0},
		{`{"type":"service_account"}`, 1},
		{"/etc/gcp/key.json", 1},
	}
	for _, tc := range cases {
		if got := len(BucketConfig{Credentials: tc.creds}.credentialOptions()); got != tc.want {
			t.Fatalf("credentialOptions(%q): want=%d got=%d", tc.creds, tc.want, got)
		}
	}
}
