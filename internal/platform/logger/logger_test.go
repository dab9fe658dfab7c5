package logger

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/taskmaster-backend/internal/platform/ctxutil"
)

func TestPolicyScrubsValues(t *testing.T) {
	p := &policy{enabled: true}
	cases := []struct {
		key  string
		val  interface{}
		want interface{}
	}{
		{"access_token", "abc", redacted},
		{"password", "pw", redacted},
		{"email", "a@b.c", redacted},
		{"content", "# Overview", "[10 bytes]"},
		{"version", 3, 3},
		{"header", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig", redacted},
	}
	for _, tc := range cases {
		if got := p.value(tc.key, tc.val); got != tc.want {
			t.Fatalf("value(%q): want=%v got=%v", tc.key, tc.want, got)
		}
	}
}

func TestPolicyHashesIdentifiers(t *testing.T) {
	id := "0b7c2c0e-8a61-4b0d-a7a1-0a8fdfb1f3c7"
	p := &policy{enabled: true}
	got, ok := p.value("updated_by", id).(string)
	if !ok || !strings.HasPrefix(got, "hash:") || len(got) != len("hash:")+12 {
		t.Fatalf("expected short hash, got=%v", got)
	}
	if again := p.value("updated_by", id); again != got {
		t.Fatalf("hash must be stable: %v vs %v", got, again)
	}
	salted := &policy{enabled: true, salt: "pepper"}
	if salted.value("updated_by", id) == got {
		t.Fatalf("salt must change the hash")
	}
}

func TestPolicyDisabled(t *testing.T) {
	p := &policy{enabled: false}
	kv := []interface{}{"password", "pw"}
	if got := p.scrub(kv); got[1] != "pw" {
		t.Fatalf("disabled policy must pass values through, got=%v", got)
	}
}

func TestWithContextAddsRequestFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewWithCore(core)

	userID := uuid.New()
	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{TraceID: "t-1", RequestID: "r-1"})
	ctx = ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: userID})

	log.WithContext(ctx).Info("saved", "content", "abc")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "r-1" || fields["trace_id"] != "t-1" {
		t.Fatalf("missing trace fields: %v", fields)
	}
	if uid, _ := fields["user_id"].(string); !strings.HasPrefix(uid, "hash:") {
		t.Fatalf("user_id should be hashed, got %v", fields["user_id"])
	}
	if fields["content"] != "[3 bytes]" {
		t.Fatalf("content should be size only, got %v", fields["content"])
	}
}

func TestNewTestModeIsSilent(t *testing.T) {
	log, err := New("test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.With("service", "x").WithContext(context.Background()).Info("hello", "k", "v")
}
