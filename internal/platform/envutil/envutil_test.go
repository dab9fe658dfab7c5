package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_INT", "abc")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 7 {
		t.Fatalf("want=7 got=%d", got)
	}
	t.Setenv("ENVUTIL_TEST_INT", " 42 ")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 42 {
		t.Fatalf("want=42 got=%d", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_BOOL", "on")
	if !Bool("ENVUTIL_TEST_BOOL", false) {
		t.Fatalf("on should be true")
	}
	t.Setenv("ENVUTIL_TEST_BOOL", "maybe")
	if !Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("unknown value should return default")
	}
}

func TestSecondsAndString(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_TTL", "90")
	if got := Seconds("ENVUTIL_TEST_TTL", time.Second); got != 90*time.Second {
		t.Fatalf("got=%v", got)
	}
	t.Setenv("ENVUTIL_TEST_TTL", "-1")
	if got := Seconds("ENVUTIL_TEST_TTL", time.Second); got != time.Second {
		t.Fatalf("negative should fall back, got=%v", got)
	}
	if got := String("ENVUTIL_TEST_UNSET", "dflt"); got != "dflt" {
		t.Fatalf("got=%q", got)
	}
}
