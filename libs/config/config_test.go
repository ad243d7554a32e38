package config

import (
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "8085")
	if p, err := Port("TEST_PORT", "1"); err != nil || p != "8085" {
		t.Fatalf("unexpected port %q err=%v", p, err)
	}
	t.Setenv("TEST_PORT", "70000")
	if _, err := Port("TEST_PORT", "1"); err == nil {
		t.Fatal("expected error for out of range port")
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "750ms")
	if got := Duration("TEST_TIMEOUT", time.Second); got != 750*time.Millisecond {
		t.Fatalf("expected 750ms, got %s", got)
	}
	t.Setenv("TEST_TIMEOUT", "4")
	if got := Duration("TEST_TIMEOUT", time.Second); got != 4*time.Second {
		t.Fatalf("expected 4s, got %s", got)
	}
	t.Setenv("TEST_TIMEOUT", "soon")
	if got := Duration("TEST_TIMEOUT", time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestIntBoolList(t *testing.T) {
	t.Setenv("TEST_INT", "-3")
	if got := Int("TEST_INT", 9); got != 9 {
		t.Fatalf("expected fallback for negative int, got %d", got)
	}
	t.Setenv("TEST_BOOL", "Yes")
	if !Bool("TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	t.Setenv("TEST_BOOL", "maybe")
	if Bool("TEST_BOOL", false) {
		t.Fatal("expected fallback false")
	}
	t.Setenv("TEST_LIST", " a, ,b ,")
	got := List("TEST_LIST", "")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected list %v", got)
	}
}
