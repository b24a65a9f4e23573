package env

import (
	"testing"
	"time"
)

func TestString(t *testing.T) {
	t.Setenv("TODO_ENV_STRING", "")
	if got := String("TODO_ENV_STRING", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("TODO_ENV_STRING", "value")
	if got := String("TODO_ENV_STRING", "fallback"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
}

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("TODO_ENV_INT", "twelve")
	if got := Int("TODO_ENV_INT", 7); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	t.Setenv("TODO_ENV_INT", "12")
	if got := Int("TODO_ENV_INT", 7); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
}

func TestDurationRejectsNonPositive(t *testing.T) {
	t.Setenv("TODO_ENV_DURATION", "-5s")
	if got := Duration("TODO_ENV_DURATION", time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %s", got)
	}
	t.Setenv("TODO_ENV_DURATION", "250ms")
	if got := Duration("TODO_ENV_DURATION", time.Second); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %s", got)
	}
}
