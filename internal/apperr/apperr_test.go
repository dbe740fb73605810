package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"direct", New(NotFound, "order %s not found", "x"), NotFound},
		{"wrapped by fmt", fmt.Errorf("create: %w", New(Unavailable, "item off")), Unavailable},
		{"plain error", errors.New("boom"), Internal},
		{"storage wrap", Wrap(Internal, sql.ErrConnDone, "insert order"), Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(Internal, sql.ErrConnDone, "load order")
	if !errors.Is(err, sql.ErrConnDone) {
		t.Error("expected wrapped error to match its cause")
	}
	if err.Error() != "load order: "+sql.ErrConnDone.Error() {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestMessage(t *testing.T) {
	if got := Message(New(Conflict, "duplicate")); got != "duplicate" {
		t.Errorf("expected duplicate, got %s", got)
	}
	if got := Message(errors.New("secret dsn leaked")); got != "internal error" {
		t.Errorf("expected generic message, got %s", got)
	}
	if Is(nil, Internal) {
		t.Error("nil error must not match any kind")
	}
}
