package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("start: %w", With(ErrConflictDuplicateDay, "a session already exists for 2026-02-18", nil))

	if !errors.Is(wrapped, ErrConflictDuplicateDay) {
		t.Fatal("errors.Is(wrapped, ErrConflictDuplicateDay) = false")
	}
	if errors.Is(wrapped, ErrConflictActive) {
		t.Fatal("errors.Is(wrapped, ErrConflictActive) = true")
	}
	if KindOf(wrapped) != KindConflict {
		t.Errorf("KindOf = %v, want conflict", KindOf(wrapped))
	}
	if CodeOf(wrapped) != "DUPLICATE_DAY" {
		t.Errorf("CodeOf = %q, want DUPLICATE_DAY", CodeOf(wrapped))
	}
}

func TestTransient(t *testing.T) {
	cause := errors.New("database is locked")
	err := Transient(cause)

	if !IsTransient(err) {
		t.Fatal("IsTransient = false")
	}
	if !errors.Is(err, cause) {
		t.Error("transient error does not unwrap to its cause")
	}
	if Transient(err) != err {
		t.Error("Transient re-wrapped an already transient error")
	}
	if Transient(nil) != nil {
		t.Error("Transient(nil) != nil")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("plain error reported as transient")
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "typed error", err: ErrTooShort, expected: "Error: session must be at least 4 hours"},
		{name: "with cause", err: With(ErrTransient, "", errors.New("busy")), expected: "Error: storage temporarily unavailable: busy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.err); got != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}
