package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidation_IsAndMessage(t *testing.T) {
	t.Parallel()

	err := Validation("email is required")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	if err.Error() != "validation: email is required" {
		t.Fatalf("unexpected text: %q", err.Error())
	}

	wrapped := fmt.Errorf("login: %w", err)
	if !errors.Is(wrapped, ErrValidation) {
		t.Fatalf("wrapping must keep ErrValidation")
	}
	if got := Message(wrapped); got != "email is required" {
		t.Fatalf("Message=%q", got)
	}
}

func TestMessage_PlainAndNil(t *testing.T) {
	t.Parallel()

	if Message(nil) != "" {
		t.Fatalf("nil error must give empty message")
	}
	if got := Message(errors.New("Invalid login credentials")); got != "Invalid login credentials" {
		t.Fatalf("Message=%q", got)
	}
}

func TestWithMessage(t *testing.T) {
	t.Parallel()

	err := WithMessage(ErrUnauthorized, "Invalid login credentials")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized")
	}
	if err.Error() != "Invalid login credentials" {
		t.Fatalf("text=%q", err.Error())
	}
	if got := Message(fmt.Errorf("login: %w", err)); got != "Invalid login credentials" {
		t.Fatalf("Message=%q", got)
	}
	if WithMessage(ErrNotFound, "") != ErrNotFound {
		t.Fatalf("empty message must return the sentinel itself")
	}
}
