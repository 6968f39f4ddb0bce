package errs

import (
	"errors"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := Validationf("tasks.Claim", "stake %d below minimum %d", 1, 2)
	if KindOf(err) != Validation {
		t.Fatalf("expected Validation kind, got %s", KindOf(err))
	}
	if !Is(err, Validation) {
		t.Fatalf("expected Is(err, Validation) true")
	}
	if Is(err, Timeout) {
		t.Fatalf("expected Is(err, Timeout) false")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("expected empty kind for plain error")
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(BackendDegraded, "semcache.Lookup", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
}
