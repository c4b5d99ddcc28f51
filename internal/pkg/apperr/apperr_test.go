package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelSurvivesWrapping(t *testing.T) {
	errMissing := NotFound("document not found")

	wrapped := fmt.Errorf("load: %w", errMissing.WithCause(errors.New("record not found")))
	if !errors.Is(wrapped, errMissing) {
		t.Fatalf("errors.Is should match sentinel through WithCause and %%w")
	}
	if errors.Is(wrapped, NotFound("other")) {
		t.Fatalf("errors.Is should not match a different message")
	}
	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("KindOf = %v, want %v", got, KindNotFound)
	}
}

func TestAsDefaultsToInternal(t *testing.T) {
	plain := errors.New("boom")
	got := As(plain)
	if got.Kind != KindInternal {
		t.Fatalf("kind = %v, want internal", got.Kind)
	}
	if !errors.Is(got, plain) {
		t.Fatalf("internal error should unwrap to the cause")
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"no cause", Validation("prompt is required"), "prompt is required"},
		{"with cause", Upstream("embedding failed", errors.New("status 500")), "embedding failed: status 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
