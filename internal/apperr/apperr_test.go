package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundDetection(t *testing.T) {
	err := NotFound("expansion set", 42)
	if !IsNotFound(err) {
		t.Error("IsNotFound(NotFound(...)) = false")
	}
	wrapped := fmt.Errorf("loading context: %w", err)
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound did not see through fmt.Errorf wrapping")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("IsNotFound(plain error) = true")
	}
}

func TestCodeOf(t *testing.T) {
	err := Wrap(CodeUnsupportedArgument, errors.New("fill"), "argument %q", "MASK")
	if got := CodeOf(err); got != CodeUnsupportedArgument {
		t.Errorf("CodeOf = %q, want %q", got, CodeUnsupportedArgument)
	}
	if got := CodeOf(errors.New("x")); got != CodeUnknown {
		t.Errorf("CodeOf(plain) = %q, want %q", got, CodeUnknown)
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	cause := errors.New("bit width 12 unsupported")
	err := Wrap(CodeUnsupportedArgument, cause, "stem FOO argument BAR")
	if got := err.Error(); got != "stem FOO argument BAR: bit width 12 unsupported" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is lost the cause")
	}
}
