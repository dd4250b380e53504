package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(InputMissing, "log file not found")

	if err.Code != InputMissing {
		t.Errorf("Code = %v, want %v", err.Code, InputMissing)
	}
	if err.Message != "log file not found" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Unwrap() != nil {
		t.Error("New should not carry a cause")
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := Wrap(StoreFailed, "failed to write incident", cause)

	if err.Code != StoreFailed {
		t.Errorf("Code = %v, want %v", err.Code, StoreFailed)
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error should match the cause with errors.Is")
	}
	if !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("Error() = %q, should contain cause", err.Error())
	}
}

func TestErrorFormat(t *testing.T) {
	err := New(ConfigInvalid, "bad threshold")
	if !strings.Contains(err.Error(), string(ConfigInvalid)) {
		t.Errorf("Error() = %q, should contain the code", err.Error())
	}
	if !strings.Contains(err.Error(), "bad threshold") {
		t.Errorf("Error() = %q, should contain the message", err.Error())
	}
}

func TestWithDetails(t *testing.T) {
	err := New(NoMatch, "no node scored").WithDetails(map[string]int{"candidates": 0})
	if err.Details == nil {
		t.Error("WithDetails should attach details")
	}
}

func TestCodeOf(t *testing.T) {
	err := New(ParseSkipped, "binary content")
	if CodeOf(err) != ParseSkipped {
		t.Errorf("CodeOf = %v, want %v", CodeOf(err), ParseSkipped)
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if CodeOf(wrapped) != ParseSkipped {
		t.Error("CodeOf should see through fmt.Errorf wrapping")
	}

	if CodeOf(errors.New("plain")) != InternalError {
		t.Error("plain errors should map to InternalError")
	}
}

func TestHasCode(t *testing.T) {
	err := Wrap(ConfigInvalid, "rule 3 has no id", errors.New("yaml"))
	if !HasCode(err, ConfigInvalid) {
		t.Error("HasCode should match the error's code")
	}
	if HasCode(err, InputMissing) {
		t.Error("HasCode should not match other codes")
	}
}
