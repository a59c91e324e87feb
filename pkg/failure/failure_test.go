package failure

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOfUnwrapsWrappedFailure(t *testing.T) {
	inner := Wrap(Conflict, "update_file", "demo/main.go", errors.New("sha mismatch"))
	wrapped := fmt.Errorf("pipeline step: %w", inner)

	if got := KindOf(wrapped); got != Conflict {
		t.Fatalf("expected Conflict, got %s", got)
	}
}

func TestKindOfPlainErrorIsUnknown(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != Unknown {
		t.Fatalf("expected Unknown, got %s", got)
	}
}

func TestUserMessageNeverLeaksInnerError(t *testing.T) {
	f := Wrap(Transport, "list_services", "", errors.New("dial tcp 10.0.0.1: connection refused"))
	msg := UserMessage(f)

	if !strings.HasPrefix(msg, "❌") {
		t.Errorf("expected failure marker prefix, got %q", msg)
	}
	if strings.Contains(msg, "dial tcp") {
		t.Errorf("transport detail leaked into user message: %q", msg)
	}
}

func TestUserMessageIncludesHTTPStatus(t *testing.T) {
	msg := UserMessage(HTTP("trigger_deploy", "srv-123", 503))
	if !strings.Contains(msg, "503") {
		t.Errorf("expected status code in message, got %q", msg)
	}
}

func TestErrorStringCarriesOpAndTarget(t *testing.T) {
	f := New(NotFound, "read_file", "demo/README.md")
	s := f.Error()
	if !strings.Contains(s, "read_file") || !strings.Contains(s, "demo/README.md") {
		t.Errorf("expected op and target in error string, got %q", s)
	}
}
