package failure

import (
	"errors"
	"fmt"
)

// Kind classifies why a gateway call could not produce a value.
type Kind int

const (
	Unknown Kind = iota
	NotFound
	Conflict
	AlreadyExists
	InvalidSpec
	Transport
	Disabled
)

var kindNames = map[Kind]string{
	Unknown:       "unknown",
	NotFound:      "not_found",
	Conflict:      "conflict",
	AlreadyExists: "already_exists",
	InvalidSpec:   "invalid_spec",
	Transport:     "transport",
	Disabled:      "disabled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Failure is the only error type gateways return. It carries enough
// context (operation, target) to diagnose from logs without the raw
// transport error reaching the chat.
type Failure struct {
	Kind       Kind
	Op         string
	Target     string
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s: %s", f.Op, f.Kind)
	if f.Target != "" {
		msg = fmt.Sprintf("%s: %s (%s)", f.Op, f.Kind, f.Target)
	}
	if f.StatusCode != 0 {
		msg += fmt.Sprintf(" [http %d]", f.StatusCode)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func New(kind Kind, op, target string) *Failure {
	return &Failure{Kind: kind, Op: op, Target: target}
}

func Wrap(kind Kind, op, target string, err error) *Failure {
	return &Failure{Kind: kind, Op: op, Target: target, Err: err}
}

func HTTP(op, target string, statusCode int) *Failure {
	return &Failure{Kind: Transport, Op: op, Target: target, StatusCode: statusCode}
}

// KindOf extracts the failure kind from an error chain. Plain errors
// classify as Unknown.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return Unknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage renders an error as the single-line, marker-prefixed form
// shown in chat. Stack traces and transport detail stay in the logs.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var f *Failure
	if !errors.As(err, &f) {
		return "❌ Something went wrong, please try again."
	}
	switch f.Kind {
	case NotFound:
		return fmt.Sprintf("❌ Not found: %s", f.Target)
	case Conflict:
		return fmt.Sprintf("❌ Conflict on %s: the content changed underneath you, fetch it again.", f.Target)
	case AlreadyExists:
		return fmt.Sprintf("❌ Already exists: %s", f.Target)
	case InvalidSpec:
		return fmt.Sprintf("❌ Invalid request for %s.", f.Target)
	case Disabled:
		return fmt.Sprintf("❌ %s is not configured, this feature is disabled.", f.Target)
	case Transport:
		if f.StatusCode != 0 {
			return fmt.Sprintf("❌ %s failed (HTTP %d).", f.Op, f.StatusCode)
		}
		return fmt.Sprintf("❌ %s failed, the provider did not respond.", f.Op)
	default:
		return "❌ Something went wrong, please try again."
	}
}
