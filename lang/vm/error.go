package vm

import (
	"fmt"
	"strings"

	"github.com/mna/ember/lang/token"
	"github.com/mna/ember/lang/value"
)

// RuntimeErrorKind classifies a RuntimeError for host code that wants to
// react differently to, say, a type error versus a cancelled thread.
type RuntimeErrorKind uint8

const (
	KindError RuntimeErrorKind = iota
	KindTypeError
	KindNameError
	KindIndexError
	KindArityError
	KindUnhandledThrow
	KindCancelled
	KindRecursion
	KindStackOverflow
)

func (k RuntimeErrorKind) String() string {
	switch k {
	case KindTypeError:
		return "type_error"
	case KindNameError:
		return "name_error"
	case KindIndexError:
		return "index_error"
	case KindArityError:
		return "arity_error"
	case KindUnhandledThrow:
		return "unhandled_throw"
	case KindCancelled:
		return "cancelled"
	case KindRecursion:
		return "recursion_error"
	case KindStackOverflow:
		return "stack_overflow"
	default:
		return "error"
	}
}

// RuntimeError is the error type returned by every failure the VM detects
// while executing bytecode: a type mismatch, an undefined name, a thread
// cancellation, an unhandled throw that reached the top frame, and so on.
type RuntimeError struct {
	Kind      RuntimeErrorKind
	Message   string
	Span      token.Span
	Traceback []token.Span
}

func (e *RuntimeError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", e.Kind, e.Message)
	for _, s := range e.Traceback {
		fmt.Fprintf(&sb, "\n\tat %v", s)
	}
	return sb.String()
}

func newError(kind RuntimeErrorKind, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ThrownError wraps a user-thrown value (the `throw` statement's operand),
// kept distinct from RuntimeError so a catch clause can recover the exact
// value the script threw instead of a stringified message.
type ThrownError struct {
	Value value.Value
}

func (e *ThrownError) Error() string { return fmt.Sprintf("uncaught throw: %s", e.Value.String()) }

// errorToValue converts a Go error produced somewhere in the VM into the
// value.Value bound to a catch clause's pattern: a ThrownError unwraps to
// its original value, anything else becomes an Object carrying the
// error's kind and message.
func errorToValue(err error) value.Value {
	if te, ok := err.(*ThrownError); ok {
		return te.Value
	}
	kind := "error"
	if re, ok := err.(*RuntimeError); ok {
		kind = re.Kind.String()
	}
	obj := value.NewObject("Error")
	_ = obj.SetField("kind", value.String(kind))
	_ = obj.SetField("message", value.String(err.Error()))
	return obj
}
