package dto

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures of the value model and its codecs.
type ErrorKind string

const (
	// KindInvalidOperation covers API misuse for the current variant,
	// malformed names and illegal builder sequencing.
	KindInvalidOperation ErrorKind = "INVALID_OPERATION"

	// KindInvalidConversion covers incompatible assignments and
	// out-of-range scalar casts.
	KindInvalidConversion ErrorKind = "INVALID_CONVERSION"

	// KindParse covers malformed wire, JSON and field-path input.
	KindParse ErrorKind = "PARSE"

	// KindSerialize covers values that cannot be represented in the target
	// format.
	KindSerialize ErrorKind = "SERIALIZE"
)

// Error is the single error type reported by the model and its codecs.
//
// Errors compare by kind: errors.Is(err, ErrParse) holds for every parse
// failure regardless of message. The optional Err carries a reason sentinel
// (ErrUnknownKey, ErrOutOfBounds, ...) or an underlying cause.
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Op names the failing operation, e.g. "AddMember".
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrInvalidOperation  = &Error{Kind: KindInvalidOperation}
	ErrInvalidConversion = &Error{Kind: KindInvalidConversion}
	ErrParse             = &Error{Kind: KindParse}
	ErrSerialize         = &Error{Kind: KindSerialize}
)

// Reason sentinels carried in Error.Err.
var (
	ErrUnknownKey        = errors.New("unknown key")
	ErrOutOfBounds       = errors.New("index out of bounds")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrNotStructCapable  = errors.New("variant has no members")
	ErrEmptyPayload      = errors.New("empty type or value not allowed here")
	ErrInvalidName       = errors.New("invalid member name")
	ErrUnsupportedAccess = errors.New("variant is not addressable")
)

// NewError creates an Error of the given kind with a formatted message.
func NewError(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error of the given kind wrapping cause.
func WrapError(kind ErrorKind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

func invalidOp(op string, reason error, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidOperation, Op: op, Message: fmt.Sprintf(format, args...), Err: reason}
}

func invalidConversion(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidConversion, Op: op, Message: fmt.Sprintf(format, args...)}
}

func parseError(op, format string, args ...any) *Error {
	return &Error{Kind: KindParse, Op: op, Message: fmt.Sprintf(format, args...)}
}

// IsInvalidOperation reports whether err is an InvalidOperation error.
// Uses errors.Is to handle wrapped errors.
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsInvalidConversion reports whether err is an InvalidConversion error.
func IsInvalidConversion(err error) bool {
	return errors.Is(err, ErrInvalidConversion)
}

// IsParseError reports whether err is a Parse error.
func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsSerializeError reports whether err is a Serialize error.
func IsSerializeError(err error) bool {
	return errors.Is(err, ErrSerialize)
}

// KindOf returns the kind of the outermost *Error in err's chain, or "" when
// err carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
