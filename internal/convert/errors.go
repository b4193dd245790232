package convert

import "strings"

// ErrorKind categorizes definition-time errors.
type ErrorKind string

const (
	KindUnknownType          ErrorKind = "unknown_type"
	KindConflictingDefault   ErrorKind = "conflicting_default"
	KindInvalidArity         ErrorKind = "invalid_arity"
	KindUnsupportedSignature ErrorKind = "unsupported_signature"
	KindGeneration           ErrorKind = "generation"
)

// Error is raised while registering a handler, never while parsing a message.
type Error struct {
	Cause  error
	Kind   ErrorKind
	Param  string
	Type   string
	Detail string
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrUnknownType          = &Error{Kind: KindUnknownType}
	ErrConflictingDefault   = &Error{Kind: KindConflictingDefault}
	ErrInvalidArity         = &Error{Kind: KindInvalidArity}
	ErrUnsupportedSignature = &Error{Kind: KindUnsupportedSignature}
	ErrGeneration           = &Error{Kind: KindGeneration}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Param != "" {
		b.WriteString(" at ")
		b.WriteString(e.Param)
	}
	if e.Type != "" {
		b.WriteString(" (type ")
		b.WriteString(e.Type)
		b.WriteByte(')')
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError builds a definition-time error.
func NewError(kind ErrorKind, typ, detail string) *Error {
	return &Error{Kind: kind, Type: typ, Detail: detail}
}

// withParam returns err annotated with the parameter it was raised for.
func withParam(err error, param string) error {
	if e, ok := err.(*Error); ok && e.Param == "" {
		e2 := *e
		e2.Param = param
		return &e2
	}
	return err
}
