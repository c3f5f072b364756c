package runtime

import (
	"fmt"

	"quill/internal/ast"
	"quill/internal/object"
)

// ThrowError carries a guest exception up the native call stack until a catch clause takes it.
type ThrowError struct {
	Value *object.Object
	Pos   ast.Position
}

func (e *ThrowError) Error() string {
	msg := ""
	if c, ok := e.Value.Field(messageField); ok {
		msg = object.ToString(c.Value)
	}
	return fmt.Sprintf("Uncaught %s: %s at %s", e.Value.Class.Name(), msg, e.Pos)
}

// AbortError unwinds the whole invocation. Guest try/catch never sees it.
type AbortError struct {
	Reason string
	Pos    ast.Position
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("aborted: %s at %s", e.Reason, e.Pos)
}

// FatalError is an unrecoverable language error such as a call to an undefined function.
// Like an abort it is not catchable by guest code.
type FatalError struct {
	Msg string
	Pos ast.Position
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("Fatal error: %s at %s", e.Msg, e.Pos)
}

func Fatalf(pos ast.Position, format string, a ...any) *FatalError {
	return &FatalError{Msg: fmt.Sprintf(format, a...), Pos: pos}
}

// BindingError reports a call with too few arguments. It is recorded as a warning and the call
// evaluates to null.
type BindingError struct {
	Function string
	Required int
	Given    int
	Pos      ast.Position
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("function '%s' has %d required arguments, but %d were provided", e.Function, e.Required, e.Given)
}

type Level int

const (
	LevelNotice Level = iota
	LevelWarning
)

func (l Level) String() string {
	if l == LevelNotice {
		return "Notice"
	}
	return "Warning"
}

// Diagnostic is a non fatal message produced while running guest code.
type Diagnostic struct {
	Level Level
	Msg   string
	Pos   ast.Position
	Err   error // the typed cause, if any
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s at %s", d.Level, d.Msg, d.Pos)
}
