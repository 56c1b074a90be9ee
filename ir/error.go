package ir

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrorKind classifies validation and translation failures.
type ErrorKind uint8

const (
	// ErrTypeMismatch indicates operand or type incompatibility.
	ErrTypeMismatch ErrorKind = iota

	// ErrUnresolvedHandle indicates a handle outside its arena, or a
	// reference to an entity that is not yet defined. It always points at
	// a bug in whatever built the module.
	ErrUnresolvedHandle

	// ErrControlFlowViolation indicates an illegal break, continue,
	// return or discard placement.
	ErrControlFlowViolation

	// ErrDuplicateBinding indicates two globals sharing a resource slot.
	ErrDuplicateBinding

	// ErrUnsupportedFeature indicates a capability the target cannot express.
	ErrUnsupportedFeature

	// ErrNameCollision indicates two identifiers that must stay distinct
	// but would be emitted with the same name.
	ErrNameCollision
)

// String returns the error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrTypeMismatch:
		return "TypeMismatch"
	case ErrUnresolvedHandle:
		return "UnresolvedHandle"
	case ErrControlFlowViolation:
		return "ControlFlowViolation"
	case ErrDuplicateBinding:
		return "DuplicateBinding"
	case ErrUnsupportedFeature:
		return "UnsupportedFeature"
	case ErrNameCollision:
		return "NameCollision"
	default:
		return "Unknown"
	}
}

// Site locates an error inside a Module. Only the fields that apply are set.
type Site struct {
	Type       *TypeHandle
	Constant   *ConstantHandle
	Global     *GlobalVariableHandle
	Function   *FunctionHandle
	EntryPoint *int
	Expression *ExpressionHandle

	// Statement is the path of statement indices from the function body
	// down to the offending statement.
	Statement []int
}

// String renders the site as a comma-separated location.
func (s Site) String() string {
	var parts []string
	if s.Type != nil {
		parts = append(parts, "type "+strconv.FormatUint(uint64(*s.Type), 10))
	}
	if s.Constant != nil {
		parts = append(parts, "constant "+strconv.FormatUint(uint64(*s.Constant), 10))
	}
	if s.Global != nil {
		parts = append(parts, "global "+strconv.FormatUint(uint64(*s.Global), 10))
	}
	if s.EntryPoint != nil {
		parts = append(parts, "entry point "+strconv.Itoa(*s.EntryPoint))
	}
	if s.Function != nil {
		parts = append(parts, "function "+strconv.FormatUint(uint64(*s.Function), 10))
	}
	if s.Statement != nil {
		path := make([]string, len(s.Statement))
		for i, idx := range s.Statement {
			path[i] = strconv.Itoa(idx)
		}
		parts = append(parts, "statement "+strings.Join(path, "."))
	}
	if s.Expression != nil {
		parts = append(parts, "expression "+strconv.FormatUint(uint64(*s.Expression), 10))
	}
	return strings.Join(parts, ", ")
}

// Error is a classified validation or translation error.
type Error struct {
	Kind    ErrorKind
	Message string
	Site    Site
}

// Error implements the error interface.
func (e *Error) Error() string {
	if loc := e.Site.String(); loc != "" {
		return fmt.Sprintf("%s in %s: %s", e.Kind, loc, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errorf creates an Error of the given kind with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// The With* helpers fill in a site field unless a more specific caller
// already set it, so context can be attached while unwinding.

// WithType records the type the error belongs to.
func (e *Error) WithType(h TypeHandle) *Error {
	if e.Site.Type == nil {
		e.Site.Type = &h
	}
	return e
}

// WithConstant records the constant the error belongs to.
func (e *Error) WithConstant(h ConstantHandle) *Error {
	if e.Site.Constant == nil {
		e.Site.Constant = &h
	}
	return e
}

// WithGlobal records the global variable the error belongs to.
func (e *Error) WithGlobal(h GlobalVariableHandle) *Error {
	if e.Site.Global == nil {
		e.Site.Global = &h
	}
	return e
}

// WithFunction records the function the error belongs to.
func (e *Error) WithFunction(h FunctionHandle) *Error {
	if e.Site.Function == nil {
		e.Site.Function = &h
	}
	return e
}

// WithEntryPoint records the entry point index the error belongs to.
func (e *Error) WithEntryPoint(index int) *Error {
	if e.Site.EntryPoint == nil {
		e.Site.EntryPoint = &index
	}
	return e
}

// WithExpression records the expression the error belongs to.
func (e *Error) WithExpression(h ExpressionHandle) *Error {
	if e.Site.Expression == nil {
		e.Site.Expression = &h
	}
	return e
}

// WithStatement records the statement path the error belongs to.
func (e *Error) WithStatement(path []int) *Error {
	if e.Site.Statement == nil {
		e.Site.Statement = append([]int{}, path...)
	}
	return e
}

// KindOf returns the classification of err if it wraps an *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err wraps an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func unresolved(what string, handle uint32, length int) *Error {
	return Errorf(ErrUnresolvedHandle, "%s handle %d out of range (have %d)", what, handle, length)
}
