package ir

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	fn := FunctionHandle(2)
	expr := ExpressionHandle(7)

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "no site",
			err:  Errorf(ErrTypeMismatch, "bad %s", "operand"),
			want: "TypeMismatch: bad operand",
		},
		{
			name: "function and expression",
			err:  &Error{Kind: ErrUnresolvedHandle, Message: "missing", Site: Site{Function: &fn, Expression: &expr}},
			want: "UnresolvedHandle in function 2, expression 7: missing",
		},
		{
			name: "statement path",
			err:  Errorf(ErrControlFlowViolation, "break outside of a loop").WithStatement([]int{1, 0, 3}).WithFunction(0),
			want: "ControlFlowViolation in function 0, statement 1.0.3: break outside of a loop",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_WithKeepsInnermost(t *testing.T) {
	err := Errorf(ErrTypeMismatch, "x").WithExpression(3).WithExpression(9)
	if *err.Site.Expression != 3 {
		t.Errorf("expression = %d, want 3", *err.Site.Expression)
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("msl: %w", Errorf(ErrDuplicateBinding, "slot"))

	kind, ok := KindOf(wrapped)
	if !ok || kind != ErrDuplicateBinding {
		t.Errorf("KindOf = %v, %v; want DuplicateBinding, true", kind, ok)
	}
	if !IsKind(wrapped, ErrDuplicateBinding) {
		t.Error("IsKind(wrapped, DuplicateBinding) = false")
	}
	if IsKind(errors.New("plain"), ErrDuplicateBinding) {
		t.Error("IsKind(plain error) = true")
	}
}

func TestErrorKind_String(t *testing.T) {
	kinds := map[ErrorKind]string{
		ErrTypeMismatch:         "TypeMismatch",
		ErrUnresolvedHandle:     "UnresolvedHandle",
		ErrControlFlowViolation: "ControlFlowViolation",
		ErrDuplicateBinding:     "DuplicateBinding",
		ErrUnsupportedFeature:   "UnsupportedFeature",
		ErrNameCollision:        "NameCollision",
	}
	for kind, want := range kinds {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
