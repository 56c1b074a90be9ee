package back

import (
	"github.com/gogpu/shadercross/ir"
)

// FunctionContext is what a textual backend knows about the function it
// is writing.
type FunctionContext struct {
	Module   *ir.Module
	Info     *ir.ModuleInfo
	Handle   ir.FunctionHandle
	Function *ir.Function

	// EntryPoint is the entry point index when the function is written as
	// an entry point, otherwise -1.
	EntryPoint int

	// Namer is the function's naming scope.
	Namer *Namer

	// Named holds the identifiers of baked expressions and call results.
	Named map[ir.ExpressionHandle]string
}

// NewFunctionContext prepares the context for function h.
func NewFunctionContext(module *ir.Module, info *ir.ModuleInfo, namer *Namer, h ir.FunctionHandle, entry int) *FunctionContext {
	return &FunctionContext{
		Module:     module,
		Info:       info,
		Handle:     h,
		Function:   &module.Functions[h],
		EntryPoint: entry,
		Namer:      namer.FunctionScope(h),
		Named:      make(map[ir.ExpressionHandle]string),
	}
}

// FunctionInfo returns the validator facts for the function.
func (c *FunctionContext) FunctionInfo() *ir.FunctionInfo {
	return &c.Info.Functions[c.Handle]
}

// TypeOf returns the resolved type of an expression.
func (c *FunctionContext) TypeOf(h ir.ExpressionHandle) ir.TypeInner {
	return c.Info.Functions[c.Handle].Expressions[h].Inner(c.Module)
}

// ResolutionOf returns the type resolution of an expression.
func (c *FunctionContext) ResolutionOf(h ir.ExpressionHandle) ir.TypeResolution {
	return c.Info.Functions[c.Handle].Expressions[h]
}

// Expr returns the expression kind for h.
func (c *FunctionContext) Expr(h ir.ExpressionHandle) ir.ExpressionKind {
	return c.Function.Expressions[h].Kind
}

// IsEntryPoint reports whether the function is being written as an
// entry point.
func (c *FunctionContext) IsEntryPoint() bool {
	return c.EntryPoint >= 0
}

// Bake records that h is read from its temporary and returns the name.
func (c *FunctionContext) Bake(h ir.ExpressionHandle) string {
	name := BakedName(h)
	c.Named[h] = name
	return name
}

// GlobalOf follows an access chain back to the global variable it starts
// from, if any.
func (c *FunctionContext) GlobalOf(h ir.ExpressionHandle) (ir.GlobalVariableHandle, bool) {
	for {
		switch e := c.Expr(h).(type) {
		case ir.ExprGlobalVariable:
			return e.Variable, true
		case ir.ExprAccess:
			h = e.Base
		case ir.ExprAccessIndex:
			h = e.Base
		default:
			return 0, false
		}
	}
}
