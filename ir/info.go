package ir

// ModuleInfo holds the facts the validator derived about a module.
// Backends read it instead of re-deriving types.
type ModuleInfo struct {
	// Functions is parallel to Module.Functions.
	Functions []FunctionInfo

	// Layouts holds the memory layout of every type.
	Layouts Layouter
}

// FunctionInfo holds per-function validation results.
type FunctionInfo struct {
	// Expressions is the inferred type of each expression,
	// parallel to Function.Expressions.
	Expressions []TypeResolution

	// RefCounts counts how many expressions and statements read each
	// expression.
	RefCounts []uint32

	// Globals lists the globals this function uses, directly or through
	// calls, in handle order.
	Globals []GlobalVariableHandle

	// Callees lists the functions called directly, in handle order.
	Callees []FunctionHandle

	// Kill, Barrier and Derivatives record use of stage-restricted
	// operations, including use by callees.
	Kill        bool
	Barrier     bool
	Derivatives bool
}

// TypeOf returns the resolution of an expression.
func (fi *FunctionInfo) TypeOf(h ExpressionHandle) TypeResolution {
	return fi.Expressions[h]
}

// InnerOf returns the resolved type of an expression of function fn.
func (mi *ModuleInfo) InnerOf(module *Module, fn FunctionHandle, h ExpressionHandle) TypeInner {
	return mi.Functions[fn].Expressions[h].Inner(module)
}

// UsesGlobal reports whether the function uses global g.
func (fi *FunctionInfo) UsesGlobal(g GlobalVariableHandle) bool {
	for _, used := range fi.Globals {
		if used == g {
			return true
		}
		if used > g {
			return false
		}
	}
	return false
}
