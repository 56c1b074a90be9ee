package back

import (
	"strconv"

	"github.com/gogpu/shadercross/ir"
)

// BakedPrefix starts the names of temporaries that hold baked expressions.
const BakedPrefix = "_e"

// BakedName returns the temporary name for expression h.
func BakedName(h ir.ExpressionHandle) string {
	return BakedPrefix + strconv.FormatUint(uint64(h), 10)
}

// BakePolicy decides which emitted expressions textual backends store in
// a temporary at their Emit point instead of writing them inline at every
// use.
type BakePolicy struct {
	// AllLoads bakes every Load even when read once. HLSL compilers
	// reject some reads of loop-carried variables across a join unless
	// the value is reloaded into a fresh temporary.
	AllLoads bool
}

// ShouldBake reports whether expression h of fn gets a temporary.
//
// Memory reads are always baked so a later Store cannot change the value
// they observe. Image sampling and derivatives are baked so they stay in
// the control flow where they were emitted. Everything else is baked
// once it is read more than once. Pointers and resources are never baked;
// they are only meaningful as operands.
func (p BakePolicy) ShouldBake(module *ir.Module, fn *ir.Function, info *ir.FunctionInfo, h ir.ExpressionHandle) bool {
	kind := fn.Expressions[h].Kind
	if !ir.NeedsEmit(kind) {
		return false
	}
	switch info.TypeOf(h).Inner(module).(type) {
	case ir.PointerType, ir.ValuePointerType, ir.ImageType, ir.SamplerType, ir.BindingArrayType:
		return false
	}
	switch kind.(type) {
	case ir.ExprLoad:
		return p.AllLoads || info.RefCounts[h] > 0
	case ir.ExprImageSample, ir.ExprImageLoad, ir.ExprDerivative, ir.ExprArrayLength:
		return true
	}
	return info.RefCounts[h] > 1
}
