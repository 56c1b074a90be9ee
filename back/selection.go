package back

import (
	"github.com/gogpu/shadercross/ir"
)

// EntryPointSelection picks the entry points a backend writes.
// A zero Name matches every entry point of Stage; with AnyStage set the
// stage is ignored as well.
type EntryPointSelection struct {
	Stage    ir.ShaderStage
	Name     string
	AnyStage bool
}

// All selects every entry point of the module.
func All() EntryPointSelection {
	return EntryPointSelection{AnyStage: true}
}

// Only selects the entry point with the given stage and name.
func Only(stage ir.ShaderStage, name string) EntryPointSelection {
	return EntryPointSelection{Stage: stage, Name: name}
}

// Matches reports whether ep is selected.
func (s EntryPointSelection) Matches(ep *ir.EntryPoint) bool {
	if !s.AnyStage && ep.Stage != s.Stage {
		return false
	}
	return s.Name == "" || ep.Name == s.Name
}

// Resolve returns the indices of the selected entry points in module
// order. Selecting nothing is an error.
func (s EntryPointSelection) Resolve(module *ir.Module) ([]int, error) {
	var out []int
	for i := range module.EntryPoints {
		if s.Matches(&module.EntryPoints[i]) {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		return nil, ir.Errorf(ir.ErrUnresolvedHandle, "no entry point matches %s", s)
	}
	return out, nil
}

// Single resolves a selection that must name exactly one entry point,
// as textual targets write one shader per output.
func (s EntryPointSelection) Single(module *ir.Module) (int, error) {
	indices, err := s.Resolve(module)
	if err != nil {
		return 0, err
	}
	if len(indices) > 1 {
		return 0, ir.Errorf(ir.ErrUnsupportedFeature, "%s matches %d entry points, the target writes one per output", s, len(indices))
	}
	return indices[0], nil
}

func (s EntryPointSelection) String() string {
	stage := s.Stage.String()
	if s.AnyStage {
		stage = "any stage"
	}
	if s.Name == "" {
		return stage + " entry points"
	}
	return stage + " entry point " + `"` + s.Name + `"`
}

// Reachable returns the functions an entry point may execute, callees
// first and in handle order otherwise, ending with the entry point's own
// function. The order is a valid declaration order for C-like targets.
func Reachable(module *ir.Module, info *ir.ModuleInfo, entry int) []ir.FunctionHandle {
	seen := make([]bool, len(module.Functions))
	var order []ir.FunctionHandle
	var visit func(h ir.FunctionHandle)
	visit = func(h ir.FunctionHandle) {
		if seen[h] {
			return
		}
		seen[h] = true
		for _, callee := range info.Functions[h].Callees {
			visit(callee)
		}
		order = append(order, h)
	}
	visit(module.EntryPoints[entry].Function)
	return order
}
