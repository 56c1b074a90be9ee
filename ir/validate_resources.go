package ir

import "fmt"

// validateBindings checks every global against its address space and
// rejects shared resource slots and duplicate names.
func (v *Validator) validateBindings() *Error {
	m := v.module
	slots := make(map[ResourceBinding]GlobalVariableHandle)
	names := make(map[string]GlobalVariableHandle)

	for i := range m.GlobalVariables {
		h := GlobalVariableHandle(i) //nolint:gosec // G115: i is a valid arena index
		g := &m.GlobalVariables[i]

		if err := v.checkGlobal(g); err != nil {
			return err.WithGlobal(h)
		}

		if g.Binding != nil {
			if prev, ok := slots[*g.Binding]; ok {
				return Errorf(ErrDuplicateBinding, "globals %q and %q share %s", m.GlobalVariables[prev].Name, g.Name, g.Binding).WithGlobal(h)
			}
			slots[*g.Binding] = h
		}

		if g.Name != "" {
			if prev, ok := names[g.Name]; ok {
				return Errorf(ErrNameCollision, "global %q is declared twice (globals %d and %d)", g.Name, prev, h).WithGlobal(h)
			}
			names[g.Name] = h
		}
	}
	return nil
}

//nolint:gocyclo,cyclop // one case per address space
func (v *Validator) checkGlobal(g *GlobalVariable) *Error {
	m := v.module
	inner := v.typeInner(g.Type)
	needsBinding := false

	switch g.Space {
	case SpaceHandle:
		switch inner.(type) {
		case ImageType, SamplerType, BindingArrayType:
		default:
			return Errorf(ErrTypeMismatch, "handle global %q has non-resource type %s", g.Name, describe(m, inner))
		}
		needsBinding = true
	case SpaceUniform:
		if !v.isSizedData(g.Type) {
			return Errorf(ErrTypeMismatch, "uniform global %q has unsized type %s", g.Name, describe(m, inner))
		}
		needsBinding = true
	case SpaceStorage:
		if !v.isData(g.Type) {
			return Errorf(ErrTypeMismatch, "storage global %q has non-data type %s", g.Name, describe(m, inner))
		}
		if g.Access&^StorageReadWrite != 0 {
			return Errorf(ErrTypeMismatch, "storage global %q has unknown access flags", g.Name)
		}
		needsBinding = true
	case SpacePushConstant:
		if !v.isSizedData(g.Type) {
			return Errorf(ErrTypeMismatch, "push constant %q has unsized type %s", g.Name, describe(m, inner))
		}
	case SpacePrivate, SpaceWorkGroup:
		if !v.isSizedData(g.Type) {
			return Errorf(ErrTypeMismatch, "%s global %q has unsized or opaque type %s", g.Space, g.Name, describe(m, inner))
		}
		if g.Binding != nil {
			return Errorf(ErrTypeMismatch, "%s global %q cannot have a resource binding", g.Space, g.Name)
		}
	default:
		return Errorf(ErrTypeMismatch, "global %q declared in the %s space", g.Name, g.Space)
	}

	if needsBinding && g.Binding == nil {
		return Errorf(ErrTypeMismatch, "%s global %q needs a resource binding", g.Space, g.Name)
	}
	if g.Init != nil && g.Space != SpacePrivate {
		return Errorf(ErrTypeMismatch, "%s global %q cannot have an initializer", g.Space, g.Name)
	}
	return nil
}

type stageKey struct {
	stage ShaderStage
	name  string
}

// validateEntryPoints checks each entry point's interface and the
// operations its call tree uses against the stage.
func (v *Validator) validateEntryPoints() *Error {
	seen := make(map[stageKey]int)
	for i := range v.module.EntryPoints {
		ep := &v.module.EntryPoints[i]
		key := stageKey{ep.Stage, ep.Name}
		if prev, ok := seen[key]; ok {
			return Errorf(ErrNameCollision, "%s entry point %q is declared twice (entry points %d and %d)", ep.Stage, ep.Name, prev, i).WithEntryPoint(i)
		}
		seen[key] = i

		if err := v.checkEntryPoint(ep); err != nil {
			return err.WithEntryPoint(i).WithFunction(ep.Function)
		}
	}
	return nil
}

//nolint:gocyclo,cyclop // stage rules
func (v *Validator) checkEntryPoint(ep *EntryPoint) *Error {
	m := v.module
	fn := &m.Functions[ep.Function]
	info := &v.info.Functions[ep.Function]

	switch ep.Stage {
	case StageVertex, StageFragment:
	case StageCompute:
		for axis, size := range ep.Workgroup {
			if size == 0 {
				return Errorf(ErrTypeMismatch, "workgroup size %c of %q is zero", "xyz"[axis], ep.Name)
			}
		}
		if fn.Result != nil {
			return Errorf(ErrTypeMismatch, "compute entry point %q cannot return a value", ep.Name)
		}
	default:
		return Errorf(ErrUnsupportedFeature, "unknown shader stage %s", ep.Stage)
	}

	if info.Kill && ep.Stage != StageFragment {
		return Errorf(ErrControlFlowViolation, "discard used in %s entry point %q", ep.Stage, ep.Name)
	}
	if info.Barrier && ep.Stage != StageCompute {
		return Errorf(ErrUnsupportedFeature, "barrier used in %s entry point %q", ep.Stage, ep.Name)
	}
	if info.Derivatives && ep.Stage != StageFragment {
		return Errorf(ErrUnsupportedFeature, "derivatives or implicit-level sampling used in %s entry point %q", ep.Stage, ep.Name)
	}
	for _, g := range info.Globals {
		if m.GlobalVariables[g].Space == SpaceWorkGroup && ep.Stage != StageCompute {
			return Errorf(ErrUnsupportedFeature, "workgroup global %q used in %s entry point %q", m.GlobalVariables[g].Name, ep.Stage, ep.Name).WithGlobal(g)
		}
	}

	inputs := newIOSet()
	for i, arg := range fn.Arguments {
		if err := v.checkIO(ep.Stage, false, arg.Type, arg.Binding, inputs); err != nil {
			return err.withDetail("argument %d", i)
		}
	}
	outputs := newIOSet()
	if fn.Result != nil {
		if err := v.checkIO(ep.Stage, true, fn.Result.Type, fn.Result.Binding, outputs); err != nil {
			return err.withDetail("result")
		}
	}
	if ep.Stage == StageVertex && !outputs.builtins[BuiltinPosition] {
		return Errorf(ErrTypeMismatch, "vertex entry point %q does not write the position builtin", ep.Name)
	}
	return nil
}

// withDetail prefixes the message with the part of the interface at fault.
func (e *Error) withDetail(format string, args ...any) *Error {
	e.Message = fmt.Sprintf(format, args...) + ": " + e.Message
	return e
}

type ioSet struct {
	locations map[uint32]bool
	builtins  map[BuiltinValue]bool
}

func newIOSet() *ioSet {
	return &ioSet{locations: make(map[uint32]bool), builtins: make(map[BuiltinValue]bool)}
}

// checkIO checks one entry point argument or result. A struct without a
// binding contributes each of its members instead.
func (v *Validator) checkIO(stage ShaderStage, output bool, ty TypeHandle, binding Binding, set *ioSet) *Error {
	if binding == nil {
		s, ok := v.typeInner(ty).(StructType)
		if !ok {
			return Errorf(ErrTypeMismatch, "entry point interface of type %s has no binding", describeHandle(v.module, ty))
		}
		for _, member := range s.Members {
			if member.Binding == nil {
				return Errorf(ErrTypeMismatch, "interface member %q has no binding", member.Name)
			}
			if err := v.checkBinding(stage, output, member.Type, member.Binding, set); err != nil {
				return err.withDetail("member %q", member.Name)
			}
		}
		return nil
	}
	return v.checkBinding(stage, output, ty, binding, set)
}

func (v *Validator) checkBinding(stage ShaderStage, output bool, ty TypeHandle, binding Binding, set *ioSet) *Error {
	m := v.module
	inner := v.typeInner(ty)
	direction := "input"
	if output {
		direction = "output"
	}

	switch b := binding.(type) {
	case LocationBinding:
		if stage == StageCompute {
			return Errorf(ErrUnsupportedFeature, "compute entry points have no location %s", direction)
		}
		s, _, ok := componentsOf(inner)
		if !ok || s.Kind == ScalarBool {
			return Errorf(ErrTypeMismatch, "location %d has type %s", b.Location, describe(m, inner))
		}
		if s.Kind != ScalarFloat && b.Interpolation != nil && b.Interpolation.Kind != InterpolationFlat {
			return Errorf(ErrTypeMismatch, "integer location %d must use flat interpolation", b.Location)
		}
		if set.locations[b.Location] {
			return Errorf(ErrDuplicateBinding, "location %d is used twice as %s", b.Location, direction)
		}
		set.locations[b.Location] = true

	case BuiltinBinding:
		rule, ok := builtinRules[b.Builtin]
		if !ok {
			return Errorf(ErrUnsupportedFeature, "unknown builtin %s", b.Builtin)
		}
		allowed := false
		for _, use := range rule.uses {
			if use.stage == stage && use.output == output {
				allowed = true
			}
		}
		if !allowed {
			return Errorf(ErrUnsupportedFeature, "builtin %s is not a %s %s", b.Builtin, stage, direction)
		}
		if !v.sameType(TypeResolution{Handle: &ty}, TypeResolution{Value: rule.ty}) {
			return Errorf(ErrTypeMismatch, "builtin %s has type %s, want %s", b.Builtin, describe(m, inner), describe(m, rule.ty))
		}
		if set.builtins[b.Builtin] {
			return Errorf(ErrDuplicateBinding, "builtin %s is used twice as %s", b.Builtin, direction)
		}
		set.builtins[b.Builtin] = true

	default:
		return Errorf(ErrTypeMismatch, "unknown binding %T", binding)
	}
	return nil
}

type builtinUse struct {
	stage  ShaderStage
	output bool
}

type builtinRule struct {
	ty   TypeInner
	uses []builtinUse
}

var (
	vec4f = VectorType{Size: Vec4, Scalar: ScalarF32}
	vec3u = VectorType{Size: Vec3, Scalar: ScalarU32}

	computeInput = []builtinUse{{StageCompute, false}}

	builtinRules = map[BuiltinValue]builtinRule{
		BuiltinPosition:             {vec4f, []builtinUse{{StageVertex, true}, {StageFragment, false}}},
		BuiltinVertexIndex:          {ScalarU32, []builtinUse{{StageVertex, false}}},
		BuiltinInstanceIndex:        {ScalarU32, []builtinUse{{StageVertex, false}}},
		BuiltinFrontFacing:          {ScalarBoolType, []builtinUse{{StageFragment, false}}},
		BuiltinFragDepth:            {ScalarF32, []builtinUse{{StageFragment, true}}},
		BuiltinSampleIndex:          {ScalarU32, []builtinUse{{StageFragment, false}}},
		BuiltinSampleMask:           {ScalarU32, []builtinUse{{StageFragment, false}, {StageFragment, true}}},
		BuiltinLocalInvocationID:    {vec3u, computeInput},
		BuiltinLocalInvocationIndex: {ScalarU32, computeInput},
		BuiltinGlobalInvocationID:   {vec3u, computeInput},
		BuiltinWorkGroupID:          {vec3u, computeInput},
		BuiltinNumWorkGroups:        {vec3u, computeInput},
	}
)
