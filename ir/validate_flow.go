package ir

import "slices"

type frameKind uint8

const (
	frameLoop frameKind = iota
	frameSwitch
	frameContinuing
)

// flowContext tracks one function body walk.
type flowContext struct {
	v    *Validator
	fn   *Function
	info *FunctionInfo

	visible []bool
	emitted []bool
	trail   []ExpressionHandle

	frames []frameKind
	path   []int

	callees map[FunctionHandle]bool
}

// validateControlFlow checks statement placement, expression visibility,
// returns and calls, then derives the call graph facts.
func (v *Validator) validateControlFlow() *Error {
	m := v.module
	for i := range m.Functions {
		h := FunctionHandle(i) //nolint:gosec // G115: i is a valid arena index
		fn := &m.Functions[i]
		fc := &flowContext{
			v:       v,
			fn:      fn,
			info:    &v.info.Functions[h],
			visible: make([]bool, len(fn.Expressions)),
			emitted: make([]bool, len(fn.Expressions)),
			callees: make(map[FunctionHandle]bool),
		}
		if err := fc.block(fn.Body); err != nil {
			return err.WithFunction(h)
		}
		if fn.Result != nil && !v.blockTerminates(fn.Body) {
			return Errorf(ErrControlFlowViolation, "function %q does not return a value on every path", fn.Name).WithFunction(h)
		}
		for callee := range fc.callees {
			fc.info.Callees = append(fc.info.Callees, callee)
		}
		slices.Sort(fc.info.Callees)
	}
	return v.propagateCalls()
}

// propagateCalls rejects recursion and folds callee facts into callers.
func (v *Validator) propagateCalls() *Error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]uint8, len(v.module.Functions))

	var visit func(h FunctionHandle) *Error
	visit = func(h FunctionHandle) *Error {
		switch state[h] {
		case done:
			return nil
		case visiting:
			return Errorf(ErrControlFlowViolation, "function %q is recursive", v.module.Functions[h].Name).WithFunction(h)
		}
		state[h] = visiting

		info := &v.info.Functions[h]
		used := slices.Clone(v.directGlobals[h])
		for _, callee := range info.Callees {
			if err := visit(callee); err != nil {
				return err
			}
			ci := &v.info.Functions[callee]
			info.Kill = info.Kill || ci.Kill
			info.Barrier = info.Barrier || ci.Barrier
			info.Derivatives = info.Derivatives || ci.Derivatives
			for _, g := range ci.Globals {
				used[g] = true
			}
		}
		info.Globals = info.Globals[:0]
		for g, ok := range used {
			if ok {
				info.Globals = append(info.Globals, GlobalVariableHandle(g)) //nolint:gosec // G115: g is a valid arena index
			}
		}

		state[h] = done
		return nil
	}

	for i := range v.module.Functions {
		if err := visit(FunctionHandle(i)); err != nil { //nolint:gosec // G115: i is a valid arena index
			return err
		}
	}
	return nil
}

func (fc *flowContext) fail(err *Error) *Error {
	return err.WithStatement(fc.path)
}

// use checks that an expression may be read at the current point.
func (fc *flowContext) use(h ExpressionHandle) *Error {
	if int(h) >= len(fc.fn.Expressions) {
		return unresolved("expression", uint32(h), len(fc.fn.Expressions))
	}
	kind := fc.fn.Expressions[h].Kind
	if _, isCall := kind.(ExprCallResult); !isCall && !NeedsEmit(kind) {
		return nil
	}
	if !fc.visible[h] {
		return Errorf(ErrUnresolvedHandle, "expression %d is used before it is emitted", h).WithExpression(h)
	}
	return nil
}

// read is use for statement operands, which also count as references.
func (fc *flowContext) read(h ExpressionHandle) *Error {
	if err := fc.use(h); err != nil {
		return err
	}
	fc.info.RefCounts[h]++
	return nil
}

func (fc *flowContext) reveal(h ExpressionHandle) {
	fc.visible[h] = true
	fc.trail = append(fc.trail, h)
}

func (fc *flowContext) scoped(body func() *Error) *Error {
	mark := len(fc.trail)
	err := body()
	for _, h := range fc.trail[mark:] {
		fc.visible[h] = false
	}
	fc.trail = fc.trail[:mark]
	return err
}

func (fc *flowContext) block(b Block) *Error {
	return fc.scoped(func() *Error {
		return fc.statements(b)
	})
}

func (fc *flowContext) nested(frame frameKind, b Block) *Error {
	fc.frames = append(fc.frames, frame)
	err := fc.block(b)
	fc.frames = fc.frames[:len(fc.frames)-1]
	return err
}

func (fc *flowContext) inContinuing() bool {
	return slices.Contains(fc.frames, frameContinuing)
}

func (fc *flowContext) typeOf(h ExpressionHandle) TypeInner {
	return fc.info.Expressions[h].Inner(fc.v.module)
}

func (fc *flowContext) statements(b Block) *Error {
	for i, stmt := range b {
		fc.path = append(fc.path, i)
		if err := fc.statement(stmt.Kind); err != nil {
			return fc.fail(err)
		}
		fc.path = fc.path[:len(fc.path)-1]
	}
	return nil
}

//nolint:gocyclo,cyclop,funlen // one case per statement kind
func (fc *flowContext) statement(kind StatementKind) *Error {
	m := fc.v.module

	switch s := kind.(type) {
	case StmtEmit:
		if s.Range.Start > s.Range.End || int(s.Range.End) > len(fc.fn.Expressions) {
			return Errorf(ErrUnresolvedHandle, "emit range [%d, %d) outside %d expressions", s.Range.Start, s.Range.End, len(fc.fn.Expressions))
		}
		for h := s.Range.Start; h < s.Range.End; h++ {
			if fc.emitted[h] {
				return Errorf(ErrControlFlowViolation, "expression %d is emitted twice", h).WithExpression(h)
			}
			var err *Error
			Operands(fc.fn.Expressions[h].Kind, func(op ExpressionHandle) {
				if err == nil {
					err = fc.use(op)
				}
			})
			if err != nil {
				return err.WithExpression(h)
			}
			fc.emitted[h] = true
			fc.reveal(h)
		}

	case StmtBlock:
		return fc.block(s.Block)

	case StmtIf:
		if err := fc.read(s.Condition); err != nil {
			return err
		}
		if t, ok := fc.typeOf(s.Condition).(ScalarType); !ok || t.Kind != ScalarBool {
			return Errorf(ErrTypeMismatch, "if condition must be a bool scalar, got %s", describe(m, fc.typeOf(s.Condition)))
		}
		if err := fc.block(s.Accept); err != nil {
			return err
		}
		return fc.block(s.Reject)

	case StmtSwitch:
		return fc.switchStatement(s)

	case StmtLoop:
		fc.frames = append(fc.frames, frameLoop)
		err := fc.scoped(func() *Error {
			if err := fc.statements(s.Body); err != nil {
				return err
			}
			fc.frames = append(fc.frames, frameContinuing)
			defer func() { fc.frames = fc.frames[:len(fc.frames)-1] }()
			return fc.scoped(func() *Error {
				if err := fc.statements(s.Continuing); err != nil {
					return err
				}
				if s.BreakIf == nil {
					return nil
				}
				if err := fc.read(*s.BreakIf); err != nil {
					return err
				}
				if t, ok := fc.typeOf(*s.BreakIf).(ScalarType); !ok || t.Kind != ScalarBool {
					return Errorf(ErrTypeMismatch, "break-if condition must be a bool scalar, got %s", describe(m, fc.typeOf(*s.BreakIf)))
				}
				return nil
			})
		})
		fc.frames = fc.frames[:len(fc.frames)-1]
		return err

	case StmtBreak:
		for i := len(fc.frames) - 1; i >= 0; i-- {
			switch fc.frames[i] {
			case frameContinuing:
				return Errorf(ErrControlFlowViolation, "break inside a continuing block")
			case frameLoop, frameSwitch:
				return nil
			}
		}
		return Errorf(ErrControlFlowViolation, "break outside of a loop or switch")

	case StmtContinue:
		for i := len(fc.frames) - 1; i >= 0; i-- {
			switch fc.frames[i] {
			case frameContinuing:
				return Errorf(ErrControlFlowViolation, "continue inside a continuing block")
			case frameLoop:
				return nil
			}
		}
		return Errorf(ErrControlFlowViolation, "continue outside of a loop")

	case StmtReturn:
		if fc.inContinuing() {
			return Errorf(ErrControlFlowViolation, "return inside a continuing block")
		}
		switch {
		case fc.fn.Result == nil && s.Value != nil:
			return Errorf(ErrTypeMismatch, "function %q returns nothing but return has a value", fc.fn.Name)
		case fc.fn.Result != nil && s.Value == nil:
			return Errorf(ErrTypeMismatch, "function %q must return %s", fc.fn.Name, describeHandle(m, fc.fn.Result.Type))
		case s.Value != nil:
			if err := fc.read(*s.Value); err != nil {
				return err
			}
			if !fc.v.sameTypeAs(fc.info.Expressions[*s.Value], fc.fn.Result.Type) {
				return Errorf(ErrTypeMismatch, "returning %s from function declared to return %s", describe(m, fc.typeOf(*s.Value)), describeHandle(m, fc.fn.Result.Type))
			}
		}

	case StmtKill:
		fc.info.Kill = true

	case StmtBarrier:
		if s.Flags&^(BarrierStorage|BarrierWorkGroup) != 0 {
			return Errorf(ErrTypeMismatch, "unknown barrier flags %#x", uint32(s.Flags))
		}
		fc.info.Barrier = true

	case StmtStore:
		return fc.store(s)

	case StmtImageStore:
		return fc.imageStore(s)

	case StmtCall:
		return fc.call(s)

	case nil:
		return Errorf(ErrUnresolvedHandle, "statement has no kind")
	default:
		return Errorf(ErrUnsupportedFeature, "unknown statement kind %T", kind)
	}
	return nil
}

func (fc *flowContext) switchStatement(s StmtSwitch) *Error {
	m := fc.v.module
	if err := fc.read(s.Selector); err != nil {
		return err
	}
	sel, ok := fc.typeOf(s.Selector).(ScalarType)
	if !ok || (sel != ScalarI32 && sel != ScalarU32) {
		return Errorf(ErrTypeMismatch, "switch selector must be i32 or u32, got %s", describe(m, fc.typeOf(s.Selector)))
	}

	seen := make(map[SwitchValue]bool, len(s.Cases))
	defaults := 0
	for i, c := range s.Cases {
		switch val := c.Value.(type) {
		case SwitchValueDefault:
			defaults++
		case SwitchValueI32:
			if sel != ScalarI32 {
				return Errorf(ErrTypeMismatch, "case %d has an i32 value for a u32 selector", val)
			}
		case SwitchValueU32:
			if sel != ScalarU32 {
				return Errorf(ErrTypeMismatch, "case %d has a u32 value for an i32 selector", val)
			}
		default:
			return Errorf(ErrTypeMismatch, "switch case %d has no value", i)
		}
		if _, isDefault := c.Value.(SwitchValueDefault); !isDefault {
			if seen[c.Value] {
				return Errorf(ErrControlFlowViolation, "duplicate switch case %v", c.Value)
			}
			seen[c.Value] = true
		}
		if c.FallThrough && i == len(s.Cases)-1 {
			return Errorf(ErrControlFlowViolation, "last switch case falls through")
		}
	}
	if defaults != 1 {
		return Errorf(ErrControlFlowViolation, "switch needs exactly one default case, has %d", defaults)
	}

	for i, c := range s.Cases {
		fc.path = append(fc.path, i)
		err := fc.nested(frameSwitch, c.Body)
		fc.path = fc.path[:len(fc.path)-1]
		if err != nil {
			return err
		}
	}
	return nil
}

// rootGlobal follows access chains back to the global they start from.
func (fc *flowContext) rootGlobal(h ExpressionHandle) (GlobalVariableHandle, bool) {
	for {
		switch e := fc.fn.Expressions[h].Kind.(type) {
		case ExprAccess:
			h = e.Base
		case ExprAccessIndex:
			h = e.Base
		case ExprGlobalVariable:
			return e.Variable, true
		default:
			return 0, false
		}
	}
}

func (fc *flowContext) store(s StmtStore) *Error {
	m := fc.v.module
	if err := fc.read(s.Pointer); err != nil {
		return err
	}
	if err := fc.read(s.Value); err != nil {
		return err
	}

	var pointee TypeResolution
	var space AddressSpace
	switch p := fc.typeOf(s.Pointer).(type) {
	case PointerType:
		base := p.Base
		pointee, space = TypeResolution{Handle: &base}, p.Space
	case ValuePointerType:
		if p.Size == 0 {
			pointee = TypeResolution{Value: p.Scalar}
		} else {
			pointee = TypeResolution{Value: VectorType{Size: p.Size, Scalar: p.Scalar}}
		}
		space = p.Space
	default:
		return Errorf(ErrTypeMismatch, "store target %s is not a pointer", describe(m, p))
	}

	switch space {
	case SpaceUniform, SpacePushConstant, SpaceHandle:
		return Errorf(ErrTypeMismatch, "store into read-only %s space", space)
	case SpaceStorage:
		if g, ok := fc.rootGlobal(s.Pointer); ok {
			if access := m.GlobalVariables[g].Access; access != 0 && access&StorageStore == 0 {
				return Errorf(ErrTypeMismatch, "store into read-only storage global %q", m.GlobalVariables[g].Name)
			}
		}
	}

	if !fc.v.sameType(pointee, fc.info.Expressions[s.Value]) {
		return Errorf(ErrTypeMismatch, "storing %s through pointer to %s", describe(m, fc.typeOf(s.Value)), describe(m, pointee.Inner(m)))
	}
	return nil
}

func (fc *flowContext) imageStore(s StmtImageStore) *Error {
	m := fc.v.module
	for _, h := range []ExpressionHandle{s.Image, s.Coordinate, s.Value} {
		if err := fc.read(h); err != nil {
			return err
		}
	}
	if s.ArrayIndex != nil {
		if err := fc.read(*s.ArrayIndex); err != nil {
			return err
		}
	}

	img, ok := fc.typeOf(s.Image).(ImageType)
	if !ok || img.Class != ImageClassStorage {
		return Errorf(ErrTypeMismatch, "image store into %s", describe(m, fc.typeOf(s.Image)))
	}
	if img.Access&StorageStore == 0 {
		return Errorf(ErrTypeMismatch, "image store into read-only storage image")
	}
	if c, n, ok := componentsOf(fc.typeOf(s.Coordinate)); !ok || (c.Kind != ScalarSint && c.Kind != ScalarUint) || n != img.Dim.CoordinateSize() {
		return Errorf(ErrTypeMismatch, "store coordinate %s does not address %s", describe(m, fc.typeOf(s.Coordinate)), describe(m, img))
	}
	switch {
	case img.Arrayed && s.ArrayIndex == nil:
		return Errorf(ErrTypeMismatch, "arrayed image stored without an array index")
	case !img.Arrayed && s.ArrayIndex != nil:
		return Errorf(ErrTypeMismatch, "array index given for a non-arrayed image")
	}
	want := VectorType{Size: Vec4, Scalar: ScalarType{Kind: img.Format.ScalarKind(), Width: 4}}
	if !fc.v.sameType(fc.info.Expressions[s.Value], TypeResolution{Value: want}) {
		return Errorf(ErrTypeMismatch, "storing %s into image of %s texels", describe(m, fc.typeOf(s.Value)), describe(m, want))
	}
	return nil
}

func (fc *flowContext) call(s StmtCall) *Error {
	m := fc.v.module
	callee, err := m.Function(s.Function)
	if err != nil {
		return err.(*Error)
	}
	for _, ep := range m.EntryPoints {
		if ep.Function == s.Function {
			return Errorf(ErrControlFlowViolation, "entry point function %q cannot be called", callee.Name)
		}
	}
	if len(s.Arguments) != len(callee.Arguments) {
		return Errorf(ErrTypeMismatch, "%q takes %d arguments, got %d", callee.Name, len(callee.Arguments), len(s.Arguments))
	}
	for i, arg := range s.Arguments {
		if err := fc.read(arg); err != nil {
			return err
		}
		if !fc.v.sameTypeAs(fc.info.Expressions[arg], callee.Arguments[i].Type) {
			return Errorf(ErrTypeMismatch, "argument %d of %q is %s, want %s", i, callee.Name, describe(m, fc.typeOf(arg)), describeHandle(m, callee.Arguments[i].Type))
		}
	}

	switch {
	case s.Result == nil && callee.Result != nil:
		// discarded result
	case s.Result != nil && callee.Result == nil:
		return Errorf(ErrTypeMismatch, "%q returns nothing but the call expects a result", callee.Name)
	case s.Result != nil:
		h := *s.Result
		if int(h) >= len(fc.fn.Expressions) {
			return unresolved("expression", uint32(h), len(fc.fn.Expressions))
		}
		res, ok := fc.fn.Expressions[h].Kind.(ExprCallResult)
		if !ok || res.Function != s.Function {
			return Errorf(ErrTypeMismatch, "call result %d is not a result of %q", h, callee.Name).WithExpression(h)
		}
		if fc.emitted[h] {
			return Errorf(ErrControlFlowViolation, "call result %d is bound twice", h).WithExpression(h)
		}
		fc.emitted[h] = true
		fc.reveal(h)
	}

	fc.callees[s.Function] = true
	return nil
}

// blockTerminates reports whether control never falls off the end of b.
func (v *Validator) blockTerminates(b Block) bool {
	for _, stmt := range b {
		switch stmt.Kind.(type) {
		case StmtBreak, StmtContinue:
			return false
		}
		if v.statementTerminates(stmt.Kind) {
			return true
		}
	}
	return false
}

func (v *Validator) statementTerminates(kind StatementKind) bool {
	switch s := kind.(type) {
	case StmtReturn, StmtKill:
		return true
	case StmtBlock:
		return v.blockTerminates(s.Block)
	case StmtIf:
		return v.blockTerminates(s.Accept) && v.blockTerminates(s.Reject)
	case StmtSwitch:
		next := false
		for i := len(s.Cases) - 1; i >= 0; i-- {
			c := s.Cases[i]
			ends := v.blockTerminates(c.Body) || (c.FallThrough && next)
			if !ends {
				return false
			}
			next = ends
		}
		return len(s.Cases) > 0
	case StmtLoop:
		return s.BreakIf == nil && !breaksOut(s.Body) && !breaksOut(s.Continuing)
	}
	return false
}

// breaksOut reports whether b contains a break that leaves the loop
// owning b.
func breaksOut(b Block) bool {
	for _, stmt := range b {
		switch s := stmt.Kind.(type) {
		case StmtBreak:
			return true
		case StmtBlock:
			if breaksOut(s.Block) {
				return true
			}
		case StmtIf:
			if breaksOut(s.Accept) || breaksOut(s.Reject) {
				return true
			}
		}
	}
	return false
}
