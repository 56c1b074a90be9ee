package spirv

import (
	"fortio.org/safecast"

	"github.com/gogpu/shadercross/ir"
)

// functionWriter lowers one IR function.
//
// Instructions are collected in three lists that are concatenated into
// the entry block: OpVariables first, then prologue loads of globals,
// then the body. Only the body opens further blocks.
type functionWriter struct {
	b      *Backend
	handle ir.FunctionHandle
	fn     *ir.Function
	info   *ir.FunctionInfo

	ids    []uint32
	params []uint32
	locals []uint32

	// globalIDs caches the per-function value of a global expression.
	globalIDs map[ir.GlobalVariableHandle]uint32

	variables []Instruction
	prologue  []Instruction
	code      []Instruction

	// open is false after a block terminator until the next OpLabel.
	open bool

	breaks    []uint32
	continues []uint32
}

func (b *Backend) emitFunction(h ir.FunctionHandle) error {
	fn := &b.module.Functions[h]
	w := &functionWriter{
		b:         b,
		handle:    h,
		fn:        fn,
		info:      &b.info.Functions[h],
		ids:       make([]uint32, len(fn.Expressions)),
		params:    make([]uint32, len(fn.Arguments)),
		locals:    make([]uint32, len(fn.LocalVars)),
		globalIDs: make(map[ir.GlobalVariableHandle]uint32),
	}

	resultType := b.voidType
	if fn.Result != nil {
		resultType = b.typeID(fn.Result.Type)
	}
	paramTypes := make([]uint32, len(fn.Arguments))
	for i, arg := range fn.Arguments {
		paramTypes[i] = b.typeID(arg.Type)
	}
	funcType := b.functionTypeID(resultType, paramTypes...)

	id := b.functionIDs[h]
	b.name(id, fn.Name)
	header := []Instruction{NewInstruction(OpFunction, resultType, id, uint32(FunctionControlNone), funcType)}
	for i, arg := range fn.Arguments {
		w.params[i] = b.builder.AllocID()
		b.name(w.params[i], arg.Name)
		header = append(header, NewInstruction(OpFunctionParameter, paramTypes[i], w.params[i]))
	}
	header = append(header, NewInstruction(OpLabel, b.builder.AllocID()))

	for i, local := range fn.LocalVars {
		ptr := b.pointerTypeID(StorageClassFunction, b.typeID(local.Type))
		w.locals[i] = b.builder.AllocID()
		words := []uint32{ptr, w.locals[i], uint32(StorageClassFunction)}
		if local.Init != nil {
			words = append(words, b.constantID(*local.Init))
		}
		w.variables = append(w.variables, NewInstruction(OpVariable, words...))
		b.name(w.locals[i], local.Name)
	}

	w.open = true
	if err := w.block(fn.Body, nil); err != nil {
		return err.WithFunction(h)
	}
	if w.open {
		if fn.Result == nil {
			w.emit(OpReturn)
		} else {
			w.emit(OpUnreachable)
		}
	}

	out := make([]Instruction, 0, len(header)+len(w.variables)+len(w.prologue)+len(w.code)+1)
	out = append(out, header...)
	out = append(out, w.variables...)
	out = append(out, w.prologue...)
	out = append(out, w.code...)
	out = append(out, NewInstruction(OpFunctionEnd))
	b.builder.AddFunction(out)
	return nil
}

func (w *functionWriter) emit(opcode OpCode, words ...uint32) {
	w.code = append(w.code, NewInstruction(opcode, words...))
}

// result emits an instruction producing a value of typeID and returns
// the new ID.
func (w *functionWriter) result(opcode OpCode, typeID uint32, operands ...uint32) uint32 {
	id := w.b.builder.AllocID()
	w.emit(opcode, append([]uint32{typeID, id}, operands...)...)
	return id
}

func (w *functionWriter) label(id uint32) {
	w.emit(OpLabel, id)
	w.open = true
}

func (w *functionWriter) branch(target uint32) {
	w.emit(OpBranch, target)
	w.open = false
}

// spill declares a Function-class temporary of typeID.
func (w *functionWriter) spill(typeID uint32) uint32 {
	ptr := w.b.pointerTypeID(StorageClassFunction, typeID)
	id := w.b.builder.AllocID()
	w.variables = append(w.variables, NewInstruction(OpVariable, ptr, id, uint32(StorageClassFunction)))
	return id
}

func (w *functionWriter) block(block ir.Block, path []int) *ir.Error {
	for i, stmt := range block {
		if !w.open {
			break
		}
		if err := w.statement(stmt.Kind, append(path, i)); err != nil {
			return err
		}
	}
	return nil
}

//nolint:gocyclo,cyclop // one case per statement kind
func (w *functionWriter) statement(kind ir.StatementKind, path []int) *ir.Error {
	switch s := kind.(type) {
	case ir.StmtEmit:
		for h := s.Range.Start; h < s.Range.End; h++ {
			if !ir.NeedsEmit(w.fn.Expressions[h].Kind) {
				continue
			}
			id, err := w.expression(h)
			if err != nil {
				return err.WithExpression(h).WithStatement(path)
			}
			w.ids[h] = id
		}

	case ir.StmtBlock:
		return w.block(s.Block, path)

	case ir.StmtIf:
		cond := w.expr(s.Condition)
		merge := w.b.builder.AllocID()
		accept := w.b.builder.AllocID()
		reject := merge
		if len(s.Reject) > 0 {
			reject = w.b.builder.AllocID()
		}
		w.emit(OpSelectionMerge, merge, uint32(SelectionControlNone))
		w.emit(OpBranchConditional, cond, accept, reject)

		w.label(accept)
		if err := w.block(s.Accept, append(path, 0)); err != nil {
			return err
		}
		if w.open {
			w.branch(merge)
		}
		if len(s.Reject) > 0 {
			w.label(reject)
			if err := w.block(s.Reject, append(path, 1)); err != nil {
				return err
			}
			if w.open {
				w.branch(merge)
			}
		}
		w.label(merge)

	case ir.StmtSwitch:
		return w.switchStatement(s, path)

	case ir.StmtLoop:
		header := w.b.builder.AllocID()
		body := w.b.builder.AllocID()
		continuing := w.b.builder.AllocID()
		merge := w.b.builder.AllocID()

		w.branch(header)
		w.label(header)
		w.emit(OpLoopMerge, merge, continuing, uint32(LoopControlNone))
		w.branch(body)

		w.label(body)
		w.breaks = append(w.breaks, merge)
		w.continues = append(w.continues, continuing)
		err := w.block(s.Body, append(path, 0))
		w.breaks = w.breaks[:len(w.breaks)-1]
		w.continues = w.continues[:len(w.continues)-1]
		if err != nil {
			return err
		}
		if w.open {
			w.branch(continuing)
		}

		w.label(continuing)
		if err := w.block(s.Continuing, append(path, 1)); err != nil {
			return err
		}
		if s.BreakIf != nil {
			w.emit(OpBranchConditional, w.expr(*s.BreakIf), merge, header)
			w.open = false
		} else {
			w.branch(header)
		}
		w.label(merge)

	case ir.StmtBreak:
		w.branch(w.breaks[len(w.breaks)-1])

	case ir.StmtContinue:
		w.branch(w.continues[len(w.continues)-1])

	case ir.StmtReturn:
		if s.Value != nil {
			w.emit(OpReturnValue, w.expr(*s.Value))
		} else {
			w.emit(OpReturn)
		}
		w.open = false

	case ir.StmtKill:
		w.emit(OpKill)
		w.open = false

	case ir.StmtBarrier:
		w.barrier(s.Flags)

	case ir.StmtStore:
		w.emit(OpStore, w.expr(s.Pointer), w.expr(s.Value))

	case ir.StmtImageStore:
		coord := w.imageCoordinate(s.Coordinate, s.ArrayIndex, false)
		w.emit(OpImageWrite, w.expr(s.Image), coord, w.expr(s.Value))

	case ir.StmtCall:
		callee := &w.b.module.Functions[s.Function]
		resultType := w.b.voidType
		if callee.Result != nil {
			resultType = w.b.typeID(callee.Result.Type)
		}
		operands := []uint32{w.b.functionIDs[s.Function]}
		for _, arg := range s.Arguments {
			operands = append(operands, w.expr(arg))
		}
		id := w.result(OpFunctionCall, resultType, operands...)
		if s.Result != nil {
			w.ids[*s.Result] = id
		}

	default:
		return ir.Errorf(ir.ErrUnsupportedFeature, "unknown statement kind %T", kind).WithStatement(path)
	}
	return nil
}

func (w *functionWriter) switchStatement(s ir.StmtSwitch, path []int) *ir.Error {
	selector := w.expr(s.Selector)
	merge := w.b.builder.AllocID()
	labels := make([]uint32, len(s.Cases))
	defaultLabel := merge
	targets := []uint32{}
	for i, c := range s.Cases {
		labels[i] = w.b.builder.AllocID()
		switch v := c.Value.(type) {
		case ir.SwitchValueI32:
			targets = append(targets, uint32(v), labels[i]) //nolint:gosec // G115: two's complement literal
		case ir.SwitchValueU32:
			targets = append(targets, uint32(v), labels[i])
		case ir.SwitchValueDefault:
			defaultLabel = labels[i]
		}
	}

	w.emit(OpSelectionMerge, merge, uint32(SelectionControlNone))
	w.emit(OpSwitch, append([]uint32{selector, defaultLabel}, targets...)...)
	w.open = false

	w.breaks = append(w.breaks, merge)
	defer func() { w.breaks = w.breaks[:len(w.breaks)-1] }()
	for i, c := range s.Cases {
		w.label(labels[i])
		if err := w.block(c.Body, append(path, i)); err != nil {
			return err
		}
		if !w.open {
			continue
		}
		if c.FallThrough && i+1 < len(labels) {
			w.branch(labels[i+1])
		} else {
			w.branch(merge)
		}
	}
	w.label(merge)
	return nil
}

func (w *functionWriter) barrier(flags ir.BarrierFlags) {
	memory := ScopeWorkgroup
	semantics := MemorySemanticsAcquireRelease
	if flags&ir.BarrierStorage != 0 {
		memory = ScopeDevice
		semantics |= MemorySemanticsUniformMemory
	}
	if flags&ir.BarrierWorkGroup != 0 {
		semantics |= MemorySemanticsWorkgroupMemory
	}
	w.emit(OpControlBarrier,
		w.b.u32Constant(uint32(ScopeWorkgroup)),
		w.b.u32Constant(uint32(memory)),
		w.b.u32Constant(semantics),
	)
}

// expr returns the ID of an expression that is in scope. Expressions that
// need no Emit are materialized on first use.
func (w *functionWriter) expr(h ir.ExpressionHandle) uint32 {
	if id := w.ids[h]; id != 0 {
		return id
	}
	var id uint32
	switch e := w.fn.Expressions[h].Kind.(type) {
	case ir.Literal:
		id = w.b.literalID(e.Value)
	case ir.ExprConstant:
		id = w.b.constantID(e.Constant)
	case ir.ExprZeroValue:
		id = w.b.nullConstant(w.b.typeID(e.Type))
	case ir.ExprFunctionArgument:
		id = w.params[e.Index]
	case ir.ExprLocalVariable:
		id = w.locals[e.Variable]
	case ir.ExprGlobalVariable:
		id = w.global(e.Variable)
	}
	w.ids[h] = id
	return id
}

// global returns the value a global expression stands for: the variable
// itself, the loaded resource for handle-space globals, or a pointer to
// member 0 for wrapped buffers.
func (w *functionWriter) global(h ir.GlobalVariableHandle) uint32 {
	if id, ok := w.globalIDs[h]; ok {
		return id
	}
	gv := w.b.globals[h]
	global := &w.b.module.GlobalVariables[h]
	id := gv.id
	switch {
	case gv.wrapped:
		class := addressSpaceToStorageClass(global.Space)
		ptr := w.b.pointerTypeID(class, w.b.typeID(global.Type))
		id = w.b.builder.AllocID()
		w.prologue = append(w.prologue, NewInstruction(OpAccessChain, ptr, id, gv.id, w.b.u32Constant(0)))
	case global.Space == ir.SpaceHandle:
		if _, isArray := w.b.module.Types[global.Type].Inner.(ir.BindingArrayType); isArray {
			break
		}
		id = w.b.builder.AllocID()
		w.prologue = append(w.prologue, NewInstruction(OpLoad, w.b.typeID(global.Type), id, gv.id))
	}
	w.globalIDs[h] = id
	return id
}

func (w *functionWriter) inner(h ir.ExpressionHandle) ir.TypeInner {
	return w.info.Expressions[h].Inner(w.b.module)
}

func (w *functionWriter) typeOf(h ir.ExpressionHandle) uint32 {
	return w.b.resolutionTypeID(w.info.Expressions[h])
}

func u32(v int) uint32 {
	return safecast.MustConv[uint32](v)
}
