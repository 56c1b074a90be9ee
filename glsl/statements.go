// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

// writeBlock writes a block of statements.
func (w *Writer) writeBlock(block ir.Block) error {
	for _, stmt := range block {
		if err := w.writeStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

// writeStatement writes a single statement.
func (w *Writer) writeStatement(stmt ir.Statement) error {
	switch k := stmt.Kind.(type) {
	case ir.StmtEmit:
		return w.writeEmit(k)

	case ir.StmtBlock:
		w.writeLine("{")
		w.pushIndent()
		if err := w.writeBlock(k.Block); err != nil {
			return err
		}
		w.popIndent()
		w.writeLine("}")
		return nil

	case ir.StmtIf:
		return w.writeIf(k)

	case ir.StmtSwitch:
		return w.writeSwitch(k)

	case ir.StmtLoop:
		return w.writeLoop(k)

	case ir.StmtBreak:
		w.writeLine("break;")
		return nil

	case ir.StmtContinue:
		w.writeLine("continue;")
		return nil

	case ir.StmtReturn:
		return w.writeReturn(k)

	case ir.StmtKill:
		w.writeLine("discard;")
		return nil

	case ir.StmtBarrier:
		w.writeBarrier(k)
		return nil

	case ir.StmtStore:
		return w.writeStore(k)

	case ir.StmtImageStore:
		return w.writeImageStore(k)

	case ir.StmtCall:
		return w.writeCall(k)

	default:
		return ir.Errorf(ir.ErrUnsupportedFeature, "unsupported statement kind: %T", stmt.Kind)
	}
}

// writeEmit stores the emitted expressions that need a temporary.
func (w *Writer) writeEmit(emit ir.StmtEmit) error {
	fi := w.fc.FunctionInfo()
	for handle := emit.Range.Start; handle < emit.Range.End; handle++ {
		if w.bake.ShouldBake(w.module, w.fc.Function, fi, handle) {
			if err := w.bakeExpression(handle); err != nil {
				return err
			}
		}
	}
	return nil
}

// bakeExpression declares the temporary of an expression.
func (w *Writer) bakeExpression(handle ir.ExpressionHandle) error {
	w.writeIndent()
	w.write("%s %s = ", w.resolutionName(w.fc.ResolutionOf(handle)), back.BakedName(handle))
	if err := w.writeExpressionInline(handle); err != nil {
		return err
	}
	w.write(";\n")
	w.fc.Bake(handle)
	return nil
}

// writeIf writes an if statement.
func (w *Writer) writeIf(ifStmt ir.StmtIf) error {
	w.writeIndent()
	w.write("if (")
	if err := w.writeExpression(ifStmt.Condition); err != nil {
		return err
	}
	w.write(") {\n")
	w.pushIndent()
	if err := w.writeBlock(ifStmt.Accept); err != nil {
		return err
	}
	w.popIndent()
	if len(ifStmt.Reject) > 0 {
		w.writeLine("} else {")
		w.pushIndent()
		if err := w.writeBlock(ifStmt.Reject); err != nil {
			return err
		}
		w.popIndent()
	}
	w.writeLine("}")
	return nil
}

// writeSwitch writes a switch statement. GLSL falls through natively, so
// a case only gets a break when it neither falls through nor jumps. A
// switch with only a default case becomes a do-while(false), which
// keeps break working.
func (w *Writer) writeSwitch(switchStmt ir.StmtSwitch) error {
	cases := switchStmt.Cases
	if len(cases) == 1 {
		if _, ok := cases[0].Value.(ir.SwitchValueDefault); ok {
			w.writeLine("do {")
			w.pushIndent()
			if err := w.writeBlock(cases[0].Body); err != nil {
				return err
			}
			w.popIndent()
			w.writeLine("} while(false);")
			return nil
		}
	}

	w.writeIndent()
	w.write("switch(")
	if err := w.writeExpression(switchStmt.Selector); err != nil {
		return err
	}
	w.write(") {\n")
	w.pushIndent()

	for _, switchCase := range cases {
		switch v := switchCase.Value.(type) {
		case ir.SwitchValueI32:
			w.writeLine("case %s:", intLiteral(int32(v)))
		case ir.SwitchValueU32:
			w.writeLine("case %du:", uint32(v))
		case ir.SwitchValueDefault:
			w.writeLine("default:")
		}
		if switchCase.FallThrough && len(switchCase.Body) == 0 {
			continue
		}

		w.writeLine("{")
		w.pushIndent()
		if err := w.writeBlock(switchCase.Body); err != nil {
			return err
		}
		if !switchCase.FallThrough && !endsInJump(switchCase.Body) {
			w.writeLine("break;")
		}
		w.popIndent()
		w.writeLine("}")
	}

	w.popIndent()
	w.writeLine("}")
	return nil
}

// endsInJump reports whether control never reaches the end of block.
func endsInJump(block ir.Block) bool {
	if len(block) == 0 {
		return false
	}
	switch block[len(block)-1].Kind.(type) {
	case ir.StmtBreak, ir.StmtContinue, ir.StmtReturn, ir.StmtKill:
		return true
	}
	return false
}

// writeLoop writes a loop. The continuing block and the break-if test
// move to the top of the next iteration, guarded by a flag that skips
// them on the first one.
func (w *Writer) writeLoop(loop ir.StmtLoop) error {
	if len(loop.Continuing) == 0 && loop.BreakIf == nil {
		w.writeLine("while(true) {")
		w.pushIndent()
		if err := w.writeBlock(loop.Body); err != nil {
			return err
		}
		w.popIndent()
		w.writeLine("}")
		return nil
	}

	gate := w.fc.Namer.Call("loop_init")
	w.writeLine("bool %s = true;", gate)
	w.writeLine("while(true) {")
	w.pushIndent()
	w.writeLine("if (!%s) {", gate)
	w.pushIndent()
	if err := w.writeBlock(loop.Continuing); err != nil {
		return err
	}
	if loop.BreakIf != nil {
		w.writeIndent()
		w.write("if (")
		if err := w.writeExpression(*loop.BreakIf); err != nil {
			return err
		}
		w.write(") {\n")
		w.pushIndent()
		w.writeLine("break;")
		w.popIndent()
		w.writeLine("}")
	}
	w.popIndent()
	w.writeLine("}")
	w.writeLine("%s = false;", gate)
	if err := w.writeBlock(loop.Body); err != nil {
		return err
	}
	w.popIndent()
	w.writeLine("}")
	return nil
}

// writeReturn writes a return statement. Entry points assign their
// outputs instead of returning a value.
func (w *Writer) writeReturn(ret ir.StmtReturn) error {
	if w.ep == nil || !w.fc.IsEntryPoint() {
		if ret.Value == nil {
			w.writeLine("return;")
			return nil
		}
		w.writeIndent()
		w.write("return ")
		if err := w.writeExpression(*ret.Value); err != nil {
			return err
		}
		w.write(";\n")
		return nil
	}

	if ret.Value != nil {
		if w.ep.resultStruct == nil {
			if err := w.writeOutput(w.ep.outputs[0], func() error { return w.writeExpression(*ret.Value) }); err != nil {
				return err
			}
		} else {
			tmp := w.fc.Namer.Call("tmp")
			w.writeIndent()
			w.write("%s = ", w.declaration(*w.ep.resultStruct, tmp))
			if err := w.writeExpression(*ret.Value); err != nil {
				return err
			}
			w.write(";\n")
			for i, out := range w.ep.outputs {
				member := tmp + "." + w.memberName(*w.ep.resultStruct, i)
				if err := w.writeOutput(out, func() error { w.write("%s", member); return nil }); err != nil {
					return err
				}
			}
		}
	}
	if w.ep.position && w.options.AdjustCoordinateSpace {
		w.writeLine("gl_Position.z = gl_Position.z * 2.0 - gl_Position.w;")
	}
	w.writeLine("return;")
	return nil
}

// writeOutput assigns a value to an entry point output.
func (w *Writer) writeOutput(out output, value func() error) error {
	w.writeIndent()
	w.write("%s = %s", out.target, out.convert)
	if err := value(); err != nil {
		return err
	}
	if out.convert != "" {
		w.write(")")
	}
	w.write(";\n")
	return nil
}

// writeBarrier writes a barrier statement.
func (w *Writer) writeBarrier(barrier ir.StmtBarrier) {
	if barrier.Flags&ir.BarrierStorage != 0 {
		w.writeLine("memoryBarrierBuffer();")
	}
	if barrier.Flags&ir.BarrierWorkGroup != 0 {
		w.writeLine("memoryBarrierShared();")
	}
	w.writeLine("barrier();")
}

// writeStore writes an assignment through a pointer.
func (w *Writer) writeStore(store ir.StmtStore) error {
	w.writeIndent()
	if err := w.writeExpression(store.Pointer); err != nil {
		return err
	}
	w.write(" = ")
	if err := w.writeExpression(store.Value); err != nil {
		return err
	}
	w.write(";\n")
	return nil
}

// writeImageStore writes a texel to a storage image.
func (w *Writer) writeImageStore(store ir.StmtImageStore) error {
	img, ok := w.fc.TypeOf(store.Image).(ir.ImageType)
	if !ok {
		return ir.Errorf(ir.ErrTypeMismatch, "image store target is not an image")
	}
	w.writeIndent()
	w.write("imageStore(")
	if err := w.writeExpression(store.Image); err != nil {
		return err
	}
	w.write(", ")
	if err := w.writeTexelCoordinate(img, store.Coordinate, store.ArrayIndex); err != nil {
		return err
	}
	w.write(", ")
	if err := w.writeExpression(store.Value); err != nil {
		return err
	}
	w.write(");\n")
	return nil
}

// writeCall writes a function call.
func (w *Writer) writeCall(call ir.StmtCall) error {
	w.writeIndent()
	if call.Result != nil {
		w.write("%s %s = ", w.resolutionName(w.fc.ResolutionOf(*call.Result)), back.BakedName(*call.Result))
	}
	w.write("%s(", w.name(back.NameFunction, uint32(call.Function), 0))
	for i, arg := range call.Arguments {
		if i > 0 {
			w.write(", ")
		}
		if err := w.writeExpression(arg); err != nil {
			return err
		}
	}
	w.write(");\n")
	if call.Result != nil {
		w.fc.Bake(*call.Result)
	}
	return nil
}
