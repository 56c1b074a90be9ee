// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

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

// writeSwitch writes a switch statement. FXC rejects fall-through out of
// a non-empty case, so such a case repeats the bodies it falls into. A
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

	for i, switchCase := range cases {
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
		last := switchCase
		if err := w.writeBlock(switchCase.Body); err != nil {
			return err
		}
		for j := i + 1; last.FallThrough && j < len(cases); j++ {
			last = cases[j]
			if err := w.writeBlock(last.Body); err != nil {
				return err
			}
		}
		if !endsInJump(last.Body) {
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
// them on the first one. [loop] keeps the compiler from unrolling.
func (w *Writer) writeLoop(loop ir.StmtLoop) error {
	if len(loop.Continuing) == 0 && loop.BreakIf == nil {
		w.writeLine("[loop]")
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
	w.writeLine("[loop]")
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

// writeReturn writes a return statement. Entry points return their
// output struct, built with an initializer list.
func (w *Writer) writeReturn(ret ir.StmtReturn) error {
	if ret.Value == nil {
		w.writeLine("return;")
		return nil
	}
	if w.ep == nil || !w.fc.IsEntryPoint() {
		w.writeIndent()
		w.write("return ")
		if err := w.writeExpression(*ret.Value); err != nil {
			return err
		}
		w.write(";\n")
		return nil
	}

	out := w.fc.Namer.Call("output")
	if w.ep.resultStruct == nil {
		w.writeIndent()
		w.write("const %s %s = { ", w.ep.output, out)
		if err := w.writeExpression(*ret.Value); err != nil {
			return err
		}
		w.write(" };\n")
		w.writeLine("return %s;", out)
		return nil
	}

	tmp := w.fc.Namer.Call("tmp")
	w.writeIndent()
	w.write("const %s %s = ", w.typeName(*w.ep.resultStruct), tmp)
	if err := w.writeExpression(*ret.Value); err != nil {
		return err
	}
	w.write(";\n")
	st := w.module.Types[*w.ep.resultStruct].Inner.(ir.StructType)
	w.writeIndent()
	w.write("const %s %s = { ", w.ep.output, out)
	for i := range st.Members {
		if i > 0 {
			w.write(", ")
		}
		w.write("%s.%s", tmp, w.memberName(*w.ep.resultStruct, i))
	}
	w.write(" };\n")
	w.writeLine("return %s;", out)
	return nil
}

// writeBarrier writes a barrier statement.
func (w *Writer) writeBarrier(barrier ir.StmtBarrier) {
	if barrier.Flags&ir.BarrierStorage != 0 {
		w.writeLine("DeviceMemoryBarrierWithGroupSync();")
	}
	if barrier.Flags&ir.BarrierWorkGroup != 0 || barrier.Flags == 0 {
		w.writeLine("GroupMemoryBarrierWithGroupSync();")
	}
}

// writeStore writes an assignment through a pointer. Stores into storage
// buffers become byte address buffer writes.
func (w *Writer) writeStore(store ir.StmtStore) error {
	chain, ok, err := w.storagePointer(store.Pointer)
	if err != nil {
		return err
	}
	if ok {
		inner, handle := w.pointee(store.Pointer)
		return w.writeStorageStore(chain, inner, handle, func() error {
			return w.writeExpression(store.Value)
		}, 0)
	}

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

// writeImageStore writes a texel to a storage texture. Formats with fewer
// than four channels take the leading components of the value.
func (w *Writer) writeImageStore(store ir.StmtImageStore) error {
	img, ok := w.fc.TypeOf(store.Image).(ir.ImageType)
	if !ok {
		return ir.Errorf(ir.ErrTypeMismatch, "image store target is not an image")
	}
	w.writeIndent()
	if err := w.writeExpression(store.Image); err != nil {
		return err
	}
	w.write("[")
	if err := w.writeTexelCoordinate(img, store.Coordinate, store.ArrayIndex, nil, "uint"); err != nil {
		return err
	}
	w.write("] = ")
	if err := w.writeExpression(store.Value); err != nil {
		return err
	}
	switch formatComponents(img.Format) {
	case 1:
		w.write(".x")
	case 2:
		w.write(".xy")
	}
	w.write(";\n")
	return nil
}

// writeCall writes a function call.
func (w *Writer) writeCall(call ir.StmtCall) error {
	w.writeIndent()
	if call.Result != nil {
		w.write("const %s %s = ", w.resolutionName(w.fc.ResolutionOf(*call.Result)), back.BakedName(*call.Result))
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
