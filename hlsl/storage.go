// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"

	"github.com/gogpu/shadercross/ir"
)

// Storage buffers are declared as byte address buffers, so every access
// is a Load or Store at a byte offset computed from the access chain.
//
// HLSL syntax:
//
//	ByteAddressBuffer buf : register(t0);         // Read-only
//	RWByteAddressBuffer buf : register(u0);       // Read-write

// offsetTerm is one step of a byte offset: either a constant or a
// stride times a dynamic index.
type offsetTerm struct {
	constant uint32
	stride   uint32
	index    *ir.ExpressionHandle
}

// storageChain is a pointer into a storage buffer.
type storageChain struct {
	global ir.GlobalVariableHandle
	terms  []offsetTerm
}

// storagePointer follows an access chain back to a storage global and
// collects the byte offset of each step.
func (w *Writer) storagePointer(h ir.ExpressionHandle) (storageChain, bool, error) {
	var steps []ir.ExpressionHandle
	cur := h
	for {
		switch e := w.fc.Expr(cur).(type) {
		case ir.ExprAccess:
			steps = append(steps, cur)
			cur = e.Base
			continue
		case ir.ExprAccessIndex:
			steps = append(steps, cur)
			cur = e.Base
			continue
		case ir.ExprGlobalVariable:
			if w.module.GlobalVariables[e.Variable].Space != ir.SpaceStorage {
				return storageChain{}, false, nil
			}
			chain := storageChain{global: e.Variable}
			ty := w.module.GlobalVariables[e.Variable].Type
			inner := w.module.Types[ty].Inner
			for i := len(steps) - 1; i >= 0; i-- {
				term, next, err := w.storageStep(steps[i], inner)
				if err != nil {
					return storageChain{}, false, err
				}
				chain.terms = append(chain.terms, term)
				inner = next
			}
			return chain, true, nil
		}
		return storageChain{}, false, nil
	}
}

// storageStep returns the offset of one access into a value of type
// inner and the type it reaches.
func (w *Writer) storageStep(step ir.ExpressionHandle, inner ir.TypeInner) (offsetTerm, ir.TypeInner, error) {
	var index *ir.ExpressionHandle
	var constant uint32
	switch e := w.fc.Expr(step).(type) {
	case ir.ExprAccess:
		idx := e.Index
		index = &idx
	case ir.ExprAccessIndex:
		constant = e.Index
	}

	scaled := func(stride uint32) offsetTerm {
		if index != nil {
			return offsetTerm{stride: stride, index: index}
		}
		return offsetTerm{constant: stride * constant}
	}

	switch t := inner.(type) {
	case ir.StructType:
		if index != nil {
			return offsetTerm{}, nil, ir.Errorf(ir.ErrTypeMismatch, "dynamic index into a struct").WithExpression(step)
		}
		m := t.Members[constant]
		return offsetTerm{constant: m.Offset}, w.module.Types[m.Type].Inner, nil
	case ir.ArrayType:
		stride := t.Stride
		if stride == 0 {
			stride = w.info.Layouts.Layout(t.Base).Stride()
		}
		return scaled(stride), w.module.Types[t.Base].Inner, nil
	case ir.MatrixType:
		column := ir.VectorType{Size: t.Rows, Scalar: t.Scalar}
		return scaled(w.info.Layouts.InnerLayout(column).Stride()), column, nil
	case ir.VectorType:
		return scaled(uint32(t.Scalar.Width)), t.Scalar, nil
	}
	return offsetTerm{}, nil, ir.Errorf(ir.ErrTypeMismatch, "cannot index into %T in a storage buffer", inner).WithExpression(step)
}

// writeOffset writes the byte offset of chain plus extra.
func (w *Writer) writeOffset(chain storageChain, extra uint32) error {
	var constant uint32
	var dynamic []offsetTerm
	for _, t := range chain.terms {
		if t.index == nil {
			constant += t.constant
		} else {
			dynamic = append(dynamic, t)
		}
	}
	constant += extra
	if len(dynamic) == 0 {
		w.write("%du", constant)
		return nil
	}
	w.write("(")
	if constant != 0 {
		w.write("%du + ", constant)
	}
	for i, t := range dynamic {
		if i > 0 {
			w.write(" + ")
		}
		w.write("%du * uint(", t.stride)
		if err := w.writeExpression(*t.index); err != nil {
			return err
		}
		w.write(")")
	}
	w.write(")")
	return nil
}

// loadMethod returns the Load variant for a value of n 32-bit words.
func loadMethod(n int) string {
	if n == 1 {
		return "Load"
	}
	return fmt.Sprintf("Load%d", n)
}

func storeMethod(n int) string {
	if n == 1 {
		return "Store"
	}
	return fmt.Sprintf("Store%d", n)
}

// writeStorageLoad writes the value of type ty read at chain plus extra.
func (w *Writer) writeStorageLoad(chain storageChain, inner ir.TypeInner, handle *ir.TypeHandle, extra uint32) error {
	buffer := w.globalName(chain.global)
	raw := func(words int, offset uint32) error {
		w.write("%s.%s(", buffer, loadMethod(words))
		if err := w.writeOffset(chain, offset); err != nil {
			return err
		}
		w.write(")")
		return nil
	}
	scalar := func(s ir.ScalarType, words int, offset uint32) error {
		if s.Width != 4 {
			return ir.Errorf(ir.ErrUnsupportedFeature, "storage buffer access to %d-byte scalars", s.Width)
		}
		switch s.Kind {
		case ir.ScalarUint:
			return raw(words, offset)
		case ir.ScalarBool:
			w.write("(")
			if err := raw(words, offset); err != nil {
				return err
			}
			w.write(" != 0u)")
			return nil
		}
		w.write("%s(", ScalarCast(s.Kind))
		if err := raw(words, offset); err != nil {
			return err
		}
		w.write(")")
		return nil
	}

	switch t := inner.(type) {
	case ir.ScalarType:
		return scalar(t, 1, extra)
	case ir.VectorType:
		return scalar(t.Scalar, int(t.Size), extra)
	case ir.ValuePointerType:
		if t.Size == 0 {
			return scalar(t.Scalar, 1, extra)
		}
		return scalar(t.Scalar, int(t.Size), extra)
	case ir.MatrixType:
		column := ir.VectorType{Size: t.Rows, Scalar: t.Scalar}
		stride := w.info.Layouts.InnerLayout(column).Stride()
		w.write("%s(", MatrixToHLSL(t))
		for i := range uint32(t.Columns) {
			if i > 0 {
				w.write(", ")
			}
			if err := scalar(t.Scalar, int(t.Rows), extra+i*stride); err != nil {
				return err
			}
		}
		w.write(")")
		return nil
	case ir.StructType:
		if handle == nil {
			return ir.Errorf(ir.ErrTypeMismatch, "struct load without a type handle")
		}
		w.write("%s(", w.constructHelper(*handle))
		for i, m := range t.Members {
			if i > 0 {
				w.write(", ")
			}
			mt := m.Type
			if err := w.writeStorageLoad(chain, w.module.Types[mt].Inner, &mt, extra+m.Offset); err != nil {
				return err
			}
		}
		w.write(")")
		return nil
	case ir.ArrayType:
		if t.IsRuntimeSized() || handle == nil {
			return ir.Errorf(ir.ErrTypeMismatch, "runtime-sized arrays cannot be loaded as a value")
		}
		stride := t.Stride
		if stride == 0 {
			stride = w.info.Layouts.Layout(t.Base).Stride()
		}
		w.write("%s(", w.constructHelper(*handle))
		base := t.Base
		for i := range *t.Size {
			if i > 0 {
				w.write(", ")
			}
			if err := w.writeStorageLoad(chain, w.module.Types[base].Inner, &base, extra+i*stride); err != nil {
				return err
			}
		}
		w.write(")")
		return nil
	}
	return ir.Errorf(ir.ErrUnsupportedFeature, "cannot load %T from a storage buffer", inner)
}

// writeStorageStore writes the statements storing value, an expression
// of type inner, at chain plus extra. Composite values are first copied
// into a temporary and stored member by member.
func (w *Writer) writeStorageStore(chain storageChain, inner ir.TypeInner, handle *ir.TypeHandle, value func() error, extra uint32) error {
	buffer := w.globalName(chain.global)
	word := func(s ir.ScalarType, words int, offset uint32, v func() error) error {
		if s.Width != 4 {
			return ir.Errorf(ir.ErrUnsupportedFeature, "storage buffer access to %d-byte scalars", s.Width)
		}
		w.writeIndent()
		w.write("%s.%s(", buffer, storeMethod(words))
		if err := w.writeOffset(chain, offset); err != nil {
			return err
		}
		cast := "asuint"
		if s.Kind == ir.ScalarBool {
			cast = "(" + VectorToHLSL(ir.VectorType{Size: ir.VectorSize(words), Scalar: ir.ScalarU32}) + ")" //nolint:gosec // G115: 1 to 4 words
			if words == 1 {
				cast = "(uint)"
			}
		}
		w.write(", %s(", cast)
		if err := v(); err != nil {
			return err
		}
		w.write("));\n")
		return nil
	}

	switch t := inner.(type) {
	case ir.ScalarType:
		return word(t, 1, extra, value)
	case ir.VectorType:
		return word(t.Scalar, int(t.Size), extra, value)
	case ir.ValuePointerType:
		if t.Size == 0 {
			return word(t.Scalar, 1, extra, value)
		}
		return word(t.Scalar, int(t.Size), extra, value)
	}

	tmp := w.fc.Namer.Call("stored_value")
	tyName := w.innerName(inner)
	if handle != nil {
		tyName = w.typeName(*handle)
	}
	w.writeLine("{")
	w.pushIndent()
	w.writeIndent()
	w.write("%s %s = ", tyName, tmp)
	if err := value(); err != nil {
		return err
	}
	w.write(";\n")

	part := func(suffix string) func() error {
		return func() error {
			w.write("%s%s", tmp, suffix)
			return nil
		}
	}
	switch t := inner.(type) {
	case ir.MatrixType:
		column := ir.VectorType{Size: t.Rows, Scalar: t.Scalar}
		stride := w.info.Layouts.InnerLayout(column).Stride()
		for i := range uint32(t.Columns) {
			if err := word(t.Scalar, int(t.Rows), extra+i*stride, part(fmt.Sprintf("[%d]", i))); err != nil {
				return err
			}
		}
	case ir.StructType:
		for i, m := range t.Members {
			mt := m.Type
			if err := w.writeStorageStore(chain, w.module.Types[mt].Inner, &mt, part("."+w.memberName(*handle, i)), extra+m.Offset); err != nil {
				return err
			}
		}
	case ir.ArrayType:
		if t.IsRuntimeSized() {
			return ir.Errorf(ir.ErrTypeMismatch, "runtime-sized arrays cannot be stored as a value")
		}
		stride := t.Stride
		if stride == 0 {
			stride = w.info.Layouts.Layout(t.Base).Stride()
		}
		base := t.Base
		for i := range *t.Size {
			if err := w.writeStorageStore(chain, w.module.Types[base].Inner, &base, part(fmt.Sprintf("[%d]", i)), extra+i*stride); err != nil {
				return err
			}
		}
	default:
		return ir.Errorf(ir.ErrUnsupportedFeature, "cannot store %T to a storage buffer", inner)
	}
	w.popIndent()
	w.writeLine("}")
	return nil
}

// arrayLengthHelper returns the function computing the element count of
// the runtime-sized array at the end of global g.
func (w *Writer) arrayLengthHelper(g ir.GlobalVariableHandle) (string, error) {
	ty := w.module.GlobalVariables[g].Type
	var offset uint32
	if st, ok := w.module.Types[ty].Inner.(ir.StructType); ok && len(st.Members) > 0 {
		last := st.Members[len(st.Members)-1]
		offset, ty = last.Offset, last.Type
	}
	arr, ok := w.module.Types[ty].Inner.(ir.ArrayType)
	if !ok || !arr.IsRuntimeSized() {
		return "", ir.Errorf(ir.ErrTypeMismatch, "array length operand is not a runtime-sized array")
	}
	stride := arr.Stride
	if stride == 0 {
		stride = w.info.Layouts.Layout(arr.Base).Stride()
	}

	buffer := w.globalName(g)
	name := "_array_length_" + buffer
	w.useHelper(name, func() {
		w.writeLine("uint %s() {", name)
		w.pushIndent()
		w.writeLine("uint size;")
		w.writeLine("%s.GetDimensions(size);", buffer)
		w.writeLine("return (size - %du) / %du;", offset, stride)
		w.popIndent()
		w.writeLine("}")
	})
	return name, nil
}
