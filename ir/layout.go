package ir

// TypeLayout is the size and alignment of a type in host-shareable memory.
type TypeLayout struct {
	Size      uint32
	Alignment uint32
}

// Stride returns the size rounded up to the alignment, which is the
// distance between consecutive array elements of the type.
func (l TypeLayout) Stride() uint32 {
	return alignTo(l.Size, l.Alignment)
}

// Layouter computes TypeLayouts for every type of a module.
//
// The rules are the ones WGSL uses for host-shareable memory, which match
// std430 except that three-component vectors keep their 12-byte size.
type Layouter struct {
	layouts []TypeLayout
}

// Update computes layouts for types not yet seen. Types are processed in
// handle order, so a type may only refer to lower handles.
func (l *Layouter) Update(module *Module) error {
	for i := len(l.layouts); i < len(module.Types); i++ {
		handle := TypeHandle(i) //nolint:gosec // G115: i is a valid arena index
		layout, err := l.layoutOf(handle, module.Types[i].Inner)
		if err != nil {
			return err
		}
		l.layouts = append(l.layouts, layout)
	}
	return nil
}

// Layout returns the layout of an already processed type.
func (l *Layouter) Layout(h TypeHandle) TypeLayout {
	if int(h) < len(l.layouts) {
		return l.layouts[h]
	}
	return TypeLayout{}
}

// InnerLayout returns the layout of an inline type whose referenced
// types have already been processed.
func (l *Layouter) InnerLayout(inner TypeInner) TypeLayout {
	layout, err := l.layoutOf(TypeHandle(len(l.layouts)), inner) //nolint:gosec // G115: arena length
	if err != nil {
		return TypeLayout{}
	}
	return layout
}

func (l *Layouter) layoutOf(self TypeHandle, inner TypeInner) (TypeLayout, error) {
	ref := func(h TypeHandle) (TypeLayout, error) {
		if h >= self || int(h) >= len(l.layouts) {
			return TypeLayout{}, Errorf(ErrUnresolvedHandle, "type %d refers to type %d which is not defined before it", self, h).WithType(self)
		}
		return l.layouts[h], nil
	}

	switch t := inner.(type) {
	case ScalarType:
		w := uint32(t.Width)
		return TypeLayout{Size: w, Alignment: w}, nil
	case VectorType:
		return vectorLayout(t.Size, t.Scalar), nil
	case MatrixType:
		col := vectorLayout(t.Rows, t.Scalar)
		return TypeLayout{Size: col.Stride() * uint32(t.Columns), Alignment: col.Alignment}, nil
	case ArrayType:
		base, err := ref(t.Base)
		if err != nil {
			return TypeLayout{}, err
		}
		stride := t.Stride
		if stride == 0 {
			stride = base.Stride()
		}
		size := stride
		if t.Size != nil {
			size = stride * *t.Size
		}
		return TypeLayout{Size: size, Alignment: base.Alignment}, nil
	case StructType:
		align := uint32(1)
		for _, member := range t.Members {
			ml, err := ref(member.Type)
			if err != nil {
				return TypeLayout{}, err
			}
			if ml.Alignment > align {
				align = ml.Alignment
			}
		}
		return TypeLayout{Size: t.Span, Alignment: align}, nil
	case BindingArrayType:
		if _, err := ref(t.Base); err != nil {
			return TypeLayout{}, err
		}
		return TypeLayout{Size: 0, Alignment: 1}, nil
	case PointerType:
		if _, err := ref(t.Base); err != nil {
			return TypeLayout{}, err
		}
		return TypeLayout{Size: 8, Alignment: 8}, nil
	default:
		// Images, samplers and value pointers are opaque.
		return TypeLayout{Size: 0, Alignment: 1}, nil
	}
}

func vectorLayout(size VectorSize, scalar ScalarType) TypeLayout {
	w := uint32(scalar.Width)
	align := w * 2
	if size != Vec2 {
		align = w * 4
	}
	return TypeLayout{Size: w * uint32(size), Alignment: align}
}

func alignTo(value, align uint32) uint32 {
	if align == 0 {
		return value
	}
	return (value + align - 1) / align * align
}
