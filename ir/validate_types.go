package ir

// validateTypes checks the type arena, constants and every type handle
// stored outside function bodies.
func (v *Validator) validateTypes() *Error {
	m := v.module

	for i := range m.Types {
		h := TypeHandle(i) //nolint:gosec // G115: i is a valid arena index
		if err := v.checkTypeReferences(h, m.Types[i].Inner); err != nil {
			return err.WithType(h)
		}
	}

	if err := v.info.Layouts.Update(m); err != nil {
		if e, ok := err.(*Error); ok {
			return e
		}
		return Errorf(ErrUnresolvedHandle, "%v", err)
	}

	for i := range m.Types {
		h := TypeHandle(i) //nolint:gosec // G115: i is a valid arena index
		if err := v.checkTypeShape(m.Types[i].Inner); err != nil {
			return err.WithType(h)
		}
	}

	for i := range m.Constants {
		h := ConstantHandle(i) //nolint:gosec // G115: i is a valid arena index
		if err := v.checkConstant(h, &m.Constants[i]); err != nil {
			return err.WithConstant(h)
		}
	}

	for i := range m.GlobalVariables {
		h := GlobalVariableHandle(i) //nolint:gosec // G115: i is a valid arena index
		g := &m.GlobalVariables[i]
		if err := v.checkTypeHandle(g.Type); err != nil {
			return err.WithGlobal(h)
		}
		if err := v.checkInit(g.Init, g.Type); err != nil {
			return err.WithGlobal(h)
		}
	}

	for i := range m.Functions {
		h := FunctionHandle(i) //nolint:gosec // G115: i is a valid arena index
		if err := v.checkSignature(&m.Functions[i]); err != nil {
			return err.WithFunction(h)
		}
	}

	for i, ep := range m.EntryPoints {
		if int(ep.Function) >= len(m.Functions) {
			return unresolved("function", uint32(ep.Function), len(m.Functions)).WithEntryPoint(i)
		}
	}

	return nil
}

func (v *Validator) checkTypeHandle(h TypeHandle) *Error {
	if !v.isValidType(h) {
		return unresolved("type", uint32(h), len(v.module.Types))
	}
	return nil
}

// checkTypeReferences rejects references to the type itself or to types
// defined after it.
func (v *Validator) checkTypeReferences(self TypeHandle, inner TypeInner) *Error {
	ref := func(h TypeHandle) *Error {
		if err := v.checkTypeHandle(h); err != nil {
			return err
		}
		if h >= self {
			return Errorf(ErrUnresolvedHandle, "type %d refers to type %d which is not defined before it", self, h)
		}
		return nil
	}

	switch t := inner.(type) {
	case nil:
		return Errorf(ErrUnresolvedHandle, "type has no inner definition")
	case ArrayType:
		return ref(t.Base)
	case StructType:
		for _, member := range t.Members {
			if err := ref(member.Type); err != nil {
				return err
			}
		}
	case PointerType:
		return ref(t.Base)
	case BindingArrayType:
		return ref(t.Base)
	case ValuePointerType:
		return Errorf(ErrTypeMismatch, "value pointers cannot be declared in the type arena")
	}
	return nil
}

func validScalar(s ScalarType) bool {
	switch s.Kind {
	case ScalarBool:
		return s.Width == 1
	case ScalarFloat:
		return s.Width == 2 || s.Width == 4 || s.Width == 8
	case ScalarSint, ScalarUint:
		return s.Width == 4 || s.Width == 8
	}
	return false
}

func validVectorSize(size VectorSize) bool {
	return size >= Vec2 && size <= Vec4
}

//nolint:gocyclo,cyclop // one case per type kind
func (v *Validator) checkTypeShape(inner TypeInner) *Error {
	switch t := inner.(type) {
	case ScalarType:
		if !validScalar(t) {
			return Errorf(ErrTypeMismatch, "invalid width %d for %s scalar", t.Width, t.Kind)
		}
	case VectorType:
		if !validVectorSize(t.Size) {
			return Errorf(ErrTypeMismatch, "invalid vector size %d", t.Size)
		}
		if !validScalar(t.Scalar) {
			return Errorf(ErrTypeMismatch, "invalid width %d for %s vector", t.Scalar.Width, t.Scalar.Kind)
		}
	case MatrixType:
		if !validVectorSize(t.Columns) || !validVectorSize(t.Rows) {
			return Errorf(ErrTypeMismatch, "invalid matrix shape %dx%d", t.Columns, t.Rows)
		}
		if t.Scalar.Kind != ScalarFloat || !validScalar(t.Scalar) {
			return Errorf(ErrTypeMismatch, "matrix components must be floats, got %s", describe(v.module, t.Scalar))
		}
	case ArrayType:
		if !v.isSizedData(t.Base) {
			return Errorf(ErrTypeMismatch, "array element %s is not a sized data type", describeHandle(v.module, t.Base))
		}
		if t.Size != nil && *t.Size == 0 {
			return Errorf(ErrTypeMismatch, "array length must be positive")
		}
		base := v.info.Layouts.Layout(t.Base)
		if t.Stride != 0 {
			if t.Stride < base.Size || t.Stride%base.Alignment != 0 {
				return Errorf(ErrTypeMismatch, "array stride %d invalid for element of size %d and alignment %d", t.Stride, base.Size, base.Alignment)
			}
		}
	case StructType:
		return v.checkStruct(t)
	case PointerType:
		if t.Space == SpaceHandle {
			return Errorf(ErrTypeMismatch, "pointers to the handle space are implicit")
		}
	case ImageType:
		if t.Dim > DimCube || t.Class > ImageClassStorage {
			return Errorf(ErrTypeMismatch, "invalid image type")
		}
		if t.Multisampled && (t.Dim != Dim2D || t.Class == ImageClassStorage) {
			return Errorf(ErrTypeMismatch, "only sampled and depth 2D images may be multisampled")
		}
		if t.Class == ImageClassSampled && t.SampledKind == ScalarBool {
			return Errorf(ErrTypeMismatch, "images cannot hold booleans")
		}
		if t.Class == ImageClassStorage && t.Access&StorageReadWrite == 0 {
			return Errorf(ErrTypeMismatch, "storage image needs load or store access")
		}
	case BindingArrayType:
		switch v.typeInner(t.Base).(type) {
		case ImageType, SamplerType, StructType:
		default:
			return Errorf(ErrTypeMismatch, "binding array of %s", describeHandle(v.module, t.Base))
		}
	}
	return nil
}

// checkStruct verifies member offsets against the layout rules. Members
// must be ordered, aligned and fit in the span; only the last member
// may be a runtime-sized array.
func (v *Validator) checkStruct(t StructType) *Error {
	if len(t.Members) == 0 {
		return Errorf(ErrTypeMismatch, "struct has no members")
	}
	end := uint32(0)
	names := make(map[string]bool, len(t.Members))
	for i, member := range t.Members {
		if member.Name != "" {
			if names[member.Name] {
				return Errorf(ErrNameCollision, "struct member %q is declared twice", member.Name)
			}
			names[member.Name] = true
		}
		if !v.isData(member.Type) {
			return Errorf(ErrTypeMismatch, "member %q has non-data type %s", member.Name, describeHandle(v.module, member.Type))
		}
		if arr, ok := v.typeInner(member.Type).(ArrayType); ok && arr.IsRuntimeSized() && i != len(t.Members)-1 {
			return Errorf(ErrTypeMismatch, "runtime-sized member %q must be last", member.Name)
		}
		if s, ok := v.typeInner(member.Type).(StructType); ok && v.endsInRuntimeArray(s) {
			return Errorf(ErrTypeMismatch, "member %q nests a runtime-sized array", member.Name)
		}
		layout := v.info.Layouts.Layout(member.Type)
		if i > 0 && member.Offset < end {
			return Errorf(ErrTypeMismatch, "member %q at offset %d overlaps the previous member ending at %d", member.Name, member.Offset, end)
		}
		if member.Offset%layout.Alignment != 0 {
			return Errorf(ErrTypeMismatch, "member %q at offset %d is not aligned to %d", member.Name, member.Offset, layout.Alignment)
		}
		end = member.Offset + layout.Size
	}
	last := t.Members[len(t.Members)-1]
	if arr, ok := v.typeInner(last.Type).(ArrayType); ok && arr.IsRuntimeSized() {
		end = last.Offset
	}
	if end > t.Span {
		return Errorf(ErrTypeMismatch, "members end at %d past the struct span %d", end, t.Span)
	}
	return nil
}

// isData reports whether values of h can be stored in memory.
func (v *Validator) isData(h TypeHandle) bool {
	switch v.typeInner(h).(type) {
	case ScalarType, VectorType, MatrixType, ArrayType, StructType:
		return true
	}
	return false
}

// isSizedData reports whether h is data with a size known at compile time.
func (v *Validator) isSizedData(h TypeHandle) bool {
	switch t := v.typeInner(h).(type) {
	case ScalarType, VectorType, MatrixType:
		return true
	case ArrayType:
		return !t.IsRuntimeSized()
	case StructType:
		return !v.endsInRuntimeArray(t)
	}
	return false
}

func (v *Validator) endsInRuntimeArray(s StructType) bool {
	if len(s.Members) == 0 {
		return false
	}
	arr, ok := v.typeInner(s.Members[len(s.Members)-1].Type).(ArrayType)
	return ok && arr.IsRuntimeSized()
}

//nolint:gocyclo,cyclop // one case per composite kind
func (v *Validator) checkConstant(self ConstantHandle, c *Constant) *Error {
	if err := v.checkTypeHandle(c.Type); err != nil {
		return err
	}
	inner := v.typeInner(c.Type)

	switch val := c.Value.(type) {
	case ScalarValue:
		s, ok := inner.(ScalarType)
		if !ok || s.Kind != val.Kind {
			return Errorf(ErrTypeMismatch, "%s scalar value for constant of type %s", val.Kind, describe(v.module, inner))
		}
	case CompositeValue:
		components := make([]TypeHandle, len(val.Components))
		for i, comp := range val.Components {
			if int(comp) >= len(v.module.Constants) {
				return unresolved("constant", uint32(comp), len(v.module.Constants))
			}
			if comp >= self {
				return Errorf(ErrUnresolvedHandle, "constant %d refers to constant %d which is not defined before it", self, comp)
			}
			components[i] = v.module.Constants[comp].Type
		}

		var want []TypeInner
		switch t := inner.(type) {
		case VectorType:
			for range t.Size {
				want = append(want, t.Scalar)
			}
		case MatrixType:
			for range t.Columns {
				want = append(want, VectorType{Size: t.Rows, Scalar: t.Scalar})
			}
		case ArrayType:
			if t.Size == nil {
				return Errorf(ErrTypeMismatch, "constant of runtime-sized array type")
			}
			for range *t.Size {
				want = append(want, v.typeInner(t.Base))
			}
		case StructType:
			for _, member := range t.Members {
				want = append(want, v.typeInner(member.Type))
			}
		default:
			return Errorf(ErrTypeMismatch, "composite value for constant of type %s", describe(v.module, inner))
		}

		if len(want) != len(components) {
			return Errorf(ErrTypeMismatch, "%s needs %d components, got %d", describe(v.module, inner), len(want), len(components))
		}
		for i, comp := range components {
			if !v.sameType(TypeResolution{Handle: &comp}, TypeResolution{Value: want[i]}) &&
				!v.sameStructHandle(inner, i, comp) {
				return Errorf(ErrTypeMismatch, "component %d has type %s, want %s", i, describeHandle(v.module, comp), describe(v.module, want[i]))
			}
		}
	default:
		return Errorf(ErrTypeMismatch, "constant has no value")
	}
	return nil
}

// sameStructHandle handles composite components whose expected type is a
// struct, which only compare equal by handle.
func (v *Validator) sameStructHandle(container TypeInner, index int, got TypeHandle) bool {
	switch t := container.(type) {
	case ArrayType:
		return t.Base == got
	case StructType:
		return t.Members[index].Type == got
	}
	return false
}

func (v *Validator) checkInit(init *ConstantHandle, ty TypeHandle) *Error {
	if init == nil {
		return nil
	}
	if int(*init) >= len(v.module.Constants) {
		return unresolved("constant", uint32(*init), len(v.module.Constants))
	}
	if got := v.module.Constants[*init].Type; got != ty && !v.sameTypeAs(TypeResolution{Handle: &got}, ty) {
		return Errorf(ErrTypeMismatch, "initializer of type %s for variable of type %s", describeHandle(v.module, got), describeHandle(v.module, ty))
	}
	return nil
}

func (v *Validator) checkSignature(fn *Function) *Error {
	for i, arg := range fn.Arguments {
		if err := v.checkTypeHandle(arg.Type); err != nil {
			return err
		}
		switch v.typeInner(arg.Type).(type) {
		case ImageType, SamplerType, PointerType:
		default:
			if !v.isSizedData(arg.Type) {
				return Errorf(ErrTypeMismatch, "argument %d has unsized type %s", i, describeHandle(v.module, arg.Type))
			}
		}
	}
	if fn.Result != nil {
		if err := v.checkTypeHandle(fn.Result.Type); err != nil {
			return err
		}
		if !v.isSizedData(fn.Result.Type) {
			return Errorf(ErrTypeMismatch, "function returns unsized or opaque type %s", describeHandle(v.module, fn.Result.Type))
		}
	}
	for i := range fn.LocalVars {
		local := &fn.LocalVars[i]
		if err := v.checkTypeHandle(local.Type); err != nil {
			return err
		}
		if !v.isSizedData(local.Type) {
			return Errorf(ErrTypeMismatch, "local %q has unsized or opaque type %s", local.Name, describeHandle(v.module, local.Type))
		}
		if err := v.checkInit(local.Init, local.Type); err != nil {
			return err
		}
	}
	return nil
}
