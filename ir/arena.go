package ir

import (
	"strconv"

	"fortio.org/safecast"
)

// AddType interns t and returns its handle. Two structurally identical
// types share one handle; only struct names take part in the comparison,
// other types keep the name they were first added with.
func (m *Module) AddType(t Type) TypeHandle {
	m.syncTypeIndex()
	key := typeKey(t)
	if h, ok := m.typeIndex[key]; ok {
		return h
	}
	h := safecast.MustConv[TypeHandle](len(m.Types))
	m.Types = append(m.Types, t)
	m.typeIndex[key] = h
	return h
}

// AddConstant interns c and returns its handle.
func (m *Module) AddConstant(c Constant) ConstantHandle {
	m.syncConstantIndex()
	key := constantKey(c)
	if h, ok := m.constantIndex[key]; ok {
		return h
	}
	h := safecast.MustConv[ConstantHandle](len(m.Constants))
	m.Constants = append(m.Constants, c)
	m.constantIndex[key] = h
	return h
}

// AddGlobalVariable appends a global variable.
func (m *Module) AddGlobalVariable(g GlobalVariable) GlobalVariableHandle {
	h := safecast.MustConv[GlobalVariableHandle](len(m.GlobalVariables))
	m.GlobalVariables = append(m.GlobalVariables, g)
	return h
}

// AddFunction appends a function.
func (m *Module) AddFunction(f Function) FunctionHandle {
	h := safecast.MustConv[FunctionHandle](len(m.Functions))
	m.Functions = append(m.Functions, f)
	return h
}

// AddEntryPoint appends an entry point and returns its index.
func (m *Module) AddEntryPoint(ep EntryPoint) int {
	m.EntryPoints = append(m.EntryPoints, ep)
	return len(m.EntryPoints) - 1
}

// LookupType finds an already interned type structurally equal to inner.
// It never allocates a handle, so it is safe on a validated module.
func (m *Module) LookupType(inner TypeInner) (TypeHandle, bool) {
	if _, isStruct := inner.(StructType); isStruct {
		return 0, false
	}
	key := typeKey(Type{Inner: inner})
	if m.typeIndex != nil && m.typeIndexed == len(m.Types) {
		h, ok := m.typeIndex[key]
		return h, ok
	}
	for i := range m.Types {
		if typeKey(m.Types[i]) == key {
			return safecast.MustConv[TypeHandle](i), true
		}
	}
	return 0, false
}

// Type returns the type for h.
func (m *Module) Type(h TypeHandle) (*Type, error) {
	if int(h) >= len(m.Types) {
		return nil, unresolved("type", uint32(h), len(m.Types))
	}
	return &m.Types[h], nil
}

// Constant returns the constant for h.
func (m *Module) Constant(h ConstantHandle) (*Constant, error) {
	if int(h) >= len(m.Constants) {
		return nil, unresolved("constant", uint32(h), len(m.Constants))
	}
	return &m.Constants[h], nil
}

// GlobalVariable returns the global variable for h.
func (m *Module) GlobalVariable(h GlobalVariableHandle) (*GlobalVariable, error) {
	if int(h) >= len(m.GlobalVariables) {
		return nil, unresolved("global variable", uint32(h), len(m.GlobalVariables))
	}
	return &m.GlobalVariables[h], nil
}

// Function returns the function for h.
func (m *Module) Function(h FunctionHandle) (*Function, error) {
	if int(h) >= len(m.Functions) {
		return nil, unresolved("function", uint32(h), len(m.Functions))
	}
	return &m.Functions[h], nil
}

// EntryPointFunction returns the function an entry point runs.
func (m *Module) EntryPointFunction(index int) (*Function, error) {
	if index < 0 || index >= len(m.EntryPoints) {
		return nil, Errorf(ErrUnresolvedHandle, "entry point %d out of range (have %d)", index, len(m.EntryPoints))
	}
	return m.Function(m.EntryPoints[index].Function)
}

// Expression returns the expression for h.
func (f *Function) Expression(h ExpressionHandle) (*Expression, error) {
	if int(h) >= len(f.Expressions) {
		return nil, unresolved("expression", uint32(h), len(f.Expressions))
	}
	return &f.Expressions[h], nil
}

// syncTypeIndex indexes types appended directly to the Types slice.
func (m *Module) syncTypeIndex() {
	if m.typeIndex == nil {
		m.typeIndex = make(map[string]TypeHandle, len(m.Types)+16)
		m.typeIndexed = 0
	}
	for ; m.typeIndexed < len(m.Types); m.typeIndexed++ {
		key := typeKey(m.Types[m.typeIndexed])
		if _, ok := m.typeIndex[key]; !ok {
			m.typeIndex[key] = safecast.MustConv[TypeHandle](m.typeIndexed)
		}
	}
}

func (m *Module) syncConstantIndex() {
	if m.constantIndex == nil {
		m.constantIndex = make(map[string]ConstantHandle, len(m.Constants)+16)
		m.constantIndexed = 0
	}
	for ; m.constantIndexed < len(m.Constants); m.constantIndexed++ {
		key := constantKey(m.Constants[m.constantIndexed])
		if _, ok := m.constantIndex[key]; !ok {
			m.constantIndex[key] = safecast.MustConv[ConstantHandle](m.constantIndexed)
		}
	}
}

// typeKey creates a unique key for a type based on its structure.
// Two structurally identical types produce the same key.
func typeKey(t Type) string {
	b := make([]byte, 0, 32)
	if _, isStruct := t.Inner.(StructType); isStruct {
		b = append(b, t.Name...)
		b = append(b, '=')
	}
	return string(appendInnerKey(b, t.Inner))
}

func appendScalarKey(b []byte, s ScalarType) []byte {
	b = strconv.AppendUint(b, uint64(s.Kind), 10)
	b = append(b, 'w')
	return strconv.AppendUint(b, uint64(s.Width), 10)
}

func appendOptionalSize(b []byte, size *uint32) []byte {
	if size == nil {
		return append(b, "rt"...)
	}
	return strconv.AppendUint(b, uint64(*size), 10)
}

func appendBindingKey(b []byte, binding Binding) []byte {
	switch bd := binding.(type) {
	case BuiltinBinding:
		b = append(b, "@b"...)
		b = strconv.AppendUint(b, uint64(bd.Builtin), 10)
	case LocationBinding:
		b = append(b, "@l"...)
		b = strconv.AppendUint(b, uint64(bd.Location), 10)
		if bd.Interpolation != nil {
			b = append(b, 'i')
			b = strconv.AppendUint(b, uint64(bd.Interpolation.Kind), 10)
			b = append(b, 's')
			b = strconv.AppendUint(b, uint64(bd.Interpolation.Sampling), 10)
		}
	}
	return b
}

func appendInnerKey(b []byte, inner TypeInner) []byte {
	switch t := inner.(type) {
	case ScalarType:
		b = append(b, "scalar:"...)
		b = appendScalarKey(b, t)
	case VectorType:
		b = append(b, "vec"...)
		b = strconv.AppendUint(b, uint64(t.Size), 10)
		b = append(b, ':')
		b = appendScalarKey(b, t.Scalar)
	case MatrixType:
		b = append(b, "mat"...)
		b = strconv.AppendUint(b, uint64(t.Columns), 10)
		b = append(b, 'x')
		b = strconv.AppendUint(b, uint64(t.Rows), 10)
		b = append(b, ':')
		b = appendScalarKey(b, t.Scalar)
	case ArrayType:
		b = append(b, "array:"...)
		b = strconv.AppendUint(b, uint64(t.Base), 10)
		b = append(b, ':')
		b = appendOptionalSize(b, t.Size)
		b = append(b, ':')
		b = strconv.AppendUint(b, uint64(t.Stride), 10)
	case StructType:
		b = append(b, "struct:"...)
		b = strconv.AppendUint(b, uint64(t.Span), 10)
		for _, member := range t.Members {
			b = append(b, "|"...)
			b = append(b, member.Name...)
			b = append(b, ':')
			b = strconv.AppendUint(b, uint64(member.Type), 10)
			b = append(b, '@')
			b = strconv.AppendUint(b, uint64(member.Offset), 10)
			b = appendBindingKey(b, member.Binding)
		}
	case PointerType:
		b = append(b, "ptr:"...)
		b = strconv.AppendUint(b, uint64(t.Base), 10)
		b = append(b, ':')
		b = strconv.AppendUint(b, uint64(t.Space), 10)
	case ValuePointerType:
		b = append(b, "vptr:"...)
		b = strconv.AppendUint(b, uint64(t.Size), 10)
		b = append(b, ':')
		b = appendScalarKey(b, t.Scalar)
		b = append(b, ':')
		b = strconv.AppendUint(b, uint64(t.Space), 10)
	case SamplerType:
		if t.Comparison {
			b = append(b, "sampler:cmp"...)
		} else {
			b = append(b, "sampler"...)
		}
	case ImageType:
		b = append(b, "image:"...)
		b = strconv.AppendUint(b, uint64(t.Dim), 10)
		b = strconv.AppendBool(b, t.Arrayed)
		b = strconv.AppendBool(b, t.Multisampled)
		b = append(b, ':')
		b = strconv.AppendUint(b, uint64(t.Class), 10)
		switch t.Class {
		case ImageClassSampled:
			b = append(b, ':')
			b = strconv.AppendUint(b, uint64(t.SampledKind), 10)
		case ImageClassStorage:
			b = append(b, ':')
			b = strconv.AppendUint(b, uint64(t.Format), 10)
			b = append(b, ':')
			b = strconv.AppendUint(b, uint64(t.Access), 10)
		}
	case BindingArrayType:
		b = append(b, "bindarray:"...)
		b = strconv.AppendUint(b, uint64(t.Base), 10)
		b = append(b, ':')
		b = appendOptionalSize(b, t.Size)
	default:
		b = append(b, "nil"...)
	}
	return b
}

func constantKey(c Constant) string {
	b := make([]byte, 0, 32)
	b = append(b, c.Name...)
	b = append(b, '=')
	b = strconv.AppendUint(b, uint64(c.Type), 10)
	b = append(b, ':')
	switch v := c.Value.(type) {
	case ScalarValue:
		b = append(b, 's')
		b = strconv.AppendUint(b, uint64(v.Kind), 10)
		b = append(b, ':')
		b = strconv.AppendUint(b, v.Bits, 16)
	case CompositeValue:
		b = append(b, 'c')
		for _, comp := range v.Components {
			b = append(b, ',')
			b = strconv.AppendUint(b, uint64(comp), 10)
		}
	default:
		b = append(b, "nil"...)
	}
	return string(b)
}
