package ir

import "testing"

func TestAddType_Interning(t *testing.T) {
	m := &Module{}

	f32 := m.AddType(Type{Inner: ScalarF32})
	vec4 := m.AddType(Type{Name: "vec4f", Inner: VectorType{Size: Vec4, Scalar: ScalarF32}})

	if got := m.AddType(Type{Inner: ScalarF32}); got != f32 {
		t.Errorf("second f32 = %d, want %d", got, f32)
	}
	// Names of non-struct types do not take part in interning.
	if got := m.AddType(Type{Name: "other", Inner: VectorType{Size: Vec4, Scalar: ScalarF32}}); got != vec4 {
		t.Errorf("renamed vec4 = %d, want %d", got, vec4)
	}
	if len(m.Types) != 2 {
		t.Fatalf("len(Types) = %d, want 2", len(m.Types))
	}
	if m.Types[vec4].Name != "vec4f" {
		t.Errorf("vec4 name = %q, want the first name", m.Types[vec4].Name)
	}
}

func TestAddType_StructNames(t *testing.T) {
	m := &Module{}
	f32 := m.AddType(Type{Inner: ScalarF32})
	members := []StructMember{{Name: "x", Type: f32}}

	a := m.AddType(Type{Name: "A", Inner: StructType{Members: members, Span: 4}})
	b := m.AddType(Type{Name: "B", Inner: StructType{Members: members, Span: 4}})
	again := m.AddType(Type{Name: "A", Inner: StructType{Members: members, Span: 4}})

	if a == b {
		t.Error("structs with different names share a handle")
	}
	if again != a {
		t.Errorf("identical struct = %d, want %d", again, a)
	}
}

func TestAddType_IndexesDirectAppends(t *testing.T) {
	m := &Module{
		Types: []Type{
			{Inner: ScalarF32},
			{Inner: ScalarU32},
		},
	}
	if got := m.AddType(Type{Inner: ScalarU32}); got != 1 {
		t.Errorf("AddType(u32) = %d, want 1", got)
	}

	m.Types = append(m.Types, Type{Inner: ScalarI32})
	if got := m.AddType(Type{Inner: ScalarI32}); got != 2 {
		t.Errorf("AddType(i32) after direct append = %d, want 2", got)
	}
}

func TestAddConstant_Interning(t *testing.T) {
	m := &Module{}
	f32 := m.AddType(Type{Inner: ScalarF32})

	one := m.AddConstant(Constant{Type: f32, Value: ScalarValue{Bits: 0x3f800000, Kind: ScalarFloat}})
	if got := m.AddConstant(Constant{Type: f32, Value: ScalarValue{Bits: 0x3f800000, Kind: ScalarFloat}}); got != one {
		t.Errorf("second 1.0 = %d, want %d", got, one)
	}
	named := m.AddConstant(Constant{Name: "ONE", Type: f32, Value: ScalarValue{Bits: 0x3f800000, Kind: ScalarFloat}})
	if named == one {
		t.Error("named constant interned with anonymous one")
	}
}

func TestLookupType_DoesNotAllocate(t *testing.T) {
	m := &Module{}
	m.AddType(Type{Inner: ScalarF32})

	if _, ok := m.LookupType(ScalarU32); ok {
		t.Error("LookupType found a type that was never added")
	}
	if len(m.Types) != 1 {
		t.Errorf("LookupType grew the arena to %d types", len(m.Types))
	}
	if h, ok := m.LookupType(ScalarF32); !ok || h != 0 {
		t.Errorf("LookupType(f32) = %d, %v; want 0, true", h, ok)
	}
	if _, ok := m.LookupType(StructType{}); ok {
		t.Error("LookupType matched a struct")
	}
}

func TestAccessors_UnresolvedHandle(t *testing.T) {
	m := &Module{}
	fn := &Function{}

	tests := []struct {
		name string
		call func() error
	}{
		{"type", func() error { _, err := m.Type(3); return err }},
		{"constant", func() error { _, err := m.Constant(0); return err }},
		{"global", func() error { _, err := m.GlobalVariable(1); return err }},
		{"function", func() error { _, err := m.Function(0); return err }},
		{"entry point", func() error { _, err := m.EntryPointFunction(0); return err }},
		{"expression", func() error { _, err := fn.Expression(7); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !IsKind(err, ErrUnresolvedHandle) {
				t.Errorf("error = %v, want UnresolvedHandle", err)
			}
		})
	}
}
