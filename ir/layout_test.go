package ir

import "testing"

func TestLayouter(t *testing.T) {
	m := &Module{}
	f32 := m.AddType(Type{Inner: ScalarF32})
	vec2 := m.AddType(Type{Inner: VectorType{Size: Vec2, Scalar: ScalarF32}})
	vec3 := m.AddType(Type{Inner: VectorType{Size: Vec3, Scalar: ScalarF32}})
	vec4 := m.AddType(Type{Inner: VectorType{Size: Vec4, Scalar: ScalarF32}})
	mat4 := m.AddType(Type{Inner: MatrixType{Columns: Vec4, Rows: Vec4, Scalar: ScalarF32}})
	mat3 := m.AddType(Type{Inner: MatrixType{Columns: Vec3, Rows: Vec3, Scalar: ScalarF32}})
	arr := m.AddType(Type{Inner: ArrayType{Base: vec3, Size: uint32Ptr(4)}})
	rt := m.AddType(Type{Inner: ArrayType{Base: f32, Stride: 8}})
	light := m.AddType(Type{Name: "Light", Inner: StructType{
		Members: []StructMember{
			{Name: "proj", Type: mat4, Offset: 0},
			{Name: "pos", Type: vec4, Offset: 64},
			{Name: "color", Type: vec4, Offset: 80},
		},
		Span: 96,
	}})

	var l Layouter
	if err := l.Update(m); err != nil {
		t.Fatalf("Update: %v", err)
	}

	tests := []struct {
		name   string
		handle TypeHandle
		want   TypeLayout
		stride uint32
	}{
		{"f32", f32, TypeLayout{Size: 4, Alignment: 4}, 4},
		{"vec2", vec2, TypeLayout{Size: 8, Alignment: 8}, 8},
		{"vec3", vec3, TypeLayout{Size: 12, Alignment: 16}, 16},
		{"vec4", vec4, TypeLayout{Size: 16, Alignment: 16}, 16},
		{"mat4x4", mat4, TypeLayout{Size: 64, Alignment: 16}, 64},
		{"mat3x3", mat3, TypeLayout{Size: 48, Alignment: 16}, 48},
		{"array<vec3, 4>", arr, TypeLayout{Size: 64, Alignment: 16}, 64},
		{"runtime array with stride", rt, TypeLayout{Size: 8, Alignment: 4}, 8},
		{"Light", light, TypeLayout{Size: 96, Alignment: 16}, 96},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Layout(tt.handle)
			if got != tt.want {
				t.Errorf("Layout = %+v, want %+v", got, tt.want)
			}
			if got.Stride() != tt.stride {
				t.Errorf("Stride = %d, want %d", got.Stride(), tt.stride)
			}
		})
	}
}

func TestLayouter_ForwardReference(t *testing.T) {
	m := &Module{
		Types: []Type{
			{Inner: ArrayType{Base: 1, Size: uint32Ptr(2)}},
			{Inner: ScalarF32},
		},
	}
	var l Layouter
	err := l.Update(m)
	if !IsKind(err, ErrUnresolvedHandle) {
		t.Fatalf("Update error = %v, want UnresolvedHandle", err)
	}
}

func TestLayouter_InnerLayout(t *testing.T) {
	m := &Module{}
	f32 := m.AddType(Type{Inner: ScalarF32})
	var l Layouter
	if err := l.Update(m); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got := l.InnerLayout(ArrayType{Base: f32, Size: uint32Ptr(3)})
	if got != (TypeLayout{Size: 12, Alignment: 4}) {
		t.Errorf("InnerLayout = %+v", got)
	}
}

func uint32Ptr(v uint32) *uint32 {
	return &v
}
