package irpack

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gogpu/shadercross/internal/samples"
	"github.com/gogpu/shadercross/ir"
	"github.com/gogpu/shadercross/spirv"
)

func TestRoundTripSamples(t *testing.T) {
	for _, s := range samples.All() {
		t.Run(s.Name, func(t *testing.T) {
			original := s.Build()
			data, err := Marshal(original)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			decoded, err := Unmarshal(data)
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}

			again, err := Marshal(decoded)
			if err != nil {
				t.Fatalf("Marshal decoded: %v", err)
			}
			if !bytes.Equal(data, again) {
				t.Error("re-encoding the decoded module changed the bytes")
			}

			if len(decoded.Types) != len(original.Types) ||
				len(decoded.Constants) != len(original.Constants) ||
				len(decoded.GlobalVariables) != len(original.GlobalVariables) ||
				len(decoded.Functions) != len(original.Functions) ||
				len(decoded.EntryPoints) != len(original.EntryPoints) {
				t.Fatal("arena sizes differ after the round trip")
			}

			want, err := spirv.Compile(original, spirv.DefaultOptions())
			if err != nil {
				t.Fatalf("spirv.Compile(original): %v", err)
			}
			got, err := spirv.Compile(decoded, spirv.DefaultOptions())
			if err != nil {
				t.Fatalf("spirv.Compile(decoded): %v", err)
			}
			if !slices.Equal(want.Words, got.Words) {
				t.Error("decoded module compiles to different SPIR-V")
			}
		})
	}
}

func TestDecodedModuleInterns(t *testing.T) {
	data, err := Marshal(samples.Quad())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	m, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	n := len(m.Types)
	f32 := m.AddType(ir.Type{Inner: ir.ScalarF32})
	if len(m.Types) != n {
		t.Errorf("AddType appended an existing type as %d", f32)
	}
}

func TestVariantsSurvive(t *testing.T) {
	m := &ir.Module{}
	u32 := m.AddType(ir.Type{Inner: ir.ScalarU32})
	m.AddType(ir.Type{Inner: ir.ScalarF64})
	b := ir.NewFunctionBuilder("main")
	b.Local("x", u32, nil)
	sel := b.Expr(ir.Literal{Value: ir.LiteralI32(-3)})
	b.Expr(ir.Literal{Value: ir.LiteralF64(0.25)})
	b.Stmt(ir.StmtSwitch{Selector: sel, Cases: []ir.SwitchCase{
		{Value: ir.SwitchValueI32(-3), FallThrough: true},
		{Value: ir.SwitchValueDefault{}, Body: ir.Block{{Kind: ir.StmtBreak{}}}},
	}})
	b.Stmt(ir.StmtBarrier{Flags: ir.BarrierStorage | ir.BarrierWorkGroup})
	fn := m.AddFunction(b.Finish())
	m.AddEntryPoint(ir.EntryPoint{Name: "main", Stage: ir.StageCompute, Function: fn, Workgroup: [3]uint32{8, 8, 1}})

	data, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	exprs := got.Functions[0].Expressions
	var literals []ir.LiteralValue
	for _, e := range exprs {
		if l, ok := e.Kind.(ir.Literal); ok {
			literals = append(literals, l.Value)
		}
	}
	if !slices.Contains(literals, ir.LiteralValue(ir.LiteralI32(-3))) || !slices.Contains(literals, ir.LiteralValue(ir.LiteralF64(0.25))) {
		t.Errorf("literals = %v", literals)
	}

	var sw *ir.StmtSwitch
	var barrier *ir.StmtBarrier
	for _, s := range got.Functions[0].Body {
		switch k := s.Kind.(type) {
		case ir.StmtSwitch:
			sw = &k
		case ir.StmtBarrier:
			barrier = &k
		}
	}
	if sw == nil || len(sw.Cases) != 2 {
		t.Fatalf("switch = %+v", sw)
	}
	if sw.Cases[0].Value != ir.SwitchValue(ir.SwitchValueI32(-3)) || !sw.Cases[0].FallThrough {
		t.Errorf("first case = %+v", sw.Cases[0])
	}
	if _, ok := sw.Cases[1].Value.(ir.SwitchValueDefault); !ok {
		t.Errorf("second case value = %T", sw.Cases[1].Value)
	}
	if _, ok := sw.Cases[1].Body[0].Kind.(ir.StmtBreak); !ok {
		t.Errorf("default body = %+v", sw.Cases[1].Body)
	}
	if barrier == nil || barrier.Flags != ir.BarrierStorage|ir.BarrierWorkGroup {
		t.Errorf("barrier = %+v", barrier)
	}
	if got.EntryPoints[0].Workgroup != [3]uint32{8, 8, 1} {
		t.Errorf("workgroup = %v", got.EntryPoints[0].Workgroup)
	}
}

func TestSwizzleSurvives(t *testing.T) {
	m := &ir.Module{}
	b := ir.NewFunctionBuilder("main")
	one := b.Expr(ir.Literal{Value: ir.LiteralF32(1)})
	vec := b.Expr(ir.ExprSplat{Size: ir.Vec4, Value: one})
	want := ir.ExprSwizzle{Size: ir.Vec3, Vector: vec, Pattern: [4]ir.SwizzleComponent{ir.SwizzleW, ir.SwizzleZ, ir.SwizzleX, ir.SwizzleX}}
	b.Expr(want)
	m.AddFunction(b.Finish())

	data, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	var found bool
	for _, e := range got.Functions[0].Expressions {
		if sw, ok := e.Kind.(ir.ExprSwizzle); ok {
			found = true
			if sw != want {
				t.Errorf("swizzle = %+v, want %+v", sw, want)
			}
		}
	}
	if !found {
		t.Error("decoded function has no swizzle")
	}
}

func TestDecodeRejects(t *testing.T) {
	foreign, err := msgpack.Marshal(map[string]any{"Magic": "something else", "Format": FormatVersion})
	if err != nil {
		t.Fatal(err)
	}
	future, err := msgpack.Marshal(map[string]any{"Magic": magic, "Format": FormatVersion + 1})
	if err != nil {
		t.Fatal(err)
	}
	badTag, err := msgpack.Marshal(map[string]any{
		"Magic":  magic,
		"Format": FormatVersion,
		"Types":  []any{map[string]any{"Name": "", "Inner": []any{uint8(200), nil}}},
	})
	if err != nil {
		t.Fatal(err)
	}

	shortSwizzle, err := msgpack.Marshal(map[string]any{
		"Magic":  magic,
		"Format": FormatVersion,
		"Functions": []any{map[string]any{
			"Expressions": []any{[]any{exprSwizzle, map[string]any{"Size": 2, "Vector": 0, "Pattern": []byte{0, 1}}}},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"empty", nil, "irpack:"},
		{"foreign", foreign, "not a shadercross IR module"},
		{"future", future, "format version"},
		{"unknown variant", badTag, "unknown type tag 200"},
		{"short swizzle", shortSwizzle, "swizzle pattern has 2 components"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Unmarshal() error = %v, want %q", err, tt.want)
			}
		})
	}
}
