package back

import (
	"testing"

	"github.com/gogpu/shadercross/internal/samples"
	"github.com/gogpu/shadercross/ir"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"fs_main", "fs_main"},
		{"", "unnamed"},
		{"light-color", "light_color"},
		{"a  b", "a_b"},
		{"__private", "private"},
		{"2d_texture", "d_texture"},
		{"über", "ber"},
		{"café", "caf_"},
		{"café", "caf_"},
		{"x__y", "x_y"},
		{"123", "unnamed"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNamer_Call(t *testing.T) {
	kw := NewKeywords(map[string]struct{}{"float": {}, "main": {}}, false)
	n := NewNamer(kw)

	got := []string{
		n.Call("color"),
		n.Call("color"),
		n.Call("color"),
		n.Call("float"),
		n.Call("float"),
		n.Call("light1"),
		n.Call("light1"),
		n.Call("Color"),
	}
	want := []string{"color", "color_1", "color_2", "_float", "_float_1", "light1", "light1_1", "Color"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNamer_FoldCase(t *testing.T) {
	kw := NewKeywords(map[string]struct{}{"Texture2D": {}}, true)
	n := NewNamer(kw)

	if got := n.Call("texture2d"); got != "_texture2d" {
		t.Errorf("keyword in other case = %q, want _texture2d", got)
	}
	if a, b := n.Call("Counters"), n.Call("counters"); a != "Counters" || b != "counters" {
		t.Errorf("names differing in case = %q and %q, want both unchanged", a, b)
	}
}

func TestNamer_Prefixes(t *testing.T) {
	n := NewNamer(NewKeywords(nil, false, "gl_"))
	if got := n.Call("gl_Position"); got != "_gl_Position" {
		t.Errorf("reserved prefix = %q, want _gl_Position", got)
	}
}

func TestNamer_ScopeIsolation(t *testing.T) {
	n := NewNamer(nil)
	n.Call("shared")
	a := n.Scope()
	b := n.Scope()

	if got := a.Call("shared"); got != "shared_1" {
		t.Errorf("scope sees module name: got %q, want shared_1", got)
	}
	if got := b.Call("tmp"); got != "tmp" {
		t.Errorf("sibling scope leaked: got %q, want tmp", got)
	}
	a.Call("tmp")
	if got := n.Call("tmp"); got != "tmp" {
		t.Errorf("scope leaked into parent: got %q, want tmp", got)
	}
}

func TestNamer_Process(t *testing.T) {
	m := samples.Shadow()
	n := NewNamer(nil)
	names, err := n.Process(m, []int{1})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	fs := m.EntryPoints[1]
	checks := map[NameKey]string{
		{Kind: NameEntryPoint, Handle1: 1}:                          "fs_main",
		{Kind: NameFunction, Handle1: uint32(fs.Function)}:          "fs_main",
		{Kind: NameGlobal, Handle1: 0}:                              "u_globals",
		{Kind: NameConstant, Handle1: 1}:                            "c_ambient",
		{Kind: NameArgument, Handle1: uint32(fs.Function)}:          "in",
		{Kind: NameLocal, Handle1: uint32(fs.Function)}:             "color",
		{Kind: NameLocal, Handle1: uint32(fs.Function), Handle2: 1}: "i",
	}
	for key, want := range checks {
		if got := names.Get(key); got != want {
			t.Errorf("%+v = %q, want %q", key, got, want)
		}
	}

	// Struct members live in their own namespace.
	var lightType uint32
	for i, ty := range m.Types {
		if ty.Name == "Light" {
			lightType = uint32(i) //nolint:gosec // test arena
		}
	}
	if got := names.Get(NameKey{Kind: NameStructMember, Handle1: lightType, Handle2: 2}); got != "color" {
		t.Errorf("Light.color = %q, want color", got)
	}
}

func TestNamer_ProcessEntryPointCollision(t *testing.T) {
	m := samples.Quad()
	m.EntryPoints[0].Name = "main-pass"
	m.EntryPoints[1].Name = "main pass"

	_, err := NewNamer(nil).Process(m, []int{0, 1})
	if !ir.IsKind(err, ir.ErrNameCollision) {
		t.Fatalf("error = %v, want NameCollision", err)
	}
}

func TestNames_GetMissing(t *testing.T) {
	names := Names{}
	if got := names.Get(NameKey{Kind: NameGlobal, Handle1: 4}); got != "unnamed_3_4_0" {
		t.Errorf("Get(missing) = %q", got)
	}
}

func TestResultName(t *testing.T) {
	tests := []struct {
		stage   ir.ShaderStage
		binding ir.Binding
		want    string
	}{
		{ir.StageFragment, ir.LocationBinding{Location: 0}, "color"},
		{ir.StageFragment, ir.BuiltinBinding{Builtin: ir.BuiltinFragDepth}, "frag_depth"},
		{ir.StageVertex, ir.BuiltinBinding{Builtin: ir.BuiltinPosition}, "position"},
		{ir.StageVertex, ir.LocationBinding{Location: 2}, "value"},
	}
	for _, tt := range tests {
		if got := ResultName(tt.stage, tt.binding); got != tt.want {
			t.Errorf("ResultName(%s, %+v) = %q, want %q", tt.stage, tt.binding, got, tt.want)
		}
	}
}
