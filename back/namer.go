package back

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/shadercross/ir"
)

// NameKeyKind says which arena a NameKey points into.
type NameKeyKind uint8

const (
	NameType NameKeyKind = iota
	NameStructMember
	NameConstant
	NameGlobal
	NameFunction
	NameArgument
	NameEntryPoint
	NameLocal
)

// NameKey identifies an IR entity that receives an output identifier.
// Handle2 is the member, argument or local index where one applies.
type NameKey struct {
	Kind    NameKeyKind
	Handle1 uint32
	Handle2 uint32
}

// Names maps IR entities to their output identifiers.
type Names map[NameKey]string

// Get returns the identifier for key.
func (ns Names) Get(key NameKey) string {
	if name, ok := ns[key]; ok {
		return name
	}
	return fmt.Sprintf("unnamed_%d_%d_%d", key.Kind, key.Handle1, key.Handle2)
}

// Namer hands out identifiers that are valid in the target language,
// avoid its keywords and never repeat.
//
// Sanitized names never start with an underscore, so backends can use
// underscore-prefixed names such as baked temporaries without asking the
// namer.
type Namer struct {
	keywords *Keywords
	used     map[string]uint32
	scopes   map[ir.FunctionHandle]*Namer
}

// NewNamer creates a namer for a target with the given reserved words.
func NewNamer(keywords *Keywords) *Namer {
	return &Namer{
		keywords: keywords,
		used:     make(map[string]uint32),
	}
}

// Call returns a fresh identifier derived from label.
func (n *Namer) Call(label string) string {
	base := Sanitize(label)
	if n.keywords.Contains(base) {
		base = "_" + base
	}
	suffix, seen := n.used[base]
	if !seen {
		n.used[base] = 0
		return base
	}

	sep := "_"
	if strings.HasSuffix(base, "_") {
		sep = ""
	}
	for {
		suffix++
		candidate := base + sep + strconv.FormatUint(uint64(suffix), 10)
		if _, taken := n.used[candidate]; !taken {
			n.used[base] = suffix
			n.used[candidate] = 0
			return candidate
		}
	}
}

// Reserve marks name as taken without returning it.
func (n *Namer) Reserve(name string) {
	if _, ok := n.used[name]; !ok {
		n.used[name] = 0
	}
}

// Scope returns a child namer that starts with every name taken so far.
// Names handed out by the child do not affect the parent.
func (n *Namer) Scope() *Namer {
	child := &Namer{keywords: n.keywords, used: make(map[string]uint32, len(n.used)+8)}
	for k, v := range n.used {
		child.used[k] = v
	}
	return child
}

// FunctionScope returns the scope Process used for the arguments and
// locals of fn. Backends continue naming function-local helpers in it.
func (n *Namer) FunctionScope(fn ir.FunctionHandle) *Namer {
	if scope, ok := n.scopes[fn]; ok {
		return scope
	}
	return n.Scope()
}

// Process names every entity of module that a backend may emit.
// entryPoints lists the entry point indices that will be written; their
// names are taken first so that they survive unchanged where possible.
//
// Entry point names are visible to the host API. Two of them that
// sanitize to the same identifier cannot be told apart afterwards and
// are reported as ErrNameCollision.
func (n *Namer) Process(module *ir.Module, entryPoints []int) (Names, error) {
	names := make(Names)
	n.scopes = make(map[ir.FunctionHandle]*Namer)

	claimed := make(map[string]int, len(entryPoints))
	for _, idx := range entryPoints {
		ep := &module.EntryPoints[idx]
		key := Sanitize(ep.Name)
		if other, dup := claimed[key]; dup {
			return nil, ir.Errorf(ir.ErrNameCollision,
				"entry points %q and %q both become %q", module.EntryPoints[other].Name, ep.Name, Sanitize(ep.Name)).WithEntryPoint(idx)
		}
		claimed[key] = idx

		name := n.Call(ep.Name)
		names[NameKey{Kind: NameEntryPoint, Handle1: uint32(idx)}] = name //nolint:gosec // G115: idx is a valid entry point index
		fnKey := NameKey{Kind: NameFunction, Handle1: uint32(ep.Function)}
		if _, ok := names[fnKey]; !ok {
			names[fnKey] = name
		}
	}

	for i, t := range module.Types {
		st, ok := t.Inner.(ir.StructType)
		if !ok {
			continue
		}
		h := uint32(i) //nolint:gosec // G115: i is a valid arena index
		names[NameKey{Kind: NameType, Handle1: h}] = n.Call(fallback(t.Name, "type", i))

		members := NewNamer(n.keywords)
		for j, m := range st.Members {
			names[NameKey{Kind: NameStructMember, Handle1: h, Handle2: uint32(j)}] = members.Call(fallback(m.Name, "member", j)) //nolint:gosec // G115: j is a valid member index
		}
	}

	for i, c := range module.Constants {
		if c.Name == "" {
			continue
		}
		names[NameKey{Kind: NameConstant, Handle1: uint32(i)}] = n.Call(c.Name) //nolint:gosec // G115: i is a valid arena index
	}

	for i, g := range module.GlobalVariables {
		names[NameKey{Kind: NameGlobal, Handle1: uint32(i)}] = n.Call(fallback(g.Name, "global", i)) //nolint:gosec // G115: i is a valid arena index
	}

	for i := range module.Functions {
		key := NameKey{Kind: NameFunction, Handle1: uint32(i)} //nolint:gosec // G115: i is a valid arena index
		if _, ok := names[key]; !ok {
			names[key] = n.Call(fallback(module.Functions[i].Name, "function", i))
		}
	}

	// Arguments and locals live in one scope per function, which sees
	// all module-level names but not those of other functions.
	for i := range module.Functions {
		fn := &module.Functions[i]
		h := ir.FunctionHandle(i) //nolint:gosec // G115: i is a valid arena index
		scope := n.Scope()
		n.scopes[h] = scope
		for j, arg := range fn.Arguments {
			names[NameKey{Kind: NameArgument, Handle1: uint32(h), Handle2: uint32(j)}] = scope.Call(fallback(arg.Name, "arg", j)) //nolint:gosec // G115: j is a valid argument index
		}
		for j, local := range fn.LocalVars {
			names[NameKey{Kind: NameLocal, Handle1: uint32(h), Handle2: uint32(j)}] = scope.Call(fallback(local.Name, "local", j)) //nolint:gosec // G115: j is a valid local index
		}
	}

	return names, nil
}

// ResultName labels the output struct member that carries an entry
// point result which is not itself a struct: the builtin's name, "color"
// for a fragment location and "value" otherwise.
func ResultName(stage ir.ShaderStage, binding ir.Binding) string {
	switch b := binding.(type) {
	case ir.BuiltinBinding:
		return b.Builtin.String()
	case ir.LocationBinding:
		if stage == ir.StageFragment {
			return "color"
		}
	}
	return "value"
}

func fallback(name, kind string, index int) string {
	if name != "" {
		return name
	}
	return kind + "_" + strconv.Itoa(index)
}

// Sanitize turns label into an ASCII identifier: the label is put in NFC
// form, every character outside [A-Za-z0-9_] becomes an underscore, runs
// of underscores collapse to one, and leading digits and underscores are
// dropped. An empty result becomes "unnamed".
func Sanitize(label string) string {
	label = norm.NFC.String(label)

	var b strings.Builder
	b.Grow(len(label))
	lastUnderscore := false
	for _, r := range label {
		switch {
		case r < 0x80 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'):
			if b.Len() == 0 && r >= '0' && r <= '9' {
				continue
			}
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if b.Len() == 0 || lastUnderscore {
				continue
			}
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	if b.Len() == 0 {
		return "unnamed"
	}
	return b.String()
}
