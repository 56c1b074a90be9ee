package samples

import (
	"testing"

	"github.com/gogpu/shadercross/ir"
)

func TestSamplesValidate(t *testing.T) {
	for _, s := range All() {
		t.Run(s.Name, func(t *testing.T) {
			if _, err := ir.Validate(s.Build()); err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestSamplesAreSorted(t *testing.T) {
	all := All()
	for i := 1; i < len(all); i++ {
		if all[i-1].Name >= all[i].Name {
			t.Errorf("%q listed before %q", all[i-1].Name, all[i].Name)
		}
	}
}

func TestLookup(t *testing.T) {
	if _, ok := Lookup("shadow"); !ok {
		t.Error(`Lookup("shadow") found nothing`)
	}
	if _, ok := Lookup("missing"); ok {
		t.Error(`Lookup("missing") found a sample`)
	}
}

func TestShadowFacts(t *testing.T) {
	m := Shadow()
	info, err := ir.Validate(m)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	fs := m.EntryPoints[1]
	if fs.Name != "fs_main" {
		t.Fatalf("entry point 1 is %q", fs.Name)
	}
	fi := info.Functions[fs.Function]
	if len(fi.Callees) != 1 || m.Functions[fi.Callees[0]].Name != "fetch_shadow" {
		t.Errorf("fs_main callees = %v, want fetch_shadow", fi.Callees)
	}
	// fetch_shadow's texture and sampler reach fs_main through the call.
	if len(fi.Globals) != 5 {
		t.Errorf("fs_main uses %d globals, want 5", len(fi.Globals))
	}
	if fi.Derivatives {
		t.Error("level-zero comparison sampling marked as using derivatives")
	}
}

func TestQuadFacts(t *testing.T) {
	m := Quad()
	info, err := ir.Validate(m)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	frag := info.Functions[m.EntryPoints[1].Function]
	if !frag.Kill || !frag.Derivatives {
		t.Errorf("frag_main Kill=%v Derivatives=%v, want both", frag.Kill, frag.Derivatives)
	}
}

func TestComputeFacts(t *testing.T) {
	m := Compute()
	info, err := ir.Validate(m)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if fi := info.Functions[0]; !fi.Barrier {
		t.Error("cs_main does not report its barrier")
	}
}
