package back

import (
	"cmp"
	"slices"

	"github.com/gogpu/shadercross/ir"
)

// EntryPointGlobals returns the globals an entry point uses, directly or
// through calls, in handle order.
func EntryPointGlobals(module *ir.Module, info *ir.ModuleInfo, entry int) []ir.GlobalVariableHandle {
	return info.Functions[module.EntryPoints[entry].Function].Globals
}

// TextureUse is one (texture, sampler) combination an entry point reads.
// Loads and queries read a texture without a sampler; those uses have
// HasSampler unset.
type TextureUse struct {
	Texture    ir.GlobalVariableHandle
	Sampler    ir.GlobalVariableHandle
	HasSampler bool
}

// TextureUses collects the distinct texture uses of the functions
// reachable from an entry point, sorted by texture then sampler.
// Sampled images and their samplers must be referenced straight from
// their globals; anything else cannot be combined and is reported as
// ErrUnsupportedFeature.
func TextureUses(module *ir.Module, info *ir.ModuleInfo, entry int) ([]TextureUse, error) {
	seen := make(map[TextureUse]bool)
	var uses []TextureUse

	add := func(u TextureUse) {
		if !seen[u] {
			seen[u] = true
			uses = append(uses, u)
		}
	}

	for _, fh := range Reachable(module, info, entry) {
		fn := &module.Functions[fh]
		global := func(h ir.ExpressionHandle) (ir.GlobalVariableHandle, *ir.Error) {
			if g, ok := fn.Expressions[h].Kind.(ir.ExprGlobalVariable); ok {
				return g.Variable, nil
			}
			return 0, ir.Errorf(ir.ErrUnsupportedFeature, "image operand %d is not a global resource", h).WithFunction(fh).WithExpression(h)
		}

		for i := range fn.Expressions {
			switch e := fn.Expressions[i].Kind.(type) {
			case ir.ExprImageSample:
				tex, err := global(e.Image)
				if err != nil {
					return nil, err
				}
				smp, err := global(e.Sampler)
				if err != nil {
					return nil, err
				}
				add(TextureUse{Texture: tex, Sampler: smp, HasSampler: true})
			case ir.ExprImageLoad:
				tex, err := global(e.Image)
				if err != nil {
					return nil, err
				}
				if !isStorageImage(module, tex) {
					add(TextureUse{Texture: tex})
				}
			case ir.ExprImageQuery:
				tex, err := global(e.Image)
				if err != nil {
					return nil, err
				}
				if !isStorageImage(module, tex) {
					add(TextureUse{Texture: tex})
				}
			}
		}
	}

	slices.SortFunc(uses, func(a, b TextureUse) int {
		if c := cmp.Compare(a.Texture, b.Texture); c != 0 {
			return c
		}
		if a.HasSampler != b.HasSampler {
			if a.HasSampler {
				return 1
			}
			return -1
		}
		return cmp.Compare(a.Sampler, b.Sampler)
	})
	return uses, nil
}

func isStorageImage(module *ir.Module, g ir.GlobalVariableHandle) bool {
	img, ok := module.Types[module.GlobalVariables[g].Type].Inner.(ir.ImageType)
	return ok && img.Class == ir.ImageClassStorage
}
