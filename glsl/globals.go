// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

// writeGlobals declares the globals the entry point uses, then the
// combined samplers. Buffers become interface blocks.
func (w *Writer) writeGlobals() error {
	globals := back.EntryPointGlobals(w.module, w.info, w.entry)
	for _, g := range globals {
		if err := w.writeGlobal(g); err != nil {
			return back.AtEntryPoint(err, w.entry)
		}
	}
	if !w.options.SeparateSamplers {
		for _, u := range w.textures {
			if err := w.writeCombinedSampler(u); err != nil {
				return err
			}
		}
	}
	if len(globals) > 0 {
		w.writeLine("")
	}
	return nil
}

//nolint:gocyclo,cyclop // one branch per address space
func (w *Writer) writeGlobal(g ir.GlobalVariableHandle) error {
	global := &w.module.GlobalVariables[g]
	name := w.globalName(g)

	switch global.Space {
	case ir.SpacePrivate, ir.SpaceFunction:
		init := w.zeroValue(global.Type)
		if global.Init != nil {
			value, err := w.constantRef(*global.Init)
			if err != nil {
				return err
			}
			init = value
		}
		w.writeLine("%s = %s;", w.declaration(global.Type, name), init)
	case ir.SpaceWorkGroup:
		w.writeLine("shared %s;", w.declaration(global.Type, name))
	case ir.SpaceUniform:
		w.writeLine("%suniform %s { %s; };", w.layoutQualifier(g, w.slots[g], "std140"), w.blockNames[g], w.declaration(global.Type, name))
	case ir.SpacePushConstant:
		if w.options.SeparateSamplers {
			w.writeLine("layout(push_constant) uniform %s { %s; };", w.blockNames[g], w.declaration(global.Type, name))
		} else {
			w.writeLine("uniform %s;", w.declaration(global.Type, name))
		}
	case ir.SpaceStorage:
		return w.writeStorageBlock(g)
	case ir.SpaceHandle:
		return w.writeHandle(g)
	default:
		return ir.Errorf(ir.ErrUnsupportedFeature, "global %q is in address space %s", global.Name, global.Space).WithGlobal(g)
	}
	return nil
}

// writeStorageBlock declares a storage buffer. A struct ending in a
// runtime-sized array becomes the block body with the global as the
// instance name; anything else is the single member of the block.
func (w *Writer) writeStorageBlock(g ir.GlobalVariableHandle) error {
	global := &w.module.GlobalVariables[g]
	if !w.version.SupportsStorageBuffers() {
		if w.version.ES {
			return ir.Errorf(ir.ErrUnsupportedFeature, "storage buffers need GLSL 310 es, have %s", w.version).WithGlobal(g)
		}
		w.requireExtension("GL_ARB_shader_storage_buffer_object")
	}
	access := ""
	switch global.Access {
	case ir.StorageLoad:
		access = "readonly "
	case ir.StorageStore:
		access = "writeonly "
	}
	head := fmt.Sprintf("%s%sbuffer %s", w.layoutQualifier(g, w.slots[g], "std430"), access, w.blockNames[g])
	if !w.containsRuntimeArray(global.Type) {
		w.writeLine("%s { %s; };", head, w.declaration(global.Type, w.globalName(g)))
		return nil
	}
	w.writeLine("%s {", head)
	w.pushIndent()
	st := w.module.Types[global.Type].Inner.(ir.StructType)
	if err := w.writeMembers(global.Type, st, []layoutRule{std430}); err != nil {
		return err
	}
	w.popIndent()
	w.writeLine("} %s;", w.globalName(g))
	return nil
}

// writeHandle declares a storage image, or with separate samplers a
// texture or sampler. Combined samplers are declared per use instead.
func (w *Writer) writeHandle(g ir.GlobalVariableHandle) error {
	global := &w.module.GlobalVariables[g]
	ty := global.Type
	suffix := ""
	if ba, ok := w.module.Types[ty].Inner.(ir.BindingArrayType); ok {
		if !w.options.SeparateSamplers {
			return ir.Errorf(ir.ErrUnsupportedFeature, "binding arrays need separate samplers").WithGlobal(g)
		}
		if ba.Size == nil {
			w.requireExtension("GL_EXT_nonuniform_qualifier")
			suffix = "[]"
		} else {
			suffix = fmt.Sprintf("[%d]", *ba.Size)
		}
		ty = ba.Base
	}

	switch t := w.module.Types[ty].Inner.(type) {
	case ir.ImageType:
		if t.Class == ir.ImageClassStorage {
			return w.writeStorageImage(g, t, suffix)
		}
		if !w.options.SeparateSamplers {
			return nil
		}
		if err := w.checkImage(t, false); err != nil {
			return err.WithGlobal(g)
		}
		w.writeLine("%suniform %s %s%s;", w.layoutQualifier(g, w.slots[g]), textureTypeName(t), w.globalName(g), suffix)
	case ir.SamplerType:
		if !w.options.SeparateSamplers {
			return nil
		}
		w.writeLine("%suniform %s %s%s;", w.layoutQualifier(g, w.slots[g]), w.innerName(t), w.globalName(g), suffix)
	default:
		return ir.Errorf(ir.ErrTypeMismatch, "handle global %q is not an image or sampler", global.Name).WithGlobal(g)
	}
	return nil
}

// writeStorageImage declares an image for load and store. GLSL ES only
// allows single-channel 32-bit formats to be both read and written.
func (w *Writer) writeStorageImage(g ir.GlobalVariableHandle, img ir.ImageType, suffix string) error {
	if !w.version.SupportsStorageImages() {
		return ir.Errorf(ir.ErrUnsupportedFeature, "storage images need GLSL 420 or 310 es, have %s", w.version).WithGlobal(g)
	}
	if err := w.checkImage(img, false); err != nil {
		return err.WithGlobal(g)
	}
	access := ""
	switch img.Access {
	case ir.StorageLoad:
		access = "readonly "
	case ir.StorageStore:
		access = "writeonly "
	}
	precision := ""
	if w.version.ES {
		precision = "highp "
		switch img.Format {
		case ir.FormatRg32Float:
			return ir.Errorf(ir.ErrUnsupportedFeature, "GLSL ES has no rg32f storage images").WithGlobal(g)
		case ir.FormatR32Float, ir.FormatR32Uint, ir.FormatR32Sint:
		default:
			if access == "" {
				return ir.Errorf(ir.ErrUnsupportedFeature, "GLSL ES can only read and write r32 storage images, %q is %s", w.module.GlobalVariables[g].Name, storageFormat(img.Format)).WithGlobal(g)
			}
		}
	}
	w.writeLine("%s%suniform %s%s %s%s;", w.layoutQualifier(g, w.slots[g], storageFormat(img.Format)), access, precision, storageImageTypeName(img), w.globalName(g), suffix)
	return nil
}

// writeCombinedSampler declares the sampler uniform of one texture use.
// Uses without a sampler read the texture through a plain sampler.
func (w *Writer) writeCombinedSampler(u back.TextureUse) error {
	img, ok := w.module.Types[w.module.GlobalVariables[u.Texture].Type].Inner.(ir.ImageType)
	if !ok {
		return ir.Errorf(ir.ErrTypeMismatch, "sampled global is not an image").WithGlobal(u.Texture)
	}
	comparison := false
	if u.HasSampler {
		smp, _ := w.module.Types[w.module.GlobalVariables[u.Sampler].Type].Inner.(ir.SamplerType)
		comparison = smp.Comparison
	}
	if err := w.checkImage(img, comparison); err != nil {
		return err.WithGlobal(u.Texture)
	}
	ty := samplerTypeName(img, comparison)
	w.requirePrecision(ty)
	w.writeLine("%suniform %s %s;", w.layoutQualifier(u.Texture, w.unitSlots[u]), ty, w.combined[u])
	return nil
}

// checkImage rejects image types the version lacks and records the
// extensions the others need.
func (w *Writer) checkImage(img ir.ImageType, comparison bool) *ir.Error {
	v := w.version
	if v.ES && img.Dim == ir.Dim1D {
		return ir.Errorf(ir.ErrUnsupportedFeature, "GLSL ES has no 1D textures")
	}
	if img.Dim == ir.DimCube && img.Arrayed {
		switch {
		case v.ES && comparison:
			return ir.Errorf(ir.ErrUnsupportedFeature, "GLSL ES has no cube array shadow samplers")
		case v.ES && !v.atLeast(0, 310):
			return ir.Errorf(ir.ErrUnsupportedFeature, "cube array textures need GLSL 310 es, have %s", v)
		case v.ES && !v.atLeast(0, 320):
			w.requireExtension("GL_EXT_texture_cube_map_array")
		case !v.ES && !v.atLeast(400, 0):
			w.requireExtension("GL_ARB_texture_cube_map_array")
		}
	}
	if img.Multisampled && v.ES {
		switch {
		case !v.atLeast(0, 310):
			return ir.Errorf(ir.ErrUnsupportedFeature, "multisampled textures need GLSL 310 es, have %s", v)
		case img.Arrayed && !v.atLeast(0, 320):
			w.requireExtension("GL_OES_texture_storage_multisample_2d_array")
		}
	}
	return nil
}
