package ir

import (
	"fmt"
	"strings"
)

// describe renders a type for error messages in WGSL-like notation.
func describe(module *Module, inner TypeInner) string {
	switch t := inner.(type) {
	case nil:
		return "<none>"
	case ScalarType:
		return scalarName(t)
	case VectorType:
		return fmt.Sprintf("vec%d<%s>", t.Size, scalarName(t.Scalar))
	case MatrixType:
		return fmt.Sprintf("mat%dx%d<%s>", t.Columns, t.Rows, scalarName(t.Scalar))
	case ArrayType:
		if t.Size == nil {
			return fmt.Sprintf("array<%s>", describeHandle(module, t.Base))
		}
		return fmt.Sprintf("array<%s, %d>", describeHandle(module, t.Base), *t.Size)
	case StructType:
		names := make([]string, len(t.Members))
		for i, m := range t.Members {
			names[i] = m.Name
		}
		return "struct{" + strings.Join(names, ", ") + "}"
	case PointerType:
		return fmt.Sprintf("ptr<%s, %s>", t.Space, describeHandle(module, t.Base))
	case ValuePointerType:
		if t.Size == 0 {
			return fmt.Sprintf("ptr<%s, %s>", t.Space, scalarName(t.Scalar))
		}
		return fmt.Sprintf("ptr<%s, vec%d<%s>>", t.Space, t.Size, scalarName(t.Scalar))
	case SamplerType:
		if t.Comparison {
			return "sampler_comparison"
		}
		return "sampler"
	case ImageType:
		return describeImage(t)
	case BindingArrayType:
		return fmt.Sprintf("binding_array<%s>", describeHandle(module, t.Base))
	default:
		return fmt.Sprintf("%T", inner)
	}
}

func describeHandle(module *Module, h TypeHandle) string {
	if module == nil || int(h) >= len(module.Types) {
		return fmt.Sprintf("type#%d", h)
	}
	if name := module.Types[h].Name; name != "" {
		return name
	}
	return describe(module, module.Types[h].Inner)
}

func scalarName(s ScalarType) string {
	switch s.Kind {
	case ScalarBool:
		return "bool"
	case ScalarFloat:
		return fmt.Sprintf("f%d", int(s.Width)*8)
	case ScalarSint:
		return fmt.Sprintf("i%d", int(s.Width)*8)
	default:
		return fmt.Sprintf("u%d", int(s.Width)*8)
	}
}

func describeImage(t ImageType) string {
	dims := [...]string{Dim1D: "1d", Dim2D: "2d", Dim3D: "3d", DimCube: "cube"}
	var b strings.Builder
	b.WriteString("texture_")
	switch t.Class {
	case ImageClassDepth:
		b.WriteString("depth_")
	case ImageClassStorage:
		b.WriteString("storage_")
	}
	if t.Multisampled {
		b.WriteString("multisampled_")
	}
	if int(t.Dim) < len(dims) {
		b.WriteString(dims[t.Dim])
	}
	if t.Arrayed {
		b.WriteString("_array")
	}
	return b.String()
}
