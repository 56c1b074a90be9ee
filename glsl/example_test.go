// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl_test

import (
	"fmt"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/glsl"
	"github.com/gogpu/shadercross/internal/samples"
	"github.com/gogpu/shadercross/ir"
)

// ExampleCompile writes the fragment stage of a textured quad for
// WebGL 2 and reports which texture and sampler feed its texture unit.
func ExampleCompile() {
	options := glsl.DefaultOptions()
	options.LangVersion = glsl.VersionES300

	out, err := glsl.Compile(samples.Quad(), back.Only(ir.StageFragment, "frag_main"), options)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(out.EntryPoint, options.LangVersion)
	for _, pair := range out.TextureSamplerPairs {
		fmt.Println(pair.Name, pair.Texture, pair.Sampler, pair.Slot)
	}
	// Output:
	// main 300 es
	// u_texture_u_sampler u_texture u_sampler 0
}
