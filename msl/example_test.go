package msl_test

import (
	"fmt"
	"strings"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/internal/samples"
	"github.com/gogpu/shadercross/ir"
	"github.com/gogpu/shadercross/msl"
)

// ExampleSequentialResources binds the resources of an entry point in order.
func ExampleSequentialResources() {
	module := samples.LoopCounter()
	info, err := ir.Validate(module)
	if err != nil {
		fmt.Println(err)
		return
	}
	resources, err := msl.SequentialResources(module, info, 0)
	if err != nil {
		fmt.Println(err)
		return
	}

	options := msl.DefaultOptions()
	options.PerEntryPointMap["count_loop"] = resources
	out, err := msl.Write(module, info, back.Only(ir.StageCompute, "count_loop"), options)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(strings.Contains(out.Source, "kernel void count_loop("))
	// Output: true
}
