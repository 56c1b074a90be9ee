package spirv

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

// Version represents a SPIR-V version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common SPIR-V versions
var (
	Version1_0 = Version{1, 0}
	Version1_3 = Version{1, 3}
	Version1_4 = Version{1, 4}
	Version1_5 = Version{1, 5}
	Version1_6 = Version{1, 6}
)

// AtLeast reports whether v is the same as or newer than other.
func (v Version) AtLeast(other Version) bool {
	if v.Major != other.Major {
		return v.Major > other.Major
	}
	return v.Minor >= other.Minor
}

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// ParseVersion reads a version written as "1.3" or "1_3". Versions
// before 1.0 or after 1.6 are rejected.
func ParseVersion(s string) (Version, error) {
	major, minor, err := back.ParseMajorMinor(s)
	if err != nil {
		return Version{}, fmt.Errorf("spirv: %w", err)
	}
	v := Version{Major: major, Minor: minor}
	if !v.AtLeast(Version1_0) || v.AtLeast(Version{1, 7}) {
		return Version{}, fmt.Errorf("spirv: unsupported version %s", v)
	}
	return v, nil
}

// BindingTarget is where a resource lands in a Vulkan pipeline layout.
type BindingTarget struct {
	DescriptorSet uint32
	Binding       uint32
}

// Options configures SPIR-V generation.
type Options struct {
	// Version is the SPIR-V version to target
	Version Version

	// Debug emits OpName and OpMemberName for every named entity.
	Debug bool

	// BindingMap moves resources to other descriptor slots. Resources
	// missing from the map keep their IR group and binding.
	BindingMap map[ir.ResourceBinding]BindingTarget

	// Capabilities are declared in addition to the ones the module needs.
	Capabilities []Capability
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		Version: Version1_3,
	}
}

func (o *Options) bindingTarget(rb ir.ResourceBinding) BindingTarget {
	if t, ok := o.BindingMap[rb]; ok {
		return t
	}
	return BindingTarget{DescriptorSet: rb.Group, Binding: rb.Binding}
}

// Output is a finished SPIR-V module.
type Output struct {
	// Words is the module as a stream of 32-bit words, header first.
	Words []uint32
}

// Bytes returns the module in little-endian byte order, the form
// vkCreateShaderModule and .spv files expect.
func (o Output) Bytes() []byte {
	return wordsToBytes(o.Words)
}

func wordsToBytes(words []uint32) []byte {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

// SPIR-V magic number and constants
const (
	MagicNumber = 0x07230203
	GeneratorID = 0x00000000 // Unregistered generator
)
