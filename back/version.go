package back

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMajorMinor reads a version written as "major.minor" or
// "major_minor".
func ParseMajorMinor(s string) (major, minor uint8, err error) {
	s = strings.TrimSpace(s)
	head, tail, ok := strings.Cut(s, ".")
	if !ok {
		head, tail, ok = strings.Cut(s, "_")
	}
	if !ok {
		return 0, 0, fmt.Errorf("version %q is not major.minor", s)
	}
	ma, err := strconv.ParseUint(head, 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("version %q: bad major number", s)
	}
	mi, err := strconv.ParseUint(tail, 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("version %q: bad minor number", s)
	}
	return uint8(ma), uint8(mi), nil
}
