package msl

import "github.com/gogpu/shadercross/back"

// reservedWords are the C++14 keywords plus the names the Metal standard
// library puts in scope through the generated using declarations and
// attributes.
var reservedWords = map[string]struct{}{
	// C++ keywords
	"alignas": {}, "alignof": {}, "and": {}, "and_eq": {}, "asm": {}, "auto": {},
	"bitand": {}, "bitor": {}, "bool": {}, "break": {}, "case": {}, "catch": {},
	"char": {}, "char16_t": {}, "char32_t": {}, "class": {}, "compl": {}, "const": {},
	"const_cast": {}, "constexpr": {}, "continue": {}, "decltype": {}, "default": {},
	"delete": {}, "do": {}, "double": {}, "dynamic_cast": {}, "else": {}, "enum": {},
	"explicit": {}, "export": {}, "extern": {}, "false": {}, "float": {}, "for": {},
	"friend": {}, "goto": {}, "if": {}, "inline": {}, "int": {}, "long": {},
	"mutable": {}, "namespace": {}, "new": {}, "noexcept": {}, "not": {}, "not_eq": {},
	"nullptr": {}, "operator": {}, "or": {}, "or_eq": {}, "private": {}, "protected": {},
	"public": {}, "register": {}, "reinterpret_cast": {}, "return": {}, "short": {},
	"signed": {}, "sizeof": {}, "static": {}, "static_assert": {}, "static_cast": {},
	"struct": {}, "switch": {}, "template": {}, "this": {}, "thread_local": {},
	"throw": {}, "true": {}, "try": {}, "typedef": {}, "typeid": {}, "typename": {},
	"union": {}, "unsigned": {}, "using": {}, "virtual": {}, "void": {},
	"volatile": {}, "wchar_t": {}, "while": {}, "xor": {}, "xor_eq": {},

	// Metal address spaces and function qualifiers
	"device": {}, "constant": {}, "thread": {}, "threadgroup": {},
	"threadgroup_imageblock": {}, "ray_data": {}, "object_data": {},
	"vertex": {}, "fragment": {}, "kernel": {}, "compute": {}, "visible": {},
	"stage_in": {},

	// Metal scalar and vector types
	"half": {}, "uint": {}, "uchar": {}, "ushort": {}, "ulong": {},
	"size_t": {}, "ptrdiff_t": {}, "metal": {}, "std": {},

	// Preprocessor and main
	"main": {}, "assert": {}, "include": {}, "define": {}, "defined": {},
	"NULL": {},
}

var keywords = back.NewKeywords(reservedWords, false, "metal_")
