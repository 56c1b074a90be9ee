// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import "testing"

func TestKeywords(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		// Language keywords
		{"keyword_in", "in", true},
		{"keyword_uniform", "uniform", true},
		{"keyword_layout", "layout", true},
		{"keyword_precision", "precision", true},
		{"keyword_shared", "shared", true},
		{"keyword_buffer", "buffer", true},

		// Types
		{"type_vec4", "vec4", true},
		{"type_mat4x3", "mat4x3", true},
		{"type_sampler2DArrayShadow", "sampler2DArrayShadow", true},
		{"type_image2D", "image2D", true},

		// Built-in functions
		{"builtin_texture", "texture", true},
		{"builtin_mix", "mix", true},
		{"builtin_imageStore", "imageStore", true},
		{"builtin_barrier", "barrier", true},

		// Entry point
		{"main", "main", true},

		// gl_ prefix
		{"prefix_position", "gl_Position", true},
		{"prefix_any", "gl_Anything", true},

		// Non-reserved names
		{"non_reserved_color", "color", false},
		{"non_reserved_position", "position", false},
		{"non_reserved_upper", "Texture", false},
		{"non_reserved_gl", "glow", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keywords.Contains(tt.input); got != tt.expected {
				t.Errorf("keywords.Contains(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestKeywordsAreCaseSensitive(t *testing.T) {
	if keywords.FoldsCase() {
		t.Error("GLSL keywords fold case")
	}
}
