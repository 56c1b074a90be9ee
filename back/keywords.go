package back

import "strings"

// Keywords is a set of identifiers a target language reserves.
type Keywords struct {
	words    map[string]struct{}
	foldCase bool
	prefixes []string
}

// NewKeywords builds a keyword set. With foldCase, matching ignores ASCII
// case, as HLSL requires. Identifiers starting with one of prefixes are
// treated as reserved too.
func NewKeywords(words map[string]struct{}, foldCase bool, prefixes ...string) *Keywords {
	k := &Keywords{words: words, foldCase: foldCase, prefixes: prefixes}
	if foldCase {
		k.words = make(map[string]struct{}, len(words))
		for w := range words {
			k.words[strings.ToLower(w)] = struct{}{}
		}
	}
	return k
}

// Contains reports whether name is reserved.
func (k *Keywords) Contains(name string) bool {
	if k == nil {
		return false
	}
	key := k.fold(name)
	if _, ok := k.words[key]; ok {
		return true
	}
	for _, p := range k.prefixes {
		if strings.HasPrefix(key, k.fold(p)) {
			return true
		}
	}
	return false
}

// FoldsCase reports whether keyword matching ignores case. Identifiers
// themselves stay case-sensitive.
func (k *Keywords) FoldsCase() bool {
	return k != nil && k.foldCase
}

func (k *Keywords) fold(name string) string {
	if k.foldCase {
		return strings.ToLower(name)
	}
	return name
}
