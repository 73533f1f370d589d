// Package iniconfig adapts gopkg.in/ini.v1 to the ordered section/key shape
// the model loader needs: INI parsing itself is delegated entirely to the
// library, which already preserves section and key insertion order and
// trims surrounding whitespace from values; this package only reshapes its
// *ini.File into a small ordered [Section]/[Pair] structure and renames the
// library's synthetic default section to "undefined_section" so pre-header
// lines surface under the name a model file expects.
package iniconfig

import (
	"gopkg.in/ini.v1"
)

// Pair is one ordered key/value entry within a [Section].
type Pair struct {
	Key   string
	Value string
}

// Section is one INI section with its key/value pairs in file order.
type Section struct {
	Name  string
	Pairs []Pair
}

// UndefinedSectionName is the name given to key/value pairs that appear
// before any "[section]" header in the source file.
const UndefinedSectionName = "undefined_section"

// Load parses an INI-formatted model file and returns its sections in
// source order, each with its keys in source order.
func Load(path string) ([]Section, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowNonUniqueSections: true}, path)
	if err != nil {
		return nil, err
	}
	return sectionsFromFile(cfg), nil
}

// Parse parses INI-formatted model source from a byte slice.
func Parse(data []byte) ([]Section, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowNonUniqueSections: true}, data)
	if err != nil {
		return nil, err
	}
	return sectionsFromFile(cfg), nil
}

func sectionsFromFile(cfg *ini.File) []Section {
	var out []Section
	for _, sec := range cfg.Sections() {
		name := sec.Name()
		if name == ini.DefaultSection {
			name = UndefinedSectionName
		}

		var pairs []Pair
		for _, key := range sec.Keys() {
			pairs = append(pairs, Pair{Key: key.Name(), Value: key.Value()})
		}
		if name == UndefinedSectionName && len(pairs) == 0 {
			continue
		}
		out = append(out, Section{Name: name, Pairs: pairs})
	}
	return out
}

// Get returns the value of key within the first section named name, and
// whether it was found.
func Get(sections []Section, name, key string) (string, bool) {
	for _, sec := range sections {
		if sec.Name != name {
			continue
		}
		for _, p := range sec.Pairs {
			if p.Key == key {
				return p.Value, true
			}
		}
	}
	return "", false
}

// All returns every pair in every section named name, in file order,
// across all sections sharing that name (models may repeat "[role_definition]"-
// style sections for multiple role mappings).
func All(sections []Section, name string) []Pair {
	var out []Pair
	for _, sec := range sections {
		if sec.Name == name {
			out = append(out, sec.Pairs...)
		}
	}
	return out
}
