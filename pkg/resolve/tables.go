// pkg/resolve/tables.go
package resolve

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Tables is the read-only reference data for entity resolution: name→code
// crosswalks, curated spelling/suffix substitutions, and parent-specific
// exceptions. Loaded once, never mutated; the provider behind the YAML may
// run in a local or curated mode, the resolver only cares about this shape.
type Tables struct {
	// Parents maps parent name to parent code
	Parents map[string]string `yaml:"parents"`
	// Children maps parent name to child name to child code
	Children map[string]map[string]string `yaml:"children"`
	// Aliases maps a normalized spelling variant to the canonical child name
	Aliases map[string]string `yaml:"aliases"`
	// Abbreviations maps tokens to expansions, e.g. ST -> SAINT
	Abbreviations map[string]string `yaml:"abbreviations"`
	// Exceptions maps parent name to raw name to code, consulted before the
	// generic tiers. Administratively atypical entities are declared here,
	// never hard-coded per instance.
	Exceptions map[string]map[string]string `yaml:"exceptions"`
	// Sentinels are names meaning "all children of this parent"
	Sentinels []string `yaml:"sentinels"`
	// Suffixes are administrative suffix tokens stripped during alias
	// normalization; empty means the default set
	Suffixes []string `yaml:"suffixes"`
}

var defaultSuffixes = []string{
	"COUNTY", "COUNTIES", "PARISH", "BOROUGH", "CITY",
	"MUNICIPALITY", "MUNICIPIO", "CENSUS", "AREA",
}

// LoadTables parses a YAML reference bundle and normalizes its keys so
// lookups and source data agree on casing and whitespace
func LoadTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse reference tables: %w", err)
	}
	t.normalizeKeys()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTablesFile reads a reference bundle from disk
func LoadTablesFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference tables %s: %w", path, err)
	}
	return LoadTables(data)
}

// LoadTablesDir merges every YAML file in a directory into one bundle, for
// deployments that curate per-dataset files instead of a single bundle.
// Files merge in name order; a later file may not redeclare a key an
// earlier one set.
func LoadTablesDir(dir string) (*Tables, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference directory %s: %w", dir, err)
	}

	merged := &Tables{
		Parents:       make(map[string]string),
		Children:      make(map[string]map[string]string),
		Aliases:       make(map[string]string),
		Abbreviations: make(map[string]string),
		Exceptions:    make(map[string]map[string]string),
	}
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read reference file %s: %w", entry.Name(), err)
		}
		var part Tables
		if err := yaml.Unmarshal(data, &part); err != nil {
			return nil, fmt.Errorf("failed to parse reference file %s: %w", entry.Name(), err)
		}
		part.normalizeKeys()
		if err := merged.merge(&part, entry.Name()); err != nil {
			return nil, err
		}
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("reference directory %s contains no YAML files", dir)
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// merge folds another normalized bundle in, rejecting conflicting
// redeclarations so a typo cannot silently shadow curated data
func (t *Tables) merge(other *Tables, source string) error {
	for parent, code := range other.Parents {
		if existing, ok := t.Parents[parent]; ok && existing != code {
			return fmt.Errorf("%s redeclares parent %q with code %q (already %q)",
				source, parent, code, existing)
		}
		t.Parents[parent] = code
	}
	for parent, children := range other.Children {
		if t.Children[parent] == nil {
			t.Children[parent] = make(map[string]string, len(children))
		}
		for name, code := range children {
			if existing, ok := t.Children[parent][name]; ok && existing != code {
				return fmt.Errorf("%s redeclares child %q under %q with code %q (already %q)",
					source, name, parent, code, existing)
			}
			t.Children[parent][name] = code
		}
	}
	for variant, canonical := range other.Aliases {
		t.Aliases[variant] = canonical
	}
	for token, expansion := range other.Abbreviations {
		t.Abbreviations[token] = expansion
	}
	for parent, m := range other.Exceptions {
		if t.Exceptions[parent] == nil {
			t.Exceptions[parent] = make(map[string]string, len(m))
		}
		for name, code := range m {
			t.Exceptions[parent][name] = code
		}
	}
	t.Sentinels = appendUnique(t.Sentinels, other.Sentinels)
	t.Suffixes = appendUnique(t.Suffixes, other.Suffixes)
	return nil
}

func appendUnique(dst, src []string) []string {
	for _, s := range src {
		found := false
		for _, existing := range dst {
			if existing == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}

// normalizeKeys rewrites every lookup key through basic normalization
func (t *Tables) normalizeKeys() {
	t.Parents = normalizeStringMap(t.Parents)

	children := make(map[string]map[string]string, len(t.Children))
	for parent, m := range t.Children {
		children[normalizeBasic(parent)] = normalizeStringMap(m)
	}
	t.Children = children

	aliases := make(map[string]string, len(t.Aliases))
	for variant, canonical := range t.Aliases {
		aliases[normalizeBasic(variant)] = normalizeBasic(canonical)
	}
	t.Aliases = aliases

	abbrevs := make(map[string]string, len(t.Abbreviations))
	for token, expansion := range t.Abbreviations {
		abbrevs[normalizeBasic(token)] = normalizeBasic(expansion)
	}
	t.Abbreviations = abbrevs

	exceptions := make(map[string]map[string]string, len(t.Exceptions))
	for parent, m := range t.Exceptions {
		exceptions[normalizeBasic(parent)] = normalizeStringMap(m)
	}
	t.Exceptions = exceptions

	for i, s := range t.Sentinels {
		t.Sentinels[i] = normalizeBasic(s)
	}
	if len(t.Suffixes) == 0 {
		t.Suffixes = append([]string(nil), defaultSuffixes...)
	}
	for i, s := range t.Suffixes {
		t.Suffixes[i] = normalizeBasic(s)
	}
}

func normalizeStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[normalizeBasic(k)] = v
	}
	return out
}

// Validate checks the crosswalk is internally consistent
func (t *Tables) Validate() error {
	if len(t.Children) == 0 {
		return fmt.Errorf("reference tables declare no children crosswalk")
	}
	for parent := range t.Children {
		if _, ok := t.Parents[parent]; !ok {
			return fmt.Errorf("crosswalk parent %q has no code in the parents table", parent)
		}
	}
	return nil
}

// IsSentinel reports whether a normalized name means "all children"
func (t *Tables) IsSentinel(normalized string) bool {
	for _, s := range t.Sentinels {
		if normalized == s {
			return true
		}
	}
	return false
}
