// pkg/layout/registry.go
package layout

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/refdata-io/table-ingress/pkg/model"
)

// Registry holds versioned fixed-width layouts keyed by (dataset, vintage).
// It is loaded once at startup and read-only thereafter; reloading layouts
// means building a new Registry, never patching this one in place.
type Registry struct {
	logger  *zap.Logger
	layouts map[string]*model.Layout
	sealed  bool
}

// NewRegistry creates an empty layout registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:  logger,
		layouts: make(map[string]*model.Layout),
	}
}

func key(dataset, vintage string) string {
	return dataset + "|" + vintage
}

// Register compiles and adds a layout. Registering the same (dataset,
// vintage) twice is an error: published layouts are immutable, a changed
// layout must be a new vintage.
func (r *Registry) Register(l *model.Layout) error {
	if r.sealed {
		return fmt.Errorf("registry is sealed; build a new registry to change layouts")
	}
	if err := l.Compile(); err != nil {
		return err
	}
	k := key(l.Dataset, l.Vintage)
	if _, exists := r.layouts[k]; exists {
		return fmt.Errorf("layout %s/%s already registered; publish a new vintage instead",
			l.Dataset, l.Vintage)
	}
	r.layouts[k] = l
	r.logger.Info("Registered fixed-width layout",
		zap.String("dataset", l.Dataset),
		zap.String("vintage", l.Vintage),
		zap.Int("fields", len(l.Fields)))
	return nil
}

// Seal marks the registry read-only. Lookup works before sealing, but
// callers are expected to seal once loading completes.
func (r *Registry) Seal() {
	r.sealed = true
}

// Lookup returns the layout for (dataset, vintage). Absence forces the
// caller to fall back to delimited/spreadsheet extraction or fail; offsets
// are never guessed.
func (r *Registry) Lookup(dataset, vintage string) (*model.Layout, bool) {
	l, ok := r.layouts[key(dataset, vintage)]
	return l, ok
}

// Len returns the number of registered layouts
func (r *Registry) Len() int {
	return len(r.layouts)
}

// layoutBundle is the on-disk YAML shape: a list of layouts
type layoutBundle struct {
	Layouts []*model.Layout `yaml:"layouts"`
}

// NewRegistryFromYAML builds a sealed registry from a YAML bundle
func NewRegistryFromYAML(data []byte, logger *zap.Logger) (*Registry, error) {
	var bundle layoutBundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse layout bundle: %w", err)
	}
	reg := NewRegistry(logger)
	for _, l := range bundle.Layouts {
		if err := reg.Register(l); err != nil {
			return nil, err
		}
	}
	reg.Seal()
	return reg, nil
}

// LoadRegistryFile reads a YAML layout bundle from disk
func LoadRegistryFile(path string, logger *zap.Logger) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout bundle %s: %w", path, err)
	}
	return NewRegistryFromYAML(data, logger)
}
