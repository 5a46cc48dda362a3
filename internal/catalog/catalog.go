// Package catalog holds the fixed set of effects the editor offers. The
// catalog is configuration data: an embedded default that can be replaced by
// a YAML file at startup.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"lumina/internal/domain"
)

//go:embed default.yaml
var defaultYAML []byte

// PromptPlaceholder marks where the encoded prompt goes in a template.
const PromptPlaceholder = "{prompt}"

type file struct {
	Version int             `yaml:"version"`
	Effects []domain.Effect `yaml:"effects"`
}

// Catalog is an immutable, ordered list of effects.
type Catalog struct {
	version int
	effects []domain.Effect
	index   map[string]int
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded default is invalid: %v", err))
	}
	return c
}

// LoadFile reads a catalog from a YAML file. An empty path yields the default.
func LoadFile(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return New(f.Version, f.Effects)
}

// New validates effects and builds a catalog preserving their order.
func New(version int, effects []domain.Effect) (*Catalog, error) {
	if len(effects) == 0 {
		return nil, errors.New("catalog: no effects defined")
	}
	c := &Catalog{
		version: version,
		effects: make([]domain.Effect, 0, len(effects)),
		index:   make(map[string]int, len(effects)),
	}
	for _, e := range effects {
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" {
			return nil, errors.New("catalog: effect id is required")
		}
		if strings.Contains(e.ID, ",") {
			return nil, fmt.Errorf("catalog: effect id %q must not contain a comma", e.ID)
		}
		if _, dup := c.index[e.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate effect id %q", e.ID)
		}
		if e.AcceptsPrompt && e.Template != "" && !strings.Contains(e.Template, PromptPlaceholder) {
			return nil, fmt.Errorf("catalog: template for %q lacks %s", e.ID, PromptPlaceholder)
		}
		switch e.Group {
		case domain.EffectGroupPrimary, domain.EffectGroupSecondary:
		case "":
			e.Group = domain.EffectGroupPrimary
		default:
			return nil, fmt.Errorf("catalog: effect %q has unknown group %q", e.ID, e.Group)
		}
		if e.Name == "" {
			e.Name = e.ID
		}
		c.index[e.ID] = len(c.effects)
		c.effects = append(c.effects, e)
	}
	return c, nil
}

// Version returns the document version.
func (c *Catalog) Version() int { return c.version }

// Lookup returns the effect with the given id.
func (c *Catalog) Lookup(id string) (domain.Effect, bool) {
	if c == nil {
		return domain.Effect{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return domain.Effect{}, false
	}
	return c.effects[i], true
}

// Label returns the human-readable name of an effect, or the id itself when unknown.
func (c *Catalog) Label(id string) string {
	if e, ok := c.Lookup(id); ok {
		return e.Name
	}
	return id
}

// Effects returns a copy of the effects in catalog order.
func (c *Catalog) Effects() []domain.Effect {
	out := make([]domain.Effect, len(c.effects))
	copy(out, c.effects)
	return out
}

// Position returns the catalog order of id, or -1.
func (c *Catalog) Position(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}
