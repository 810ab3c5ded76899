package operators

import (
	"fmt"
	"sort"

	"spectral-workbench/internal/common/errors"
	"spectral-workbench/internal/common/registry"
)

// Info describes a registered operator.
type Info struct {
	Name        string   `json:"name"`
	Kind        Kind     `json:"kind"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases,omitempty"`
}

// Catalog lists registered operators grouped by kind.
type Catalog struct {
	Transforms []Info `json:"transforms"`
	Splitters  []Info `json:"splitters"`
}

// Registry maps operator names to factories, separately per kind.
type Registry struct {
	transforms *registry.Registry[TransformerFactory]
	splitters  *registry.Registry[SplitterFactory]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		transforms: registry.New[TransformerFactory](),
		splitters:  registry.New[SplitterFactory](),
	}
}

// NewDefaultRegistry creates a registry holding the built-in catalog.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	registerBuiltinTransforms(r)
	registerBuiltinSplitters(r)
	return r
}

// RegisterTransformer adds a transform factory under its type name and aliases.
func (r *Registry) RegisterTransformer(f TransformerFactory, aliases ...string) error {
	r.transforms.Register(f.GetType(), f)
	for _, alias := range aliases {
		if err := r.transforms.Alias(alias, f.GetType()); err != nil {
			return err
		}
	}
	return nil
}

// RegisterSplitter adds a split factory under its type name and aliases.
func (r *Registry) RegisterSplitter(f SplitterFactory, aliases ...string) error {
	r.splitters.Register(f.GetType(), f)
	for _, alias := range aliases {
		if err := r.splitters.Alias(alias, f.GetType()); err != nil {
			return err
		}
	}
	return nil
}

// ResolveTransformer builds the named transformer with params.
func (r *Registry) ResolveTransformer(name string, params Params) (Transformer, error) {
	factory, err := r.transforms.Get(name)
	if err != nil {
		return nil, r.notFound(name, KindTransform)
	}
	return factory.Create(params)
}

// ResolveSplitter builds the named splitter with params.
func (r *Registry) ResolveSplitter(name string, params Params) (Splitter, error) {
	factory, err := r.splitters.Get(name)
	if err != nil {
		return nil, r.notFound(name, KindSplit)
	}
	return factory.Create(params)
}

func (r *Registry) notFound(name string, kind Kind) error {
	err := errors.NotFoundError(fmt.Sprintf("%s operator %s", kind, name)).
		WithContext("kind", string(kind))
	if kind == KindTransform && r.splitters.IsRegistered(name) {
		err.WithContext("hint", name+" is a split operator")
	}
	if kind == KindSplit && r.transforms.IsRegistered(name) {
		err.WithContext("hint", name+" is a transform operator")
	}
	return err
}

// Count returns the number of registered operators of both kinds, aliases excluded.
func (r *Registry) Count() int {
	return r.transforms.Count() + r.splitters.Count()
}

// Catalog returns every registered operator, sorted by name within each kind.
func (r *Registry) Catalog() Catalog {
	return Catalog{
		Transforms: describe(r.transforms, KindTransform),
		Splitters:  describe(r.splitters, KindSplit),
	}
}

type describedFactory interface {
	registry.Factory
	Description() string
}

func describe[T describedFactory](reg *registry.Registry[T], kind Kind) []Info {
	aliasesOf := make(map[string][]string)
	for alias, target := range reg.GetAliases() {
		aliasesOf[target] = append(aliasesOf[target], alias)
	}

	names := reg.GetAvailableTypes()
	out := make([]Info, 0, len(names))
	for _, name := range names {
		f, err := reg.Get(name)
		if err != nil {
			continue
		}
		info := Info{Name: name, Kind: kind, Description: f.Description(), Aliases: aliasesOf[name]}
		sort.Strings(info.Aliases)
		out = append(out, info)
	}
	return out
}
