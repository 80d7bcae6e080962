// Package catalog loads mapping closures out of a local store, caching
// parsed files and answering availability, lookup, differencing, and
// derivation questions about them.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/goliatone/go-refmap/pkg/mapping"
)

// Locator translates basenames into loadable sources. The config package
// provides the standard store layout; tests substitute fixture locators.
type Locator interface {
	LocateMapping(basename string) (mapping.Source, error)
	LocateReference(basename string) (mapping.Source, error)
}

// Catalog is a cache of parsed mappings with closure resolution. All
// methods are safe for concurrent use.
type Catalog struct {
	loader  mapping.Loader
	parser  mapping.Parser
	locator Locator
	log     hclog.Logger

	mu    sync.RWMutex
	cache map[string]mapping.Mapping
}

// Option customizes a Catalog.
type Option func(*Catalog)

// WithLogger routes load progress and warnings to log.
func WithLogger(log hclog.Logger) Option {
	return func(c *Catalog) {
		if log != nil {
			c.log = log
		}
	}
}

// New builds a Catalog over the given loader, parser, and store layout.
func New(loader mapping.Loader, parser mapping.Parser, locator Locator, options ...Option) (*Catalog, error) {
	if loader == nil || parser == nil || locator == nil {
		return nil, fmt.Errorf("catalog: loader, parser, and locator are all required")
	}
	c := &Catalog{
		loader:  loader,
		parser:  parser,
		locator: locator,
		log:     hclog.NewNullLogger(),
		cache:   map[string]mapping.Mapping{},
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

// Load returns the fully resolved closure rooted at basename. Context and
// instrument files have every non-special selection loaded recursively.
func (c *Catalog) Load(ctx context.Context, basename string) (mapping.Mapping, error) {
	c.mu.RLock()
	cached, ok := c.cache[basename]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	loaded, err := c.loadOne(ctx, basename)
	if err != nil {
		return nil, err
	}
	if err := c.resolve(ctx, loaded); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[basename] = loaded
	c.mu.Unlock()
	c.log.Debug("mapping closure loaded", "mapping", basename)
	return loaded, nil
}

// LoadPipeline is Load constrained to pipeline context files.
func (c *Catalog) LoadPipeline(ctx context.Context, basename string) (*mapping.PipelineContext, error) {
	loaded, err := c.Load(ctx, basename)
	if err != nil {
		return nil, err
	}
	pmap, ok := loaded.(*mapping.PipelineContext)
	if !ok {
		return nil, fmt.Errorf("catalog: %q is a %s mapping, not a pipeline context", basename, loaded.Kind())
	}
	return pmap, nil
}

// loadOne locates, fetches, and parses a single file without touching its
// nested selections.
func (c *Catalog) loadOne(ctx context.Context, basename string) (mapping.Mapping, error) {
	src, err := c.locator.LocateMapping(basename)
	if err != nil {
		return nil, fmt.Errorf("catalog: locate %q: %w", basename, err)
	}
	doc, err := c.loader.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("catalog: load %q: %w", basename, err)
	}
	parsed, err := c.parser.Parse(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse %q: %w", basename, err)
	}
	return parsed, nil
}

// resolve recursively loads and attaches nested mappings. Special N/A and
// OMIT selections terminate the recursion.
func (c *Catalog) resolve(ctx context.Context, loaded mapping.Mapping) error {
	switch concrete := loaded.(type) {
	case *mapping.PipelineContext:
		for key, sel := range concrete.Selections() {
			if sel.IsSpecial() {
				continue
			}
			nested, err := c.Load(ctx, sel.Value)
			if err != nil {
				return err
			}
			if err := concrete.Resolve(key, nested); err != nil {
				return err
			}
		}
	case *mapping.InstrumentContext:
		for key, sel := range concrete.Selections() {
			if sel.IsSpecial() {
				continue
			}
			nested, err := c.Load(ctx, sel.Value)
			if err != nil {
				return err
			}
			if err := concrete.Resolve(key, nested); err != nil {
				return err
			}
		}
	}
	return nil
}

// MissingMappings walks the closure rooted at basename tolerantly and
// reports every nested mapping that cannot be loaded. The root itself must
// load.
func (c *Catalog) MissingMappings(ctx context.Context, basename string) ([]string, error) {
	root, err := c.loadOne(ctx, basename)
	if err != nil {
		return nil, err
	}
	missing := map[string]bool{}
	c.walkMissing(ctx, root, missing)
	return sortedNames(missing), nil
}

func (c *Catalog) walkMissing(ctx context.Context, loaded mapping.Mapping, missing map[string]bool) {
	var selections map[string]*mapping.Selection
	switch concrete := loaded.(type) {
	case *mapping.PipelineContext:
		selections = concrete.Selections()
	case *mapping.InstrumentContext:
		selections = concrete.Selections()
	default:
		return
	}
	for _, sel := range selections {
		if sel.IsSpecial() {
			continue
		}
		nested, err := c.loadOne(ctx, sel.Value)
		if err != nil {
			c.log.Warn("nested mapping is unavailable", "mapping", sel.Value, "error", err)
			missing[sel.Value] = true
			continue
		}
		c.walkMissing(ctx, nested, missing)
	}
}

// MissingReferences loads the closure rooted at basename and reports every
// selected reference file absent from the store.
func (c *Catalog) MissingReferences(ctx context.Context, basename string) ([]string, error) {
	root, err := c.Load(ctx, basename)
	if err != nil {
		return nil, err
	}
	missing := map[string]bool{}
	for _, refname := range root.ReferenceNames() {
		src, err := c.locator.LocateReference(refname)
		if err != nil {
			missing[refname] = true
			continue
		}
		if _, err := c.loader.Load(ctx, src); err != nil {
			c.log.Warn("reference is unavailable", "reference", refname, "error", err)
			missing[refname] = true
		}
	}
	return sortedNames(missing), nil
}

func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
