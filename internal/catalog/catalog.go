// Package catalog caches the backend's operation catalog and resolves
// operation parameters against their specs.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lumagraph-labs/lumagraph/pkg/core"
)

// Source provides the authoritative catalog, normally the remote backend.
type Source interface {
	ListOperations(ctx context.Context) ([]core.OperationSpec, []string, error)
}

// Catalog is a read-mostly snapshot of the backend's operations. Refresh
// replaces the snapshot wholesale; readers never see a partial update.
type Catalog struct {
	mu         sync.RWMutex
	byName     map[string]core.OperationSpec
	categories []string
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{byName: make(map[string]core.OperationSpec)}
}

// Refresh replaces the catalog with the source's current operations.
// The previous snapshot stays in place on error.
func (c *Catalog) Refresh(ctx context.Context, src Source) error {
	specs, categories, err := src.ListOperations(ctx)
	if err != nil {
		return fmt.Errorf("refreshing operation catalog: %w", err)
	}
	c.Replace(specs, categories)
	return nil
}

// Replace swaps in a new set of specs directly.
func (c *Catalog) Replace(specs []core.OperationSpec, categories []string) {
	byName := make(map[string]core.OperationSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}
	c.mu.Lock()
	c.byName = byName
	c.categories = append([]string(nil), categories...)
	c.mu.Unlock()
}

// Get returns the spec of one operation.
func (c *Catalog) Get(name string) (core.OperationSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byName[name]
	return s, ok
}

// List returns all specs sorted by category, then display name.
func (c *Catalog) List() []core.OperationSpec {
	c.mu.RLock()
	specs := make([]core.OperationSpec, 0, len(c.byName))
	for _, s := range c.byName {
		specs = append(specs, s)
	}
	c.mu.RUnlock()

	sort.Slice(specs, func(i, j int) bool {
		if specs[i].Category != specs[j].Category {
			return specs[i].Category < specs[j].Category
		}
		return specs[i].DisplayName < specs[j].DisplayName
	})
	return specs
}

// Categories returns the category list in backend order.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.categories...)
}

// Len returns the number of known operations.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byName)
}

// ResolveParams validates the given parameters against an operation's
// spec and fills in defaults for everything omitted. Range parameters
// expand to <name>_low and <name>_high keys. Parameters not named by the
// spec are dropped.
func (c *Catalog) ResolveParams(operation string, params map[string]any) (map[string]any, error) {
	spec, ok := c.Get(operation)
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", operation)
	}

	resolved := make(map[string]any, len(spec.Params))
	for _, p := range spec.Params {
		if v, provided := params[p.Name]; provided {
			resolved[p.Name] = v
			continue
		}
		if p.Type == core.ParamRange {
			// Range params ship as two scalar keys on the wire.
			if low, ok := params[p.Name+"_low"]; ok {
				resolved[p.Name+"_low"] = low
			} else {
				resolved[p.Name+"_low"] = p.DefaultLow
			}
			if high, ok := params[p.Name+"_high"]; ok {
				resolved[p.Name+"_high"] = high
			} else {
				resolved[p.Name+"_high"] = p.DefaultHigh
			}
			continue
		}
		resolved[p.Name] = p.Default
	}
	return resolved, nil
}
