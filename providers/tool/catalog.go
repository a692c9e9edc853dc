package tool

import (
	"sort"
	"strings"
	"sync"
)

// Catalog is a thread-safe collection of tools keyed by lowercase name.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]GenericTool
}

// NewCatalog creates an empty catalog, optionally pre-populated.
func NewCatalog(tools ...GenericTool) *Catalog {
	c := &Catalog{tools: make(map[string]GenericTool)}
	c.Add(tools...)
	return c
}

// Add registers tools under their advertised names. A tool with an existing
// name replaces the previous registration.
func (c *Catalog) Add(tools ...GenericTool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tools {
		c.tools[strings.ToLower(t.Info().Name)] = t
	}
}

// Get retrieves a tool by name (case-insensitive).
func (c *Catalog) Get(name string) (GenericTool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tools[strings.ToLower(name)]
	return t, ok
}

// Infos returns the advertised metadata of every registered tool, sorted by
// name for stable listings.
func (c *Catalog) Infos() []Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	infos := make([]Info, 0, len(c.tools))
	for _, t := range c.tools {
		infos = append(infos, t.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Size returns the number of registered tools.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}
