package errand

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jwhitelaw/errand/pkg/chat"
)

// Catalog is the fixed set of tools exposed to the model. Registration
// order is preserved so the specs reach the model deterministically, and
// lookups normalize case and whitespace because model output does not
// always reproduce the declared name exactly.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]catalogEntry
	order   []string
}

type catalogEntry struct {
	tool Tool
	spec chat.ToolSpec
}

func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]catalogEntry)}
}

// Register adds a tool under its normalized name. Duplicate names are an
// error: the tool set is wired once at startup, a collision means a wiring
// bug.
func (c *Catalog) Register(tool Tool) error {
	spec := tool.Spec()
	key := toolKey(spec.Name)
	if key == "" {
		return fmt.Errorf("tool name is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		return fmt.Errorf("tool %s already registered", spec.Name)
	}
	c.entries[key] = catalogEntry{tool: tool, spec: spec}
	c.order = append(c.order, key)
	return nil
}

// Lookup returns the tool and its specification if present.
func (c *Catalog) Lookup(name string) (Tool, chat.ToolSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[toolKey(name)]
	if !ok {
		return nil, chat.ToolSpec{}, false
	}
	return entry.tool, entry.spec, true
}

// Specs returns the tool specifications in registration order.
func (c *Catalog) Specs() []chat.ToolSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()

	specs := make([]chat.ToolSpec, 0, len(c.order))
	for _, key := range c.order {
		specs = append(specs, c.entries[key].spec)
	}
	return specs
}

func toolKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
