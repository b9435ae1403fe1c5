package dispatch

import (
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// Catalog maps type names to constructors so handlers can be built from
// configuration descriptors.
type Catalog struct {
	mu           sync.RWMutex
	constructors map[string]func() any
}

func NewCatalog() *Catalog {
	return &Catalog{constructors: make(map[string]func() any)}
}

// Register makes the named type constructible. Re-registering a name
// replaces the previous constructor.
func (c *Catalog) Register(name string, constructor func() any) {
	if name == "" || constructor == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.constructors[name] = constructor
}

// New builds a fresh instance of the named type. A missing name, a panicking
// constructor, or a nil instance all report false.
func (c *Catalog) New(name string) (instance any, ok bool) {
	c.mu.RLock()
	constructor, exists := c.constructors[name]
	c.mu.RUnlock()
	if !exists {
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			instance, ok = nil, false
		}
	}()
	instance = constructor()
	return instance, instance != nil
}

// Types lists the registered type names, sorted.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.constructors)
}

// applyProperties assigns descriptor properties to an instance one at a
// time. Properties that do not decode into a field are skipped rather than
// failing the bind.
func applyProperties(instance any, properties map[string]any) {
	for key, value := range properties {
		if key == "type" {
			continue
		}
		_ = mapstructure.Decode(map[string]any{key: value}, instance)
	}
}
