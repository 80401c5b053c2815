package factory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/loykin/folio/internal/store"
	"github.com/loykin/folio/internal/store/file"
	"github.com/loykin/folio/internal/store/memory"
	"github.com/loykin/folio/internal/store/postgres"
	"github.com/loykin/folio/internal/store/sqlite"
)

// Builder creates a store from config.
type Builder func(cfg store.Config) (store.Store, error)

var (
	mu       sync.RWMutex
	builders = map[string]Builder{
		"file": func(cfg store.Config) (store.Store, error) {
			return file.New(cfg.Path)
		},
		"memory": func(store.Config) (store.Store, error) {
			return memory.New(), nil
		},
		"sqlite": func(cfg store.Config) (store.Store, error) {
			return sqlite.New(cfg)
		},
		"postgres": func(cfg store.Config) (store.Store, error) {
			return postgres.New(cfg)
		},
	}
)

func init() {
	RegisterStoreType("postgresql", builders["postgres"])
}

// RegisterStoreType registers or replaces a backend builder.
func RegisterStoreType(storeType string, b Builder) {
	mu.Lock()
	defer mu.Unlock()
	builders[strings.ToLower(storeType)] = b
}

// CreateStore builds the backend named by cfg.Type. An empty type means "file".
func CreateStore(cfg store.Config) (store.Store, error) {
	t := strings.ToLower(strings.TrimSpace(cfg.Type))
	if t == "" {
		t = "file"
	}
	mu.RLock()
	b, ok := builders[t]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported store type: %s (supported: %v)", cfg.Type, SupportedTypes())
	}
	return b(cfg)
}

// SupportedTypes returns the registered backend names, sorted.
func SupportedTypes() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(builders))
	for t := range builders {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
