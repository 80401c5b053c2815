package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/folio/internal/store"
	"github.com/loykin/folio/internal/store/file"
	"github.com/loykin/folio/internal/store/memory"
	"github.com/loykin/folio/internal/store/sqlite"
)

func TestCreateStore_Types(t *testing.T) {
	dir := t.TempDir()

	s, err := CreateStore(store.Config{Path: dir})
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, s)

	s, err = CreateStore(store.Config{Type: "MEMORY"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)

	s, err = CreateStore(store.Config{Type: "sqlite", Path: filepath.Join(dir, "kv.db")})
	require.NoError(t, err)
	assert.IsType(t, &sqlite.DB{}, s)
	require.NoError(t, s.Put(context.Background(), "k", []byte("v")))
	_ = s.Close()
}

func TestCreateStore_Unsupported(t *testing.T) {
	_, err := CreateStore(store.Config{Type: "redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store type")
}

func TestSupportedTypes(t *testing.T) {
	assert.Subset(t, SupportedTypes(), []string{"file", "memory", "sqlite", "postgres", "postgresql"})
}

func TestRegisterStoreType(t *testing.T) {
	RegisterStoreType("Custom", func(store.Config) (store.Store, error) { return memory.New(), nil })
	s, err := CreateStore(store.Config{Type: "custom"})
	require.NoError(t, err)
	assert.NotNil(t, s)
}
