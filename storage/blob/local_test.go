package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreSaveDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	location, err := store.Save(ctx, "uploads/report.txt", []byte("hello"))
	require.NoError(t, err)

	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	assert.True(t, strings.HasPrefix(store.PublicURL("uploads/report.txt"), "file://"))

	require.NoError(t, store.Delete(ctx, location))
	_, err = os.Stat(location)
	assert.True(t, os.IsNotExist(err))

	// Deleting a missing blob is a no-op
	assert.NoError(t, store.Delete(ctx, location))
}

func TestLocalStoreNestedPath(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStore(base)
	require.NoError(t, err)

	location, err := store.Save(context.Background(), "a/b/c.txt", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "a", "b", "c.txt"), location)
}
