// pkg/database/store_test.go
package database

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diem-pm/diem/pkg/core"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "packages.json"), nil)
}

func record(provider, name, version string) *Record {
	return &Record{
		Package: core.Package{
			Name:     name,
			Version:  version,
			Provider: provider,
			Binaries: []string{"bin/" + name},
		},
		InstalledFrom: "/sgoinfre/" + provider + "/" + name,
		InstalledAt:   time.Now().UTC(),
	}
}

func TestStorePutGet(t *testing.T) {
	store := testStore(t)

	rec := record("alice", "eza", "0.18.0")
	require.NoError(t, store.Put(rec))

	got, err := store.Get(core.Reference{Provider: "alice", Name: "eza"})
	require.NoError(t, err)
	assert.Equal(t, "0.18.0", got.Version)
	assert.Equal(t, "alice", got.Provider)
}

func TestStoreGetMissing(t *testing.T) {
	store := testStore(t)

	_, err := store.Get(core.Reference{Provider: "alice", Name: "nope"})
	assert.ErrorIs(t, err, core.ErrPackageNotFound)
}

func TestStoreGetLegacyBareNameKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packages.json")

	// A database written before provider qualification keys records by
	// bare name.
	legacy := map[string]*Record{"eza": record("", "eza", "0.17.0")}
	data, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	store := New(path, nil)
	got, err := store.Get(core.Reference{Provider: "alice", Name: "eza"})
	require.NoError(t, err)
	assert.Equal(t, "0.17.0", got.Version)
}

func TestStoreDelete(t *testing.T) {
	store := testStore(t)

	ref := core.Reference{Provider: "alice", Name: "eza"}
	require.NoError(t, store.Put(record("alice", "eza", "0.18.0")))
	require.NoError(t, store.Delete(ref))

	_, err := store.Get(ref)
	assert.ErrorIs(t, err, core.ErrPackageNotFound)

	// Deleting again is not an error.
	assert.NoError(t, store.Delete(ref))
}

func TestStoreAll(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.Put(record("alice", "eza", "0.18.0")))
	require.NoError(t, store.Put(record("bob", "bat", "0.24.0")))

	records, err := store.All()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Contains(t, records, "alice:eza")
	assert.Contains(t, records, "bob:bat")
}

func TestStoreEmptyDatabase(t *testing.T) {
	store := testStore(t)

	records, err := store.All()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStoreCorruptDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packages.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	store := New(path, nil)
	_, err := store.All()
	assert.Error(t, err)
}

func TestStorePutReplacesExisting(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.Put(record("alice", "eza", "0.17.0")))
	require.NoError(t, store.Put(record("alice", "eza", "0.18.0")))

	got, err := store.Get(core.Reference{Provider: "alice", Name: "eza"})
	require.NoError(t, err)
	assert.Equal(t, "0.18.0", got.Version)

	records, err := store.All()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
