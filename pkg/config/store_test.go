package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatForPath("/x/config.yaml"))
	assert.Equal(t, FormatYAML, FormatForPath("/x/config.YML"))
	assert.Equal(t, FormatJSON, FormatForPath("/x/config.json"))
	assert.Equal(t, FormatJSON, FormatForPath("/x/config"))
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, filepath.Join(".lookout", "config.yaml")))
}

func TestFileStore_MissingFile(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	data, err := store.GetSection("browser")
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.False(t, store.IsModified())
}

func TestFileStore_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			store, err := NewFileStore(path)
			require.NoError(t, err)

			require.NoError(t, store.SetSection("browser", map[string]interface{}{
				"backend":       "devtools",
				"headless":      true,
				"denied_hosts":  []interface{}{"*.internal"},
				"extract_limit": 42,
			}))
			assert.True(t, store.IsModified())
			require.NoError(t, store.Save())
			assert.False(t, store.IsModified())

			_, err = os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

			reloaded, err := NewFileStore(path)
			require.NoError(t, err)
			data, err := reloaded.GetSection("browser")
			require.NoError(t, err)

			assert.Equal(t, "devtools", data["backend"])
			assert.Equal(t, true, data["headless"])
			assert.Equal(t, []interface{}{"*.internal"}, data["denied_hosts"])
			assert.EqualValues(t, 42, data["extract_limit"])
		})
	}
}

func TestFileStore_ReturnsCopies(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "c.json"))
	require.NoError(t, err)

	original := map[string]interface{}{"k": "v"}
	require.NoError(t, store.SetSection("s", original))
	original["k"] = "mutated"

	got, err := store.GetSection("s")
	require.NoError(t, err)
	assert.Equal(t, "v", got["k"])

	got["k"] = "also mutated"
	again, _ := store.GetSection("s")
	assert.Equal(t, "v", again["k"])
}

func TestFileStore_SetAll(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "c.yaml"))
	require.NoError(t, err)

	require.NoError(t, store.SetAll(map[string]map[string]interface{}{
		"a": {"x": 1},
		"b": {"y": 2},
	}))
	all, err := store.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestFileStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0600))

	store, err := NewFileStore(path)
	require.NoError(t, err)
	all, _ := store.GetAll()
	assert.Empty(t, all)
}
