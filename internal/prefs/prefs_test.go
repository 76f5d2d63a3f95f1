package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "prefs.json")

	p, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, Prefs{}, p)

	want := Prefs{TrendWeeks: 8, LastImportPath: "/tmp/export.csv", Tab: 2}
	require.NoError(t, SaveTo(path, want))
	got, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.NoFileExists(t, path+".tmp")
}

func TestLoadCorrupt(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := LoadFrom(path)
	require.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	require.NoError(t, Save(Prefs{TrendWeeks: 12}))
	got, err := Load()
	require.NoError(t, err)
	require.Equal(t, 12, got.TrendWeeks)
}
