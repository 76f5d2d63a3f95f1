package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	s := &Store{Dir: filepath.Join(t.TempDir(), "creds")}
	url := "postgres://user:pw@db.example.supabase.co:5432/postgres"

	_, err := s.Get(DatabaseURL)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(" Database_URL ", url))
	got, err := s.Get(DatabaseURL)
	require.NoError(t, err)
	require.Equal(t, url, got)

	path := filepath.Join(s.Dir, fileName)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(raw), "supabase"), "value must not be stored in clear text")

	require.NoError(t, s.Delete(DatabaseURL))
	_, err = s.Get(DatabaseURL)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Delete(DatabaseURL), ErrNotFound)
}

func TestStoreRequiresName(t *testing.T) {
	t.Parallel()
	s := &Store{Dir: t.TempDir()}
	require.Error(t, s.Put("  ", "x"))
	_, err := s.Get("")
	require.Error(t, err)
}

func TestPackageFunctionsUseUserConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	require.NoError(t, StoreCredential(DatabaseURL, "postgres://localhost/recruit"))
	s, err := Default()
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(s.Dir, fileName))
	got, err := FetchCredential(DatabaseURL)
	require.NoError(t, err)
	require.Equal(t, "postgres://localhost/recruit", got)
	require.NoError(t, DeleteCredential(DatabaseURL))
}
