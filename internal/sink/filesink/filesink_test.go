package filesink

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jgivc/stlcatalog/internal/catalog"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func testResult() *entity.ScanResult {
	return &entity.ScanResult{Catalog: entity.Catalog{"Nuts": {entity.RootKey(): {entity.RootKey(): {
		Path: "Nuts", Files: []entity.ContentFile{{Name: "n.stl", Path: "Nuts/n.stl"}},
	}}}}}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSaveReplacesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/catalog.json", []byte("old"), 0o644))

	s := NewFileSinkWithFS(fs, "/out/catalog.json", false, testLogger())
	require.NoError(t, s.Save(context.Background(), testResult()))

	data, err := afero.ReadFile(fs, "/out/catalog.json")
	require.NoError(t, err)

	expected, err := catalog.Encode(testResult().Catalog)
	require.NoError(t, err)
	require.Equal(t, string(expected), string(data))

	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSaveCreatesDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, NewFileSinkWithFS(fs, "/a/b/catalog.json", false, testLogger()).Save(context.Background(), testResult()))

	ok, err := afero.Exists(fs, "/a/b/catalog.json")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSaveWithLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")

	require.NoError(t, NewFileSink(path, true, testLogger()).Save(context.Background(), testResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"Nuts"`)
}
