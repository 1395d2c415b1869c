package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drakeCatalog(t *testing.T) (*Catalog, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "drake.png")
	writePNG(t, path, 20, 20)

	catalog, err := Load(LoadOptions{
		Paths:      []string{dir},
		Extensions: []string{"png"},
		Overrides:  map[string]Override{path: {Name: "Drake", Key: "drake01"}},
	})
	require.NoError(t, err)
	return catalog, path
}

func TestResolveDrakeScenario(t *testing.T) {
	catalog, path := drakeCatalog(t)
	resolver := NewResolver(catalog)

	byKey, strategy, err := resolver.ResolveWithStrategy("drake01")
	require.NoError(t, err)
	assert.Equal(t, StrategyByKey, strategy)
	assert.Equal(t, path, byKey.Path)

	byName, strategy, err := resolver.ResolveWithStrategy("Drake")
	require.NoError(t, err)
	assert.Equal(t, StrategyByName, strategy)
	assert.Same(t, byKey, byName)

	lower, err := resolver.Resolve("  drake ")
	require.NoError(t, err)
	assert.Same(t, byKey, lower)

	_, err = resolver.Resolve("nonexistent")
	require.ErrorIs(t, err, ErrTemplateNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nonexistent", nf.Identifier)
	assert.Equal(t, 1, nf.Searched)
}

func TestResolveEveryKey(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.png", "c_d.png", "eFg.png"} {
		writePNG(t, filepath.Join(dir, name), 4, 4)
	}
	catalog, err := Load(LoadOptions{Paths: []string{dir}, Extensions: []string{"png"}})
	require.NoError(t, err)
	require.Equal(t, 4, catalog.Len())

	resolver := NewResolver(catalog)
	for _, tmpl := range resolver.List() {
		got, err := resolver.Resolve(tmpl.Key)
		require.NoError(t, err)
		assert.Same(t, tmpl, got)
	}
}

func TestResolveNeverGuesses(t *testing.T) {
	catalog, _ := drakeCatalog(t)
	resolver := NewResolver(catalog)

	for _, id := range []string{"Drak", "drake0", "drake01x", "Drake Hotline"} {
		_, err := resolver.Resolve(id)
		assert.ErrorIs(t, err, ErrTemplateNotFound, id)
	}
}

func TestResolveDirectFile(t *testing.T) {
	catalog, _ := drakeCatalog(t)
	resolver := NewResolver(catalog)

	dir := t.TempDir()
	path := filepath.Join(dir, "my_custom_meme.png")
	writePNG(t, path, 12, 6)

	tmpl, strategy, err := resolver.ResolveWithStrategy(path)
	require.NoError(t, err)
	assert.Equal(t, StrategyDirectFile, strategy)
	assert.Equal(t, "my_custom_meme", tmpl.Name)
	assert.Equal(t, SourceDirect, tmpl.Source)
	assert.Equal(t, KeyForPath(path), tmpl.Key)

	w, h, err := tmpl.Dimensions()
	require.NoError(t, err)
	assert.Equal(t, 12, w)
	assert.Equal(t, 6, h)
}

func TestResolveDirectFileUnreadable(t *testing.T) {
	resolver := NewResolver(NewCatalog(nil))
	path := filepath.Join(t.TempDir(), "fake.png")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))

	_, err := resolver.Resolve(path)
	require.ErrorIs(t, err, ErrUnreadableImage)
}

func TestResolveDirectoryIsNotAFile(t *testing.T) {
	resolver := NewResolver(NewCatalog(nil))

	_, err := resolver.Resolve(t.TempDir())
	require.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestResolveEmptyIdentifier(t *testing.T) {
	resolver := NewResolver(NewCatalog(nil))
	_, err := resolver.Resolve("   ")
	require.ErrorIs(t, err, ErrIdentifierRequired)
}
