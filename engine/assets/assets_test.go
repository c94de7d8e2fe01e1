package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newManager(t *testing.T, dir string, watch bool) *AssetManager {
	t.Helper()
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir, watch))
	t.Cleanup(func() { _ = am.Shutdown() })
	return am
}

func TestLoadStringAndBinary(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "banana.mtl", "newmtl Skin\n")
	writeFile(t, dir, "nested/data.bin", "\x01\x02\x03")

	am := newManager(t, dir, false)
	ctx := context.Background()

	text, err := am.LoadString(ctx, "banana.mtl")
	require.NoError(t, err)
	assert.Equal(t, "newmtl Skin\n", text)

	data, err := am.LoadBinary(ctx, "nested/data.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	info, ok := am.Info("banana.mtl")
	require.True(t, ok)
	assert.Equal(t, metadata.ResourceTypeMaterial, info.Type)
	assert.False(t, info.LastLoaded.IsZero())
}

func TestLoadMissingAsset(t *testing.T) {
	am := newManager(t, t.TempDir(), false)

	_, err := am.LoadBinary(context.Background(), "nope.obj")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAssetNotFound)

	var resErr *core.ResourceError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, "nope.obj", resErr.Name)
	assert.Equal(t, core.ResourceStageRead, resErr.Stage)
}

func TestLoadRefusesNamesOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	writeFile(t, parent, "secret.txt", "nope")
	root := filepath.Join(parent, "assets")
	require.NoError(t, os.Mkdir(root, 0o755))

	am := newManager(t, root, false)
	_, err := am.LoadString(context.Background(), "../secret.txt")
	assert.ErrorIs(t, err, core.ErrAssetNotFound)
}

func TestLoadHonorsCancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "a")
	am := newManager(t, dir, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := am.LoadString(ctx, "a.txt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShaderAssetsAreValidated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shaders/broken.spv", "not spir-v")
	am := newManager(t, dir, false)

	_, err := am.LoadBinary(context.Background(), "shaders/broken.spv")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestInitializeRejectsMissingDirectory(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	assert.Error(t, am.Initialize(filepath.Join(t.TempDir(), "missing"), false))
}

func TestWatcherReportsChangedAssets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "banana.obj", "o Banana\n")
	am := newManager(t, dir, true)

	writeFile(t, dir, "banana.obj", "o Banana\nv 0 0 0\n")

	select {
	case name := <-am.Changes():
		assert.Equal(t, "banana.obj", name)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification received")
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	am := newManager(t, dir, true)

	writeFile(t, dir, "models/late.obj", "o Late\n")
	require.Eventually(t, func() bool {
		_, ok := am.Info("models/late.obj")
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	// the new directory is watched too
	writeFile(t, dir, "models/late.obj", "o Late\nv 0 0 0\n")
	deadline := time.After(5 * time.Second)
	for {
		select {
		case name := <-am.Changes():
			if name == "models/late.obj" {
				return
			}
		case <-deadline:
			t.Fatal("no change notification for a file in a new directory")
		}
	}
}

func TestDetermineAssetType(t *testing.T) {
	cases := map[string]metadata.ResourceType{
		"shaders/shader.vert.spv": metadata.ResourceTypeShader,
		"Banana.png":              metadata.ResourceTypeImage,
		"photo.jpeg":              metadata.ResourceTypeImage,
		"banana.mtl":              metadata.ResourceTypeMaterial,
		"banana.obj":              metadata.ResourceTypeModel,
		"notes.txt":               metadata.ResourceTypeText,
		"shader.vert":             metadata.ResourceTypeNone,
	}
	for name, want := range cases {
		assert.Equal(t, want, determineAssetType(name), name)
	}
}
