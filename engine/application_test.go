package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/orrery/engine/math"
	"github.com/spaghettifunk/orrery/engine/renderer"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestLoadMissingConfigGivesDefaults(t *testing.T) {
	cfg, err := LoadApplicationConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultApplicationConfig(), cfg)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[window]
name = "Test"
width = 640
height = 480

[surface]
present_mode = "mailbox"
acquire_timeout = "250ms"

[camera]
fovy = 60.0

[[scene.models]]
name = "cube.obj"
placement = [1.0, 2.0, 3.0]

[[scene.models]]
name = "banana.obj"
placement = [10.0, 0.0, 10.0]
`)
	cfg, err := LoadApplicationConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Test", cfg.Window.Name)
	assert.Equal(t, uint32(640), cfg.Window.StartWidth)
	// Untouched keys keep their default.
	assert.Equal(t, uint32(100), cfg.Window.StartPosX)
	assert.Equal(t, float32(0.2), cfg.Camera.Sensitivity)
	assert.Equal(t, float32(60), cfg.Camera.Fovy)
	require.Len(t, cfg.Scene.Models, 2)
	assert.Equal(t, ModelConfig{Name: "cube.obj", Placement: [3]float32{1, 2, 3}}, cfg.Scene.Models[0])

	mode, err := cfg.PresentMode()
	require.NoError(t, err)
	assert.Equal(t, metadata.PresentModeMailbox, mode)
	timeout, err := cfg.AcquireTimeout()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, timeout)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	_, err := LoadApplicationConfig(writeConfig(t, "[window]\ncolour = 3\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*ApplicationConfig){
		"zero width":       func(c *ApplicationConfig) { c.Window.StartWidth = 0 },
		"log level":        func(c *ApplicationConfig) { c.Window.LogLevel = "loud" },
		"present mode":     func(c *ApplicationConfig) { c.Surface.PresentMode = "vsync" },
		"acquire timeout":  func(c *ApplicationConfig) { c.Surface.AcquireTimeout = "-1s" },
		"sensitivity":      func(c *ApplicationConfig) { c.Camera.Sensitivity = 0 },
		"znear above zfar": func(c *ApplicationConfig) { c.Camera.Znear = 200 },
		"fovy":             func(c *ApplicationConfig) { c.Camera.Fovy = 180 },
		"unnamed model":    func(c *ApplicationConfig) { c.Scene.Models = []ModelConfig{{Name: " "}} },
		"eye on target":    func(c *ApplicationConfig) { c.Camera.Target = c.Camera.Eye },
		"up along view":    func(c *ApplicationConfig) { c.Camera.Up = [3]float32{0, -5, 10} },
		"zero up":          func(c *ApplicationConfig) { c.Camera.Up = [3]float32{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultApplicationConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, DefaultApplicationConfig().Validate())
}

func TestToWorldConfig(t *testing.T) {
	wc := DefaultApplicationConfig().ToWorldConfig(800, 600)
	def := renderer.DefaultWorldConfig()

	assert.Equal(t, uint32(800), wc.Width)
	assert.Equal(t, uint32(600), wc.Height)
	assert.Equal(t, def.PresentMode, wc.PresentMode)
	assert.Equal(t, def.Camera, wc.Camera)
	assert.Equal(t, def.Light, wc.Light)
	assert.Equal(t, math.NewVec3(0, 5, -10), wc.Camera.Eye)
}
