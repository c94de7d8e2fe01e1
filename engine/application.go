package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/math"
	"github.com/spaghettifunk/orrery/engine/renderer"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

type WindowConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"height"`
	LogLevel    string `toml:"log_level"`
}

type AssetsConfig struct {
	Directory string `toml:"directory"`
	// Reports changed assets while running.
	Watch bool `toml:"watch"`
}

type SurfaceConfig struct {
	// fifo, mailbox or immediate
	PresentMode string `toml:"present_mode"`
	// How long to wait for a swapchain image, e.g. "1s".
	AcquireTimeout string `toml:"acquire_timeout"`
}

type CameraConfig struct {
	Eye         [3]float32 `toml:"eye"`
	Target      [3]float32 `toml:"target"`
	Up          [3]float32 `toml:"up"`
	Fovy        float32    `toml:"fovy"`
	Znear       float32    `toml:"znear"`
	Zfar        float32    `toml:"zfar"`
	Sensitivity float32    `toml:"sensitivity"`
}

type LightConfig struct {
	Position        [3]float32 `toml:"position"`
	Color           [3]float32 `toml:"color"`
	DegreesPerFrame float32    `toml:"degrees_per_frame"`
}

type ModelConfig struct {
	Name      string     `toml:"name"`
	Placement [3]float32 `toml:"placement"`
}

type SceneConfig struct {
	Models []ModelConfig `toml:"models"`
}

type VulkanConfig struct {
	// Enables the Khronos validation layer.
	Validation bool `toml:"validation"`
}

type ApplicationConfig struct {
	Window  WindowConfig  `toml:"window"`
	Assets  AssetsConfig  `toml:"assets"`
	Surface SurfaceConfig `toml:"surface"`
	Camera  CameraConfig  `toml:"camera"`
	Light   LightConfig   `toml:"light"`
	Scene   SceneConfig   `toml:"scene"`
	Vulkan  VulkanConfig  `toml:"vulkan"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Window: WindowConfig{
			Name:        "Orrery",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
			LogLevel:    "debug",
		},
		Assets: AssetsConfig{
			Directory: "assets",
			Watch:     true,
		},
		Surface: SurfaceConfig{
			PresentMode:    "fifo",
			AcquireTimeout: "1s",
		},
		Camera: CameraConfig{
			Eye:         [3]float32{0, 5, -10},
			Target:      [3]float32{0, 0, 0},
			Up:          [3]float32{0, 1, 0},
			Fovy:        45,
			Znear:       0.1,
			Zfar:        100,
			Sensitivity: 0.2,
		},
		Light: LightConfig{
			Position:        [3]float32{2, 2, 2},
			Color:           [3]float32{1, 1, 1},
			DegreesPerFrame: 1,
		},
		Scene: SceneConfig{
			Models: []ModelConfig{
				{Name: "banana.obj", Placement: [3]float32{10, 0, 10}},
			},
		},
	}
}

/**
 * @brief Reads the configuration at path over the defaults. A missing file
 * yields the defaults.
 */
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	cfg := DefaultApplicationConfig()
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		core.LogInfo("no configuration at `%s`, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Array tables append to what is already there, so the default scene is
	// only restored when the file lists no models.
	defaultModels := cfg.Scene.Models
	cfg.Scene.Models = nil
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(cfg); err != nil {
		return nil, fmt.Errorf("configuration `%s`: %w", path, err)
	}
	if cfg.Scene.Models == nil {
		cfg.Scene.Models = defaultModels
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration `%s`: %w", path, err)
	}
	return cfg, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.Window.StartWidth == 0 || c.Window.StartHeight == 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.StartWidth, c.Window.StartHeight)
	}
	if _, err := core.ParseLogLevel(c.Window.LogLevel); err != nil {
		return err
	}
	if _, err := c.PresentMode(); err != nil {
		return err
	}
	if _, err := c.AcquireTimeout(); err != nil {
		return err
	}
	if c.Camera.Sensitivity <= 0 {
		return fmt.Errorf("camera sensitivity must be positive, got %g", c.Camera.Sensitivity)
	}
	if c.Camera.Znear <= 0 || c.Camera.Znear >= c.Camera.Zfar {
		return fmt.Errorf("camera planes must satisfy 0 < znear < zfar, got %g and %g", c.Camera.Znear, c.Camera.Zfar)
	}
	if c.Camera.Fovy <= 0 || c.Camera.Fovy >= 180 {
		return fmt.Errorf("camera fovy must be within (0, 180), got %g", c.Camera.Fovy)
	}
	forward := vec3(c.Camera.Target).Sub(vec3(c.Camera.Eye))
	if forward.LengthSquared() < 1e-8 {
		return fmt.Errorf("camera eye and target must differ, both are %v", c.Camera.Eye)
	}
	// The view basis degenerates when up has no component across the view direction.
	up := vec3(c.Camera.Up)
	d := forward.Dot(up)
	if up.LengthSquared() < 1e-8 || d*d > 0.9999*forward.LengthSquared()*up.LengthSquared() {
		return fmt.Errorf("camera up %v must not be zero or parallel to the view direction", c.Camera.Up)
	}
	for i, m := range c.Scene.Models {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("scene model %d has no name", i)
		}
	}
	return nil
}

func (c *ApplicationConfig) PresentMode() (metadata.PresentMode, error) {
	switch strings.ToLower(c.Surface.PresentMode) {
	case "fifo", "":
		return metadata.PresentModeFifo, nil
	case "mailbox":
		return metadata.PresentModeMailbox, nil
	case "immediate":
		return metadata.PresentModeImmediate, nil
	}
	return metadata.PresentModeFifo, fmt.Errorf("unknown present mode `%s`", c.Surface.PresentMode)
}

func (c *ApplicationConfig) AcquireTimeout() (time.Duration, error) {
	if c.Surface.AcquireTimeout == "" {
		return time.Second, nil
	}
	d, err := time.ParseDuration(c.Surface.AcquireTimeout)
	if err != nil {
		return 0, fmt.Errorf("acquire timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("acquire timeout must be positive, got %s", d)
	}
	return d, nil
}

func vec3(v [3]float32) math.Vec3 {
	return math.NewVec3(v[0], v[1], v[2])
}

// ToWorldConfig converts the validated configuration for a window of width x height pixels.
func (c *ApplicationConfig) ToWorldConfig(width, height uint32) renderer.WorldConfig {
	presentMode, _ := c.PresentMode()
	return renderer.WorldConfig{
		Width:       width,
		Height:      height,
		PresentMode: presentMode,
		Camera: renderer.CameraConfig{
			Eye:         vec3(c.Camera.Eye),
			Target:      vec3(c.Camera.Target),
			Up:          vec3(c.Camera.Up),
			Fovy:        c.Camera.Fovy,
			Znear:       c.Camera.Znear,
			Zfar:        c.Camera.Zfar,
			Sensitivity: c.Camera.Sensitivity,
		},
		Light: renderer.LightConfig{
			Position:        renderer.Area3D{X: c.Light.Position[0], Y: c.Light.Position[1], Z: c.Light.Position[2]},
			Color:           renderer.NewColor(c.Light.Color[0], c.Light.Color[1], c.Light.Color[2]),
			DegreesPerFrame: c.Light.DegreesPerFrame,
		},
	}
}
