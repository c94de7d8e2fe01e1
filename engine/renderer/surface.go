package renderer

import (
	"fmt"

	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/math"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

// Largest width or height the surface is ever configured with.
const MAX_SURFACE_DIMENSION uint32 = 8192

/**
 * @brief Owns the presentable surface and its configuration. The
 * configuration held here is the only record of the renderable size.
 */
type SurfaceManager struct {
	device  metadata.Device
	surface metadata.Surface
	config  metadata.SurfaceConfiguration
}

func NewSurfaceManager(device metadata.Device, surface metadata.Surface, width, height uint32, presentMode metadata.PresentMode) (*SurfaceManager, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("cannot create a %dx%d surface", width, height)
	}
	sm := &SurfaceManager{
		device:  device,
		surface: surface,
		config: metadata.SurfaceConfiguration{
			Usage:       metadata.TextureUsageRenderAttachment,
			Format:      surface.PreferredFormat(),
			Width:       math.Clamp(width, 1, MAX_SURFACE_DIMENSION),
			Height:      math.Clamp(height, 1, MAX_SURFACE_DIMENSION),
			PresentMode: presentMode,
		},
	}
	if err := sm.surface.Configure(&sm.config); err != nil {
		return nil, err
	}
	core.LogInfo("surface configured %dx%d (%s)", sm.config.Width, sm.config.Height, sm.config.Format)
	return sm, nil
}

func (sm *SurfaceManager) Config() metadata.SurfaceConfiguration {
	return sm.config
}

func (sm *SurfaceManager) Format() metadata.TextureFormat {
	return sm.config.Format
}

/**
 * @brief Applies a new size, clamped to MAX_SURFACE_DIMENSION. A zero
 * width or height is ignored.
 * @return True if the surface was reconfigured. The depth buffer must then be recreated.
 */
func (sm *SurfaceManager) Configure(width, height uint32) (bool, error) {
	if width == 0 || height == 0 {
		core.LogDebug("ignoring resize to %dx%d", width, height)
		return false, nil
	}
	next := sm.config
	next.Width = math.Clamp(width, 1, MAX_SURFACE_DIMENSION)
	next.Height = math.Clamp(height, 1, MAX_SURFACE_DIMENSION)
	if err := sm.surface.Configure(&next); err != nil {
		return false, err
	}
	sm.config = next
	core.LogDebug("surface configured %dx%d", next.Width, next.Height)
	return true, nil
}

// Reconfigure applies the current configuration again, e.g. after the surface was lost.
func (sm *SurfaceManager) Reconfigure() error {
	return sm.surface.Configure(&sm.config)
}

// AcquireFrame returns the next target to render to, or a *core.SurfaceError.
func (sm *SurfaceManager) AcquireFrame() (metadata.Frame, error) {
	return sm.surface.AcquireFrame()
}
