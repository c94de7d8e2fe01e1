package metadata

type PresentMode uint8

const (
	PresentModeFifo PresentMode = iota
	PresentModeMailbox
	PresentModeImmediate
)

type SurfaceConfiguration struct {
	Usage       TextureUsage
	Format      TextureFormat
	Width       uint32
	Height      uint32
	PresentMode PresentMode
}

/**
 * @brief The presentable target of a window.
 */
type Surface interface {
	// PreferredFormat is the color format the surface presents best.
	PreferredFormat() TextureFormat
	// Configure may lower Width and Height to the extent the surface accepts.
	Configure(config *SurfaceConfiguration) error
	// AcquireFrame returns a *core.SurfaceError when no target is available.
	AcquireFrame() (Frame, error)
}

/**
 * @brief One acquired swapchain image. Present hands it back to the
 * compositor; the frame must not be used afterwards.
 */
type Frame interface {
	View() TextureView
	Present() error
}
