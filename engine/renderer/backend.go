package renderer

import "github.com/spaghettifunk/orrery/engine/renderer/metadata"

/**
 * @brief A graphics API binding. Initialize must succeed before Device or
 * Surface are used.
 */
type RendererBackend interface {
	Initialize(appName string) error
	Device() metadata.Device
	Surface() metadata.Surface
	Shutdown() error
}
