package engine

import (
	"context"

	"github.com/spaghettifunk/orrery/engine/renderer"
)

/**
 * @brief The hooks a game plugs into the engine. World is set before
 * FnInitialize runs.
 */
type Game struct {
	ApplicationConfig *ApplicationConfig
	World             *renderer.World
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

type Initialize func(ctx context.Context) error
type Update func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
