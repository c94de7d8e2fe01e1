package testbed

import (
	"context"
	"time"

	"github.com/spaghettifunk/orrery/engine"
	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/renderer"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32
	// Seconds since the first update.
	elapsed float64
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

// Initialize loads the models of the configured scene.
func (g *TestGame) Initialize(ctx context.Context) error {
	core.LogInfo("initializing testbed...")
	for _, m := range g.ApplicationConfig.Scene.Models {
		start := time.Now()
		placement := renderer.Area3D{X: m.Placement[0], Y: m.Placement[1], Z: m.Placement[2]}
		if err := g.World.AddModel(ctx, m.Name, placement); err != nil {
			return err
		}
		core.LogInfo("scene model `%s` ready in %s", m.Name, time.Since(start))
	}
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	state.elapsed += deltaTime
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)
	core.LogInfo("testbed ran for %.1fs", state.elapsed)
	return nil
}
