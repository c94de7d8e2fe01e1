package engine

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/orrery/engine/assets"
	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/platform"
	"github.com/spaghettifunk/orrery/engine/renderer"
	"github.com/spaghettifunk/orrery/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Directory of the compiled shaders, relative to the assets directory.
const SHADER_DIRECTORY = "shaders"

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	assetManager *assets.AssetManager
	backend      renderer.RendererBackend
	world        *renderer.World
	width        uint32
	height       uint32
	clock        *core.Clock
	metrics      *core.Metrics
	lastTime     float64
}

func New(g *Game) (*Engine, error) {
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultApplicationConfig()
	}
	if err := g.ApplicationConfig.Validate(); err != nil {
		return nil, err
	}
	level, _ := core.ParseLogLevel(g.ApplicationConfig.Window.LogLevel)
	core.SetLogLevel(level)

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		platform:     platform.New(),
		assetManager: am,
		isRunning:    true,
		isSuspended:  false,
		width:        g.ApplicationConfig.Window.StartWidth,
		height:       g.ApplicationConfig.Window.StartHeight,
	}, nil
}

func (e *Engine) Initialize(ctx context.Context) error {
	e.currentStage = EngineStageInitializing
	config := e.gameInstance.ApplicationConfig

	// initialize input
	if err := core.InputInitialize(); err != nil {
		return err
	}

	// initialize events
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	// register some events
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	if err := e.platform.Startup(config.Window.Name,
		config.Window.StartPosX,
		config.Window.StartPosY,
		config.Window.StartWidth,
		config.Window.StartHeight); err != nil {
		return err
	}
	// The drawable size can differ from the window size on HiDPI screens.
	e.width, e.height = e.platform.FramebufferSize()

	if err := e.assetManager.Initialize(config.Assets.Directory, config.Assets.Watch); err != nil {
		return err
	}

	timeout, err := config.AcquireTimeout()
	if err != nil {
		return err
	}
	e.backend = vulkan.New(e.platform, vulkan.Options{
		Validation:     config.Vulkan.Validation,
		AcquireTimeout: timeout,
	})
	if err := e.backend.Initialize(config.Window.Name); err != nil {
		return err
	}

	shaders, err := renderer.LoadShaders(ctx, e.assetManager, SHADER_DIRECTORY)
	if err != nil {
		return err
	}
	world, err := renderer.NewWorld(e.backend.Device(), e.backend.Surface(), e.assetManager, shaders, config.ToWorldConfig(e.width, e.height))
	if err != nil {
		return err
	}
	e.world = world
	e.gameInstance.World = world

	if err := e.gameInstance.FnInitialize(ctx); err != nil {
		return err
	}
	if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
		return err
	}
	e.currentStage = EngineStageInitialized
	return nil
}

/**
 * @brief Runs the frame loop until the window closes, Escape is pressed,
 * ctx is cancelled or a frame fails fatally.
 */
func (e *Engine) Run(ctx context.Context) error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		select {
		case <-ctx.Done():
			core.LogInfo("context cancelled, shutting down.")
			e.isRunning = false
			continue
		default:
		}

		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}
		e.reloadChangedAssets(ctx)

		if e.isSuspended {
			// Nothing is drawn while minimized, give the time back to the OS.
			// Input still reaches the world so releases are not missed.
			e.platform.Sleep(16)
			e.forwardInput()
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := platform.GetAbsoluteTime()

		e.forwardInput()

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			return fmt.Errorf("game update failed: %w", err)
		}
		if err := e.world.Update(); err != nil {
			return fmt.Errorf("world update failed: %w", err)
		}
		if err := e.world.HandleSurfaceError(e.world.Render()); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}

		frameElapsedTime := platform.GetAbsoluteTime() - frameStartTime
		if e.metrics.Update(frameElapsedTime) {
			fps, ms := e.metrics.Frame()
			core.LogDebug("%.0f FPS, %.3f ms per frame", fps, ms)
		}

		// NOTE: Input update/state copying should always be handled
		// after any input should be recorded; I.E. before this line.
		// As a safety, input is the last thing to be updated before
		// this frame ends.
		core.InputUpdate(delta)

		// Update last time
		e.lastTime = currentTime
	}
	return nil
}

// Receives the input queued by the platform.
type inputSink interface {
	Input(event core.InputEvent) bool
}

// forwardInput hands the input queued since the last frame to the world.
func (e *Engine) forwardInput() {
	drainInput(e.platform, e.world)
}

func drainInput(p *platform.Platform, sink inputSink) {
	p.DrainInput(func(event core.InputEvent) {
		sink.Input(event)
	})
}

// reloadChangedAssets rebuilds the models whose files changed on disk, without blocking.
func (e *Engine) reloadChangedAssets(ctx context.Context) {
	for {
		select {
		case name := <-e.assetManager.Changes():
			core.LogInfo("asset changed: `%s`", name)
			n, err := e.world.ReloadAsset(ctx, name)
			if err != nil {
				core.LogError("failed to reload `%s`: %s", name, err)
			}
			if n > 0 {
				core.LogInfo("reloaded %d model(s) using `%s`", n, name)
			}
		default:
			return
		}
	}
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown failed: %s", err)
		}
	}
	if e.world != nil {
		e.world.Shutdown()
		e.world = nil
	}
	if e.backend != nil {
		if err := e.backend.Shutdown(); err != nil {
			return err
		}
	}
	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	if err := core.InputShutdown(); err != nil {
		return err
	}
	if e.platform.Window != nil {
		if err := e.platform.Shutdown(); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageUninitialized
	return nil
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
	}
}

func (e *Engine) onKey(context core.EventContext) {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}
	if context.Type == core.EVENT_CODE_KEY_PRESSED && ke.KeyCode == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_APPLICATION_QUIT,
		})
	}
}

func (e *Engine) onResized(context core.EventContext) {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}
	width, height := se.WindowWidth, se.WindowHeight

	// Check if different. If so, trigger a resize event.
	if width == e.width && height == e.height {
		return
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.world == nil {
		return
	}
	if err := e.world.HandleSurfaceError(e.world.Resize(width, height)); err != nil {
		core.LogError("resize failed: %s", err)
		e.isRunning = false
		return
	}
	if err := e.gameInstance.FnOnResize(width, height); err != nil {
		core.LogError(err.Error())
	}
}
