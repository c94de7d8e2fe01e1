package core

import (
	"errors"
	"fmt"
)

var (
	ErrAssetNotFound        = errors.New("asset not found")
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrInvalidMaterialIndex = errors.New("mesh references a material that does not exist")
	ErrNoModels             = errors.New("no models loaded")
	ErrDeviceLost           = errors.New("device lost")
	ErrQueueFull            = errors.New("queue is full")
	ErrQueueEmpty           = errors.New("queue is empty")
	ErrUnknown              = errors.New("unknown")
)

// ResourceStage tells at which step the loading of an asset failed.
type ResourceStage uint8

const (
	ResourceStageRead ResourceStage = iota
	ResourceStageParse
	ResourceStageDecode
	ResourceStageUpload
	ResourceStageBind
)

func (s ResourceStage) String() string {
	switch s {
	case ResourceStageRead:
		return "read"
	case ResourceStageParse:
		return "parse"
	case ResourceStageDecode:
		return "decode"
	case ResourceStageUpload:
		return "upload"
	case ResourceStageBind:
		return "bind"
	}
	return "unknown"
}

/**
 * @brief Returned when a model, material or texture could not be
 * turned into GPU resources. The caller decides whether to skip the asset.
 */
type ResourceError struct {
	Name  string
	Stage ResourceStage
	Err   error
}

func NewResourceError(name string, stage ResourceStage, err error) *ResourceError {
	return &ResourceError{Name: name, Stage: stage, Err: err}
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource `%s` failed at %s: %v", e.Name, e.Stage, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

type SurfaceErrorKind uint8

const (
	// The surface is gone and must be configured again.
	SurfaceErrorLost SurfaceErrorKind = iota
	// The surface changed (e.g. resize) and must be configured again.
	SurfaceErrorOutdated
	// Not enough memory to keep going. Fatal.
	SurfaceErrorOutOfMemory
	// Acquiring took too long. Try again on the next frame.
	SurfaceErrorTimeout
)

func (k SurfaceErrorKind) String() string {
	switch k {
	case SurfaceErrorLost:
		return "lost"
	case SurfaceErrorOutdated:
		return "outdated"
	case SurfaceErrorOutOfMemory:
		return "out of memory"
	case SurfaceErrorTimeout:
		return "timeout"
	}
	return "unknown"
}

type SurfaceError struct {
	Kind SurfaceErrorKind
	Err  error
}

func NewSurfaceError(kind SurfaceErrorKind, err error) *SurfaceError {
	return &SurfaceError{Kind: kind, Err: err}
}

func (e *SurfaceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("surface error: %s", e.Kind)
	}
	return fmt.Sprintf("surface error: %s: %v", e.Kind, e.Err)
}

func (e *SurfaceError) Unwrap() error {
	return e.Err
}

// Is reports a match on any *SurfaceError with the same kind.
func (e *SurfaceError) Is(target error) bool {
	t, ok := target.(*SurfaceError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Recoverable is true when reconfiguring the surface is enough to keep rendering.
func (e *SurfaceError) Recoverable() bool {
	return e.Kind == SurfaceErrorLost || e.Kind == SurfaceErrorOutdated
}
