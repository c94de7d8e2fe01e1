package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("loading scene: %w", NewResourceError("banana.obj", ResourceStageRead, ErrAssetNotFound))

	var re *ResourceError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "banana.obj", re.Name)
	assert.Equal(t, ResourceStageRead, re.Stage)
	assert.ErrorIs(t, err, ErrAssetNotFound)
	assert.Contains(t, err.Error(), "failed at read")
}

func TestSurfaceErrorMatchesKind(t *testing.T) {
	err := fmt.Errorf("render: %w", NewSurfaceError(SurfaceErrorOutdated, nil))

	assert.ErrorIs(t, err, NewSurfaceError(SurfaceErrorOutdated, nil))
	assert.NotErrorIs(t, err, NewSurfaceError(SurfaceErrorTimeout, nil))

	var se *SurfaceError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.Recoverable())
	assert.False(t, NewSurfaceError(SurfaceErrorOutOfMemory, nil).Recoverable())
	assert.False(t, NewSurfaceError(SurfaceErrorTimeout, nil).Recoverable())
}

func TestParseLogLevel(t *testing.T) {
	for text, want := range map[string]LogLevel{
		"debug": DebugLevel,
		"INFO":  InfoLevel,
		"warn":  WarnLevel,
		"error": ErrorLevel,
		"fatal": FatalLevel,
	} {
		got, err := ParseLogLevel(text)
		require.NoError(t, err)
		assert.Equal(t, want, got, text)
	}

	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
}
