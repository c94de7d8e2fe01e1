package core

import (
	"fmt"

	"github.com/google/uuid"
)

// NewIdentifier returns a random unique id used to tag models and GPU objects.
func NewIdentifier() uuid.UUID {
	return uuid.New()
}

// Label builds a debug label for GPU objects, e.g. `banana.obj/vertex#1b4e...`.
func Label(owner string, kind string, id uuid.UUID) string {
	return fmt.Sprintf("%s/%s#%s", owner, kind, id.String()[:8])
}
