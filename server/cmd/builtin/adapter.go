package builtin

import (
	"time"

	"github.com/dm-vev/chunkengine/server"
	"github.com/dm-vev/chunkengine/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

type serverAdapter interface {
	StartTime() time.Time
	Status() server.Status
	Level() *world.Level
	ForcedChunks() *server.ForcedChunks
	AddViewer(id uuid.UUID, pos mgl64.Vec3, radius int) *world.Loader
	MoveViewer(id uuid.UUID, pos mgl64.Vec3) bool
	RemoveViewer(id uuid.UUID) bool
	Save() error
	CollectGarbage() int
	Close() error
}

var _ serverAdapter = (*server.Server)(nil)
