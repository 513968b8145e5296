package builtin

import (
	"fmt"
	"strconv"

	"github.com/dm-vev/chunkengine/server/world"
)

// parseChunkPos parses the chunk x and z coordinates passed.
func parseChunkPos(x, z string) (world.ChunkPos, error) {
	cx, err := strconv.ParseInt(x, 10, 32)
	if err != nil {
		return world.ChunkPos{}, fmt.Errorf("invalid chunk x %q", x)
	}
	cz, err := strconv.ParseInt(z, 10, 32)
	if err != nil {
		return world.ChunkPos{}, fmt.Errorf("invalid chunk z %q", z)
	}
	return world.ChunkPos{int32(cx), int32(cz)}, nil
}
