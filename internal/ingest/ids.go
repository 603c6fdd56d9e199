package ingest

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// newBookmarkID synthesizes a locally-unique positive id for directly
// submitted URLs, for which no external id authority is consulted. Generator
// uniqueness is never trusted alone: the store's unique constraints remain
// the authoritative collision guard.
func newBookmarkID() int64 {
	u := uuid.New()
	return int64(binary.BigEndian.Uint64(u[:8]) >> 1)
}
