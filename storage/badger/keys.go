package badger

import (
	"encoding/binary"
	"strings"

	"github.com/poiesic/recall/core"
)

// Key prefixes for different data types
const (
	documentPrefix = "docrec:"
	memoryPrefix   = "mem:"
)

// makeDocumentKey generates a key for a document by ID.
// The ID is written BigEndian so iteration follows ID order.
func makeDocumentKey(id core.ID) []byte {
	buf := make([]byte, len(documentPrefix)+8)
	offset := copy(buf, documentPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// documentIDFromKey recovers the ID from a document key.
func documentIDFromKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(documentPrefix):]))
}

// makeMemoryTierPrefix generates the key prefix of every user in a tier.
// Format: mem:tier:
func makeMemoryTierPrefix(tier core.MemoryTier) []byte {
	return []byte(memoryPrefix + string(tier) + ":")
}

// makeMemoryKey generates the key holding a user's memories in a tier.
// Format: mem:tier:user
func makeMemoryKey(tier core.MemoryTier, userID string) []byte {
	return append(makeMemoryTierPrefix(tier), userID...)
}

// memoryUserFromKey recovers the user ID from a memory key.
func memoryUserFromKey(tier core.MemoryTier, key []byte) string {
	return strings.TrimPrefix(string(key), string(makeMemoryTierPrefix(tier)))
}
