package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/corpus/core"
)

// Key prefixes for different data types
const (
	documentRecordPrefix = "docrec"
	documentDatePrefix   = "docrecd"
	chunkOwnerPrefix     = "chnkdoc"
)

// makeDocumentKey generates a key for a document record by id.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentRecordPrefix, id))
}

// makeDocumentDateKey generates a composite key for the upload-time index.
// Format: prefix:timestamp:id
func makeDocumentDateKey(uploadedAt time.Time, id core.ID) []byte {
	prefix := documentDatePrefix + ":"
	prefixBytes := []byte(prefix)
	totalSize := len(prefixBytes) + 8 + len(id)
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(uploadedAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], []byte(id))
	return buf
}

// makeChunkOwnerKey generates a key for the chunk-to-document index.
// Format: prefix:chunkID
func makeChunkOwnerKey(chunkID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s", chunkOwnerPrefix, chunkID))
}
