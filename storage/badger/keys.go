package badger

import (
	"encoding/binary"

	"github.com/poiesic/scour/core"
)

// Key prefixes for different data types
const (
	taskPrefix          = "task:"
	taskIDSeq           = "taskseq"
	vectorPrefix        = "vec:"
	vectorTuplePrefix   = "vectup:"
	vectorContentPrefix = "veccon:"
	vectorModelPrefix   = "vecmod:"
	vectorIDSeq         = "vecseq"
)

// makeIDKey appends id in BigEndian order to prefix so keys sort numerically.
func makeIDKey(prefix string, id core.ID) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeTaskKey generates a key for a task by ID.
func makeTaskKey(id core.ID) []byte {
	return makeIDKey(taskPrefix, id)
}

// makeVectorKey generates a key for a vector entry by ID.
func makeVectorKey(id core.ID) []byte {
	return makeIDKey(vectorPrefix, id)
}

// makeVectorTupleKey generates the uniqueness key for an entry's
// (content, type, chunk, model) tuple.
func makeVectorTupleKey(entry *core.VectorEntry) []byte {
	return makeIDKey(vectorTuplePrefix, core.IDFromContent(entry.Tuple()))
}

// makePartialVectorContentKey generates the prefix shared by all chunks of a content item.
// Format: prefix:contentID:contentType\x00
func makePartialVectorContentKey(contentID core.ID, contentType string) []byte {
	buf := make([]byte, 0, len(vectorContentPrefix)+8+len(contentType)+1)
	buf = append(buf, vectorContentPrefix...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(contentID))
	buf = append(buf, contentType...)
	return append(buf, 0)
}

// makeVectorContentKey generates a composite key for the content index.
// Format: prefix:contentID:contentType\x00:entryID
func makeVectorContentKey(contentID core.ID, contentType string, entryID core.ID) []byte {
	buf := makePartialVectorContentKey(contentID, contentType)
	return binary.BigEndian.AppendUint64(buf, uint64(entryID))
}

// makeModelKey generates a key for a model's established dimension.
func makeModelKey(model string) []byte {
	return []byte(vectorModelPrefix + model)
}
