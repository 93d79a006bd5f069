package core

import (
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-maintained MUS serializers for the persisted records. Field order is
// the wire format; append new fields at the end only.

// IDMUS serializes an ID as a varint.
var IDMUS = idMUS{}

// TaskMUS serializes a CleaningTask.
var TaskMUS = taskMUS{}

// VectorEntryMUS serializes a VectorEntry.
var VectorEntryMUS = vectorEntryMUS{}

// ModelDimensionMUS serializes a ModelDimension.
var ModelDimensionMUS = modelDimensionMUS{}

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

// Times are stored as Unix microseconds; 0 encodes the zero time.
type timeMUS struct{}

func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func (timeMUS) Marshal(t time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(timeToMicro(t), bs)
}

func (timeMUS) Unmarshal(bs []byte) (t time.Time, n int, err error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || us == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us), n, nil
}

func (timeMUS) Size(t time.Time) (size int) {
	return varint.Int64.Size(timeToMicro(t))
}

type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int64.Marshal(int64(len(v)), bs)
	for _, f := range v {
		n += varint.Uint32.Marshal(math.Float32bits(f), bs[n:])
	}
	return n
}

func (vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 || length > int64(len(bs)) {
		return nil, n, ErrCorruptRecord
	}
	if length == 0 {
		return nil, n, nil
	}
	v = make([]float32, length)
	var (
		bits uint32
		n1   int
	)
	for i := range v {
		bits, n1, err = varint.Uint32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		v[i] = math.Float32frombits(bits)
	}
	return v, n, nil
}

func (vectorMUS) Size(v []float32) (size int) {
	size = varint.Int64.Size(int64(len(v)))
	for _, f := range v {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	return size
}

// fieldReader threads the running offset and the first error through a
// sequence of field reads.
type fieldReader struct {
	bs  []byte
	n   int
	err error
}

func (r *fieldReader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *fieldReader) int64() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *fieldReader) string() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *fieldReader) time() time.Time {
	if r.err != nil {
		return time.Time{}
	}
	v, n, err := timeMUS{}.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *fieldReader) vector() []float32 {
	if r.err != nil {
		return nil
	}
	v, n, err := vectorMUS{}.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

type taskMUS struct{}

func (taskMUS) Marshal(v CleaningTask, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Id), bs)
	n += varint.Uint64.Marshal(uint64(v.FileID), bs[n:])
	n += ord.String.Marshal(string(v.Type), bs[n:])
	n += ord.String.Marshal(string(v.Status), bs[n:])
	n += varint.Int64.Marshal(v.Priority, bs[n:])
	n += ord.String.Marshal(v.InputContent, bs[n:])
	n += ord.String.Marshal(v.OutputContent, bs[n:])
	n += ord.String.Marshal(v.ErrorMessage, bs[n:])
	n += timeMUS{}.Marshal(v.CreatedAt, bs[n:])
	n += timeMUS{}.Marshal(v.StartedAt, bs[n:])
	n += timeMUS{}.Marshal(v.CompletedAt, bs[n:])
	return n
}

func (taskMUS) Unmarshal(bs []byte) (v CleaningTask, n int, err error) {
	r := &fieldReader{bs: bs}
	v.Id = ID(r.uint64())
	v.FileID = ID(r.uint64())
	v.Type = TaskType(r.string())
	v.Status = TaskStatus(r.string())
	v.Priority = r.int64()
	v.InputContent = r.string()
	v.OutputContent = r.string()
	v.ErrorMessage = r.string()
	v.CreatedAt = r.time()
	v.StartedAt = r.time()
	v.CompletedAt = r.time()
	return v, r.n, r.err
}

func (taskMUS) Size(v CleaningTask) (size int) {
	size = varint.Uint64.Size(uint64(v.Id))
	size += varint.Uint64.Size(uint64(v.FileID))
	size += ord.String.Size(string(v.Type))
	size += ord.String.Size(string(v.Status))
	size += varint.Int64.Size(v.Priority)
	size += ord.String.Size(v.InputContent)
	size += ord.String.Size(v.OutputContent)
	size += ord.String.Size(v.ErrorMessage)
	size += timeMUS{}.Size(v.CreatedAt)
	size += timeMUS{}.Size(v.StartedAt)
	return size + timeMUS{}.Size(v.CompletedAt)
}

type vectorEntryMUS struct{}

func (vectorEntryMUS) Marshal(v VectorEntry, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Id), bs)
	n += varint.Uint64.Marshal(uint64(v.ContentID), bs[n:])
	n += ord.String.Marshal(v.ContentType, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += vectorMUS{}.Marshal(v.Vector, bs[n:])
	n += ord.String.Marshal(v.ModelName, bs[n:])
	n += varint.Int64.Marshal(v.ChunkIndex, bs[n:])
	n += ord.String.Marshal(v.Metadata, bs[n:])
	n += timeMUS{}.Marshal(v.CreatedAt, bs[n:])
	return n
}

func (vectorEntryMUS) Unmarshal(bs []byte) (v VectorEntry, n int, err error) {
	r := &fieldReader{bs: bs}
	v.Id = ID(r.uint64())
	v.ContentID = ID(r.uint64())
	v.ContentType = r.string()
	v.Content = r.string()
	v.Vector = r.vector()
	v.ModelName = r.string()
	v.ChunkIndex = r.int64()
	v.Metadata = r.string()
	v.CreatedAt = r.time()
	return v, r.n, r.err
}

func (vectorEntryMUS) Size(v VectorEntry) (size int) {
	size = varint.Uint64.Size(uint64(v.Id))
	size += varint.Uint64.Size(uint64(v.ContentID))
	size += ord.String.Size(v.ContentType)
	size += ord.String.Size(v.Content)
	size += vectorMUS{}.Size(v.Vector)
	size += ord.String.Size(v.ModelName)
	size += varint.Int64.Size(v.ChunkIndex)
	size += ord.String.Size(v.Metadata)
	return size + timeMUS{}.Size(v.CreatedAt)
}

type modelDimensionMUS struct{}

func (modelDimensionMUS) Marshal(v ModelDimension, bs []byte) (n int) {
	n = ord.String.Marshal(v.Model, bs)
	n += varint.Int64.Marshal(int64(v.Dimension), bs[n:])
	n += varint.Int64.Marshal(int64(v.Entries), bs[n:])
	return n
}

func (modelDimensionMUS) Unmarshal(bs []byte) (v ModelDimension, n int, err error) {
	r := &fieldReader{bs: bs}
	v.Model = r.string()
	v.Dimension = int(r.int64())
	v.Entries = int(r.int64())
	return v, r.n, r.err
}

func (modelDimensionMUS) Size(v ModelDimension) (size int) {
	size = ord.String.Size(v.Model)
	size += varint.Int64.Size(int64(v.Dimension))
	return size + varint.Int64.Size(int64(v.Entries))
}
