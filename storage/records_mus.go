package storage

import (
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/recall/core"
)

// Serializers for the values kept in the key/value store. Untyped maps are
// carried as encoded JSON strings. Times are stored as Unix microseconds,
// with 0 standing for the zero time.
var (
	IDMUS mus.Serializer[core.ID] = idMUS{}

	documentRecordMUS mus.Serializer[documentRecord] = documentMUS{}
	memoryRecordMUS   mus.Serializer[memoryRecord]   = memoryItemMUS{}
	memoryListMUS     mus.Serializer[[]memoryRecord] = memoryListSer{}
	vectorMUS         mus.Serializer[[]float32]      = float32sMUS{}
)

type documentRecord struct {
	Id         core.ID
	Content    string
	Metadata   string
	Vector     []float32
	InsertedAt int64
	UpdatedAt  int64
}

type memoryRecord struct {
	Id        string
	UserId    string
	Question  string
	Answer    string
	Context   string
	Timestamp float64
	CreatedAt int64
}

func micros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func fromMicros(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

type idMUS struct{}

func (idMUS) Marshal(id core.ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (core.ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return core.ID(v), n, err
}

func (idMUS) Size(id core.ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

type float32sMUS struct{}

func (float32sMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(len(v)), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (float32sMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	if length > uint64(len(bs)-n) {
		return nil, n, ErrSerializationFailed
	}
	v = make([]float32, length)
	for i := range v {
		f, m, err := raw.Float32.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		v[i] = f
	}
	return v, n, nil
}

func (float32sMUS) Size(v []float32) (size int) {
	size = varint.Uint64.Size(uint64(len(v)))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func (s float32sMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type documentMUS struct{}

func (documentMUS) Marshal(r documentRecord, bs []byte) (n int) {
	n = IDMUS.Marshal(r.Id, bs)
	n += ord.String.Marshal(r.Content, bs[n:])
	n += ord.String.Marshal(r.Metadata, bs[n:])
	n += vectorMUS.Marshal(r.Vector, bs[n:])
	n += varint.Int64.Marshal(r.InsertedAt, bs[n:])
	n += varint.Int64.Marshal(r.UpdatedAt, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (r documentRecord, n int, err error) {
	var m int
	if r.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	r.Content, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	r.Metadata, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	r.Vector, m, err = vectorMUS.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	r.InsertedAt, m, err = varint.Int64.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	r.UpdatedAt, m, err = varint.Int64.Unmarshal(bs[n:])
	n += m
	return
}

func (documentMUS) Size(r documentRecord) (size int) {
	size = IDMUS.Size(r.Id)
	size += ord.String.Size(r.Content)
	size += ord.String.Size(r.Metadata)
	size += vectorMUS.Size(r.Vector)
	size += varint.Int64.Size(r.InsertedAt)
	return size + varint.Int64.Size(r.UpdatedAt)
}

func (s documentMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type memoryItemMUS struct{}

func (memoryItemMUS) Marshal(r memoryRecord, bs []byte) (n int) {
	n = ord.String.Marshal(r.Id, bs)
	n += ord.String.Marshal(r.UserId, bs[n:])
	n += ord.String.Marshal(r.Question, bs[n:])
	n += ord.String.Marshal(r.Answer, bs[n:])
	n += ord.String.Marshal(r.Context, bs[n:])
	n += raw.Float64.Marshal(r.Timestamp, bs[n:])
	n += varint.Int64.Marshal(r.CreatedAt, bs[n:])
	return n
}

func (memoryItemMUS) Unmarshal(bs []byte) (r memoryRecord, n int, err error) {
	var m int
	if r.Id, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	r.UserId, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	r.Question, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	r.Answer, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	r.Context, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	r.Timestamp, m, err = raw.Float64.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	r.CreatedAt, m, err = varint.Int64.Unmarshal(bs[n:])
	n += m
	return
}

func (memoryItemMUS) Size(r memoryRecord) (size int) {
	size = ord.String.Size(r.Id)
	size += ord.String.Size(r.UserId)
	size += ord.String.Size(r.Question)
	size += ord.String.Size(r.Answer)
	size += ord.String.Size(r.Context)
	size += raw.Float64.Size(r.Timestamp)
	return size + varint.Int64.Size(r.CreatedAt)
}

func (s memoryItemMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type memoryListSer struct{}

func (memoryListSer) Marshal(v []memoryRecord, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(len(v)), bs)
	for _, r := range v {
		n += memoryRecordMUS.Marshal(r, bs[n:])
	}
	return n
}

func (memoryListSer) Unmarshal(bs []byte) (v []memoryRecord, n int, err error) {
	length, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length > uint64(len(bs)-n) {
		return nil, n, ErrSerializationFailed
	}
	v = make([]memoryRecord, 0, length)
	for range length {
		r, m, err := memoryRecordMUS.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		v = append(v, r)
	}
	return v, n, nil
}

func (memoryListSer) Size(v []memoryRecord) (size int) {
	size = varint.Uint64.Size(uint64(len(v)))
	for _, r := range v {
		size += memoryRecordMUS.Size(r)
	}
	return size
}

func (s memoryListSer) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}
