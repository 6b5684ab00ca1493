package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written mus-go serializers for the records persisted in BadgerDB and
// in the vector index snapshot. The record set is small enough that explicit
// codecs stay clearer than generated ones.

var (
	IDMUS       = idMUS{}
	ChunkMUS    = chunkMUS{}
	MetadataMUS = metadataMUS{}
	DocumentMUS = documentMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return ord.String.Marshal(string(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	str, n, err := ord.String.Unmarshal(bs)
	return ID(str), n, err
}

func (idMUS) Size(v ID) (size int) {
	return ord.String.Size(string(v))
}

type chunkMUS struct{}

func (chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = ord.String.Marshal(string(v.Id), bs)
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(string(v.DocumentId), bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	id, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Id = ID(id)

	content, n1, err := ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Content = content

	docID, n1, err := ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.DocumentId = ID(docID)
	return
}

func (chunkMUS) Size(v Chunk) (size int) {
	size = ord.String.Size(string(v.Id))
	size += ord.String.Size(v.Content)
	size += ord.String.Size(string(v.DocumentId))
	return size
}

type metadataMUS struct{}

func (metadataMUS) Marshal(v Metadata, bs []byte) (n int) {
	n = ord.String.Marshal(v.Filename, bs)
	n += ord.String.Marshal(v.Type, bs[n:])
	n += varint.Int64.Marshal(v.Size, bs[n:])
	n += varint.Uint64.Marshal(v.Checksum, bs[n:])
	n += varint.Int64.Marshal(v.UploadedAt.UnixMicro(), bs[n:])
	n += varint.Int.Marshal(v.ChunkCount, bs[n:])
	n += varint.Int.Marshal(v.PageCount, bs[n:])
	n += varint.Int.Marshal(int(v.ParsingStatus), bs[n:])
	n += ord.String.Marshal(v.Parser, bs[n:])
	n += ord.Bool.Marshal(v.Enabled, bs[n:])
	n += ord.String.Marshal(v.FilePath, bs[n:])
	n += ord.String.Marshal(v.Summary, bs[n:])
	return n
}

func (metadataMUS) Unmarshal(bs []byte) (v Metadata, n int, err error) {
	var n1 int

	if v.Filename, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Type, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Size, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Checksum, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var uploadedAt int64
	if uploadedAt, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.UploadedAt = time.UnixMicro(uploadedAt).UTC()
	if v.ChunkCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.PageCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var status int
	if status, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.ParsingStatus = ParsingStatus(status)
	if v.Parser, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Enabled, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.FilePath, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Summary, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (metadataMUS) Size(v Metadata) (size int) {
	size = ord.String.Size(v.Filename)
	size += ord.String.Size(v.Type)
	size += varint.Int64.Size(v.Size)
	size += varint.Uint64.Size(v.Checksum)
	size += varint.Int64.Size(v.UploadedAt.UnixMicro())
	size += varint.Int.Size(v.ChunkCount)
	size += varint.Int.Size(v.PageCount)
	size += varint.Int.Size(int(v.ParsingStatus))
	size += ord.String.Size(v.Parser)
	size += ord.Bool.Size(v.Enabled)
	size += ord.String.Size(v.FilePath)
	size += ord.String.Size(v.Summary)
	return size
}

type documentMUS struct{}

func (documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = ord.String.Marshal(string(v.Id), bs)
	n += varint.Int.Marshal(len(v.Chunks), bs[n:])
	for i := range v.Chunks {
		n += ChunkMUS.Marshal(v.Chunks[i], bs[n:])
	}
	n += MetadataMUS.Marshal(v.Metadata, bs[n:])
	n += varint.Int64.Marshal(v.InsertedAt.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(v.UpdatedAt.UnixMicro(), bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	var n1 int

	id, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Id = ID(id)

	var count int
	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if count > 0 {
		v.Chunks = make([]Chunk, count)
		for i := 0; i < count; i++ {
			if v.Chunks[i], n1, err = ChunkMUS.Unmarshal(bs[n:]); err != nil {
				return v, n + n1, err
			}
			n += n1
		}
	}

	if v.Metadata, n1, err = MetadataMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1

	var insertedAt, updatedAt int64
	if insertedAt, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if updatedAt, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.InsertedAt = time.UnixMicro(insertedAt).UTC()
	v.UpdatedAt = time.UnixMicro(updatedAt).UTC()
	return v, n, nil
}

func (documentMUS) Size(v Document) (size int) {
	size = ord.String.Size(string(v.Id))
	size += varint.Int.Size(len(v.Chunks))
	for i := range v.Chunks {
		size += ChunkMUS.Size(v.Chunks[i])
	}
	size += MetadataMUS.Size(v.Metadata)
	size += varint.Int64.Size(v.InsertedAt.UnixMicro())
	size += varint.Int64.Size(v.UpdatedAt.UnixMicro())
	return size
}
