package bolt

import (
	"sort"

	"github.com/viant/bintly"
	"github.com/viant/ragpipe/vectordb"
)

// entry is the stored form of a record.
type entry struct {
	Seq    int
	Record vectordb.Record
}

// EncodeBinary encodes the entry to a binary stream.
func (e *entry) EncodeBinary(stream *bintly.Writer) error {
	r := &e.Record
	stream.Int(e.Seq)
	stream.String(r.ID)
	stream.String(r.DocumentID)
	stream.Int(r.Index)
	stream.String(r.Text)
	stream.Int(len(r.Vector))
	for _, v := range r.Vector {
		stream.Float32(v)
	}
	keys := make([]string, 0, len(r.Meta))
	for k := range r.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	stream.Int16(int16(len(keys)))
	for _, k := range keys {
		stream.String(k)
		stream.String(r.Meta[k])
	}
	return nil
}

// DecodeBinary decodes the entry from a binary stream.
func (e *entry) DecodeBinary(stream *bintly.Reader) error {
	r := &e.Record
	stream.Int(&e.Seq)
	stream.String(&r.ID)
	stream.String(&r.DocumentID)
	stream.Int(&r.Index)
	stream.String(&r.Text)
	var dim int
	stream.Int(&dim)
	r.Vector = make([]float32, dim)
	for i := range r.Vector {
		stream.Float32(&r.Vector[i])
	}
	var size int16
	stream.Int16(&size)
	if size > 0 {
		r.Meta = make(map[string]string, size)
	}
	for i := 0; i < int(size); i++ {
		var key, value string
		stream.String(&key)
		stream.String(&value)
		r.Meta[key] = value
	}
	return nil
}

var (
	writers = bintly.NewWriters()
	readers = bintly.NewReaders()
)

func encode(e *entry) ([]byte, error) {
	w := writers.Get()
	defer writers.Put(w)
	if err := e.EncodeBinary(w); err != nil {
		return nil, err
	}
	// the writer buffer is reused after Put
	return append([]byte(nil), w.Bytes()...), nil
}

func decode(data []byte) (*entry, error) {
	r := readers.Get()
	defer readers.Put(r)
	// bbolt values are only valid inside the transaction
	if err := r.FromBytes(append([]byte(nil), data...)); err != nil {
		return nil, err
	}
	e := &entry{}
	if err := e.DecodeBinary(r); err != nil {
		return nil, err
	}
	return e, nil
}
