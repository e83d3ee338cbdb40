package multiparty

import (
	"bufio"
	"io"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/utils"
	"github.com/tuneinsight/lattigo/v6/utils/buffer"
)

// BinarySize returns the serialized size of the object in bytes.
func (m RotationKeyMap) BinarySize() (size int) {
	size = 8
	for _, gk := range m {
		size += 8 + gk.BinarySize()
	}
	return
}

// WriteTo writes the object on an [io.Writer]. Entries are written in
// ascending order of their automorphism index. It implements the
// [io.WriterTo] interface, and will write exactly object.BinarySize() bytes
// on w.
func (m RotationKeyMap) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64

		if inc, err = buffer.WriteUint64(w, uint64(len(m))); err != nil {
			return n + inc, err
		}
		n += inc

		for _, galEl := range utils.GetSortedKeys(m) {

			if inc, err = buffer.WriteUint64(w, galEl); err != nil {
				return n + inc, err
			}
			n += inc

			if inc, err = m[galEl].WriteTo(w); err != nil {
				return n + inc, err
			}
			n += inc
		}

		return n, w.Flush()
	default:
		return m.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an [io.Reader]. It implements the
// [io.ReaderFrom] interface.
func (m *RotationKeyMap) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64
		var count uint64

		if inc, err = buffer.ReadUint64(r, &count); err != nil {
			return n + inc, err
		}
		n += inc

		if *m == nil {
			*m = make(RotationKeyMap, count)
		}

		for i := uint64(0); i < count; i++ {

			var galEl uint64
			if inc, err = buffer.ReadUint64(r, &galEl); err != nil {
				return n + inc, err
			}
			n += inc

			gk := new(rlwe.GaloisKey)
			if inc, err = gk.ReadFrom(r); err != nil {
				return n + inc, err
			}
			n += inc

			(*m)[galEl] = gk
		}

		return n, nil
	default:
		return m.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated
// slice of bytes.
func (m RotationKeyMap) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(m.BinarySize())
	_, err = m.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by
// [RotationKeyMap.MarshalBinary] or [RotationKeyMap.WriteTo] on the object.
func (m *RotationKeyMap) UnmarshalBinary(p []byte) (err error) {
	_, err = m.ReadFrom(buffer.NewBuffer(p))
	return
}
