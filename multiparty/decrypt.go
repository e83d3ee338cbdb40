package multiparty

import (
	"bufio"
	"fmt"
	"io"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/buffer"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"
)

// ThresholdDecryptor computes the lead and follower shares of a collective
// decryption and fuses them back into the plaintext polynomial. The noise
// added to every share is drawn from the smudging distribution, whose
// standard deviation is much larger than the ambient ciphertext noise so
// that a share reveals negligible information about the party's secret.
type ThresholdDecryptor struct {
	params          Parameters
	smudgingSampler ring.Sampler
	buf             ring.Poly
}

// NewThresholdDecryptor creates a new [ThresholdDecryptor] instance using the
// smudging distribution of the given parameters.
func NewThresholdDecryptor(params Parameters) *ThresholdDecryptor {

	prng, err := sampling.NewPRNG()

	// Sanity check, this error should not happen.
	if err != nil {
		panic(err)
	}

	smudging, err := ring.NewSampler(prng, params.RingQ(), params.Smudging(), false)

	// Sanity check, this error should not happen.
	if err != nil {
		panic(err)
	}

	return &ThresholdDecryptor{
		params:          params,
		smudgingSampler: smudging,
		buf:             params.RingQ().NewPoly(),
	}
}

// ShallowCopy creates a shallow copy of [ThresholdDecryptor] in which all the
// read-only data-structures are shared with the receiver and the temporary
// buffers are reallocated. The receiver and the returned [ThresholdDecryptor]
// can be used concurrently.
func (dec *ThresholdDecryptor) ShallowCopy() *ThresholdDecryptor {
	return NewThresholdDecryptor(dec.params)
}

// PartialDecryption is one party's share of a collective decryption session.
// Shares are single-use: a fresh set is generated for every ciphertext.
type PartialDecryption struct {
	Value    ring.Poly
	MetaData rlwe.MetaData
	Lead     bool
}

// LeadPartial computes the lead party's share c0 + s*c1 + ns*e, with e drawn
// from the smudging distribution, and returns it in the coefficient
// representation. Exactly one party must act as lead per session.
func (dec *ThresholdDecryptor) LeadPartial(ct *rlwe.Ciphertext, sk *rlwe.SecretKey) (*PartialDecryption, error) {
	p, err := dec.partial(ct, sk, true)
	if err != nil {
		return nil, fmt.Errorf("cannot LeadPartial: %w", err)
	}
	return p, nil
}

// FollowerPartial computes a follower party's share s*c1 + ns*e, with e drawn
// from the smudging distribution. The share is returned in the
// representation of the input ciphertext.
func (dec *ThresholdDecryptor) FollowerPartial(ct *rlwe.Ciphertext, sk *rlwe.SecretKey) (*PartialDecryption, error) {
	p, err := dec.partial(ct, sk, false)
	if err != nil {
		return nil, fmt.Errorf("cannot FollowerPartial: %w", err)
	}
	return p, nil
}

func (dec *ThresholdDecryptor) partial(ct *rlwe.Ciphertext, sk *rlwe.SecretKey, lead bool) (*PartialDecryption, error) {

	params := dec.params

	if ct.Degree() != 1 {
		return nil, fmt.Errorf("%w: ciphertext degree must be 1", ErrParameterMismatch)
	}

	if ct.Value[0].N() != params.N() || sk.Value.Q.N() != params.N() {
		return nil, fmt.Errorf("%w: inputs are not defined over the scheme parameters", ErrParameterMismatch)
	}

	level := ct.Level()
	ringQ := params.RingQ().AtLevel(level)
	ns := params.NoiseScale()

	out := &PartialDecryption{
		Value:    ringQ.NewPoly(),
		MetaData: *ct.MetaData,
		Lead:     lead,
	}

	var c1 ring.Poly
	if ct.IsNTT {
		c1 = ct.Value[1]
	} else {
		ringQ.NTT(ct.Value[1], dec.buf)
		c1 = dec.buf
	}

	// s * c1
	ringQ.MulCoeffsMontgomery(c1, sk.Value.Q, out.Value)

	smudging := dec.smudgingSampler.AtLevel(level)

	if ct.IsNTT {

		// s*c1 + ns*e
		smudging.Read(dec.buf)
		ringQ.NTT(dec.buf, dec.buf)
		dec.addScaled(ringQ, dec.buf, out.Value, ns)

		if lead {
			// c0 + s*c1 + ns*e, emitted in the coefficient representation
			ringQ.Add(out.Value, ct.Value[0], out.Value)
			ringQ.INTT(out.Value, out.Value)
			out.MetaData.IsNTT = false
		}

	} else {

		ringQ.INTT(out.Value, out.Value)

		smudging.Read(dec.buf)
		dec.addScaled(ringQ, dec.buf, out.Value, ns)

		if lead {
			ringQ.Add(out.Value, ct.Value[0], out.Value)
		}
	}

	return out, nil
}

func (dec *ThresholdDecryptor) addScaled(ringQ *ring.Ring, e, acc ring.Poly, ns uint64) {
	if ns > 1 {
		ringQ.MulScalarThenAdd(e, ns, acc)
	} else {
		ringQ.Add(acc, e, acc)
	}
}

// Fuse sums the shares of a decryption session and returns the plaintext
// polynomial in the coefficient representation, along with the number of
// ring coefficients carrying plaintext data. Every share is normalized to
// the coefficient representation before summation. The set must contain
// exactly one lead share.
func (dec *ThresholdDecryptor) Fuse(partials []*PartialDecryption) (*rlwe.Plaintext, int, error) {

	if len(partials) == 0 {
		return nil, 0, fmt.Errorf("cannot Fuse: %w: no partial decryptions", ErrEmptyInput)
	}

	var lead *PartialDecryption
	level := partials[0].Value.Level()
	N := partials[0].Value.N()

	for _, p := range partials {

		if p.Value.N() != N || p.Value.Level() != level {
			return nil, 0, fmt.Errorf("cannot Fuse: %w: partial decryptions have mismatched dimensions", ErrParameterMismatch)
		}

		if p.Lead {
			if lead != nil {
				return nil, 0, fmt.Errorf("cannot Fuse: %w: more than one lead share", ErrMalformedPartial)
			}
			lead = p
		}
	}

	if lead == nil {
		return nil, 0, fmt.Errorf("cannot Fuse: %w: missing lead share", ErrMalformedPartial)
	}

	if N != dec.params.N() {
		return nil, 0, fmt.Errorf("cannot Fuse: %w: partial decryptions are not defined over the scheme parameters", ErrParameterMismatch)
	}

	ringQ := dec.params.RingQ().AtLevel(level)

	pt := rlwe.NewPlaintext(dec.params.Parameters, level)
	*pt.MetaData = lead.MetaData

	for _, p := range partials {
		if p.MetaData.IsNTT {
			ringQ.INTT(p.Value, dec.buf)
			ringQ.Add(pt.Value, dec.buf, pt.Value)
		} else {
			ringQ.Add(pt.Value, p.Value, pt.Value)
		}
	}

	pt.IsNTT = false

	return pt, pt.Value.N(), nil
}

// Level returns the level of the target share.
func (p PartialDecryption) Level() int {
	return p.Value.Level()
}

// BinarySize returns the serialized size of the object in bytes.
func (p PartialDecryption) BinarySize() int {
	return 1 + p.MetaData.BinarySize() + p.Value.BinarySize()
}

// WriteTo writes the object on an [io.Writer]. It implements the
// [io.WriterTo] interface, and will write exactly object.BinarySize() bytes
// on w.
func (p PartialDecryption) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64

		var lead uint8
		if p.Lead {
			lead = 1
		}

		if inc, err = buffer.WriteUint8(w, lead); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = p.MetaData.WriteTo(w); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = p.Value.WriteTo(w); err != nil {
			return n + inc, err
		}
		n += inc

		return n, w.Flush()
	default:
		return p.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an [io.Reader]. It implements the
// [io.ReaderFrom] interface.
func (p *PartialDecryption) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64

		var lead uint8
		if inc, err = buffer.ReadUint8(r, &lead); err != nil {
			return n + inc, err
		}
		n += inc
		p.Lead = lead == 1

		if inc, err = p.MetaData.ReadFrom(r); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = p.Value.ReadFrom(r); err != nil {
			return n + inc, err
		}
		n += inc

		return n, nil
	default:
		return p.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated
// slice of bytes.
func (p PartialDecryption) MarshalBinary() (data []byte, err error) {
	buf := buffer.NewBufferSize(p.BinarySize())
	_, err = p.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by
// [PartialDecryption.MarshalBinary] or [PartialDecryption.WriteTo] on the
// object.
func (p *PartialDecryption) UnmarshalBinary(data []byte) (err error) {
	_, err = p.ReadFrom(buffer.NewBuffer(data))
	return
}
