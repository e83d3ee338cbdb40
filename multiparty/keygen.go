package multiparty

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/ring/ringqp"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"
)

// KeyAggregator derives joint public keys from additive secret shares. It
// supports two modes: a one-shot aggregation over a full set of shares, and a
// chained extension in which each party in turn folds a fresh local share
// into the public key of its predecessor.
type KeyAggregator struct {
	params           Parameters
	gaussianSamplerQ ring.Sampler
	secretSamplerQ   ring.Sampler
	uniformSamplerQP ringqp.UniformSampler
	buf              ringqp.Poly
}

// NewKeyAggregator creates a new [KeyAggregator] instance.
func NewKeyAggregator(params Parameters) *KeyAggregator {

	prng, err := sampling.NewPRNG()

	// Sanity check, this error should not happen.
	if err != nil {
		panic(err)
	}

	Xe, err := ring.NewSampler(prng, params.RingQ(), params.Xe(), false)

	// Sanity check, this error should not happen.
	if err != nil {
		panic(err)
	}

	Xs, err := params.SecretDistribution()

	// Sanity check, the mode was validated at construction.
	if err != nil {
		panic(err)
	}

	secretSampler, err := ring.NewSampler(prng, params.RingQ(), Xs, false)

	// Sanity check, this error should not happen.
	if err != nil {
		panic(err)
	}

	return &KeyAggregator{
		params:           params,
		gaussianSamplerQ: Xe,
		secretSamplerQ:   secretSampler,
		uniformSamplerQP: ringqp.NewUniformSampler(prng, *params.RingQP()),
		buf:              params.RingQP().NewPoly(),
	}
}

// ShallowCopy creates a shallow copy of [KeyAggregator] in which all the
// read-only data-structures are shared with the receiver and the temporary
// buffers are reallocated. The receiver and the returned [KeyAggregator] can
// be used concurrently.
func (kag *KeyAggregator) ShallowCopy() *KeyAggregator {
	cpy := NewKeyAggregator(kag.params)
	return cpy
}

// AggregateKeyGen aggregates the given secret shares into the joint secret
// s = sum(s_i) and derives the joint public key
//
// (ns*e - a*s, a)
//
// with a drawn uniformly at random and e from the error distribution. The
// returned key pair carries the aggregated secret; callers in a distributed
// setting run this step inside a trusted aggregator.
func (kag *KeyAggregator) AggregateKeyGen(shares []*rlwe.SecretKey) (*KeyPair, error) {

	if len(shares) == 0 {
		return nil, fmt.Errorf("cannot AggregateKeyGen: %w: no secret shares", ErrEmptyInput)
	}

	params := kag.params
	ringQP := params.RingQP()

	for _, share := range shares {
		if share.Value.Q.N() != params.N() || share.LevelQ() != params.MaxLevelQ() || share.LevelP() != params.MaxLevelP() {
			return nil, fmt.Errorf("cannot AggregateKeyGen: %w: shares are not defined over the scheme parameters", ErrParameterMismatch)
		}
	}

	sk := rlwe.NewSecretKey(params.Parameters)
	for _, share := range shares {
		ringQP.Add(sk.Value, share.Value, sk.Value)
	}

	pk := rlwe.NewPublicKey(params.Parameters)
	kag.uniformSamplerQP.Read(pk.Value[1])

	kag.sampleScaledNoise(kag.buf)
	pk.Value[0].Copy(kag.buf)
	ringQP.MulCoeffsMontgomeryThenSub(sk.Value, pk.Value[1], pk.Value[0])

	return &KeyPair{SecretKey: sk, PublicKey: pk}, nil
}

// ExtendKeyGen draws a fresh local secret share from the configured
// distribution and derives this party's public key from the predecessor's
// public key, reusing its uniform polynomial a:
//
//	fresh = true:  (ns*e - a*s_i, a)           the party's contribution alone
//	fresh = false: (ns*e - a*s_i + b_prev, a)  folded into the running joint key
//
// The fresh variant keeps the parties' contributions separable, as required
// by proxy-re-encryption-style key derivation; the chained variant yields the
// updated joint key after this party.
func (kag *KeyAggregator) ExtendKeyGen(pkPrev *rlwe.PublicKey, fresh bool) (*KeyPair, error) {

	params := kag.params

	if pkPrev.Value[0].Q.N() != params.N() || pkPrev.LevelQ() != params.MaxLevelQ() || pkPrev.LevelP() != params.MaxLevelP() {
		return nil, fmt.Errorf("cannot ExtendKeyGen: %w: predecessor key is not defined over the scheme parameters", ErrParameterMismatch)
	}

	ringQP := params.RingQP()

	sk := rlwe.NewSecretKey(params.Parameters)
	kag.secretSamplerQ.Read(sk.Value.Q)
	if ringQP.RingP != nil {
		ringQP.ExtendBasisSmallNormAndCenter(sk.Value.Q, params.MaxLevelP(), sk.Value.Q, sk.Value.P)
	}
	ringQP.NTT(sk.Value, sk.Value)
	ringQP.MForm(sk.Value, sk.Value)

	pk := rlwe.NewPublicKey(params.Parameters)
	pk.Value[1].Copy(pkPrev.Value[1])

	kag.sampleScaledNoise(kag.buf)
	pk.Value[0].Copy(kag.buf)
	ringQP.MulCoeffsMontgomeryThenSub(sk.Value, pk.Value[1], pk.Value[0])

	if !fresh {
		ringQP.Add(pk.Value[0], pkPrev.Value[0], pk.Value[0])
	}

	return &KeyPair{SecretKey: sk, PublicKey: pk}, nil
}

// GenInitialPublicKey returns the seed pair (0, a) from which a chain of
// [KeyAggregator.ExtendKeyGen] calls can be bootstrapped, with a read from
// the common reference string.
func (kag *KeyAggregator) GenInitialPublicKey(crs CRS) *rlwe.PublicKey {
	pk := rlwe.NewPublicKey(kag.params.Parameters)
	ringqp.NewUniformSampler(crs, *kag.params.RingQP()).Read(pk.Value[1])
	return pk
}

// sampleScaledNoise populates e with ns*NTT(e'), e' drawn from the error
// distribution over Q and extended to the special modulus.
func (kag *KeyAggregator) sampleScaledNoise(e ringqp.Poly) {

	params := kag.params
	ringQP := params.RingQP()

	kag.gaussianSamplerQ.Read(e.Q)
	if ringQP.RingP != nil {
		ringQP.ExtendBasisSmallNormAndCenter(e.Q, params.MaxLevelP(), e.Q, e.P)
	}
	ringQP.NTT(e, e)
	ringQP.MForm(e, e)

	if ns := params.NoiseScale(); ns > 1 {
		ringQP.MulScalar(e, ns, e)
	}
}
