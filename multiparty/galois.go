package multiparty

import (
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"
)

// indexParallelThreshold is the index count from which rotation-key
// construction fans out across goroutines.
const indexParallelThreshold = 4

// RotationKeyMap maps automorphism indices (Galois elements) to the
// evaluation keys switching the permuted secret back to the secret.
type RotationKeyMap map[uint64]*rlwe.GaloisKey

// AutomorphismKeyBuilder constructs maps of per-index rotation keys. Each
// index is processed independently: the builder derives a dedicated sampler
// seed per index from its root seed, so the produced keys do not depend on
// the processing order and parallel and sequential runs are identical.
type AutomorphismKeyBuilder struct {
	params   Parameters
	seed     []byte
	composer *EvalKeyComposer
}

// NewAutomorphismKeyBuilder creates a new [AutomorphismKeyBuilder] instance.
// If seed is nil, a fresh root seed is drawn from the system entropy source.
func NewAutomorphismKeyBuilder(params Parameters, seed []byte) *AutomorphismKeyBuilder {

	if seed == nil {

		prng, err := sampling.NewPRNG()

		// Sanity check, this error should not happen.
		if err != nil {
			panic(err)
		}

		seed = make([]byte, 32)
		if _, err := prng.Read(seed); err != nil {
			panic(err)
		}
	} else {
		seed = slices.Clone(seed)
	}

	return &AutomorphismKeyBuilder{
		params:   params,
		seed:     seed,
		composer: NewEvalKeyComposer(params),
	}
}

// BuildRotationKeys generates, for each automorphism index k in galEls, this
// party's contribution to the collective key switching phi_k of the joint
// secret back to the joint secret. The prior map supplies, per index, the key
// whose public gadget vector is reused; contributions built against the same
// prior map combine with [EvalKeyComposer.AddRotationKeyMaps].
//
// Construction is parallel across indices when at least four are requested.
// An empty index list yields an empty map.
func (bld *AutomorphismKeyBuilder) BuildRotationKeys(sk *rlwe.SecretKey, prior RotationKeyMap, galEls []uint64) (RotationKeyMap, error) {

	params := bld.params
	N := params.N()

	if len(galEls) > N-1 {
		return nil, fmt.Errorf("cannot BuildRotationKeys: %w: %d indices for ring degree %d", ErrDimensionOverflow, len(galEls), N)
	}

	out := make(RotationKeyMap, len(galEls))
	if len(galEls) == 0 {
		return out, nil
	}

	nthRoot := params.RingQ().NthRoot()

	for _, galEl := range galEls {
		if galEl&1 == 0 || galEl >= nthRoot {
			return nil, fmt.Errorf("cannot BuildRotationKeys: automorphism index %d is not an odd integer in [1, %d)", galEl, nthRoot)
		}
		if _, ok := prior[galEl]; !ok {
			return nil, fmt.Errorf("cannot BuildRotationKeys: %w: no prior key for automorphism index %d", ErrParameterMismatch, galEl)
		}
	}

	keys := make([]*rlwe.GaloisKey, len(galEls))
	errs := make([]error, len(galEls))

	if len(galEls) >= indexParallelThreshold {

		workers := runtime.GOMAXPROCS(0)
		if workers > len(galEls) {
			workers = len(galEls)
		}

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				ekc := bld.composer.ShallowCopy()
				for i := w; i < len(galEls); i += workers {
					keys[i], errs[i] = bld.genRotationKey(ekc, sk, prior[galEls[i]], galEls[i])
				}
			}(w)
		}
		wg.Wait()

	} else {
		for i, galEl := range galEls {
			keys[i], errs[i] = bld.genRotationKey(bld.composer, sk, prior[galEl], galEl)
		}
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	for i, galEl := range galEls {
		out[galEl] = keys[i]
	}

	return out, nil
}

// genRotationKey generates the key for a single automorphism index: the
// secret is key-switched to its image under the inverse automorphism, against
// the prior key's gadget vector.
func (bld *AutomorphismKeyBuilder) genRotationKey(ekc *EvalKeyComposer, sk *rlwe.SecretKey, prior *rlwe.GaloisKey, galEl uint64) (*rlwe.GaloisKey, error) {

	params := bld.params
	ringQ := params.RingQ()
	ringP := params.RingP()
	nthRoot := ringQ.NthRoot()

	// The key at index k re-encrypts under phi_{k^-1}(s): key-switching with
	// it and then applying phi_k to the ciphertext realizes the rotation by k.
	galElInv := ring.ModExp(galEl, nthRoot-1, nthRoot)

	index, err := ring.AutomorphismNTTIndex(params.N(), nthRoot, galElInv)
	if err != nil {
		return nil, err
	}

	skPermuted := rlwe.NewSecretKey(params.Parameters)
	ringQ.AutomorphismNTTWithIndex(sk.Value.Q, index, skPermuted.Value.Q)
	if ringP != nil {
		ringP.AutomorphismNTTWithIndex(sk.Value.P, index, skPermuted.Value.P)
	}

	prng, err := sampling.NewKeyedPRNG(childSeed(bld.seed, galEl))
	if err != nil {
		return nil, err
	}

	sampler, err := ring.NewSampler(prng, ringQ, params.Xe(), false)
	if err != nil {
		return nil, err
	}

	gk := &rlwe.GaloisKey{
		GaloisElement: galEl,
		NthRoot:       nthRoot,
		EvaluationKey: *rlwe.NewEvaluationKey(params.Parameters, evkParamsOf(&prior.EvaluationKey)),
	}

	if err := ekc.keySwitchGen(sk, skPermuted, &prior.EvaluationKey, sampler, &gk.EvaluationKey); err != nil {
		return nil, fmt.Errorf("cannot BuildRotationKeys: %w", err)
	}

	return gk, nil
}

// BuildShiftKeys maps each signed slot shift to its automorphism index and
// delegates to [AutomorphismKeyBuilder.BuildRotationKeys]. CKKS-style
// parameters use the complex-packing rule, all others the standard
// power-of-two rule.
func (bld *AutomorphismKeyBuilder) BuildShiftKeys(sk *rlwe.SecretKey, prior RotationKeyMap, shifts []int) (RotationKeyMap, error) {

	M := bld.params.RingQ().NthRoot()

	galEls := make([]uint64, len(shifts))
	for i, k := range shifts {
		if bld.params.Scheme() == SchemeCKKS {
			galEls[i] = FindAutoIndex2nComplex(k, M)
		} else {
			galEls[i] = FindAutoIndex2n(k, M)
		}
	}

	return bld.BuildRotationKeys(sk, prior, galEls)
}

// BuildSumKeys generates the ceil(log2(batchSize)) keys at indices
// g, g^2, g^4, ... enabling an inner sum over the packed slots, and delegates
// to [AutomorphismKeyBuilder.BuildRotationKeys]. A batch size of 1 yields an
// empty map.
func (bld *AutomorphismKeyBuilder) BuildSumKeys(sk *rlwe.SecretKey, prior RotationKeyMap) (RotationKeyMap, error) {
	return bld.BuildRotationKeys(sk, prior, sumKeyIndices(bld.params.BatchSize(), bld.params.RingQ().NthRoot()))
}

// AddRotationKeyMaps combines two rotation-key maps index-wise with
// [EvalKeyComposer.AddEvalKeys]. Only indices present in both inputs are
// kept; indices present in a single input are dropped.
func (ekc *EvalKeyComposer) AddRotationKeyMaps(m1, m2 RotationKeyMap) (RotationKeyMap, error) {

	out := make(RotationKeyMap)

	for _, galEl := range utils.GetSortedKeys(m1) {

		gk2, ok := m2[galEl]
		if !ok {
			continue
		}
		gk1 := m1[galEl]

		ek, err := ekc.AddEvalKeys(&gk1.EvaluationKey, &gk2.EvaluationKey)
		if err != nil {
			return nil, err
		}

		out[galEl] = &rlwe.GaloisKey{
			GaloisElement: galEl,
			NthRoot:       gk1.NthRoot,
			EvaluationKey: *ek,
		}
	}

	return out, nil
}

// AddSumKeyMaps combines two summation-key maps under the same intersection
// rule as [EvalKeyComposer.AddRotationKeyMaps].
func (ekc *EvalKeyComposer) AddSumKeyMaps(m1, m2 RotationKeyMap) (RotationKeyMap, error) {
	return ekc.AddRotationKeyMaps(m1, m2)
}
