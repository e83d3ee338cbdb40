package multiparty

import (
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
)

func TestAutomorphismKeys(t *testing.T) {

	for _, paramsLit := range testInsecure {

		bpw2 := paramsLit.BaseTwoDecomposition

		params, err := NewParametersFromLiteral(paramsLit.ParametersLiteral)
		if err != nil {
			t.Fatal(err)
		}

		tc := newTestContext(params)

		testBuildRotationKeys(tc, bpw2, t)
		testRotationKeyDeterminism(tc, bpw2, t)
		testRotationKeyMapCombination(tc, bpw2, t)
		testSumKeys(tc, bpw2, t)
		testRotationKeyBoundaries(tc, bpw2, t)

		runtime.GC()
	}
}

// priorKeyMap generates the first party's rotation keys with the
// single-party generator; the remaining parties build their contributions
// against its gadget vectors.
func priorKeyMap(tc *testContext, galEls []uint64, evkParams rlwe.EvaluationKeyParameters) RotationKeyMap {
	prior := make(RotationKeyMap, len(galEls))
	for _, galEl := range galEls {
		prior[galEl] = tc.kgen.GenGaloisKeyNew(galEl, tc.skShares[0], evkParams)
	}
	return prior
}

func testBuildRotationKeys(tc *testContext, bpw2 int, t *testing.T) {

	params := tc.params

	t.Run(testString(params, "BuildRotationKeys", bpw2), func(t *testing.T) {

		evkParams := testEvkParams(params, bpw2)
		ekc := NewEvalKeyComposer(params)

		galEls := params.GaloisElements([]int{1, 2, 3, 4, 5})
		prior := priorKeyMap(tc, galEls, evkParams)

		combined := prior
		var err error
		for i := 1; i < nbParties; i++ {

			bld := NewAutomorphismKeyBuilder(params, append([]byte{'r', 'o', 't'}, byte(i)))

			var contrib RotationKeyMap
			contrib, err = bld.BuildRotationKeys(tc.skShares[i], prior, galEls)
			require.NoError(t, err)

			combined, err = ekc.AddRotationKeyMaps(combined, contrib)
			require.NoError(t, err)
		}

		require.Equal(t, len(galEls), len(combined))

		BaseRNSDecompositionVectorSize := params.BaseRNSDecompositionVectorSize(params.MaxLevelQ(), params.MaxLevelP())
		noiseBound := math.Log2(math.Sqrt(float64(BaseRNSDecompositionVectorSize))*NoiseRotationKey(params, nbParties)) + 1

		gks := make([]*rlwe.GaloisKey, 0, len(galEls))
		for _, galEl := range galEls {
			gk := combined[galEl]
			require.Equal(t, galEl, gk.GaloisElement)
			require.GreaterOrEqual(t, noiseBound, rlwe.NoiseGaloisKey(gk, tc.skIdeal, params.Parameters))
			gks = append(gks, gk)
		}

		// the collective keys drive the automorphism of a ciphertext
		// encrypted under the joint secret
		enc := rlwe.NewEncryptor(params.Parameters, tc.skIdeal)
		dec := rlwe.NewDecryptor(params.Parameters, tc.skIdeal)
		eval := rlwe.NewEvaluator(params.Parameters, rlwe.NewMemEvaluationKeySet(nil, gks...))

		level := params.MaxLevelQ()
		ringQ := params.RingQ().AtLevel(level)

		pt := rlwe.NewPlaintext(params.Parameters, level)
		for i := 0; i <= level; i++ {
			for j := 0; j < params.N(); j++ {
				pt.Value.Coeffs[i][j] = uint64(j % 512)
			}
		}
		if pt.IsNTT {
			ringQ.NTT(pt.Value, pt.Value)
		}

		ct, err := enc.EncryptNew(pt)
		require.NoError(t, err)

		galEl := galEls[2]
		require.NoError(t, eval.Automorphism(ct, galEl, ct))

		want := ringQ.NewPoly()
		if pt.IsNTT {
			ringQ.AutomorphismNTT(pt.Value, galEl, want)
		} else {
			ringQ.Automorphism(pt.Value, galEl, want)
		}

		dec.Decrypt(ct, pt)
		ringQ.Sub(pt.Value, want, pt.Value)
		if pt.IsNTT {
			ringQ.INTT(pt.Value, pt.Value)
		}

		ctNoiseBound := float64(params.LogN()+bpw2) + 2
		if bpw2 != 0 {
			ctNoiseBound += math.Log2(float64(level)+1) + 1
		}

		require.GreaterOrEqual(t, ctNoiseBound, ringQ.Log2OfStandardDeviation(pt.Value))
	})
}

func testRotationKeyDeterminism(tc *testContext, bpw2 int, t *testing.T) {

	params := tc.params

	t.Run(testString(params, "BuildRotationKeys/Determinism", bpw2), func(t *testing.T) {

		evkParams := testEvkParams(params, bpw2)

		galEls := params.GaloisElements([]int{1, 2, 3, 4, 5, 6})
		prior := priorKeyMap(tc, galEls, evkParams)

		seed := []byte{'d', 'e', 't'}

		// six indices take the parallel path, three the sequential one;
		// per-index seeding makes both produce identical keys
		parallel, err := NewAutomorphismKeyBuilder(params, seed).BuildRotationKeys(tc.skShares[1], prior, galEls)
		require.NoError(t, err)

		sequential, err := NewAutomorphismKeyBuilder(params, seed).BuildRotationKeys(tc.skShares[1], prior, galEls[:3])
		require.NoError(t, err)

		for _, galEl := range galEls[:3] {
			require.Equal(t, parallel[galEl].GaloisElement, sequential[galEl].GaloisElement)
			require.True(t, parallel[galEl].GadgetCiphertext.Equal(&sequential[galEl].GadgetCiphertext))
		}
	})
}

func testRotationKeyMapCombination(tc *testContext, bpw2 int, t *testing.T) {

	params := tc.params

	t.Run(testString(params, "AddRotationKeyMaps", bpw2), func(t *testing.T) {

		evkParams := testEvkParams(params, bpw2)
		ekc := NewEvalKeyComposer(params)

		prior := priorKeyMap(tc, []uint64{1, 3, 5, 7, 9}, evkParams)
		bld := NewAutomorphismKeyBuilder(params, []byte{'m', 'a', 'p'})

		m1, err := bld.BuildRotationKeys(tc.skShares[1], prior, []uint64{1, 3, 5, 7})
		require.NoError(t, err)

		m2, err := bld.BuildRotationKeys(tc.skShares[2], prior, []uint64{3, 5, 9})
		require.NoError(t, err)

		// indices present in a single input are dropped
		inter, err := ekc.AddRotationKeyMaps(m1, m2)
		require.NoError(t, err)

		require.Equal(t, 2, len(inter))
		require.Contains(t, inter, uint64(3))
		require.Contains(t, inter, uint64(5))
		require.NotContains(t, inter, uint64(1))
		require.NotContains(t, inter, uint64(7))
		require.NotContains(t, inter, uint64(9))

		// serialization round-trip, entries ascending by index
		data, err := inter.MarshalBinary()
		require.NoError(t, err)
		require.Equal(t, inter.BinarySize(), len(data))

		var decoded RotationKeyMap
		require.NoError(t, decoded.UnmarshalBinary(data))
		require.Equal(t, len(inter), len(decoded))
		for galEl, gk := range inter {
			require.Equal(t, gk.GaloisElement, decoded[galEl].GaloisElement)
			require.Equal(t, gk.NthRoot, decoded[galEl].NthRoot)
			require.True(t, gk.GadgetCiphertext.Equal(&decoded[galEl].GadgetCiphertext))
		}
	})
}

func testSumKeys(tc *testContext, bpw2 int, t *testing.T) {

	params := tc.params

	t.Run(testString(params, "BuildSumKeys", bpw2), func(t *testing.T) {

		evkParams := testEvkParams(params, bpw2)

		M := params.RingQ().NthRoot()
		indices := sumKeyIndices(params.BatchSize(), M)

		// g, g^2, g^4, ... for g = 5
		require.Equal(t, 7, len(indices))
		g := ring.GaloisGen
		for _, idx := range indices {
			require.Equal(t, g, idx)
			g = g * g % M
		}

		prior := priorKeyMap(tc, indices, evkParams)
		bld := NewAutomorphismKeyBuilder(params, []byte{'s', 'u', 'm'})

		m, err := bld.BuildSumKeys(tc.skShares[1], prior)
		require.NoError(t, err)
		require.Equal(t, len(indices), len(m))

		// a batch size of 1 requires no summation key
		paramsB1, err := NewParameters(params.Parameters, params.Mode(), params.Scheme(), params.NoiseScale(), params.SmudgingSigma(), 1)
		require.NoError(t, err)

		empty, err := NewAutomorphismKeyBuilder(paramsB1, []byte{'s', 'u', 'm'}).BuildSumKeys(tc.skShares[1], prior)
		require.NoError(t, err)
		require.Empty(t, empty)
	})
}

func testRotationKeyBoundaries(tc *testContext, bpw2 int, t *testing.T) {

	params := tc.params

	t.Run(testString(params, "BuildRotationKeys/Boundaries", bpw2), func(t *testing.T) {

		bld := NewAutomorphismKeyBuilder(params, nil)

		// N indices overflow the ring degree
		_, err := bld.BuildRotationKeys(tc.skShares[1], nil, make([]uint64, params.N()))
		require.ErrorIs(t, err, ErrDimensionOverflow)

		// an empty index list yields an empty map
		m, err := bld.BuildRotationKeys(tc.skShares[1], nil, nil)
		require.NoError(t, err)
		require.Empty(t, m)

		// a missing prior key is rejected
		_, err = bld.BuildRotationKeys(tc.skShares[1], nil, []uint64{3})
		require.ErrorIs(t, err, ErrParameterMismatch)

		// even indices are not automorphisms of the odd subgroup
		_, err = bld.BuildRotationKeys(tc.skShares[1], nil, []uint64{2})
		require.Error(t, err)
	})
}
