package multiparty

import (
	"fmt"
	"slices"
	"sync"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/ring/ringqp"
	"github.com/tuneinsight/lattigo/v6/utils"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"
)

// digitParallelThreshold is the total digit count from which the additive
// evaluation-key combiners fan out across goroutines.
const digitParallelThreshold = 8

// EvalKeyComposer implements the additive combination and multiplicative
// rerandomization of evaluation keys, and the key-switch generation variant
// that reuses the public gadget vector of a prior key so that the
// contributions of different parties remain additively combinable.
type EvalKeyComposer struct {
	params           Parameters
	gaussianSamplerQ ring.Sampler
	buf              [2]ringqp.Poly
}

// NewEvalKeyComposer creates a new [EvalKeyComposer] instance.
func NewEvalKeyComposer(params Parameters) *EvalKeyComposer {

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

	return &EvalKeyComposer{
		params:           params,
		gaussianSamplerQ: Xe,
		buf:              [2]ringqp.Poly{params.RingQP().NewPoly(), params.RingQP().NewPoly()},
	}
}

// ShallowCopy creates a shallow copy of [EvalKeyComposer] in which all the
// read-only data-structures are shared with the receiver and the temporary
// buffers are reallocated. The receiver and the returned [EvalKeyComposer]
// can be used concurrently.
func (ekc *EvalKeyComposer) ShallowCopy() *EvalKeyComposer {
	return NewEvalKeyComposer(ekc.params)
}

// AddPublicKeys returns the public key (b1+b2, a), with a taken from pk1. By
// protocol both inputs are generated under the same a; the caller is
// responsible for upholding this contract. The operation is commutative.
func (ekc *EvalKeyComposer) AddPublicKeys(pk1, pk2 *rlwe.PublicKey) (*rlwe.PublicKey, error) {

	if pk1.LevelQ() != pk2.LevelQ() || pk1.LevelP() != pk2.LevelP() || pk1.Value[0].Q.N() != pk2.Value[0].Q.N() {
		return nil, fmt.Errorf("cannot AddPublicKeys: %w: public keys are not defined over the same ring", ErrParameterMismatch)
	}

	pk := rlwe.NewPublicKey(ekc.params.Parameters)
	ringQP := ekc.params.RingQP().AtLevel(pk1.LevelQ(), pk1.LevelP())
	ringQP.Add(pk1.Value[0], pk2.Value[0], pk.Value[0])
	pk.Value[1].Copy(pk1.Value[1])

	return pk, nil
}

// AddEvalKeys sums two evaluation-key contributions sharing the same public
// gadget vector. Only the b vectors are added; the result reuses the gadget
// vector of ek1.
func (ekc *EvalKeyComposer) AddEvalKeys(ek1, ek2 *rlwe.EvaluationKey) (*rlwe.EvaluationKey, error) {
	out, err := ekc.addEvalKeys(ek1, ek2, false)
	if err != nil {
		return nil, fmt.Errorf("cannot AddEvalKeys: %w", err)
	}
	return out, nil
}

// AddEvalMultKeys sums two relinearization-key contributions componentwise on
// both gadget vectors. Unlike [EvalKeyComposer.AddEvalKeys], the inputs do
// not need to share their public gadget vector.
func (ekc *EvalKeyComposer) AddEvalMultKeys(ek1, ek2 *rlwe.EvaluationKey) (*rlwe.EvaluationKey, error) {
	out, err := ekc.addEvalKeys(ek1, ek2, true)
	if err != nil {
		return nil, fmt.Errorf("cannot AddEvalMultKeys: %w", err)
	}
	return out, nil
}

func (ekc *EvalKeyComposer) addEvalKeys(ek1, ek2 *rlwe.EvaluationKey, sumGadgetVector bool) (*rlwe.EvaluationKey, error) {

	if err := checkEvalKeyDims(ek1, ek2); err != nil {
		return nil, err
	}

	params := ekc.params
	out := rlwe.NewEvaluationKey(params.Parameters, evkParamsOf(ek1))
	ringQP := params.RingQP().AtLevel(ek1.LevelQ(), ek1.LevelP())

	add := func(i int) {
		for j := range ek1.Value[i] {
			ringQP.Add(ek1.Value[i][j][0], ek2.Value[i][j][0], out.Value[i][j][0])
			if sumGadgetVector {
				ringQP.Add(ek1.Value[i][j][1], ek2.Value[i][j][1], out.Value[i][j][1])
			} else {
				out.Value[i][j][1].Copy(ek1.Value[i][j][1])
			}
		}
	}

	if digits := totalDigits(ek1); digits >= digitParallelThreshold {
		var wg sync.WaitGroup
		for i := range ek1.Value {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				add(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range ek1.Value {
			add(i)
		}
	}

	return out, nil
}

// MultEvalKey rerandomizes an evaluation key by the party's secret share,
// producing a contribution such that the sum of all parties' contributions is
// a relinearization key under the joint secret. Fresh independent noise is
// drawn for each digit of each gadget vector.
func (ekc *EvalKeyComposer) MultEvalKey(sk *rlwe.SecretKey, ek *rlwe.EvaluationKey) (*rlwe.EvaluationKey, error) {

	params := ekc.params

	if sk.Value.Q.N() != params.N() || sk.LevelQ() < ek.LevelQ() {
		return nil, fmt.Errorf("cannot MultEvalKey: %w: secret share is not defined over the key parameters", ErrParameterMismatch)
	}

	levelQ := ek.LevelQ()
	levelP := ek.LevelP()

	out := rlwe.NewEvaluationKey(params.Parameters, evkParamsOf(ek))
	ringQP := params.RingQP().AtLevel(levelQ, levelP)
	sampler := ekc.gaussianSamplerQ.AtLevel(levelQ)
	ns := params.NoiseScale()

	e := ekc.buf[0]

	for i := range ek.Value {
		for j := range ek.Value[i] {
			for k := 0; k < 2; k++ {

				ringQP.MulCoeffsMontgomery(ek.Value[i][j][k], sk.Value, out.Value[i][j][k])

				sampler.Read(e.Q)
				if ringQP.RingP != nil {
					ringQP.ExtendBasisSmallNormAndCenter(e.Q, levelP, e.Q, e.P)
				}
				ringQP.NTT(e, e)
				ringQP.MForm(e, e)
				if ns > 1 {
					ringQP.MulScalar(e, ns, e)
				}

				ringQP.Add(out.Value[i][j][k], e, out.Value[i][j][k])
			}
		}
	}

	return out, nil
}

// checkEvalKeyDims verifies that two evaluation keys share identical gadget
// dimensions.
func checkEvalKeyDims(ek1, ek2 *rlwe.EvaluationKey) error {
	if ek1.LevelQ() != ek2.LevelQ() ||
		ek1.LevelP() != ek2.LevelP() ||
		ek1.BaseTwoDecomposition != ek2.BaseTwoDecomposition ||
		ek1.BaseRNSDecompositionVectorSize() != ek2.BaseRNSDecompositionVectorSize() ||
		!slices.Equal(ek1.BaseTwoDecompositionVectorSize(), ek2.BaseTwoDecompositionVectorSize()) {
		return fmt.Errorf("%w: evaluation keys have mismatched gadget dimensions", ErrParameterMismatch)
	}
	return nil
}

// evkParamsOf returns the evaluation-key parameters reproducing the gadget
// dimensions of the given key.
func evkParamsOf(ek *rlwe.EvaluationKey) rlwe.EvaluationKeyParameters {
	evkParams := rlwe.EvaluationKeyParameters{
		LevelQ:               utils.Pointy(ek.LevelQ()),
		BaseTwoDecomposition: utils.Pointy(ek.BaseTwoDecomposition),
	}
	if ek.LevelP() > -1 {
		evkParams.LevelP = utils.Pointy(ek.LevelP())
	}
	return evkParams
}

func totalDigits(ek *rlwe.EvaluationKey) (digits int) {
	for i := range ek.Value {
		digits += len(ek.Value[i])
	}
	return
}
