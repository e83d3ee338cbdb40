package multiparty

import (
	"fmt"
	"slices"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils"
)

// KeySwitchGen generates an evaluation key switching skIn to skOut while
// reusing the public gadget vector of prior. The single-party key generator
// draws a fresh uniform vector for every key, which would break the additive
// combination of per-party contributions; reusing the prior vector keeps the
// b vectors of all parties defined against the same a, so that
// [EvalKeyComposer.AddEvalKeys] yields a key under the summed secret.
func (ekc *EvalKeyComposer) KeySwitchGen(skIn, skOut *rlwe.SecretKey, prior *rlwe.EvaluationKey) (*rlwe.EvaluationKey, error) {

	out := rlwe.NewEvaluationKey(ekc.params.Parameters, evkParamsOf(prior))

	if err := ekc.keySwitchGen(skIn, skOut, prior, ekc.gaussianSamplerQ, out); err != nil {
		return nil, fmt.Errorf("cannot KeySwitchGen: %w", err)
	}

	return out, nil
}

// keySwitchGen populates out with an encryption of skIn under skOut over the
// gadget decomposition basis, against the public vector of prior:
//
// out[i][j] = (ns*e_ij + skIn * w_ij - a_ij * skOut, a_ij)
//
// with a_ij taken from prior and fresh noise per digit.
func (ekc *EvalKeyComposer) keySwitchGen(skIn, skOut *rlwe.SecretKey, prior *rlwe.EvaluationKey, sampler ring.Sampler, out *rlwe.EvaluationKey) error {

	params := ekc.params

	levelQ := prior.LevelQ()
	levelP := prior.LevelP()

	if levelQ > utils.Min(skIn.LevelQ(), skOut.LevelQ()) {
		return fmt.Errorf("%w: min(skIn, skOut) LevelQ < prior LevelQ", ErrParameterMismatch)
	}

	ringQP := params.RingQP().AtLevel(levelQ, levelP)
	ringQ := ringQP.RingQ

	hasModulusP := levelP > -1

	skInScaled := ekc.buf[1].Q

	if hasModulusP {
		// Computes P * skIn
		ringQ.MulScalarBigint(skIn.Value.Q, ringQP.RingP.ModulusAtLevel[levelP], skInScaled)
	} else {
		levelP = 0
		skInScaled.CopyLvl(levelQ, skIn.Value.Q)
	}

	m := out.Value
	c := prior.Value

	N := ringQ.N()
	ns := params.NoiseScale()

	smplr := sampler.AtLevel(levelQ)

	BaseRNSDecompositionVectorSize := prior.BaseRNSDecompositionVectorSize()
	BaseTwoDecompositionVectorSize := prior.BaseTwoDecompositionVectorSize()

	var index int

	for j := 0; j < slices.Max(BaseTwoDecompositionVectorSize); j++ {

		for i := 0; i < BaseRNSDecompositionVectorSize; i++ {

			if j < BaseTwoDecompositionVectorSize[i] {

				mij := m[i][j][0]

				// ns * e
				smplr.Read(mij.Q)

				if hasModulusP {
					ringQP.ExtendBasisSmallNormAndCenter(mij.Q, levelP, mij.Q, mij.P)
				}

				ringQP.NTTLazy(mij, mij)
				ringQP.MForm(mij, mij)

				if ns > 1 {
					ringQP.MulScalar(mij, ns, mij)
				}

				// ns * e + skIn * (qiBarre*qiStar) * 2^w
				// (qiBarre*qiStar)%qi = 1, else 0
				for k := 0; k < levelP+1; k++ {

					index = i*(levelP+1) + k

					// Handles the case where nb pj does not divides nb qi
					if index >= levelQ+1 {
						break
					}

					qi := ringQ.SubRings[index].Modulus
					tmp0 := skInScaled.Coeffs[index]
					tmp1 := mij.Q.Coeffs[index]

					for w := 0; w < N; w++ {
						tmp1[w] = ring.CRed(tmp1[w]+tmp0[w], qi)
					}
				}

				// ns * e + skIn * (qiBarre*qiStar) * 2^w - a * skOut
				ringQP.MulCoeffsMontgomeryThenSub(c[i][j][1], skOut.Value, mij)

				// the shared gadget vector
				m[i][j][1].Copy(c[i][j][1])
			}
		}

		ringQ.MulScalar(skInScaled, 1<<prior.BaseTwoDecomposition, skInScaled)
	}

	return nil
}
