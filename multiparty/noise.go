package multiparty

import (
	"math"
	"math/big"

	"github.com/ALTree/bigfloat"
)

// NoiseJointPublicKey returns the standard deviation of the residual
// b + a*s of a joint public key to which nbParties noise terms contributed:
// one for a key produced by [KeyAggregator.AggregateKeyGen], one per party
// for a key chained with [KeyAggregator.ExtendKeyGen].
func NoiseJointPublicKey(params Parameters, nbParties int) (std float64) {
	return float64(params.NoiseScale()) * math.Sqrt(float64(nbParties)) * params.NoiseFreshSK()
}

// NoiseRotationKey returns the standard deviation of the noise of each
// individual element of a collective rotation (or summation) key combined
// over nbParties contributions.
func NoiseRotationKey(params Parameters, nbParties int) (std float64) {
	return NoiseJointPublicKey(params, nbParties)
}

// NoiseCombinedEvalMultKey returns the standard deviation of the noise of
// each individual element of a relinearization key obtained by summing, over
// nbParties parties, the [EvalKeyComposer.MultEvalKey] rerandomizations of a
// shared linear evaluation key. The estimate assumes secret shares drawn
// from the scheme's secret distribution.
func NoiseCombinedEvalMultKey(params Parameters, nbParties int) (std float64) {

	H := float64(nbParties * params.XsHammingWeight())
	ns := float64(params.NoiseScale())
	e := float64(nbParties) * ns * ns * params.NoiseFreshSK() * params.NoiseFreshSK()

	// var(s*e0 + sum(e2) + s*sum(e1)) <= e*(2H + 1) <= 2e(H+1)
	return math.Sqrt(2 * e * (H + 1))
}

// NoiseThresholdDecrypt returns the standard deviation of the noise carried
// by the plaintext recovered by [ThresholdDecryptor.Fuse] over nbParties
// shares, for a ciphertext of noise standard deviation noisect.
func NoiseThresholdDecrypt(params Parameters, nbParties int, noisect float64) (std float64) {

	ns := float64(params.NoiseScale())
	sigma := params.SmudgingSigma()
	fresh := params.NoiseFreshSK()

	std = ns * ns * (sigma*sigma + fresh*fresh)
	std *= float64(nbParties)
	std += noisect * noisect

	return math.Sqrt(std)
}

// SmudgingSecurity returns an estimate, in bits, of the statistical security
// provided by the noise-flooding distribution against a ciphertext of noise
// standard deviation noisect, following the smudging lemma: the advantage of
// distinguishing a flooded share from a fresh sample is bounded by the ratio
// of the two noise magnitudes.
func SmudgingSecurity(params Parameters, noisect float64) float64 {

	const prec = 128

	num := new(big.Float).SetPrec(prec).SetFloat64(params.SmudgingSigma() * float64(params.NoiseScale()))
	den := new(big.Float).SetPrec(prec).SetFloat64(noisect)

	bits, _ := log2(new(big.Float).Quo(num, den)).Float64()
	return bits
}

// FloodingMargin returns log2(Q) - log2(6*ns*sigma_MP*sqrt(nbParties)), the
// headroom in bits left to the plaintext once the worst-case flooding noise
// of a full decryption session is accounted for. The modulus product exceeds
// the float64 range for most parameter sets, hence the big-float arithmetic.
func FloodingMargin(params Parameters, nbParties int) float64 {

	const prec = 128

	q := new(big.Float).SetPrec(prec).SetInt(params.QBigInt())
	flood := new(big.Float).SetPrec(prec).SetFloat64(
		6 * float64(params.NoiseScale()) * params.SmudgingSigma() * math.Sqrt(float64(nbParties)))

	margin, _ := new(big.Float).Sub(log2(q), log2(flood)).Float64()
	return margin
}

func log2(x *big.Float) *big.Float {
	ln2 := bigfloat.Log(new(big.Float).SetPrec(x.Prec()).SetInt64(2))
	return new(big.Float).Quo(bigfloat.Log(x), ln2)
}
