package multiparty

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
)

// SecretKeyMode selects the distribution from which the per-party secret
// shares are drawn.
type SecretKeyMode uint8

const (
	// ModeRLWE draws secret shares from the discrete Gaussian distribution.
	ModeRLWE SecretKeyMode = iota
	// ModeOptimized draws secret shares from the uniform ternary distribution.
	ModeOptimized
	// ModeSparse draws ternary secret shares of Hamming weight 64.
	ModeSparse
)

// sparseHammingWeight is the number of non-zero coefficients of a secret
// share drawn in ModeSparse.
const sparseHammingWeight = 64

func (m SecretKeyMode) String() string {
	switch m {
	case ModeRLWE:
		return "RLWE"
	case ModeOptimized:
		return "OPTIMIZED"
	case ModeSparse:
		return "SPARSE"
	default:
		return "INVALID"
	}
}

// Scheme tags the encrypted-arithmetic scheme the keys are generated for. It
// selects the rule mapping slot shifts to automorphism indices.
type Scheme uint8

const (
	SchemeBFV Scheme = iota
	SchemeBGV
	SchemeCKKS
)

func (s Scheme) String() string {
	switch s {
	case SchemeBFV:
		return "BFV"
	case SchemeBGV:
		return "BGV"
	case SchemeCKKS:
		return "CKKS"
	default:
		return "INVALID"
	}
}

// DefaultSmudgingSigma is the standard deviation of the noise-flooding
// distribution used when the literal does not specify one.
const DefaultSmudgingSigma = float64(1 << 30)

// ParametersLiteral is a literal representation of threshold protocol
// parameters. It embeds an rlwe.ParametersLiteral and adds the
// protocol-level fields. Zero values for NoiseScale, SmudgingSigma and
// BatchSize select the defaults (1, DefaultSmudgingSigma and N).
type ParametersLiteral struct {
	rlwe.ParametersLiteral
	Mode          SecretKeyMode
	NoiseScale    uint64
	SmudgingSigma float64
	BatchSize     int
	Scheme        Scheme
}

// Parameters stores the parameters of the threshold protocol layer: the
// underlying rlwe parameters plus the secret-share distribution mode, the
// noise scale, the smudging (noise-flooding) standard deviation, the batch
// size and the scheme tag. Parameters are immutable once constructed.
type Parameters struct {
	rlwe.Parameters
	mode          SecretKeyMode
	noiseScale    uint64
	smudgingSigma float64
	batchSize     int
	scheme        Scheme
}

// NewParametersFromLiteral instantiates a set of threshold protocol
// parameters from a literal.
func NewParametersFromLiteral(pl ParametersLiteral) (Parameters, error) {
	rp, err := rlwe.NewParametersFromLiteral(pl.ParametersLiteral)
	if err != nil {
		return Parameters{}, err
	}
	return NewParameters(rp, pl.Mode, pl.Scheme, pl.NoiseScale, pl.SmudgingSigma, pl.BatchSize)
}

// NewParameters instantiates threshold protocol parameters on top of
// existing rlwe parameters, e.g. the parameters of a scheme instance.
func NewParameters(rp rlwe.Parameters, mode SecretKeyMode, scheme Scheme, noiseScale uint64, smudgingSigma float64, batchSize int) (Parameters, error) {

	if noiseScale == 0 {
		noiseScale = 1
	}

	if smudgingSigma == 0 {
		smudgingSigma = DefaultSmudgingSigma
	}

	if batchSize == 0 {
		batchSize = rp.N()
	}

	p := Parameters{
		Parameters:    rp,
		mode:          mode,
		noiseScale:    noiseScale,
		smudgingSigma: smudgingSigma,
		batchSize:     batchSize,
		scheme:        scheme,
	}

	if _, err := p.SecretDistribution(); err != nil {
		return Parameters{}, err
	}

	if scheme > SchemeCKKS {
		return Parameters{}, fmt.Errorf("invalid scheme tag: %d", scheme)
	}

	if smudgingSigma < 0 {
		return Parameters{}, fmt.Errorf("invalid smudging standard deviation: %f", smudgingSigma)
	}

	if batchSize < 1 || batchSize > rp.N() || batchSize&(batchSize-1) != 0 {
		return Parameters{}, fmt.Errorf("invalid batch size %d: must be a power of two in [1, %d]", batchSize, rp.N())
	}

	return p, nil
}

// Mode returns the secret-share distribution mode.
func (p Parameters) Mode() SecretKeyMode {
	return p.mode
}

// Scheme returns the scheme tag.
func (p Parameters) Scheme() Scheme {
	return p.scheme
}

// NoiseScale returns the scalar ns multiplying every protocol noise term.
func (p Parameters) NoiseScale() uint64 {
	return p.noiseScale
}

// SmudgingSigma returns the standard deviation of the noise-flooding
// distribution used by the partial decryptions.
func (p Parameters) SmudgingSigma() float64 {
	return p.smudgingSigma
}

// Smudging returns the noise-flooding distribution.
func (p Parameters) Smudging() ring.DiscreteGaussian {
	return ring.DiscreteGaussian{Sigma: p.smudgingSigma, Bound: 6 * p.smudgingSigma}
}

// BatchSize returns the number of packed plaintext slots the summation keys
// are generated for.
func (p Parameters) BatchSize() int {
	return p.batchSize
}

// SecretDistribution returns the sampling distribution of the secret shares
// selected by the mode.
func (p Parameters) SecretDistribution() (ring.DistributionParameters, error) {
	switch p.mode {
	case ModeRLWE:
		return p.Xe(), nil
	case ModeOptimized:
		return ring.Ternary{P: 2 / 3.0}, nil
	case ModeSparse:
		return ring.Ternary{H: sparseHammingWeight}, nil
	default:
		return nil, fmt.Errorf("invalid secret key mode: %d", p.mode)
	}
}

// Equal returns true if the receiver and the operand are identical.
func (p Parameters) Equal(other *Parameters) bool {
	return p.Parameters.Equal(&other.Parameters) &&
		p.mode == other.mode &&
		p.noiseScale == other.noiseScale &&
		p.smudgingSigma == other.smudgingSigma &&
		p.batchSize == other.batchSize &&
		p.scheme == other.scheme
}
