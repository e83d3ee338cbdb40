package multiparty

import (
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

type TestParametersLiteral struct {
	BaseTwoDecomposition int
	ParametersLiteral
}

var (
	testLogN = 10
	testQi   = []uint64{0x200000440001, 0x7fff80001, 0x800280001, 0x7ffd80001, 0x7ffc80001}
	testPj   = []uint64{0x3ffffffb80001, 0x4000000800001}

	// testInsecure are insecure parameters used for the sole purpose of fast testing.
	testInsecure = []TestParametersLiteral{
		{
			BaseTwoDecomposition: 16,

			ParametersLiteral: ParametersLiteral{
				ParametersLiteral: rlwe.ParametersLiteral{
					LogN:    testLogN,
					Q:       testQi,
					P:       testPj[:1],
					NTTFlag: true,
				},
				Mode:          ModeOptimized,
				NoiseScale:    1,
				SmudgingSigma: 1 << 20,
				BatchSize:     128,
				Scheme:        SchemeBFV,
			},
		},

		{
			BaseTwoDecomposition: 0,

			ParametersLiteral: ParametersLiteral{
				ParametersLiteral: rlwe.ParametersLiteral{
					LogN:    testLogN,
					Q:       testQi,
					P:       testPj,
					NTTFlag: true,
				},
				Mode:          ModeRLWE,
				NoiseScale:    1,
				SmudgingSigma: 1 << 20,
				BatchSize:     128,
				Scheme:        SchemeBGV,
			},
		},
	}
)
