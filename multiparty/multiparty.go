// Package multiparty implements the threshold protocol layer of an RLWE-based
// homomorphic encryption scheme. It provides the local operations each party
// executes to jointly generate a public key, relinearization keys and
// automorphism (rotation and summation) keys under an additively shared
// secret, and to collectively decrypt ciphertexts through noise-flooded
// partial decryptions.
//
// Outside the trusted-aggregator step of [KeyAggregator.AggregateKeyGen],
// which returns the summed secret, no party materializes the joint secret:
// public material is combined additively under a shared public polynomial
// `a`, and decryption requires one
// lead share and one follower share per remaining party, fused back into the
// plaintext.
//
// The package is agnostic to the encrypted arithmetic: any scheme built on
// top of the rlwe package (BFV/BGV-style exact arithmetic or CKKS-style
// approximate arithmetic) can run under keys produced here.
package multiparty

import (
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

// KeyPair bundles the secret material produced by a joint key-generation
// round with the resulting public key. In aggregate mode the secret key is
// the sum of the input shares; in extend mode it is the fresh local share of
// the calling party.
type KeyPair struct {
	SecretKey *rlwe.SecretKey
	PublicKey *rlwe.PublicKey
}
