/*
Package openfhe provides a pure Go implementation of the multiparty (threshold)
protocol layer of an RLWE-based homomorphic encryption library. It turns a
single-party public-key RLWE scheme into an N-party threshold scheme in which
the parties jointly generate the public, relinearization, automorphism and
summation keys, and in which decryption requires the collaboration of every
party.

The protocol layer lives in the multiparty package. Ring arithmetic, samplers
and the single-party scheme are provided by github.com/tuneinsight/lattigo/v6.
*/
package openfhe

// Version is the current version of the library.
const Version = "0.2.0"
