// Copyright (c) 2025 The btcbridge developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signature

import (
	"crypto/sha256"
	"math/rand"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/require"
)

// randomNonZeroComponent fills a 32-byte component guaranteed not to be all
// zero.
func randomNonZeroComponent(t *testing.T, rng *rand.Rand, out []byte) {
	t.Helper()

	_, err := rng.Read(out)
	require.NoError(t, err)

	// Force at least one non-zero byte.
	out[len(out)-1] |= 0x01
}

// TestFromSec1RoundTrip checks that encoding random compact signatures
// yields valid DER whose integer payloads equal the original components
// with leading zeros stripped.
func TestFromSec1RoundTrip(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(664))

	strip := func(b []byte) []byte {
		for len(b) > 0 && b[0] == 0 {
			b = b[1:]
		}
		return b
	}

	for i := 0; i < 1000; i++ {
		var sec1 [64]byte
		randomNonZeroComponent(t, rng, sec1[:32])
		randomNonZeroComponent(t, rng, sec1[32:])

		// Exercise the leading-zero stripping path regularly.
		if i%3 == 0 {
			zeros := rng.Intn(4)
			for j := 0; j < zeros; j++ {
				sec1[j] = 0
			}
		}

		encoded, err := FromSec1(sec1[:])
		require.NoError(t, err)
		require.NoError(t, Validate(encoded))

		// Decode the two INTEGER payloads back out.
		rLen := int(encoded[3])
		r := encoded[4 : 4+rLen]
		sLen := int(encoded[4+rLen+1])
		s := encoded[4+rLen+2:]
		require.Len(t, s, sLen)

		require.Equal(t, strip(sec1[:32]), strip(r))
		require.Equal(t, strip(sec1[32:]), strip(s))
	}
}

// TestFromSec1MatchesBtcec checks the encoder against btcec's own DER
// serializer using real signatures.
func TestFromSec1MatchesBtcec(t *testing.T) {
	t.Parallel()

	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(137))

	for i := 0; i < 100; i++ {
		var msg [32]byte
		_, err := rng.Read(msg[:])
		require.NoError(t, err)

		digest := sha256.Sum256(msg[:])
		refSig := ecdsa.Sign(privKey, digest[:])

		r := refSig.R()
		s := refSig.S()
		rBytes := r.Bytes()
		sBytes := s.Bytes()

		var sec1 [64]byte
		copy(sec1[:32], rBytes[:])
		copy(sec1[32:], sBytes[:])

		encoded, err := FromSec1(sec1[:])
		require.NoError(t, err)

		require.Equal(t, refSig.Serialize(), []byte(encoded))
	}
}

// TestFromSec1Errors checks the rejection paths.
func TestFromSec1Errors(t *testing.T) {
	t.Parallel()

	var sec1 [64]byte

	_, err := FromSec1(sec1[:63])
	require.ErrorIs(t, err, ErrCompactSigLength)

	// Zero r.
	sec1[63] = 0x01
	_, err = FromSec1(sec1[:])
	require.ErrorIs(t, err, ErrZeroComponent)

	// Zero s.
	sec1[0], sec1[63] = 0x01, 0x00
	_, err = FromSec1(sec1[:])
	require.ErrorIs(t, err, ErrZeroComponent)
}

// TestPlaceholderHasMaxLength checks that the trial signature has the
// maximal encoded length and validates.
func TestPlaceholderHasMaxLength(t *testing.T) {
	t.Parallel()

	placeholder := Placeholder()
	require.Len(t, placeholder, MaxEncodedLen)
	require.NoError(t, Validate(placeholder))
}

// TestValidateRejections checks structural validation failures.
func TestValidateRejections(t *testing.T) {
	t.Parallel()

	var sec1 [64]byte
	sec1[31] = 0x7f
	sec1[63] = 0x7f

	valid, err := FromSec1(sec1[:])
	require.NoError(t, err)
	require.NoError(t, Validate(valid))

	tooLong := make([]byte, MaxEncodedLen+1)
	require.ErrorIs(t, Validate(tooLong), ErrSignatureTooLong)

	testCases := []struct {
		name string
		sig  []byte
	}{
		{
			name: "empty",
			sig:  nil,
		},
		{
			name: "not a sequence",
			sig:  []byte{0x31, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x01},
		},
		{
			name: "bad sequence length",
			sig:  []byte{0x30, 0x07, 0x02, 0x01, 0x01, 0x02, 0x01, 0x01},
		},
		{
			name: "one integer only",
			sig:  []byte{0x30, 0x03, 0x02, 0x01, 0x01},
		},
		{
			name: "trailing bytes",
			sig: []byte{
				0x30, 0x07, 0x02, 0x01, 0x01, 0x02, 0x01, 0x01,
				0x00,
			},
		},
		{
			name: "zero length integer",
			sig:  []byte{0x30, 0x06, 0x02, 0x00, 0x02, 0x01, 0x01, 0x01},
		},
		{
			name: "non-minimal integer",
			sig: []byte{
				0x30, 0x07, 0x02, 0x02, 0x00, 0x01, 0x02, 0x01,
				0x01,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.ErrorIs(t, Validate(tc.sig),
				ErrMalformedSignature)
		})
	}
}
