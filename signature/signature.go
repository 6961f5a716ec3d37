// Copyright (c) 2025 The btcbridge developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package signature converts the 64-byte compact (r‖s) ECDSA signatures
// produced by the external threshold signer into the DER encoding Bitcoin
// requires, and validates encoded signatures structurally.
package signature

import (
	"errors"
	"fmt"
)

const (
	// compactSigLen is the length of a compact (r‖s) signature.
	compactSigLen = 64

	// componentLen is the length of each of the r and s components in a
	// compact signature.
	componentLen = 32

	// MaxEncodedLen is the maximum length of a DER-encoded signature: two
	// 33-byte integers (32 significant bytes plus a zero sign byte each)
	// and six bytes of ASN.1 framing.
	MaxEncodedLen = 72

	// sequenceTag is the ASN.1 tag of a SEQUENCE.
	sequenceTag = 0x30

	// integerTag is the ASN.1 tag of an INTEGER.
	integerTag = 0x02
)

var (
	// ErrCompactSigLength is returned when the compact signature is not
	// exactly 64 bytes.
	ErrCompactSigLength = errors.New("compact signature must be 64 bytes")

	// ErrZeroComponent is returned when the r or s component of a compact
	// signature is zero. A zero component never occurs in a valid ECDSA
	// signature and has no minimal DER integer encoding.
	ErrZeroComponent = errors.New("signature component is zero")

	// ErrMalformedSignature is returned when an encoded signature does
	// not parse as exactly one ASN.1 SEQUENCE of exactly two INTEGERs.
	ErrMalformedSignature = errors.New("malformed DER signature")

	// ErrSignatureTooLong is returned when an encoded signature exceeds
	// MaxEncodedLen bytes.
	ErrSignatureTooLong = errors.New("DER signature too long")
)

// EncodedSignature is a DER-encoded ECDSA signature that passed structural
// validation.
type EncodedSignature []byte

// FromSec1 converts a 64-byte compact signature, the first 32 bytes being
// the big-endian r component and the last 32 bytes the s component, into
// its DER encoding.
func FromSec1(sec1 []byte) (EncodedSignature, error) {
	if len(sec1) != compactSigLen {
		return nil, fmt.Errorf("%w: got %d bytes", ErrCompactSigLength,
			len(sec1))
	}

	r, err := encodeInteger(sec1[:componentLen])
	if err != nil {
		return nil, err
	}

	s, err := encodeInteger(sec1[componentLen:])
	if err != nil {
		return nil, err
	}

	der := make([]byte, 0, MaxEncodedLen)
	der = append(der, sequenceTag, byte(len(r)+len(s)))
	der = append(der, r...)

	return append(der, s...), nil
}

// Placeholder returns a valid DER signature of the maximal encoded length.
// It is used to trial-sign a transaction so that its final byte size, and
// therefore its fee, is known before the real signer runs. The placeholder
// bytes never appear in a finalized transaction.
func Placeholder() EncodedSignature {
	var sec1 [compactSigLen]byte
	for i := range sec1 {
		sec1[i] = 0xff
	}

	// Both components have the high bit set, so each encodes to 33
	// bytes and the result has the maximal length.
	sig, err := FromSec1(sec1[:])
	if err != nil {
		panic(fmt.Sprintf("failed to encode placeholder: %v", err))
	}

	return sig
}

// encodeInteger encodes a big-endian unsigned integer as a minimal-length
// ASN.1 INTEGER field: leading zero bytes are stripped, and a single zero
// byte is re-added when the most significant retained byte has its high bit
// set, keeping the value non-negative.
func encodeInteger(component []byte) ([]byte, error) {
	start := 0
	for start < len(component) && component[start] == 0 {
		start++
	}

	if start == len(component) {
		return nil, ErrZeroComponent
	}

	value := component[start:]

	field := make([]byte, 0, len(value)+3)
	if value[0]&0x80 != 0 {
		field = append(field, integerTag, byte(len(value)+1), 0x00)
	} else {
		field = append(field, integerTag, byte(len(value)))
	}

	return append(field, value...), nil
}

// Validate checks that an encoded signature parses as exactly one ASN.1
// SEQUENCE containing exactly two minimally-encoded INTEGERs, with nothing
// trailing, and that the total length does not exceed MaxEncodedLen.
func Validate(sig []byte) error {
	if len(sig) > MaxEncodedLen {
		return fmt.Errorf("%w: %d bytes", ErrSignatureTooLong, len(sig))
	}

	if len(sig) < 2 || sig[0] != sequenceTag {
		return fmt.Errorf("%w: not a SEQUENCE", ErrMalformedSignature)
	}

	if int(sig[1]) != len(sig)-2 {
		return fmt.Errorf("%w: bad SEQUENCE length",
			ErrMalformedSignature)
	}

	body := sig[2:]
	for i := 0; i < 2; i++ {
		rest, err := checkInteger(body)
		if err != nil {
			return err
		}

		body = rest
	}

	if len(body) != 0 {
		return fmt.Errorf("%w: trailing bytes after two INTEGERs",
			ErrMalformedSignature)
	}

	return nil
}

// checkInteger consumes one minimally-encoded ASN.1 INTEGER from the front
// of buf and returns the remainder.
func checkInteger(buf []byte) ([]byte, error) {
	if len(buf) < 3 || buf[0] != integerTag {
		return nil, fmt.Errorf("%w: expected an INTEGER",
			ErrMalformedSignature)
	}

	length := int(buf[1])
	if length == 0 || len(buf) < 2+length {
		return nil, fmt.Errorf("%w: bad INTEGER length",
			ErrMalformedSignature)
	}

	value := buf[2 : 2+length]

	// A leading zero byte is only allowed to clear the sign bit of the
	// following byte.
	if value[0] == 0 && (length == 1 || value[1]&0x80 == 0) {
		return nil, fmt.Errorf("%w: non-minimal INTEGER encoding",
			ErrMalformedSignature)
	}

	return buf[2+length:], nil
}
