// Copyright (c) 2025 The btcbridge developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package address implements parsing and display of the three Bitcoin
// address kinds accepted by the bridge: native segwit v0 P2WPKH (bech32),
// legacy P2PKH, and P2SH (both base58check). Re-encoding a parsed address
// with the same network always reproduces the original string.
package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/txscript"
)

var (
	// ErrMalformedAddress is returned when an address cannot be decoded
	// at all: bad checksum, invalid character set, or truncated payload.
	ErrMalformedAddress = errors.New("malformed address")

	// ErrWrongNetwork is returned when an address decodes correctly but
	// carries the version byte or bech32 prefix of a different network.
	ErrWrongNetwork = errors.New("address is not valid for the network")

	// ErrUnsupportedWitnessVersion is returned for segwit addresses whose
	// witness version is not 0.
	ErrUnsupportedWitnessVersion = errors.New(
		"unsupported witness version",
	)

	// ErrUnexpectedWitnessLength is returned for segwit v0 addresses
	// whose witness program is not exactly 20 bytes. In particular,
	// 32-byte P2WSH programs are rejected.
	ErrUnexpectedWitnessLength = errors.New(
		"unsupported witness program length",
	)
)

// Address is one of the three Bitcoin address kinds the bridge accepts. It
// is a sealed interface: the only implementations are P2WPKH, P2PKH and
// P2SH, all of which are comparable value types, so two Address values can
// be compared with ==.
type Address interface {
	// Display encodes the address as text for the given network.
	Display(network Network) string

	// PkScript returns the scriptPubKey that sends to this address. The
	// script does not depend on the network.
	PkScript() []byte

	// isAddress is a marker method that is part of the sealed interface
	// pattern. It is unexported, so it can only be implemented by types
	// within this package.
	isAddress()
}

// P2WPKH is a native segwit v0 pay-to-witness-public-key-hash address: a
// 20-byte public key hash spent via a witness.
type P2WPKH [20]byte

// P2PKH is a legacy pay-to-public-key-hash address.
type P2PKH [20]byte

// P2SH is a pay-to-script-hash address.
type P2SH [20]byte

func (P2WPKH) isAddress() {}
func (P2PKH) isAddress()  {}
func (P2SH) isAddress()   {}

// A compile-time assertion that all address kinds implement the interface.
var (
	_ Address = P2WPKH{}
	_ Address = P2PKH{}
	_ Address = P2SH{}
)

// Display encodes the address using bech32 with the network's
// human-readable prefix.
func (a P2WPKH) Display(network Network) string {
	program, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(fmt.Sprintf("failed to regroup witness program: %v", err))
	}

	// Witness version 0 goes first, unconverted.
	data := make([]byte, 0, len(program)+1)
	data = append(data, 0x00)
	data = append(data, program...)

	encoded, err := bech32.Encode(network.Params().Bech32HRPSegwit, data)
	if err != nil {
		panic(fmt.Sprintf("failed to encode bech32 address: %v", err))
	}

	return encoded
}

// PkScript returns `OP_0 <20-byte hash>`.
func (a P2WPKH) PkScript() []byte {
	script := make([]byte, 0, 22)
	script = append(script, txscript.OP_0, txscript.OP_DATA_20)

	return append(script, a[:]...)
}

// String returns the mainnet encoding of the address.
func (a P2WPKH) String() string {
	return a.Display(Mainnet)
}

// Display encodes the address using base58check with the network's P2PKH
// version byte.
func (a P2PKH) Display(network Network) string {
	return base58.CheckEncode(a[:], network.Params().PubKeyHashAddrID)
}

// PkScript returns `OP_DUP OP_HASH160 <20-byte hash> OP_EQUALVERIFY
// OP_CHECKSIG`.
func (a P2PKH) PkScript() []byte {
	script := make([]byte, 0, 25)
	script = append(
		script, txscript.OP_DUP, txscript.OP_HASH160,
		txscript.OP_DATA_20,
	)
	script = append(script, a[:]...)

	return append(script, txscript.OP_EQUALVERIFY, txscript.OP_CHECKSIG)
}

// String returns the mainnet encoding of the address.
func (a P2PKH) String() string {
	return a.Display(Mainnet)
}

// Display encodes the address using base58check with the network's P2SH
// version byte.
func (a P2SH) Display(network Network) string {
	return base58.CheckEncode(a[:], network.Params().ScriptHashAddrID)
}

// PkScript returns `OP_HASH160 <20-byte hash> OP_EQUAL`.
func (a P2SH) PkScript() []byte {
	script := make([]byte, 0, 23)
	script = append(script, txscript.OP_HASH160, txscript.OP_DATA_20)
	script = append(script, a[:]...)

	return append(script, txscript.OP_EQUAL)
}

// String returns the mainnet encoding of the address.
func (a P2SH) String() string {
	return a.Display(Mainnet)
}

// P2WPKHFromPubKey derives the P2WPKH address of a serialized public key.
func P2WPKHFromPubKey(pubKey []byte) P2WPKH {
	var addr P2WPKH
	copy(addr[:], btcutil.Hash160(pubKey))

	return addr
}

// Parse decodes an address string for the given network. It recognizes
// bech32 segwit v0 addresses with a 20-byte program and base58check P2PKH
// and P2SH addresses. Parse is the exact inverse of Display: for every
// supported address a and network n, Parse(a.Display(n), n) == a.
func Parse(addr string, network Network) (Address, error) {
	if addr == "" {
		return nil, fmt.Errorf("%w: empty string", ErrMalformedAddress)
	}

	hrp := network.Params().Bech32HRPSegwit
	if strings.HasPrefix(strings.ToLower(addr), hrp+"1") {
		return parseSegwit(addr, network)
	}

	return parseBase58Check(addr, network)
}

// parseSegwit decodes a bech32 segwit address and checks the witness
// version and program length restrictions.
func parseSegwit(addr string, network Network) (Address, error) {
	// Segwit v0 addresses use the original bech32 checksum; bech32m
	// encodings (v1+) fail here with a checksum error.
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
	}

	if hrp != network.Params().Bech32HRPSegwit {
		return nil, fmt.Errorf("%w: bech32 prefix %q", ErrWrongNetwork,
			hrp)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: missing witness version",
			ErrMalformedAddress)
	}

	if data[0] != 0x00 {
		return nil, fmt.Errorf("%w: version %d",
			ErrUnsupportedWitnessVersion, data[0])
	}

	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
	}

	if len(program) != 20 {
		return nil, fmt.Errorf("%w: %d bytes",
			ErrUnexpectedWitnessLength, len(program))
	}

	var result P2WPKH
	copy(result[:], program)

	return result, nil
}

// parseBase58Check decodes a base58check address and dispatches on the
// network's version bytes.
func parseBase58Check(addr string, network Network) (Address, error) {
	payload, version, err := base58.CheckDecode(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
	}

	if len(payload) != 20 {
		return nil, fmt.Errorf("%w: %d-byte payload",
			ErrMalformedAddress, len(payload))
	}

	params := network.Params()
	switch version {
	case params.PubKeyHashAddrID:
		var result P2PKH
		copy(result[:], payload)

		return result, nil

	case params.ScriptHashAddrID:
		var result P2SH
		copy(result[:], payload)

		return result, nil

	default:
		return nil, fmt.Errorf("%w: version byte %#x",
			ErrWrongNetwork, version)
	}
}
