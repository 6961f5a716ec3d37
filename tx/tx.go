// Copyright (c) 2025 The btcbridge developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package tx holds the in-memory model of the bridge's Bitcoin
// transactions, their canonical wire serialization, and the BIP143 segwit
// signature hash computation. The serialization is byte-identical to the
// standard Bitcoin transaction format; the tests verify this against the
// btcd wire package.
package tx

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/btcbridge/minter/address"
	"github.com/btcbridge/minter/signature"
)

const (
	// Version is the fixed transaction version number. Version 2 is used
	// by all transactions the bridge produces.
	Version int32 = 2

	// DefaultSequence is the sequence number assigned to every input.
	// The final sequence opts out of replace-by-fee signalling.
	DefaultSequence uint32 = 0xffffffff

	// SighashAll is the SIGHASH_ALL signature hash type, the only one
	// the bridge signs with.
	SighashAll uint32 = 0x00000001

	// PubKeyLen is the length of a compressed SEC1 public key.
	PubKeyLen = 33
)

// OutPoint references an output of a previous transaction.
type OutPoint struct {
	// Txid is the id of the transaction holding the output, in the
	// internal (non-display) byte order.
	Txid chainhash.Hash

	// Vout is the index of the output within that transaction.
	Vout uint32
}

// String returns the outpoint in the conventional "txid:vout" display form.
func (o OutPoint) String() string {
	return fmt.Sprintf("%v:%d", o.Txid, o.Vout)
}

// UnsignedInput is a transaction input that has not been signed yet.
type UnsignedInput struct {
	// PreviousOutput is the output being spent.
	PreviousOutput OutPoint

	// Value is the value of the spent output. It is not serialized with
	// the transaction but is a required part of the BIP143 signature
	// hash.
	Value btcutil.Amount

	// Sequence is the input's sequence number.
	Sequence uint32
}

// SignedInput is a transaction input carrying its witness data.
type SignedInput struct {
	// PreviousOutput is the output being spent.
	PreviousOutput OutPoint

	// Sequence is the input's sequence number.
	Sequence uint32

	// Signature is the DER-encoded signature, the first witness stack
	// item.
	Signature signature.EncodedSignature

	// PubKey is the serialized public key, the second witness stack
	// item.
	PubKey []byte
}

// TxOut is a transaction output.
type TxOut struct {
	// Value is the amount sent to the output, in satoshi.
	Value btcutil.Amount

	// Address determines the output's scriptPubKey.
	Address address.Address
}

// UnsignedTransaction is a transaction before any input has a witness.
// The invariant `sum(input values) == sum(output values) + fee` holds for
// every transaction the builder produces; the fee itself is implicit.
type UnsignedTransaction struct {
	Inputs   []UnsignedInput
	Outputs  []TxOut
	LockTime uint32
}

// SignedTransaction is a transaction whose every input carries a two-item
// witness stack: the signature followed by the public key.
type SignedTransaction struct {
	Inputs   []SignedInput
	Outputs  []TxOut
	LockTime uint32
}

// Hash160 returns RIPEMD160(SHA256(data)), the 20-byte hash used by all
// three supported address kinds.
func Hash160(data []byte) [20]byte {
	var hash [20]byte
	copy(hash[:], btcutil.Hash160(data))

	return hash
}
