// Copyright (c) 2025 The btcbridge developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tx

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/btcbridge/minter/address"
)

// SigHasher computes BIP143 signature hashes for the inputs of an unsigned
// transaction. The three intermediate digests shared by all inputs
// (hashPrevouts, hashSequence, hashOutputs) are computed once at
// construction.
type SigHasher struct {
	tx *UnsignedTransaction

	hashPrevouts chainhash.Hash
	hashSequence chainhash.Hash
	hashOutputs  chainhash.Hash
}

// NewSigHasher creates a SigHasher for the given transaction. The
// transaction must not be mutated while the hasher is in use.
func NewSigHasher(transaction *UnsignedTransaction) *SigHasher {
	var prevouts, sequences, outputs bytes.Buffer

	for i := range transaction.Inputs {
		writeOutPoint(&prevouts, transaction.Inputs[i].PreviousOutput)
		writeUint32(&sequences, transaction.Inputs[i].Sequence)
	}

	for i := range transaction.Outputs {
		writeTxOut(&outputs, transaction.Outputs[i])
	}

	return &SigHasher{
		tx:           transaction,
		hashPrevouts: chainhash.DoubleHashH(prevouts.Bytes()),
		hashSequence: chainhash.DoubleHashH(sequences.Bytes()),
		hashOutputs:  chainhash.DoubleHashH(outputs.Bytes()),
	}
}

// WriteSighashData writes the BIP143 signature preimage for the input at
// the given index into buf. pkHash is the 20-byte public key hash of the
// key spending that input; it determines the standard P2WPKH script code.
func (s *SigHasher) WriteSighashData(buf *bytes.Buffer, index int,
	pkHash [20]byte) {

	input := &s.tx.Inputs[index]

	writeUint32(buf, uint32(Version))
	buf.Write(s.hashPrevouts[:])
	buf.Write(s.hashSequence[:])
	writeOutPoint(buf, input.PreviousOutput)

	// The script code of a P2WPKH input is the classic
	// pay-to-public-key-hash script, length prefixed.
	scriptCode := address.P2PKH(pkHash).PkScript()
	writeCompactSize(buf, uint64(len(scriptCode)))
	buf.Write(scriptCode)

	writeUint64(buf, uint64(input.Value))
	writeUint32(buf, input.Sequence)
	buf.Write(s.hashOutputs[:])
	writeUint32(buf, s.tx.LockTime)
	writeUint32(buf, SighashAll)
}

// Sighash returns the double-SHA256 of the BIP143 preimage for the input at
// the given index. This is the 32-byte value handed to the external signer.
func (s *SigHasher) Sighash(index int, pkHash [20]byte) chainhash.Hash {
	var buf bytes.Buffer
	s.WriteSighashData(&buf, index, pkHash)

	return chainhash.DoubleHashH(buf.Bytes())
}
