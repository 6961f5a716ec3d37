// Copyright (c) 2025 The btcbridge developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tx

import (
	"math/rand"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/btcbridge/minter/address"
	"github.com/btcbridge/minter/signature"
)

// randomOutPoint returns an outpoint with a random txid and a small vout.
func randomOutPoint(t *testing.T, rng *rand.Rand) OutPoint {
	t.Helper()

	var txid chainhash.Hash
	_, err := rng.Read(txid[:])
	require.NoError(t, err)

	return OutPoint{Txid: txid, Vout: rng.Uint32() % 5}
}

// randomAddress returns an address of a random kind with a random hash.
func randomAddress(t *testing.T, rng *rand.Rand) address.Address {
	t.Helper()

	var hash [20]byte
	_, err := rng.Read(hash[:])
	require.NoError(t, err)

	switch rng.Intn(3) {
	case 0:
		return address.P2WPKH(hash)
	case 1:
		return address.P2PKH(hash)
	default:
		return address.P2SH(hash)
	}
}

// randomTxOut returns an output with a positive random value.
func randomTxOut(t *testing.T, rng *rand.Rand) TxOut {
	t.Helper()

	return TxOut{
		Value:   btcutil.Amount(rng.Int63n(10_000_000_000) + 1),
		Address: randomAddress(t, rng),
	}
}

// randomUnsignedTx returns a transaction with 1..20 random inputs and
// outputs and a random lock time.
func randomUnsignedTx(t *testing.T, rng *rand.Rand) *UnsignedTransaction {
	t.Helper()

	transaction := &UnsignedTransaction{LockTime: rng.Uint32()}

	for i := 0; i < rng.Intn(20)+1; i++ {
		transaction.Inputs = append(transaction.Inputs, UnsignedInput{
			PreviousOutput: randomOutPoint(t, rng),
			Value:          btcutil.Amount(rng.Int63n(1_000_000_000) + 5_000),
			Sequence:       rng.Uint32(),
		})
	}

	for i := 0; i < rng.Intn(20)+1; i++ {
		transaction.Outputs = append(
			transaction.Outputs, randomTxOut(t, rng),
		)
	}

	return transaction
}

// randomSignedTx returns a transaction whose inputs carry random valid
// witnesses.
func randomSignedTx(t *testing.T, rng *rand.Rand) *SignedTransaction {
	t.Helper()

	transaction := &SignedTransaction{LockTime: rng.Uint32()}

	for i := 0; i < rng.Intn(20)+1; i++ {
		var sec1 [64]byte
		_, err := rng.Read(sec1[:])
		require.NoError(t, err)
		sec1[31] |= 0x01
		sec1[63] |= 0x01

		sig, err := signature.FromSec1(sec1[:])
		require.NoError(t, err)

		pubKey := make([]byte, PubKeyLen)
		_, err = rng.Read(pubKey)
		require.NoError(t, err)

		transaction.Inputs = append(transaction.Inputs, SignedInput{
			PreviousOutput: randomOutPoint(t, rng),
			Sequence:       rng.Uint32(),
			Signature:      sig,
			PubKey:         pubKey,
		})
	}

	for i := 0; i < rng.Intn(20)+1; i++ {
		transaction.Outputs = append(
			transaction.Outputs, randomTxOut(t, rng),
		)
	}

	return transaction
}

// refPkScript derives the reference scriptPubKey of an address by decoding
// its displayed form with btcutil, the same route the original model tests
// took through the canonical library.
func refPkScript(t *testing.T, addr address.Address) []byte {
	t.Helper()

	decoded, err := btcutil.DecodeAddress(
		addr.Display(address.Mainnet), &chaincfg.MainNetParams,
	)
	require.NoError(t, err)

	script, err := txscript.PayToAddrScript(decoded)
	require.NoError(t, err)

	return script
}

// unsignedToWire converts an unsigned transaction to its btcd
// representation.
func unsignedToWire(t *testing.T, transaction *UnsignedTransaction) *wire.MsgTx {
	t.Helper()

	msg := wire.NewMsgTx(Version)
	msg.LockTime = transaction.LockTime

	for i := range transaction.Inputs {
		input := &transaction.Inputs[i]
		txIn := wire.NewTxIn(wire.NewOutPoint(
			&input.PreviousOutput.Txid, input.PreviousOutput.Vout,
		), nil, nil)
		txIn.Sequence = input.Sequence
		msg.AddTxIn(txIn)
	}

	for i := range transaction.Outputs {
		output := &transaction.Outputs[i]
		msg.AddTxOut(wire.NewTxOut(
			int64(output.Value), refPkScript(t, output.Address),
		))
	}

	return msg
}

// signedToWire converts a signed transaction to its btcd representation.
func signedToWire(t *testing.T, transaction *SignedTransaction) *wire.MsgTx {
	t.Helper()

	msg := wire.NewMsgTx(Version)
	msg.LockTime = transaction.LockTime

	for i := range transaction.Inputs {
		input := &transaction.Inputs[i]
		txIn := wire.NewTxIn(wire.NewOutPoint(
			&input.PreviousOutput.Txid, input.PreviousOutput.Vout,
		), nil, wire.TxWitness{input.Signature, input.PubKey})
		txIn.Sequence = input.Sequence
		msg.AddTxIn(txIn)
	}

	for i := range transaction.Outputs {
		output := &transaction.Outputs[i]
		msg.AddTxOut(wire.NewTxOut(
			int64(output.Value), refPkScript(t, output.Address),
		))
	}

	return msg
}
