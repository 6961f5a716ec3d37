// Copyright (c) 2025 The btcbridge developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tx

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Segwit transactions mark the presence of witness data with a zero byte
// where a legacy parser would expect the input count, followed by a flag.
const (
	segwitMarker byte = 0x00
	segwitFlag   byte = 0x01
)

// writeCompactSize writes n in Bitcoin's variable-length integer encoding.
func writeCompactSize(buf *bytes.Buffer, n uint64) {
	switch {
	case n < 0xfd:
		buf.WriteByte(byte(n))

	case n <= 0xffff:
		buf.WriteByte(0xfd)
		writeUint16(buf, uint16(n))

	case n <= 0xffffffff:
		buf.WriteByte(0xfe)
		writeUint32(buf, uint32(n))

	default:
		buf.WriteByte(0xff)
		writeUint64(buf, n)
	}
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// writeOutPoint writes the 32-byte txid in internal byte order followed by
// the output index.
func writeOutPoint(buf *bytes.Buffer, o OutPoint) {
	buf.Write(o.Txid[:])
	writeUint32(buf, o.Vout)
}

// writeTxOut writes the output value followed by its length-prefixed
// scriptPubKey.
func writeTxOut(buf *bytes.Buffer, out TxOut) {
	writeUint64(buf, uint64(out.Value))

	script := out.Address.PkScript()
	writeCompactSize(buf, uint64(len(script)))
	buf.Write(script)
}

// writeWitnessItem writes one length-prefixed witness stack item.
func writeWitnessItem(buf *bytes.Buffer, item []byte) {
	writeCompactSize(buf, uint64(len(item)))
	buf.Write(item)
}

// Serialize encodes the unsigned transaction in the standard Bitcoin wire
// layout. Unsigned transactions carry no witness, so the segwit marker and
// flag bytes are absent and every scriptSig is empty.
func (t *UnsignedTransaction) Serialize() []byte {
	var buf bytes.Buffer

	writeUint32(&buf, uint32(Version))

	writeCompactSize(&buf, uint64(len(t.Inputs)))
	for i := range t.Inputs {
		writeOutPoint(&buf, t.Inputs[i].PreviousOutput)
		buf.WriteByte(0x00) // empty scriptSig
		writeUint32(&buf, t.Inputs[i].Sequence)
	}

	writeCompactSize(&buf, uint64(len(t.Outputs)))
	for i := range t.Outputs {
		writeTxOut(&buf, t.Outputs[i])
	}

	writeUint32(&buf, t.LockTime)

	return buf.Bytes()
}

// TxID returns the double-SHA256 of the transaction's serialization, in
// internal byte order.
func (t *UnsignedTransaction) TxID() chainhash.Hash {
	return chainhash.DoubleHashH(t.Serialize())
}

// Serialize encodes the signed transaction in the standard Bitcoin wire
// layout, including the segwit marker and flag and a two-item witness stack
// per input.
func (t *SignedTransaction) Serialize() []byte {
	var buf bytes.Buffer

	writeUint32(&buf, uint32(Version))
	buf.WriteByte(segwitMarker)
	buf.WriteByte(segwitFlag)

	writeCompactSize(&buf, uint64(len(t.Inputs)))
	for i := range t.Inputs {
		writeOutPoint(&buf, t.Inputs[i].PreviousOutput)
		buf.WriteByte(0x00) // empty scriptSig
		writeUint32(&buf, t.Inputs[i].Sequence)
	}

	writeCompactSize(&buf, uint64(len(t.Outputs)))
	for i := range t.Outputs {
		writeTxOut(&buf, t.Outputs[i])
	}

	for i := range t.Inputs {
		writeCompactSize(&buf, 2)
		writeWitnessItem(&buf, t.Inputs[i].Signature)
		writeWitnessItem(&buf, t.Inputs[i].PubKey)
	}

	writeUint32(&buf, t.LockTime)

	return buf.Bytes()
}

// serializeNoWitness encodes the signed transaction without the marker,
// flag, and witness data. This is the preimage of the transaction id.
func (t *SignedTransaction) serializeNoWitness() []byte {
	var buf bytes.Buffer

	writeUint32(&buf, uint32(Version))

	writeCompactSize(&buf, uint64(len(t.Inputs)))
	for i := range t.Inputs {
		writeOutPoint(&buf, t.Inputs[i].PreviousOutput)
		buf.WriteByte(0x00) // empty scriptSig
		writeUint32(&buf, t.Inputs[i].Sequence)
	}

	writeCompactSize(&buf, uint64(len(t.Outputs)))
	for i := range t.Outputs {
		writeTxOut(&buf, t.Outputs[i])
	}

	writeUint32(&buf, t.LockTime)

	return buf.Bytes()
}

// TxID returns the double-SHA256 of the non-witness serialization, in
// internal byte order.
func (t *SignedTransaction) TxID() chainhash.Hash {
	return chainhash.DoubleHashH(t.serializeNoWitness())
}

// WtxID returns the double-SHA256 of the full witness serialization, in
// internal byte order.
func (t *SignedTransaction) WtxID() chainhash.Hash {
	return chainhash.DoubleHashH(t.Serialize())
}

// Vsize returns the virtual size of the signed transaction:
// (3*base_size + total_size + 3) / 4, where base_size excludes the witness
// data and total_size includes it.
func (t *SignedTransaction) Vsize() uint64 {
	baseSize := uint64(len(t.serializeNoWitness()))
	totalSize := uint64(len(t.Serialize()))

	return (3*baseSize + totalSize + 3) / 4
}
