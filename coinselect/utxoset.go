// Copyright (c) 2025 The btcbridge developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package coinselect holds the ordered set of spendable UTXOs and the
// greedy selection algorithm that picks inputs for a withdrawal
// transaction.
package coinselect

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/btcbridge/minter/tx"
)

// Utxo is an unspent transaction output the bridge can spend.
type Utxo struct {
	// OutPoint identifies the output.
	OutPoint tx.OutPoint

	// Value is the output's value in satoshi.
	Value btcutil.Amount

	// Height is the height of the block holding the transaction. It is
	// tracked for the host's confirmation bookkeeping but carries no
	// weight in selection.
	Height uint32
}

// String returns a compact description of the UTXO.
func (u Utxo) String() string {
	return fmt.Sprintf("%v (%v)", u.OutPoint, u.Value)
}

// less is the total order of UTXOs: by value, then by outpoint. Selection
// determinism depends on this order.
func (u Utxo) less(other Utxo) bool {
	if u.Value != other.Value {
		return u.Value < other.Value
	}

	if cmp := bytes.Compare(
		u.OutPoint.Txid[:], other.OutPoint.Txid[:],
	); cmp != 0 {
		return cmp < 0
	}

	return u.OutPoint.Vout < other.OutPoint.Vout
}

// UtxoSet is a mutable set of UTXOs kept in ascending (value, outpoint)
// order. It is not safe for concurrent use; the host serializes all access.
type UtxoSet struct {
	// utxos is sorted ascending by the Utxo total order and contains no
	// duplicates.
	utxos []Utxo
}

// NewUtxoSet creates a set holding the given UTXOs. Duplicates are
// collapsed.
func NewUtxoSet(utxos ...Utxo) *UtxoSet {
	set := &UtxoSet{}
	for _, utxo := range utxos {
		set.Add(utxo)
	}

	return set
}

// search returns the insertion index of utxo and whether it is already
// present.
func (s *UtxoSet) search(utxo Utxo) (int, bool) {
	idx := sort.Search(len(s.utxos), func(i int) bool {
		return !s.utxos[i].less(utxo)
	})

	return idx, idx < len(s.utxos) && s.utxos[idx] == utxo
}

// Add inserts a UTXO, keeping the order. It returns false if the UTXO was
// already present.
func (s *UtxoSet) Add(utxo Utxo) bool {
	idx, found := s.search(utxo)
	if found {
		return false
	}

	s.utxos = append(s.utxos, Utxo{})
	copy(s.utxos[idx+1:], s.utxos[idx:])
	s.utxos[idx] = utxo

	return true
}

// Remove deletes a UTXO from the set. It returns false if the UTXO was not
// present.
func (s *UtxoSet) Remove(utxo Utxo) bool {
	idx, found := s.search(utxo)
	if !found {
		return false
	}

	s.utxos = append(s.utxos[:idx], s.utxos[idx+1:]...)

	return true
}

// Contains reports whether the UTXO is in the set.
func (s *UtxoSet) Contains(utxo Utxo) bool {
	_, found := s.search(utxo)

	return found
}

// Len returns the number of UTXOs in the set.
func (s *UtxoSet) Len() int {
	return len(s.utxos)
}

// TotalValue returns the summed value of all UTXOs in the set.
func (s *UtxoSet) TotalValue() btcutil.Amount {
	var total btcutil.Amount
	for i := range s.utxos {
		total += s.utxos[i].Value
	}

	return total
}

// Utxos returns a snapshot of the set in ascending order.
func (s *UtxoSet) Utxos() []Utxo {
	snapshot := make([]Utxo, len(s.utxos))
	copy(snapshot, s.utxos)

	return snapshot
}

// Clone returns an independent copy of the set.
func (s *UtxoSet) Clone() *UtxoSet {
	return &UtxoSet{utxos: s.Utxos()}
}

// Swap replaces the receiver's contents with the other set's. It is the
// commit step of the checkpoint/commit discipline used by the transaction
// builder: selection runs against a clone, and only a fully validated
// result is swapped back in.
func (s *UtxoSet) Swap(other *UtxoSet) {
	s.utxos, other.utxos = other.utxos, s.utxos
}
