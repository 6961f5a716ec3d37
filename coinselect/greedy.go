// Copyright (c) 2025 The btcbridge developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinselect

import (
	"sort"

	"github.com/btcsuite/btcd/btcutil"
)

// Greedy selects UTXOs covering at least target satoshi and removes them
// from available. At each step it picks the largest UTXO not exceeding the
// remaining target; if none fits, it picks the smallest UTXO exceeding the
// remaining target and stops, since that single UTXO covers the rest.
//
// If the set's total value is below the target, Greedy returns nil and
// leaves available untouched. The selection is deterministic: equal-value
// UTXOs are broken by outpoint order.
func Greedy(target btcutil.Amount, available *UtxoSet) []Utxo {
	if available.TotalValue() < target {
		log.Debugf("Not enough funds to cover %v, total available %v",
			target, available.TotalValue())

		return nil
	}

	var selected []Utxo
	for target > 0 && available.Len() > 0 {
		utxos := available.utxos

		// First index whose value exceeds the remaining target. The
		// entry just before it, if any, is the largest UTXO that
		// still fits under the target.
		idx := sort.Search(len(utxos), func(i int) bool {
			return utxos[i].Value > target
		})

		var pick Utxo
		if idx > 0 {
			pick = utxos[idx-1]
		} else {
			// Every remaining UTXO exceeds the target, so the
			// smallest one finishes the selection.
			pick = utxos[0]
		}

		available.Remove(pick)
		selected = append(selected, pick)

		if pick.Value >= target {
			break
		}
		target -= pick.Value
	}

	return selected
}
