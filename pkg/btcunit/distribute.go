// Copyright (c) 2025 The btcbridge developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package btcunit

// Distribute splits amount into n shares that sum exactly to amount and
// differ from one another by at most one satoshi. The remainder of the
// division is assigned to the earliest shares, so the result is
// deterministic and weakly decreasing.
//
// Distribute(amount, 0) returns an empty slice.
func Distribute(amount, n uint64) []uint64 {
	if n == 0 {
		return nil
	}

	base := amount / n
	remainder := amount % n

	shares := make([]uint64, n)
	for i := range shares {
		shares[i] = base
		if uint64(i) < remainder {
			shares[i]++
		}
	}

	return shares
}
