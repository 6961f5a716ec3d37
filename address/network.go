// Copyright (c) 2025 The btcbridge developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package address

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// Network identifies which of the supported Bitcoin networks an address
// belongs to. The network fixes the bech32 human-readable prefix and the two
// base58check version bytes used by the codec.
type Network byte

const (
	// Mainnet is the main Bitcoin network.
	Mainnet Network = iota

	// Testnet is the test Bitcoin network (testnet3).
	Testnet

	// Regtest is the local regression test network. It shares testnet's
	// base58check version bytes but uses its own bech32 prefix.
	Regtest
)

// Params returns the chain parameters of the network. The codec derives the
// bech32 prefix and the P2PKH/P2SH version bytes from these parameters
// instead of hardcoding them.
func (n Network) Params() *chaincfg.Params {
	switch n {
	case Mainnet:
		return &chaincfg.MainNetParams
	case Testnet:
		return &chaincfg.TestNet3Params
	case Regtest:
		return &chaincfg.RegressionNetParams
	default:
		panic(fmt.Sprintf("unknown network %d", n))
	}
}

// String returns the name of the network.
func (n Network) String() string {
	return n.Params().Name
}
