// Copyright (c) 2025 The btcbridge developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package builder assembles unsigned withdrawal transactions: it selects
// inputs, sizes the transaction with trial signatures, and apportions the
// miner fee across the requested outputs.
package builder

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/btcbridge/minter/address"
	"github.com/btcbridge/minter/coinselect"
	"github.com/btcbridge/minter/pkg/btcunit"
	"github.com/btcbridge/minter/signature"
	"github.com/btcbridge/minter/tx"
)

// MinChange is the smallest change output the builder will create, in
// satoshi. A change output below this value would be dust, so instead of
// creating one the shortfall is charged to the requested outputs along with
// the fee.
const MinChange btcutil.Amount = 333

var (
	// ErrNotEnoughFunds is returned when the available UTXOs cannot
	// cover the requested total.
	ErrNotEnoughFunds = errors.New("not enough funds to cover the " +
		"requested amount")

	// ErrAmountTooLow is returned when the miner fee exceeds the
	// requested total, so no request can cover even its own fee share.
	ErrAmountTooLow = errors.New("requested amount is too low to cover " +
		"the transaction fee")
)

// ZeroOutputError is returned when charging an output its fee share would
// drive its value to zero or below. It carries the offending request so the
// caller can report which payout failed.
type ZeroOutputError struct {
	// Address is the destination of the request that cannot pay its
	// share.
	Address address.Address

	// Amount is the originally requested amount.
	Amount btcutil.Amount
}

// Error implements the error interface.
func (e *ZeroOutputError) Error() string {
	return fmt.Sprintf("fee share zeroes out the %v output requesting %v",
		e.Address, e.Amount)
}

// Request is a single payout a withdrawal transaction must make.
type Request struct {
	// Address is the destination of the payout.
	Address address.Address

	// Amount is the requested payout value in satoshi. The fee share is
	// deducted from this amount, not added on top.
	Amount btcutil.Amount
}

// ChangeOutput describes the change output of a built transaction, so the
// caller can track the change UTXO once the transaction confirms.
type ChangeOutput struct {
	// Vout is the index of the change output in the transaction.
	Vout uint32

	// Value is the change value in satoshi.
	Value btcutil.Amount
}

// BuildUnsignedTransaction builds an unsigned transaction paying the given
// requests, with inputs selected greedily from available and any surplus
// returned to changeAddr. The fee, computed from the trial-signed virtual
// size at the given rate, is deducted evenly from the requested amounts.
//
// A change output is created whenever the selected inputs exceed the
// requested total. If the surplus is below MinChange the change output is
// pinned to MinChange and the shortfall is charged to the requests together
// with the fee.
//
// On success the selected UTXOs are removed from available and returned
// alongside the transaction and its change descriptor. On any error the
// available set is left exactly as it was.
func BuildUnsignedTransaction(available *coinselect.UtxoSet,
	requests []Request, changeAddr address.Address,
	feeRate btcunit.SatPerKVByte) (*tx.UnsignedTransaction,
	fn.Option[ChangeOutput], []coinselect.Utxo, error) {

	none := fn.None[ChangeOutput]()

	var target btcutil.Amount
	for i := range requests {
		target += requests[i].Amount
	}

	// Selection runs against a clone; the clone replaces the caller's
	// set only once the whole build has succeeded.
	working := available.Clone()

	selected := coinselect.Greedy(target, working)
	if len(selected) == 0 {
		return nil, none, nil, ErrNotEnoughFunds
	}

	var inputsValue btcutil.Amount
	inputs := make([]tx.UnsignedInput, len(selected))
	for i, utxo := range selected {
		inputsValue += utxo.Value
		inputs[i] = tx.UnsignedInput{
			PreviousOutput: utxo.OutPoint,
			Value:          utxo.Value,
			Sequence:       tx.DefaultSequence,
		}
	}

	outputs := make([]tx.TxOut, 0, len(requests)+1)
	for i := range requests {
		outputs = append(outputs, tx.TxOut{
			Value:   requests[i].Amount,
			Address: requests[i].Address,
		})
	}

	// Any surplus becomes change, never less than MinChange. The
	// difference between the change value and the actual surplus is
	// charged to the requests below, together with the fee.
	surplus := inputsValue - target

	var changeValue btcutil.Amount
	if surplus > 0 {
		changeValue = surplus
		if changeValue < MinChange {
			changeValue = MinChange
		}

		outputs = append(outputs, tx.TxOut{
			Value:   changeValue,
			Address: changeAddr,
		})
	}

	unsigned := &tx.UnsignedTransaction{
		Inputs:  inputs,
		Outputs: outputs,
	}

	vsize := btcunit.NewVByte(FakeSign(unsigned).Vsize())
	fee := feeRate.FeeForVByte(vsize)

	log.Debugf("Built transaction draft: %d inputs (%v), %d outputs, "+
		"vsize=%v, fee=%v", len(inputs), inputsValue, len(outputs),
		vsize, fee)

	if fee > target {
		return nil, none, nil, ErrAmountTooLow
	}

	shares := btcunit.Distribute(
		uint64(fee+changeValue-surplus), uint64(len(requests)),
	)
	for i, share := range shares {
		if btcutil.Amount(share) >= requests[i].Amount {
			return nil, none, nil, &ZeroOutputError{
				Address: requests[i].Address,
				Amount:  requests[i].Amount,
			}
		}

		unsigned.Outputs[i].Value -= btcutil.Amount(share)
	}

	// Commit: the caller's set now reflects the consumed selection.
	available.Swap(working)

	change := none
	if changeValue > 0 {
		change = fn.Some(ChangeOutput{
			Vout:  uint32(len(requests)),
			Value: changeValue,
		})
	}

	return unsigned, change, selected, nil
}

// FakeSign converts an unsigned transaction into a signed one carrying
// placeholder witnesses of the exact final byte length. The result sizes
// correctly but must never be broadcast; real witnesses replace the
// placeholders after the external signer returns.
func FakeSign(unsigned *tx.UnsignedTransaction) *tx.SignedTransaction {
	signed := &tx.SignedTransaction{
		Inputs:   make([]tx.SignedInput, len(unsigned.Inputs)),
		Outputs:  unsigned.Outputs,
		LockTime: unsigned.LockTime,
	}

	for i := range unsigned.Inputs {
		signed.Inputs[i] = tx.SignedInput{
			PreviousOutput: unsigned.Inputs[i].PreviousOutput,
			Sequence:       unsigned.Inputs[i].Sequence,
			Signature:      signature.Placeholder(),
			PubKey:         make([]byte, tx.PubKeyLen),
		}
	}

	return signed
}
