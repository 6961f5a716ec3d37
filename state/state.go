// Copyright (c) 2025 The btcbridge developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package state is the bridge's ledger: it tracks which account owns each
// UTXO, the pool of funds available for withdrawals, and the queue of
// pending retrieve requests waiting to be batched into a transaction.
package state

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/btcbridge/minter/address"
	"github.com/btcbridge/minter/coinselect"
	"github.com/btcbridge/minter/tx"
)

// DefaultMaxRequestsPerBatch caps how many retrieve requests a single batch
// may contain when the config does not say otherwise. Batches translate to
// transaction outputs, so the cap bounds the transaction size.
const DefaultMaxRequestsPerBatch = 100

// ErrUnknownUtxo is returned when a withdrawal names a UTXO the ledger does
// not hold.
var ErrUnknownUtxo = errors.New("utxo not found in the ledger")

// Account identifies a depositor. The zero Subaccount is the owner's
// default account.
type Account struct {
	// Owner is the textual principal of the account owner.
	Owner string

	// Subaccount distinguishes accounts of the same owner.
	Subaccount [32]byte
}

// String returns a compact description of the account.
func (a Account) String() string {
	return fmt.Sprintf("%s:%x", a.Owner, a.Subaccount[:4])
}

// RetrieveBtcStatus describes where a retrieve request currently is in its
// lifecycle, as far as the ledger can tell.
type RetrieveBtcStatus uint8

const (
	// StatusUnknown means the ledger holds no trace of the request:
	// either it never existed or batching already handed it off.
	StatusUnknown RetrieveBtcStatus = iota

	// StatusPending means the request sits in the queue waiting to be
	// included in a batch.
	StatusPending
)

// String returns a human-readable status name.
func (s RetrieveBtcStatus) String() string {
	switch s {
	case StatusUnknown:
		return "Unknown"
	case StatusPending:
		return "Pending"
	default:
		return fmt.Sprintf("RetrieveBtcStatus(%d)", uint8(s))
	}
}

// RetrieveBtcRequest is a queued withdrawal.
type RetrieveBtcRequest struct {
	// Amount is the requested payout in satoshi.
	Amount btcutil.Amount

	// Address is the payout destination.
	Address address.Address

	// RequestID identifies the request to the caller.
	RequestID uint64

	// ReceivedAt orders the queue; older requests batch first.
	ReceivedAt time.Time
}

// Config carries the ledger's operating parameters.
type Config struct {
	// Network is the Bitcoin network the ledger operates on.
	Network address.Network

	// RetrieveMinAmount is the smallest withdrawal the bridge accepts.
	RetrieveMinAmount btcutil.Amount

	// MaxRequestsPerBatch caps the batch size. Zero means
	// DefaultMaxRequestsPerBatch.
	MaxRequestsPerBatch int
}

// State is the ledger. It is not safe for concurrent use; the host
// serializes all access.
type State struct {
	cfg Config

	// available is the union of all per-account UTXO sets.
	available *coinselect.UtxoSet

	// utxoOwner maps each held outpoint to the account it is credited
	// to. A UTXO belongs to exactly one account.
	utxoOwner map[tx.OutPoint]Account

	// accountUtxos holds the per-account UTXO sets. Accounts with no
	// UTXOs have no entry.
	accountUtxos map[Account]*coinselect.UtxoSet

	// pending is the retrieve queue, sorted ascending by ReceivedAt.
	pending []RetrieveBtcRequest
}

// New creates an empty ledger with the given config, applying defaults.
func New(cfg Config) *State {
	if cfg.MaxRequestsPerBatch == 0 {
		cfg.MaxRequestsPerBatch = DefaultMaxRequestsPerBatch
	}

	return &State{
		cfg:          cfg,
		available:    coinselect.NewUtxoSet(),
		utxoOwner:    make(map[tx.OutPoint]Account),
		accountUtxos: make(map[Account]*coinselect.UtxoSet),
	}
}

// AddUtxos credits the UTXOs to the account and the global available pool.
// Outpoints the ledger already holds are skipped, so replaying a
// notification is harmless.
func (s *State) AddUtxos(account Account, utxos []coinselect.Utxo) {
	for _, utxo := range utxos {
		if _, held := s.utxoOwner[utxo.OutPoint]; held {
			log.Debugf("Skipping already credited utxo %v", utxo)
			continue
		}

		set, ok := s.accountUtxos[account]
		if !ok {
			set = coinselect.NewUtxoSet()
			s.accountUtxos[account] = set
		}

		set.Add(utxo)
		s.available.Add(utxo)
		s.utxoOwner[utxo.OutPoint] = account

		log.Debugf("Credited utxo %v to account %v", utxo, account)
	}
}

// WithdrawUtxos debits a committed input selection from the ledger. The
// UTXOs leave both the available pool and their owners' sets; ownership
// passes to the in-flight transaction. Fails without any mutation if a UTXO
// is unknown.
func (s *State) WithdrawUtxos(utxos []coinselect.Utxo) error {
	for _, utxo := range utxos {
		if _, held := s.utxoOwner[utxo.OutPoint]; !held {
			return fmt.Errorf("%w: %v", ErrUnknownUtxo, utxo)
		}
	}

	for _, utxo := range utxos {
		owner := s.utxoOwner[utxo.OutPoint]

		set := s.accountUtxos[owner]
		set.Remove(utxo)
		if set.Len() == 0 {
			delete(s.accountUtxos, owner)
		}

		s.available.Remove(utxo)
		delete(s.utxoOwner, utxo.OutPoint)
	}

	return nil
}

// AvailableValue returns the total value of the available pool.
func (s *State) AvailableValue() btcutil.Amount {
	return s.available.TotalValue()
}

// AvailableUtxos returns a snapshot of the available pool, for handing to
// the transaction builder.
func (s *State) AvailableUtxos() *coinselect.UtxoSet {
	return s.available.Clone()
}

// PushBackPendingRequest queues a retrieve request. The queue stays sorted
// by ReceivedAt even if the caller's clock briefly runs backwards.
func (s *State) PushBackPendingRequest(req RetrieveBtcRequest) {
	s.pending = append(s.pending, req)

	// Almost always already sorted; restore the order when it is not.
	n := len(s.pending)
	if n > 1 && s.pending[n-1].ReceivedAt.Before(s.pending[n-2].ReceivedAt) {
		sort.SliceStable(s.pending, func(i, j int) bool {
			return s.pending[i].ReceivedAt.Before(
				s.pending[j].ReceivedAt,
			)
		})
	}

	log.Debugf("Queued retrieve request %d for %v to %v", req.RequestID,
		req.Amount, req.Address)
}

// RetrieveBtcStatus reports the status of a request by ID: Pending while it
// sits in the queue, Unknown once batching removed it or if it never
// existed.
func (s *State) RetrieveBtcStatus(requestID uint64) RetrieveBtcStatus {
	for i := range s.pending {
		if s.pending[i].RequestID == requestID {
			return StatusPending
		}
	}

	return StatusUnknown
}

// PendingCount returns the number of queued requests.
func (s *State) PendingCount() int {
	return len(s.pending)
}

// BuildBatch removes and returns the next batch of retrieve requests,
// oldest first. A request whose amount would push the batch total past the
// currently available funds stays queued for a future batch; later, smaller
// requests may still be taken. The batch never exceeds the configured
// request cap.
func (s *State) BuildBatch() []RetrieveBtcRequest {
	availableValue := s.AvailableValue()

	var (
		batch     []RetrieveBtcRequest
		batchSum  btcutil.Amount
		remaining []RetrieveBtcRequest
	)

	for _, req := range s.pending {
		if len(batch) >= s.cfg.MaxRequestsPerBatch ||
			batchSum+req.Amount > availableValue {

			remaining = append(remaining, req)
			continue
		}

		batch = append(batch, req)
		batchSum += req.Amount
	}

	s.pending = remaining

	log.Infof("Built a batch of %d requests totalling %v, %d left "+
		"queued", len(batch), batchSum, len(remaining))

	return batch
}

// CheckInvariants validates the ledger's internal consistency. A failure is
// a bug, not a recoverable condition; tests call this after every mutation.
func (s *State) CheckInvariants() error {
	if s.available.Len() != len(s.utxoOwner) {
		return fmt.Errorf("available pool holds %d utxos but %d "+
			"outpoints are owned", s.available.Len(),
			len(s.utxoOwner))
	}

	var accountsTotal btcutil.Amount
	accountsLen := 0

	for account, set := range s.accountUtxos {
		if set.Len() == 0 {
			return fmt.Errorf("account %v has an empty utxo set",
				account)
		}

		for _, utxo := range set.Utxos() {
			if !s.available.Contains(utxo) {
				return fmt.Errorf("utxo %v of account %v "+
					"missing from the available pool",
					utxo, account)
			}

			owner, ok := s.utxoOwner[utxo.OutPoint]
			if !ok || owner != account {
				return fmt.Errorf("utxo %v credited to %v "+
					"but owned by %v", utxo, account,
					owner)
			}
		}

		accountsTotal += set.TotalValue()
		accountsLen += set.Len()
	}

	if accountsLen != s.available.Len() {
		return fmt.Errorf("accounts hold %d utxos, available pool "+
			"holds %d", accountsLen, s.available.Len())
	}

	if accountsTotal != s.available.TotalValue() {
		return fmt.Errorf("accounts hold %v, available pool holds %v",
			accountsTotal, s.available.TotalValue())
	}

	seenIDs := make(map[uint64]struct{}, len(s.pending))
	for i := range s.pending {
		if i > 0 && s.pending[i].ReceivedAt.Before(
			s.pending[i-1].ReceivedAt,
		) {

			return fmt.Errorf("pending queue out of order at "+
				"index %d", i)
		}

		id := s.pending[i].RequestID
		if _, dup := seenIDs[id]; dup {
			return fmt.Errorf("duplicate request id %d in the "+
				"pending queue", id)
		}
		seenIDs[id] = struct{}{}
	}

	return nil
}
