// Package vamm stores reserve snapshots of the virtual AMM under one global
// counter. Appends move the counter forward; amends overwrite the slot at the
// current counter so several updates inside one block collapse into one.
package vamm

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/ethdb"

	"perpstate/pkg/fixed"
	"perpstate/pkg/ledger"
	"perpstate/pkg/twap"
)

var (
	ErrNotFound           = fmt.Errorf("vamm: %w", ledger.ErrNotFound)
	ErrNoSnapshot         = errors.New("vamm: no reserve snapshot recorded")
	ErrStaleBlockHeight   = errors.New("vamm: block height moves backward")
	ErrAlreadyInitialized = errors.New("vamm: snapshots already initialised")
)

var (
	counterKey     = ledger.Prefix("reserve_snapshot_counter")
	snapshotPrefix = ledger.Prefix("reserve_snapshot")
)

// ReserveSnapshot is the pool state observed at one block.
type ReserveSnapshot struct {
	QuoteAssetReserve fixed.Amount `json:"quoteAssetReserve"`
	BaseAssetReserve  fixed.Amount `json:"baseAssetReserve"`
	Timestamp         uint64       `json:"timestamp"`
	BlockHeight       uint64       `json:"blockHeight"`
}

// SpotPrice returns quote*unit/base, the price of one base unit in quote.
func (s ReserveSnapshot) SpotPrice(unit fixed.Amount) (fixed.Amount, error) {
	scaled, err := s.QuoteAssetReserve.Mul(unit)
	if err != nil {
		return fixed.Amount{}, err
	}
	return scaled.Div(s.BaseAssetReserve)
}

// SnapshotStore reads and writes reserve snapshots in the ledger.
type SnapshotStore struct {
	db ledger.Store
}

func NewSnapshotStore(db ledger.Store) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func snapshotKey(n uint64) []byte { return ledger.Uint64Key(snapshotPrefix, n) }

func counter(r ethdb.KeyValueReader) (uint64, error) {
	raw, err := ledger.Get(r, counterKey)
	if errors.Is(err, ledger.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return ledger.DecodeUint64(raw)
}

func readSnapshot(r ethdb.KeyValueReader, n uint64) (ReserveSnapshot, error) {
	var snap ReserveSnapshot
	if err := ledger.GetRLP(r, snapshotKey(n), &snap); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return ReserveSnapshot{}, fmt.Errorf("%w: snapshot %d", ErrNotFound, n)
		}
		return ReserveSnapshot{}, err
	}
	return snap, nil
}

// Counter returns the current counter; 0 means nothing was recorded yet.
func (s *SnapshotStore) Counter() (uint64, error) {
	return counter(s.db)
}

// Init records the snapshot taken when the pool is created. It is the
// append that takes the counter from 0 to 1.
func (s *SnapshotStore) Init(snap ReserveSnapshot) (uint64, error) {
	return s.InitWith(snap, nil)
}

// InitWith is Init with a precommit hook, see AppendSnapshotWith.
func (s *SnapshotStore) InitWith(snap ReserveSnapshot, precommit func(n uint64) error) (uint64, error) {
	n, err := counter(s.db)
	if err != nil {
		return 0, err
	}
	if n != 0 {
		return 0, fmt.Errorf("%w: counter=%d", ErrAlreadyInitialized, n)
	}
	return s.AppendSnapshotWith(snap, precommit)
}

// AppendSnapshot increments the counter and stores snap at the new value.
func (s *SnapshotStore) AppendSnapshot(snap ReserveSnapshot) (uint64, error) {
	return s.AppendSnapshotWith(snap, nil)
}

// AppendSnapshotWith is AppendSnapshot with a hook that sees the new counter
// before the commit. A hook error discards the transition.
func (s *SnapshotStore) AppendSnapshotWith(snap ReserveSnapshot, precommit func(n uint64) error) (uint64, error) {
	tx := ledger.Begin(s.db)
	n, err := counter(tx)
	if err != nil {
		tx.Discard()
		return 0, err
	}
	next := n + 1
	if next == 0 {
		tx.Discard()
		return 0, fmt.Errorf("%w: snapshot counter overflow", fixed.ErrArithmetic)
	}
	if err := ledger.PutRLP(tx, snapshotKey(next), snap); err != nil {
		tx.Discard()
		return 0, err
	}
	if err := tx.Put(counterKey, ledger.EncodeUint64(next)); err != nil {
		tx.Discard()
		return 0, fmt.Errorf("%w: %v", ledger.ErrStorage, err)
	}
	if precommit != nil {
		if err := precommit(next); err != nil {
			tx.Discard()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}

// AmendCurrentSnapshot overwrites the snapshot at the current counter.
func (s *SnapshotStore) AmendCurrentSnapshot(snap ReserveSnapshot) (uint64, error) {
	return s.AmendCurrentSnapshotWith(snap, nil)
}

// AmendCurrentSnapshotWith is AmendCurrentSnapshot with a precommit hook.
func (s *SnapshotStore) AmendCurrentSnapshotWith(snap ReserveSnapshot, precommit func(n uint64) error) (uint64, error) {
	n, err := counter(s.db)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNoSnapshot
	}
	current, err := readSnapshot(s.db, n)
	if err != nil {
		return 0, err
	}
	if snap.BlockHeight < current.BlockHeight {
		return 0, fmt.Errorf("%w: current=%d got=%d", ErrStaleBlockHeight, current.BlockHeight, snap.BlockHeight)
	}
	tx := ledger.Begin(s.db)
	if err := ledger.PutRLP(tx, snapshotKey(n), snap); err != nil {
		tx.Discard()
		return 0, err
	}
	if precommit != nil {
		if err := precommit(n); err != nil {
			tx.Discard()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// Record amends when snap belongs to the block of the current snapshot and
// appends otherwise.
func (s *SnapshotStore) Record(snap ReserveSnapshot) (n uint64, amended bool, err error) {
	return s.RecordWith(snap, nil)
}

// RecordWith is Record with a precommit hook that also learns which path
// was taken.
func (s *SnapshotStore) RecordWith(snap ReserveSnapshot, precommit func(n uint64, amended bool) error) (n uint64, amended bool, err error) {
	hook := func(amend bool) func(uint64) error {
		if precommit == nil {
			return nil
		}
		return func(n uint64) error { return precommit(n, amend) }
	}
	current, n, err := s.Latest()
	switch {
	case errors.Is(err, ErrNoSnapshot):
		n, err = s.AppendSnapshotWith(snap, hook(false))
		return n, false, err
	case err != nil:
		return 0, false, err
	case current.BlockHeight == snap.BlockHeight:
		n, err = s.AmendCurrentSnapshotWith(snap, hook(true))
		return n, true, err
	default:
		n, err = s.AppendSnapshotWith(snap, hook(false))
		return n, false, err
	}
}

// ReadSnapshot returns the snapshot stored at counter value n.
func (s *SnapshotStore) ReadSnapshot(n uint64) (ReserveSnapshot, error) {
	return readSnapshot(s.db, n)
}

// Latest returns the snapshot at the current counter.
func (s *SnapshotStore) Latest() (ReserveSnapshot, uint64, error) {
	n, err := counter(s.db)
	if err != nil {
		return ReserveSnapshot{}, 0, err
	}
	if n == 0 {
		return ReserveSnapshot{}, 0, ErrNoSnapshot
	}
	snap, err := readSnapshot(s.db, n)
	if err != nil {
		return ReserveSnapshot{}, 0, err
	}
	return snap, n, nil
}

// Series exposes the snapshots as spot prices at the given unit.
func (s *SnapshotStore) Series(unit fixed.Amount) twap.Series {
	return spotSeries{r: s.db, unit: unit}
}

// TWAP computes the time-weighted spot price over [now-interval, now].
func (s *SnapshotStore) TWAP(unit fixed.Amount, interval, now uint64) (fixed.Amount, error) {
	return twap.Compute(s.Series(unit), interval, now)
}

type spotSeries struct {
	r    ethdb.KeyValueReader
	unit fixed.Amount
}

func (s spotSeries) Len() (uint64, error) { return counter(s.r) }

func (s spotSeries) At(i uint64) (twap.Point, error) {
	snap, err := readSnapshot(s.r, i+1)
	if err != nil {
		return twap.Point{}, err
	}
	price, err := snap.SpotPrice(s.unit)
	if err != nil {
		return twap.Point{}, err
	}
	return twap.Point{Round: i + 1, Price: price, Timestamp: snap.Timestamp}, nil
}
