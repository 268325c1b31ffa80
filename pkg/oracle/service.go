// Package oracle is the single-writer facade over the price history and the
// reserve snapshots. Every query and update runs as one transition under the
// service lock; committed writes then fan out to the journal, the archive
// mirror and metrics.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/pkg/fixed"
	"perpstate/pkg/journal"
	"perpstate/pkg/ledger"
	"perpstate/pkg/pricefeed"
	"perpstate/pkg/vamm"
)

var (
	// ErrJournalMismatch is returned by Apply when an entry does not land on
	// the id or counter it was recorded with.
	ErrJournalMismatch = errors.New("oracle: journal entry out of sequence")
	// ErrJournal is returned by write-ahead transitions whose journal entry
	// could not be written. The ledger is left untouched.
	ErrJournal = errors.New("oracle: journal write failed")
)

// Persistence mirrors committed state to an external archive. Failures are
// logged, never returned to the caller of the transition.
type Persistence interface {
	RecordRound(ctx context.Context, feed string, obs pricefeed.Observation) error
	RecordSnapshot(ctx context.Context, counter uint64, snap vamm.ReserveSnapshot) error
}

// Options wires the optional collaborators.
type Options struct {
	Decimals    int32
	Journal     *journal.Writer
	Persistence Persistence
	Metrics     *Metrics
	Clock       func() time.Time

	// WriteAhead journals each transition before committing it and fails
	// the transition when the journal write fails. Set it when the journal
	// is the only durable copy of the ledger.
	WriteAhead bool
}

type Service struct {
	mu sync.Mutex

	prices    *pricefeed.Store
	snapshots *vamm.SnapshotStore

	decimals   int32
	unit       fixed.Amount
	journal    *journal.Writer
	writeAhead bool
	persist    Persistence
	metrics    *Metrics
	clock      func() time.Time
}

// NewService builds a service over db.
func NewService(db ledger.Store, opts Options) (*Service, error) {
	if db == nil {
		return nil, errors.New("oracle: nil ledger")
	}
	if opts.Decimals < 0 || opts.Decimals > MaxDecimals {
		return nil, fmt.Errorf("oracle: decimals must be within [0,%d], got %d", MaxDecimals, opts.Decimals)
	}
	unit, err := fixed.Unit(opts.Decimals)
	if err != nil {
		return nil, err
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		prices:     pricefeed.NewStore(db),
		snapshots:  vamm.NewSnapshotStore(db),
		decimals:   opts.Decimals,
		unit:       unit,
		journal:    opts.Journal,
		writeAhead: opts.WriteAhead && opts.Journal != nil,
		persist:    opts.Persistence,
		metrics:    opts.Metrics,
		clock:      clock,
	}, nil
}

// Decimals is the scale applied to decimal inputs.
func (s *Service) Decimals() int32 { return s.decimals }

// Unit is 1.0 at the configured scale.
func (s *Service) Unit() fixed.Amount { return s.unit }

// Now returns the service clock in unix seconds.
func (s *Service) Now() uint64 {
	sec := s.clock().Unix()
	if sec < 0 {
		return 0
	}
	return uint64(sec)
}

// ParseAmount scales a decimal string ("1850.25") to the configured decimals.
func (s *Service) ParseAmount(v string) (fixed.Amount, error) {
	return fixed.FromDecimal(v, s.decimals)
}

// UpdatePrice appends one round and returns its id.
func (s *Service) UpdatePrice(ctx context.Context, key string, price fixed.Amount, ts uint64) (uint64, error) {
	ids, err := s.UpdatePrices(ctx, key, []fixed.Amount{price}, []uint64{ts})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// UpdatePrices appends a batch of rounds atomically.
func (s *Service) UpdatePrices(ctx context.Context, key string, prices []fixed.Amount, timestamps []uint64) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var precommit func([]uint64) error
	if s.writeAhead {
		precommit = func(ids []uint64) error {
			return s.journalRounds(key, ids, prices, timestamps)
		}
	}
	ids, err := s.prices.AppendMultipleWith(key, prices, timestamps, precommit)
	if err != nil {
		s.metrics.observeFailure("price.append")
		return nil, err
	}
	if s.journal != nil && !s.writeAhead {
		if err := s.journalRounds(key, ids, prices, timestamps); err != nil {
			logx.WithContext(ctx).Errorf("oracle: journal rounds feed=%s ids=%v err=%v", key, ids, err)
		}
	}
	for i, id := range ids {
		s.afterRound(ctx, key, pricefeed.Observation{Round: id, Price: prices[i], Timestamp: timestamps[i]}, true)
	}
	return ids, nil
}

// InitReserves stores the pool's first snapshot.
func (s *Service) InitReserves(ctx context.Context, snap vamm.ReserveSnapshot) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.snapshots.InitWith(snap, s.snapshotPrecommit(journal.KindReserveAppend, snap))
	if err != nil {
		s.metrics.observeFailure("reserve.init")
		return 0, err
	}
	s.afterSnapshot(ctx, journal.KindReserveAppend, n, snap, true)
	return n, nil
}

// AppendSnapshot stores snap under a new counter value.
func (s *Service) AppendSnapshot(ctx context.Context, snap vamm.ReserveSnapshot) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.snapshots.AppendSnapshotWith(snap, s.snapshotPrecommit(journal.KindReserveAppend, snap))
	if err != nil {
		s.metrics.observeFailure("reserve.append")
		return 0, err
	}
	s.afterSnapshot(ctx, journal.KindReserveAppend, n, snap, true)
	return n, nil
}

// AmendSnapshot overwrites the snapshot at the current counter.
func (s *Service) AmendSnapshot(ctx context.Context, snap vamm.ReserveSnapshot) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.snapshots.AmendCurrentSnapshotWith(snap, s.snapshotPrecommit(journal.KindReserveAmend, snap))
	if err != nil {
		s.metrics.observeFailure("reserve.amend")
		return 0, err
	}
	s.afterSnapshot(ctx, journal.KindReserveAmend, n, snap, true)
	return n, nil
}

// RecordSnapshot amends when snap shares the current block height and
// appends otherwise.
func (s *Service) RecordSnapshot(ctx context.Context, snap vamm.ReserveSnapshot) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var precommit func(uint64, bool) error
	if s.writeAhead {
		precommit = func(n uint64, amended bool) error {
			return s.journalSnapshot(snapshotKind(amended), n, snap)
		}
	}
	n, amended, err := s.snapshots.RecordWith(snap, precommit)
	if err != nil {
		s.metrics.observeFailure("reserve.record")
		return 0, false, err
	}
	s.afterSnapshot(ctx, snapshotKind(amended), n, snap, true)
	return n, amended, nil
}

func snapshotKind(amended bool) journal.Kind {
	if amended {
		return journal.KindReserveAmend
	}
	return journal.KindReserveAppend
}

func (s *Service) snapshotPrecommit(kind journal.Kind, snap vamm.ReserveSnapshot) func(uint64) error {
	if !s.writeAhead {
		return nil
	}
	return func(n uint64) error { return s.journalSnapshot(kind, n, snap) }
}

// Apply replays one journal entry without journaling it again.
func (s *Service) Apply(ctx context.Context, e journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e.Kind {
	case journal.KindPriceAppend:
		price, err := fixed.Parse(e.Price)
		if err != nil {
			return fmt.Errorf("oracle: entry %d: %w", e.Seq, err)
		}
		id, err := s.prices.Append(e.Key, price, e.Timestamp)
		if err != nil {
			return err
		}
		if e.RoundID != 0 && id != e.RoundID {
			return fmt.Errorf("%w: entry %d wants round %d of %s, got %d", ErrJournalMismatch, e.Seq, e.RoundID, e.Key, id)
		}
		s.afterRound(ctx, e.Key, pricefeed.Observation{Round: id, Price: price, Timestamp: e.Timestamp}, false)
		return nil
	case journal.KindReserveAppend, journal.KindReserveAmend:
		snap, err := snapshotFromEntry(e)
		if err != nil {
			return err
		}
		var n uint64
		if e.Kind == journal.KindReserveAppend {
			n, err = s.snapshots.AppendSnapshot(snap)
		} else {
			n, err = s.snapshots.AmendCurrentSnapshot(snap)
		}
		if err != nil {
			return err
		}
		if e.Counter != 0 && n != e.Counter {
			return fmt.Errorf("%w: entry %d wants counter %d, got %d", ErrJournalMismatch, e.Seq, e.Counter, n)
		}
		s.afterSnapshot(ctx, e.Kind, n, snap, false)
		return nil
	default:
		return fmt.Errorf("oracle: entry %d has unknown kind %q", e.Seq, e.Kind)
	}
}

func snapshotFromEntry(e journal.Entry) (vamm.ReserveSnapshot, error) {
	quote, err := fixed.Parse(e.Quote)
	if err != nil {
		return vamm.ReserveSnapshot{}, fmt.Errorf("oracle: entry %d quote: %w", e.Seq, err)
	}
	base, err := fixed.Parse(e.Base)
	if err != nil {
		return vamm.ReserveSnapshot{}, fmt.Errorf("oracle: entry %d base: %w", e.Seq, err)
	}
	return vamm.ReserveSnapshot{
		QuoteAssetReserve: quote,
		BaseAssetReserve:  base,
		Timestamp:         e.Timestamp,
		BlockHeight:       e.BlockHeight,
	}, nil
}

func (s *Service) journalRounds(key string, ids []uint64, prices []fixed.Amount, timestamps []uint64) error {
	entries := make([]*journal.Entry, len(ids))
	for i, id := range ids {
		entries[i] = &journal.Entry{
			Kind:      journal.KindPriceAppend,
			Key:       key,
			RoundID:   id,
			Price:     prices[i].String(),
			Timestamp: timestamps[i],
		}
	}
	if _, err := s.journal.WriteBatch(entries); err != nil {
		s.metrics.observeHookFailure("journal")
		return fmt.Errorf("%w: %v", ErrJournal, err)
	}
	return nil
}

func (s *Service) journalSnapshot(kind journal.Kind, n uint64, snap vamm.ReserveSnapshot) error {
	_, err := s.journal.Write(&journal.Entry{
		Kind:        kind,
		Counter:     n,
		Quote:       snap.QuoteAssetReserve.String(),
		Base:        snap.BaseAssetReserve.String(),
		Timestamp:   snap.Timestamp,
		BlockHeight: snap.BlockHeight,
	})
	if err != nil {
		s.metrics.observeHookFailure("journal")
		return fmt.Errorf("%w: %v", ErrJournal, err)
	}
	return nil
}

// afterRound updates metrics and, for live transitions, the archive mirror.
func (s *Service) afterRound(ctx context.Context, key string, obs pricefeed.Observation, record bool) {
	price, _ := obs.Price.Decimal(s.decimals).Float64()
	s.metrics.observeRound(key, price)
	if !record || s.persist == nil {
		return
	}
	if err := s.persist.RecordRound(ctx, key, obs); err != nil {
		s.metrics.observeHookFailure("persistence")
		logx.WithContext(ctx).Errorf("oracle: persist round feed=%s round=%d err=%v", key, obs.Round, err)
	}
}

// afterSnapshot is afterRound for reserve snapshots. Without write-ahead the
// journal is appended here, after the commit.
func (s *Service) afterSnapshot(ctx context.Context, kind journal.Kind, n uint64, snap vamm.ReserveSnapshot, record bool) {
	mode := "append"
	if kind == journal.KindReserveAmend {
		mode = "amend"
	}
	s.metrics.observeSnapshot(mode, n)
	if !record {
		return
	}
	if s.journal != nil && !s.writeAhead {
		if err := s.journalSnapshot(kind, n, snap); err != nil {
			logx.WithContext(ctx).Errorf("oracle: journal snapshot counter=%d err=%v", n, err)
		}
	}
	if s.persist != nil {
		if err := s.persist.RecordSnapshot(ctx, n, snap); err != nil {
			s.metrics.observeHookFailure("persistence")
			logx.WithContext(ctx).Errorf("oracle: persist snapshot counter=%d err=%v", n, err)
		}
	}
}
