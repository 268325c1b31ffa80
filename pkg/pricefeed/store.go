// Package pricefeed keeps the per-asset price history: an append-only list
// of rounds numbered from 1 with no gaps.
package pricefeed

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/ethdb"

	"perpstate/pkg/fixed"
	"perpstate/pkg/ledger"
	"perpstate/pkg/twap"
)

var (
	ErrNotFound            = fmt.Errorf("pricefeed: %w", ledger.ErrNotFound)
	ErrInsufficientHistory = errors.New("pricefeed: insufficient history")
	ErrBatchMismatch       = errors.New("pricefeed: prices and timestamps differ in length")
	ErrInvalidKey          = errors.New("pricefeed: empty key")
)

const namespace = "price"

var (
	rootPrefix = ledger.Prefix(namespace)
	headSuffix = byte('h')
	roundTag   = byte('r')
)

// Observation is one recorded round.
type Observation = twap.Point

type roundRecord struct {
	Price     fixed.Amount
	Timestamp uint64
}

// Store reads and writes price history in the ledger.
type Store struct {
	db ledger.Store
}

func NewStore(db ledger.Store) *Store {
	return &Store{db: db}
}

func feedPrefix(key string) []byte { return ledger.Prefix(namespace, key) }

func headKey(key string) []byte { return ledger.Key(feedPrefix(key), headSuffix) }

func roundKey(key string, id uint64) []byte {
	return ledger.Uint64Key(ledger.Key(feedPrefix(key), roundTag), id)
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}

func rounds(r ethdb.KeyValueReader, key string) (uint64, error) {
	raw, err := ledger.Get(r, headKey(key))
	if errors.Is(err, ledger.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return ledger.DecodeUint64(raw)
}

func readRound(r ethdb.KeyValueReader, key string, id uint64) (Observation, error) {
	var rec roundRecord
	if err := ledger.GetRLP(r, roundKey(key, id), &rec); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return Observation{}, fmt.Errorf("%w: %s round %d", ErrNotFound, key, id)
		}
		return Observation{}, err
	}
	return Observation{Round: id, Price: rec.Price, Timestamp: rec.Timestamp}, nil
}

func appendRound(tx *ledger.Transition, key string, price fixed.Amount, ts uint64) (uint64, error) {
	n, err := rounds(tx, key)
	if err != nil {
		return 0, err
	}
	id := n + 1
	if id == 0 {
		return 0, fmt.Errorf("%w: round id overflow for %s", fixed.ErrArithmetic, key)
	}
	if err := ledger.PutRLP(tx, roundKey(key, id), roundRecord{Price: price, Timestamp: ts}); err != nil {
		return 0, err
	}
	if err := tx.Put(headKey(key), ledger.EncodeUint64(id)); err != nil {
		return 0, fmt.Errorf("%w: %v", ledger.ErrStorage, err)
	}
	return id, nil
}

// Append records a new round and returns its id (1 for the first round).
func (s *Store) Append(key string, price fixed.Amount, ts uint64) (uint64, error) {
	ids, err := s.AppendMultiple(key, []fixed.Amount{price}, []uint64{ts})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// AppendMultiple records several rounds in one transition: either every
// round is stored or none is.
func (s *Store) AppendMultiple(key string, prices []fixed.Amount, timestamps []uint64) ([]uint64, error) {
	return s.AppendMultipleWith(key, prices, timestamps, nil)
}

// AppendMultipleWith is AppendMultiple with a hook that sees the assigned
// ids before the commit. A hook error discards the transition.
func (s *Store) AppendMultipleWith(key string, prices []fixed.Amount, timestamps []uint64, precommit func(ids []uint64) error) ([]uint64, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if len(prices) == 0 || len(prices) != len(timestamps) {
		return nil, fmt.Errorf("%w: prices=%d timestamps=%d", ErrBatchMismatch, len(prices), len(timestamps))
	}
	tx := ledger.Begin(s.db)
	ids := make([]uint64, 0, len(prices))
	for i := range prices {
		id, err := appendRound(tx, key, prices[i], timestamps[i])
		if err != nil {
			tx.Discard()
			return nil, err
		}
		ids = append(ids, id)
	}
	if precommit != nil {
		if err := precommit(ids); err != nil {
			tx.Discard()
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Rounds returns the number of recorded rounds, which is also the latest id.
func (s *Store) Rounds(key string) (uint64, error) {
	return rounds(s.db, key)
}

// Latest returns the newest round; ok is false when the key has no history.
func (s *Store) Latest(key string) (obs Observation, ok bool, err error) {
	n, err := rounds(s.db, key)
	if err != nil || n == 0 {
		return Observation{}, false, err
	}
	obs, err = readRound(s.db, key, n)
	if err != nil {
		return Observation{}, false, err
	}
	return obs, true, nil
}

// NthFromLatest returns the round k steps before the latest; k=0 is the latest.
func (s *Store) NthFromLatest(key string, k uint64) (Observation, error) {
	n, err := rounds(s.db, key)
	if err != nil {
		return Observation{}, err
	}
	if k >= n {
		return Observation{}, fmt.Errorf("%w: %s has %d rounds, asked %d back", ErrInsufficientHistory, key, n, k)
	}
	return readRound(s.db, key, n-k)
}

// Round returns the round with the given id.
func (s *Store) Round(key string, id uint64) (Observation, error) {
	if id == 0 {
		return Observation{}, fmt.Errorf("%w: %s round 0", ErrNotFound, key)
	}
	return readRound(s.db, key, id)
}

// Price returns the latest price, or ErrNotFound on empty history.
func (s *Store) Price(key string) (fixed.Amount, error) {
	obs, ok, err := s.Latest(key)
	if err != nil {
		return fixed.Amount{}, err
	}
	if !ok {
		return fixed.Amount{}, fmt.Errorf("%w: no prices for %s", ErrNotFound, key)
	}
	return obs.Price, nil
}

// PreviousPrice returns the price roundsBack rounds before the latest.
func (s *Store) PreviousPrice(key string, roundsBack uint64) (fixed.Amount, error) {
	obs, err := s.NthFromLatest(key, roundsBack)
	if err != nil {
		return fixed.Amount{}, err
	}
	return obs.Price, nil
}

// TWAP computes the time-weighted average over [now-interval, now].
func (s *Store) TWAP(key string, interval, now uint64) (fixed.Amount, error) {
	return twap.Compute(s.History(key), interval, now)
}

// History exposes the rounds of key as a lazily read series.
func (s *Store) History(key string) twap.Series {
	return history{r: s.db, key: key}
}

type history struct {
	r   ethdb.KeyValueReader
	key string
}

func (h history) Len() (uint64, error) { return rounds(h.r, h.key) }

func (h history) At(i uint64) (twap.Point, error) { return readRound(h.r, h.key, i+1) }

// Keys lists every asset key with at least one round, sorted.
func (s *Store) Keys() ([]string, error) {
	it, ok := s.db.(ethdb.Iteratee)
	if !ok {
		return nil, fmt.Errorf("%w: store does not support iteration", ledger.ErrStorage)
	}
	iter := it.NewIterator(rootPrefix, nil)
	defer iter.Release()

	var keys []string
	for iter.Next() {
		feed, rest, ok := ledger.SplitPrefix(iter.Key()[len(rootPrefix):])
		if ok && len(rest) == 1 && rest[0] == headSuffix {
			keys = append(keys, feed)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%w: iterate: %v", ledger.ErrStorage, err)
	}
	sort.Strings(keys)
	return keys, nil
}
