package pricefeed

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpstate/pkg/fixed"
	"perpstate/pkg/ledger"
	"perpstate/pkg/twap"
)

func amt(n uint64) fixed.Amount { return fixed.FromUint64(n) }

func TestAppendAssignsGaplessRoundIDs(t *testing.T) {
	s := NewStore(memorydb.New())

	for want := uint64(1); want <= 5; want++ {
		id, err := s.Append("ETH", amt(want*100), want*10)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	id, err := s.Append("BTC", amt(1), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id, "keys are numbered independently")

	n, err := s.Rounds("ETH")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
}

func TestLatestAndNthFromLatest(t *testing.T) {
	s := NewStore(memorydb.New())

	_, ok, err := s.Latest("ETH")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.AppendMultiple("ETH", []fixed.Amount{amt(100), amt(200), amt(300)}, []uint64{0, 10, 20})
	require.NoError(t, err)

	latest, ok, err := s.Latest("ETH")
	require.NoError(t, err)
	require.True(t, ok)

	nth0, err := s.NthFromLatest("ETH", 0)
	require.NoError(t, err)
	assert.Equal(t, latest, nth0)
	assert.Equal(t, uint64(3), latest.Round)

	nth2, err := s.NthFromLatest("ETH", 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nth2.Round)
	assert.Equal(t, "100", nth2.Price.String())

	_, err = s.NthFromLatest("ETH", 3)
	require.ErrorIs(t, err, ErrInsufficientHistory)
	_, err = s.PreviousPrice("ETH", 10)
	require.ErrorIs(t, err, ErrInsufficientHistory)

	prev, err := s.PreviousPrice("ETH", 1)
	require.NoError(t, err)
	assert.Equal(t, "200", prev.String())
}

func TestPriceNotFound(t *testing.T) {
	s := NewStore(memorydb.New())

	_, err := s.Price("ETH")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = s.Round("ETH", 1)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Round("ETH", 0)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Append("ETH", amt(7), 1)
	require.NoError(t, err)
	p, err := s.Price("ETH")
	require.NoError(t, err)
	assert.Equal(t, "7", p.String())
}

func TestAppendMultipleValidation(t *testing.T) {
	s := NewStore(memorydb.New())

	_, err := s.AppendMultiple("ETH", []fixed.Amount{amt(1)}, nil)
	require.ErrorIs(t, err, ErrBatchMismatch)
	_, err = s.AppendMultiple("ETH", nil, nil)
	require.ErrorIs(t, err, ErrBatchMismatch)
	_, err = s.Append("  ", amt(1), 1)
	require.ErrorIs(t, err, ErrInvalidKey)

	ids, err := s.AppendMultiple("ETH", []fixed.Amount{amt(1), amt(2)}, []uint64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids)
}

type failingBatch struct{ ethdb.Batch }

func (failingBatch) Write() error { return errors.New("disk full") }

type failingStore struct{ *memorydb.Database }

func (s failingStore) NewBatch() ethdb.Batch { return failingBatch{s.Database.NewBatch()} }

func TestAppendStorageFailureWritesNothing(t *testing.T) {
	db := memorydb.New()
	s := NewStore(failingStore{db})

	_, err := s.AppendMultiple("ETH", []fixed.Amount{amt(1), amt(2)}, []uint64{1, 2})
	require.ErrorIs(t, err, ledger.ErrStorage)
	assert.Equal(t, 0, db.Len())

	n, err := NewStore(db).Rounds("ETH")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTWAPOverStore(t *testing.T) {
	s := NewStore(memorydb.New())
	_, err := s.TWAP("ETH", 15, 20)
	require.ErrorIs(t, err, twap.ErrNoPriceData)

	_, err = s.AppendMultiple("ETH", []fixed.Amount{amt(100), amt(200), amt(300)}, []uint64{0, 10, 20})
	require.NoError(t, err)

	got, err := s.TWAP("ETH", 15, 20)
	require.NoError(t, err)
	assert.Equal(t, "166", got.String())

	_, err = s.TWAP("ETH", 0, 20)
	require.ErrorIs(t, err, twap.ErrInvalidInterval)
}

func TestSingleObservationTWAP(t *testing.T) {
	s := NewStore(memorydb.New())
	_, err := s.Append("ETH", amt(42), 100)
	require.NoError(t, err)

	for _, now := range []uint64{100, 101, 5000} {
		got, err := s.TWAP("ETH", 50, now)
		require.NoError(t, err)
		assert.Equal(t, "42", got.String())
	}
}

func TestKeys(t *testing.T) {
	s := NewStore(memorydb.New())
	for _, k := range []string{"SOL", "ETH", "BTC"} {
		_, err := s.Append(k, amt(1), 1)
		require.NoError(t, err)
	}
	_, err := s.Append("ETH", amt(2), 2)
	require.NoError(t, err)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, keys)
}

func TestAppendMultipleWithPrecommit(t *testing.T) {
	db := memorydb.New()
	s := NewStore(db)
	_, err := s.Append("ETH", amt(1), 1)
	require.NoError(t, err)

	var seen []uint64
	ids, err := s.AppendMultipleWith("ETH", []fixed.Amount{amt(2), amt(3)}, []uint64{2, 3}, func(ids []uint64) error {
		seen = append(seen, ids...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, ids)
	assert.Equal(t, ids, seen)

	refused := errors.New("journal full")
	_, err = s.AppendMultipleWith("ETH", []fixed.Amount{amt(4)}, []uint64{4}, func([]uint64) error { return refused })
	require.ErrorIs(t, err, refused)

	n, err := s.Rounds("ETH")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n, "a refused hook leaves the history untouched")
}
