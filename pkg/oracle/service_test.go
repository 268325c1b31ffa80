package oracle

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpstate/pkg/fixed"
	"perpstate/pkg/journal"
	"perpstate/pkg/pricefeed"
	"perpstate/pkg/twap"
	"perpstate/pkg/vamm"
)

type recordingPersistence struct {
	mu        sync.Mutex
	rounds    []pricefeed.Observation
	snapshots map[uint64]vamm.ReserveSnapshot
	err       error
}

func (p *recordingPersistence) RecordRound(_ context.Context, _ string, obs pricefeed.Observation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rounds = append(p.rounds, obs)
	return p.err
}

func (p *recordingPersistence) RecordSnapshot(_ context.Context, n uint64, snap vamm.ReserveSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snapshots == nil {
		p.snapshots = make(map[uint64]vamm.ReserveSnapshot)
	}
	p.snapshots[n] = snap
	return p.err
}

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	svc, err := NewService(memorydb.New(), opts)
	require.NoError(t, err)
	return svc
}

func mustAmount(t *testing.T, svc *Service, v string) fixed.Amount {
	t.Helper()
	a, err := svc.ParseAmount(v)
	require.NoError(t, err)
	return a
}

func TestServicePriceFlow(t *testing.T) {
	ctx := context.Background()
	persist := &recordingPersistence{}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	svc := newTestService(t, Options{Decimals: 6, Persistence: persist, Metrics: metrics})

	_, err := svc.Price("ETH")
	require.ErrorIs(t, err, pricefeed.ErrNotFound)

	id, err := svc.UpdatePrice(ctx, "ETH", mustAmount(t, svc, "100"), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	ids, err := svc.UpdatePrices(ctx, "ETH",
		[]fixed.Amount{mustAmount(t, svc, "200"), mustAmount(t, svc, "300")},
		[]uint64{10, 20})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, ids)

	latest, err := svc.Price("ETH")
	require.NoError(t, err)
	assert.Equal(t, "300", latest.Price.Format(6))

	prev, err := svc.PreviousPrice("ETH", 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), prev.Round)

	_, err = svc.PreviousPrice("ETH", 3)
	require.ErrorIs(t, err, pricefeed.ErrInsufficientHistory)

	got, err := svc.TWAP("ETH", 15, 20)
	require.NoError(t, err)
	assert.Equal(t, "166.666666", got.Format(6))

	_, err = svc.TWAP("ETH", 0, 20)
	require.ErrorIs(t, err, twap.ErrInvalidInterval)

	feeds, err := svc.Feeds()
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH"}, feeds)

	assert.Len(t, persist.rounds, 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.priceRounds.WithLabelValues("ETH")))
	assert.Equal(t, 300.0, testutil.ToFloat64(metrics.latestPrice.WithLabelValues("ETH")))
}

func TestServiceReserveFlow(t *testing.T) {
	ctx := context.Background()
	persist := &recordingPersistence{}
	metrics := NewMetrics(nil)
	svc := newTestService(t, Options{Decimals: 0, Persistence: persist, Metrics: metrics})

	_, err := svc.AmendSnapshot(ctx, vamm.ReserveSnapshot{BlockHeight: 1})
	require.ErrorIs(t, err, vamm.ErrNoSnapshot)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("reserve.amend")))

	snap := func(q, b, ts, h uint64) vamm.ReserveSnapshot {
		return vamm.ReserveSnapshot{QuoteAssetReserve: fixed.FromUint64(q), BaseAssetReserve: fixed.FromUint64(b), Timestamp: ts, BlockHeight: h}
	}

	n, err := svc.InitReserves(ctx, snap(1000, 10, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	n, amended, err := svc.RecordSnapshot(ctx, snap(1100, 10, 1, 1))
	require.NoError(t, err)
	assert.True(t, amended)
	assert.Equal(t, uint64(1), n)

	n, err = svc.AppendSnapshot(ctx, snap(2000, 10, 10, 2))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	spot, err := svc.SpotPrice()
	require.NoError(t, err)
	assert.Equal(t, "200", spot.String())

	current, counter, err := svc.CurrentSnapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), counter)
	assert.Equal(t, snap(2000, 10, 10, 2), current)

	first, err := svc.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, snap(1100, 10, 1, 1), first)

	// base = 20-15 = 5: spot 200 over t10..20, spot 110 over t5..10.
	avg, err := svc.ReserveTWAP(15, 20)
	require.NoError(t, err)
	assert.Equal(t, "170", avg.String())

	assert.Equal(t, snap(1100, 10, 1, 1), persist.snapshots[1])
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.snapshotCounter))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.snapshotWrites.WithLabelValues("amend")))
}

func TestServicePersistenceFailureDoesNotFailTransition(t *testing.T) {
	metrics := NewMetrics(nil)
	svc := newTestService(t, Options{Persistence: &recordingPersistence{err: errors.New("db down")}, Metrics: metrics})

	id, err := svc.UpdatePrice(context.Background(), "BTC", fixed.FromUint64(1), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.hookFailures.WithLabelValues("persistence")))
}

func TestJournalReplayRebuildsState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "transitions.msgpack")
	w, err := journal.Open(path)
	require.NoError(t, err)

	src := newTestService(t, Options{Journal: w})
	_, err = src.UpdatePrices(ctx, "ETH", []fixed.Amount{fixed.FromUint64(100), fixed.FromUint64(200)}, []uint64{0, 10})
	require.NoError(t, err)
	_, err = src.InitReserves(ctx, vamm.ReserveSnapshot{QuoteAssetReserve: fixed.FromUint64(10), BaseAssetReserve: fixed.FromUint64(1), BlockHeight: 1})
	require.NoError(t, err)
	_, err = src.AmendSnapshot(ctx, vamm.ReserveSnapshot{QuoteAssetReserve: fixed.FromUint64(12), BaseAssetReserve: fixed.FromUint64(1), BlockHeight: 1})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	dst := newTestService(t, Options{})
	require.NoError(t, journal.Replay(path, func(e journal.Entry) error {
		return dst.Apply(ctx, e)
	}))

	latest, err := dst.Price("ETH")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), latest.Round)
	assert.Equal(t, "200", latest.Price.String())

	snap, counter, err := dst.CurrentSnapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), counter)
	assert.Equal(t, "12", snap.QuoteAssetReserve.String())
}

func TestApplyRejectsOutOfSequenceEntries(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Options{})

	err := svc.Apply(ctx, journal.Entry{Seq: 1, Kind: journal.KindPriceAppend, Key: "ETH", RoundID: 2, Price: "1"})
	require.ErrorIs(t, err, ErrJournalMismatch)

	err = svc.Apply(ctx, journal.Entry{Seq: 2, Kind: "bogus"})
	require.Error(t, err)

	err = svc.Apply(ctx, journal.Entry{Seq: 3, Kind: journal.KindReserveAppend, Quote: "x", Base: "1"})
	require.ErrorIs(t, err, fixed.ErrInvalid)
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(nil, Options{})
	require.Error(t, err)
	_, err = NewService(memorydb.New(), Options{Decimals: MaxDecimals + 1})
	require.Error(t, err)

	at := time.Unix(1_700_000_000, 0)
	svc := newTestService(t, Options{Clock: func() time.Time { return at }})
	assert.Equal(t, uint64(1_700_000_000), svc.Now())
	assert.Equal(t, "1", svc.Unit().String())
}

func TestWriteAheadJournalFailureRejectsTransition(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "transitions.msgpack")
	w, err := journal.Open(path)
	require.NoError(t, err)
	metrics := NewMetrics(nil)
	svc := newTestService(t, Options{Journal: w, WriteAhead: true, Metrics: metrics})

	_, err = svc.UpdatePrice(ctx, "ETH", fixed.FromUint64(100), 1)
	require.NoError(t, err)
	_, err = svc.InitReserves(ctx, vamm.ReserveSnapshot{QuoteAssetReserve: fixed.FromUint64(10), BaseAssetReserve: fixed.FromUint64(1), BlockHeight: 1})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = svc.UpdatePrices(ctx, "ETH", []fixed.Amount{fixed.FromUint64(200), fixed.FromUint64(300)}, []uint64{2, 3})
	require.ErrorIs(t, err, ErrJournal)
	_, err = svc.AppendSnapshot(ctx, vamm.ReserveSnapshot{QuoteAssetReserve: fixed.FromUint64(20), BaseAssetReserve: fixed.FromUint64(1), BlockHeight: 2})
	require.ErrorIs(t, err, ErrJournal)
	_, err = svc.AmendSnapshot(ctx, vamm.ReserveSnapshot{QuoteAssetReserve: fixed.FromUint64(30), BaseAssetReserve: fixed.FromUint64(1), BlockHeight: 1})
	require.ErrorIs(t, err, ErrJournal)
	_, _, err = svc.RecordSnapshot(ctx, vamm.ReserveSnapshot{QuoteAssetReserve: fixed.FromUint64(40), BaseAssetReserve: fixed.FromUint64(1), BlockHeight: 3})
	require.ErrorIs(t, err, ErrJournal)
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.hookFailures.WithLabelValues("journal")))

	rounds, err := svc.Rounds("ETH")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rounds, "rejected rounds are not committed")
	current, counter, err := svc.CurrentSnapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), counter)
	assert.Equal(t, "10", current.QuoteAssetReserve.String())

	// The journal still matches the ledger, so a restart replays cleanly.
	restored := newTestService(t, Options{})
	require.NoError(t, journal.Replay(path, func(e journal.Entry) error {
		return restored.Apply(ctx, e)
	}))
	latest, err := restored.Price("ETH")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), latest.Round)
	_, counter, err = restored.CurrentSnapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), counter)
}

func TestJournalFailureWithoutWriteAheadIsLogged(t *testing.T) {
	w, err := journal.Open(filepath.Join(t.TempDir(), "transitions.msgpack"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	metrics := NewMetrics(nil)
	svc := newTestService(t, Options{Journal: w, Metrics: metrics})

	id, err := svc.UpdatePrice(context.Background(), "ETH", fixed.FromUint64(100), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.hookFailures.WithLabelValues("journal")))
}
