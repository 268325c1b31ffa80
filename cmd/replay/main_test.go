package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpstate/pkg/fixed"
	"perpstate/pkg/journal"
	"perpstate/pkg/ledger"
	"perpstate/pkg/oracle"
	"perpstate/pkg/vamm"
)

func TestRebuildIntoLevelDB(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "transitions.msgpack")

	w, err := journal.Open(path)
	require.NoError(t, err)
	src, err := oracle.NewService(memorydb.New(), oracle.Options{Journal: w})
	require.NoError(t, err)
	_, err = src.UpdatePrices(ctx, "ETH", []fixed.Amount{fixed.FromUint64(1), fixed.FromUint64(2)}, []uint64{1, 2})
	require.NoError(t, err)
	_, err = src.InitReserves(ctx, vamm.ReserveSnapshot{QuoteAssetReserve: fixed.FromUint64(5), BaseAssetReserve: fixed.FromUint64(1), BlockHeight: 1})
	require.NoError(t, err)
	_, _, err = src.RecordSnapshot(ctx, vamm.ReserveSnapshot{QuoteAssetReserve: fixed.FromUint64(6), BaseAssetReserve: fixed.FromUint64(1), BlockHeight: 1})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	out := ledger.Config{Backend: ledger.BackendLevelDB, Path: filepath.Join(dir, "ledger"), CacheMB: 16, Handles: 16}
	st, err := rebuild(ctx, path, out, 0)
	require.NoError(t, err)
	assert.Equal(t, stats{Entries: 4, Rounds: 2, Snapshots: 2, LastSeq: 4}, st)

	db, err := ledger.Open(out)
	require.NoError(t, err)
	defer db.Close()
	o, err := oracle.NewService(db, oracle.Options{})
	require.NoError(t, err)
	latest, err := o.Price("ETH")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), latest.Round)
	snap, counter, err := o.CurrentSnapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), counter)
	assert.Equal(t, "6", snap.QuoteAssetReserve.String())
}

func TestRebuildMissingJournal(t *testing.T) {
	dir := t.TempDir()
	_, err := rebuild(context.Background(), filepath.Join(dir, "absent"), ledger.Config{Backend: ledger.BackendMemory}, 0)
	require.Error(t, err)
}
