package svc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachekeys "perpstate/internal/cache"
	"perpstate/internal/config"
	"perpstate/pkg/fixed"
	"perpstate/pkg/ledger"
	oraclepkg "perpstate/pkg/oracle"
)

func testConfig(t *testing.T, journalPath string) config.Config {
	t.Helper()
	cfg := config.Config{
		Env:    "test",
		Ledger: ledger.Config{Backend: ledger.BackendMemory},
		TTL:    config.CacheTTL{Short: 10, Medium: 60, Long: 300},
	}
	oracleCfg := oraclepkg.DefaultConfig()
	oracleCfg.Journal.Path = journalPath
	cfg.Oracle.Value = oracleCfg
	return cfg
}

func TestNewWithoutArchive(t *testing.T) {
	ctx, err := New(testConfig(t, ""), prometheus.NewRegistry())
	require.NoError(t, err)
	defer ctx.Close()

	assert.NotNil(t, ctx.Oracle)
	assert.Nil(t, ctx.DBConn)
	assert.Nil(t, ctx.Persistence)
	assert.Nil(t, ctx.Journal)
	assert.IsType(t, &cachekeys.Local{}, ctx.Cache)
	assert.Equal(t, int32(oraclepkg.DefaultDecimals), ctx.Oracle.Decimals())
}

func TestNewRejectsBadLedger(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Ledger.Backend = "rocksdb"
	_, err := New(cfg, prometheus.NewRegistry())
	require.Error(t, err)
}

func TestMemoryLedgerRestoresFromJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal", "transitions.msgpack")

	first, err := New(testConfig(t, path), prometheus.NewRegistry())
	require.NoError(t, err)
	_, err = first.Oracle.UpdatePrices(context.Background(), "ETH",
		[]fixed.Amount{fixed.FromUint64(100), fixed.FromUint64(200)}, []uint64{1, 2})
	require.NoError(t, err)
	first.Close()

	second, err := New(testConfig(t, path), prometheus.NewRegistry())
	require.NoError(t, err)
	defer second.Close()

	latest, err := second.Oracle.Price("ETH")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), latest.Round)
	assert.Equal(t, uint64(2), second.Journal.Seq())

	// New rounds continue both the ledger and the journal sequence.
	id, err := second.Oracle.UpdatePrice(context.Background(), "ETH", fixed.FromUint64(300), 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
	assert.Equal(t, uint64(3), second.Journal.Seq())
}

func TestMemoryLedgerRestartsAfterTornJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transitions.msgpack")

	first, err := New(testConfig(t, path), prometheus.NewRegistry())
	require.NoError(t, err)
	for i, p := range []uint64{100, 200} {
		_, err := first.Oracle.UpdatePrice(context.Background(), "ETH", fixed.FromUint64(p), uint64(i))
		require.NoError(t, err)
	}
	first.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-5))

	second, err := New(testConfig(t, path), prometheus.NewRegistry())
	require.NoError(t, err)
	defer second.Close()

	latest, err := second.Oracle.Price("ETH")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), latest.Round)
	assert.Equal(t, "100", latest.Price.String())

	id, err := second.Oracle.UpdatePrice(context.Background(), "ETH", fixed.FromUint64(250), 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)
	assert.Equal(t, uint64(2), second.Journal.Seq())
}
