package model

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachepkg "perpstate/internal/cache"
)

func newMockConn(t *testing.T) (sqlx.SqlConn, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewSqlConnFromDB(db), mock
}

func newLocalCache(t *testing.T) *cachepkg.Local {
	t.Helper()
	c, err := cachepkg.NewLocal("model-test", time.Minute, 64, ErrNotFound)
	require.NoError(t, err)
	return c
}

var roundColumns = []string{"id", "feed_key", "round_id", "price", "ts", "created_at"}

func TestPriceRoundsFindOneIsCached(t *testing.T) {
	conn, mock := newMockConn(t)
	m := NewPriceRoundsModelWithCache(conn, newLocalCache(t))
	created := time.Unix(1_700_000_000, 0).UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`from "public"."price_rounds" where id = $1 limit 1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(roundColumns).AddRow(int64(7), "ETH", int64(3), "1850000000", int64(30), created))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		row, err := m.FindOne(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "ETH", row.FeedKey)
		assert.Equal(t, int64(3), row.RoundId)
		assert.Equal(t, "1850000000", row.Price)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRoundsFindOneByFeedKeyRoundId(t *testing.T) {
	conn, mock := newMockConn(t)
	m := NewPriceRoundsModelWithCache(conn, newLocalCache(t))

	mock.ExpectQuery(regexp.QuoteMeta(`where feed_key = $1 and round_id = $2 limit 1`)).
		WithArgs("BTC", int64(1)).
		WillReturnRows(sqlmock.NewRows(roundColumns).AddRow(int64(11), "BTC", int64(1), "5", int64(0), time.Now().UTC()))

	row, err := m.FindOneByFeedKeyRoundId(context.Background(), "BTC", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(11), row.Id)

	// Served from the primary cache populated by the index lookup.
	again, err := m.FindOne(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, "5", again.Price)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRoundsNotFound(t *testing.T) {
	conn, mock := newMockConn(t)
	m := NewPriceRoundsModelWithCache(conn, newLocalCache(t))

	mock.ExpectQuery(regexp.QuoteMeta(`where id = $1 limit 1`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(roundColumns))

	_, err := m.FindOne(context.Background(), 1)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRoundsInsertAndRecent(t *testing.T) {
	conn, mock := newMockConn(t)
	m := NewPriceRoundsModelWithCache(conn, newLocalCache(t))
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(`insert into "public"."price_rounds"`)).
		WithArgs("ETH", int64(2), "200", int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	_, err := m.Insert(ctx, &PriceRounds{FeedKey: "ETH", RoundId: 2, Price: "200", Ts: 10})
	require.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`where feed_key = $1 order by round_id desc limit $2`)).
		WithArgs("ETH", 100).
		WillReturnRows(sqlmock.NewRows(roundColumns).
			AddRow(int64(2), "ETH", int64(2), "200", int64(10), now).
			AddRow(int64(1), "ETH", int64(1), "100", int64(0), now))
	rows, err := m.Recent(ctx, "ETH", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0].RoundId)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveSnapshotsUpsertInvalidatesCache(t *testing.T) {
	conn, mock := newMockConn(t)
	m := NewReserveSnapshotsModelWithCache(conn, newLocalCache(t))
	ctx := context.Background()
	columns := []string{"counter", "quote_asset_reserve", "base_asset_reserve", "ts", "block_height", "created_at", "updated_at"}
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`from "public"."reserve_snapshots" where counter = $1 limit 1`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), "1000", "10", int64(0), int64(1), now, now))
	first, err := m.FindOne(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1000", first.QuoteAssetReserve)

	mock.ExpectExec(regexp.QuoteMeta(`on conflict (counter) do update set`)).
		WithArgs(int64(1), "1100", "10", int64(1), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, m.Upsert(ctx, &ReserveSnapshots{Counter: 1, QuoteAssetReserve: "1100", BaseAssetReserve: "10", Ts: 1, BlockHeight: 1}))

	mock.ExpectQuery(regexp.QuoteMeta(`where counter = $1 limit 1`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), "1100", "10", int64(1), int64(1), now, now))
	amended, err := m.FindOne(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1100", amended.QuoteAssetReserve)

	mock.ExpectQuery(regexp.QuoteMeta(`order by counter desc limit $1`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), "1100", "10", int64(1), int64(1), now, now))
	recent, err := m.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
