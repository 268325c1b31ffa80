package oraclepersist

import (
	"context"
	"errors"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "perpstate/internal/cache"
	"perpstate/internal/config"
	"perpstate/internal/model"
	"perpstate/pkg/fixed"
	"perpstate/pkg/pricefeed"
	"perpstate/pkg/vamm"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *cachekeys.Local) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	conn := sqlx.NewSqlConnFromDB(db)

	modelCache, err := cachekeys.NewLocal("models", time.Minute, 0, model.ErrNotFound)
	require.NoError(t, err)
	readCache, err := cachekeys.NewLocal("reads", time.Minute, 0, model.ErrNotFound)
	require.NoError(t, err)

	svc := NewService(Config{
		RoundsModel:    model.NewPriceRoundsModelWithCache(conn, modelCache),
		SnapshotsModel: model.NewReserveSnapshotsModelWithCache(conn, modelCache),
		Cache:          readCache,
		TTL:            cachekeys.NewTTLSet(config.CacheTTL{Short: 10, Medium: 60, Long: 300}),
	})
	require.NotNil(t, svc)
	return svc, mock, readCache
}

func TestNewServiceRequiresModels(t *testing.T) {
	assert.Nil(t, NewService(Config{}))
	var nilSvc *Service
	assert.NoError(t, nilSvc.RecordRound(context.Background(), "ETH", pricefeed.Observation{}))
}

func TestRecordRoundWritesAndCaches(t *testing.T) {
	svc, mock, cache := newTestService(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(`insert into "public"."price_rounds"`)).
		WithArgs("ETH", int64(4), "1850250000", int64(120)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	obs := pricefeed.Observation{Round: 4, Price: fixed.FromUint64(1_850_250_000), Timestamp: 120}
	require.NoError(t, svc.RecordRound(ctx, "ETH", obs))
	require.NoError(t, mock.ExpectationsWereMet())

	var latest RoundPayload
	require.NoError(t, cache.GetCtx(ctx, cachekeys.PriceLatestKey("ETH"), &latest))
	assert.Equal(t, RoundPayload{Round: 4, Price: "1850250000", Timestamp: 120}, latest)

	var round RoundPayload
	require.NoError(t, cache.GetCtx(ctx, cachekeys.PriceRoundKey("ETH", 4), &round))
	assert.Equal(t, latest, round)
}

func TestRecordRoundIgnoresDuplicates(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "lib/pq unique violation", err: &pq.Error{Code: "23505"}},
		{name: "pgx unique violation", err: &pgconn.PgError{Code: "23505"}},
		{name: "other failure", err: errors.New("connection reset"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock, _ := newTestService(t)
			mock.ExpectExec(regexp.QuoteMeta(`insert into "public"."price_rounds"`)).WillReturnError(tt.err)

			err := svc.RecordRound(context.Background(), "BTC", pricefeed.Observation{Round: 1, Price: fixed.FromUint64(1)})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRecordSnapshotUpsertsAndCaches(t *testing.T) {
	svc, mock, cache := newTestService(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(`on conflict (counter) do update set`)).
		WithArgs(int64(2), "1100", "10", int64(15), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	snap := vamm.ReserveSnapshot{
		QuoteAssetReserve: fixed.FromUint64(1100),
		BaseAssetReserve:  fixed.FromUint64(10),
		Timestamp:         15,
		BlockHeight:       7,
	}
	require.NoError(t, svc.RecordSnapshot(ctx, 2, snap))
	require.NoError(t, mock.ExpectationsWereMet())

	var current SnapshotPayload
	require.NoError(t, cache.GetCtx(ctx, cachekeys.ReserveCurrentKey(), &current))
	assert.Equal(t, uint64(2), current.Counter)
	assert.Equal(t, snap, current.ReserveSnapshot)
}

func TestRecordRejectsValuesOutsideBigint(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.RecordRound(context.Background(), "ETH", pricefeed.Observation{Round: math.MaxUint64})
	require.ErrorIs(t, err, errOutOfRange)
	err = svc.RecordSnapshot(context.Background(), 1, vamm.ReserveSnapshot{BlockHeight: math.MaxUint64})
	require.ErrorIs(t, err, errOutOfRange)
}
