package model

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlc"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ ReserveSnapshotsModel = (*customReserveSnapshotsModel)(nil)

type (
	// ReserveSnapshotsModel is an interface to be customized, add more methods here,
	// and implement the added methods in customReserveSnapshotsModel.
	ReserveSnapshotsModel interface {
		reserveSnapshotsModel
		// Upsert writes data at its counter, replacing an amended row.
		Upsert(ctx context.Context, data *ReserveSnapshots) error
		Recent(ctx context.Context, limit int) ([]*ReserveSnapshots, error)
	}

	customReserveSnapshotsModel struct {
		*defaultReserveSnapshotsModel
	}
)

// NewReserveSnapshotsModel returns a model for the database table.
func NewReserveSnapshotsModel(conn sqlx.SqlConn, c cache.CacheConf, opts ...cache.Option) ReserveSnapshotsModel {
	return &customReserveSnapshotsModel{
		defaultReserveSnapshotsModel: newReserveSnapshotsModel(conn, c, opts...),
	}
}

// NewReserveSnapshotsModelWithCache builds the model over an existing cache.
func NewReserveSnapshotsModelWithCache(conn sqlx.SqlConn, c cache.Cache) ReserveSnapshotsModel {
	return &customReserveSnapshotsModel{
		defaultReserveSnapshotsModel: &defaultReserveSnapshotsModel{
			CachedConn: sqlc.NewConnWithCache(conn, c),
			table:      `"public"."reserve_snapshots"`,
		},
	}
}

func (m *customReserveSnapshotsModel) Upsert(ctx context.Context, data *ReserveSnapshots) error {
	key := fmt.Sprintf("%s%v", cachePublicReserveSnapshotsCounterPrefix, data.Counter)
	_, err := m.ExecCtx(ctx, func(ctx context.Context, conn sqlx.SqlConn) (sql.Result, error) {
		query := fmt.Sprintf(`insert into %s (%s) values ($1, $2, $3, $4, $5)
on conflict (counter) do update set
  quote_asset_reserve = excluded.quote_asset_reserve,
  base_asset_reserve = excluded.base_asset_reserve,
  ts = excluded.ts,
  block_height = excluded.block_height,
  updated_at = now()`, m.tableName(), reserveSnapshotsRowsExpectAutoSet)
		return conn.ExecCtx(ctx, query, data.Counter, data.QuoteAssetReserve, data.BaseAssetReserve, data.Ts, data.BlockHeight)
	}, key)
	return err
}

func (m *customReserveSnapshotsModel) Recent(ctx context.Context, limit int) ([]*ReserveSnapshots, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf("select %s from %s order by counter desc limit $1", reserveSnapshotsRows, m.tableName())
	var resp []*ReserveSnapshots
	if err := m.QueryRowsNoCacheCtx(ctx, &resp, query, limit); err != nil {
		return nil, err
	}
	return resp, nil
}
