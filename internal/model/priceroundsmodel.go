package model

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlc"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ PriceRoundsModel = (*customPriceRoundsModel)(nil)

type (
	// PriceRoundsModel is an interface to be customized, add more methods here,
	// and implement the added methods in customPriceRoundsModel.
	PriceRoundsModel interface {
		priceRoundsModel
		// Recent returns the newest rounds of feed, newest first.
		Recent(ctx context.Context, feed string, limit int) ([]*PriceRounds, error)
	}

	customPriceRoundsModel struct {
		*defaultPriceRoundsModel
	}
)

// NewPriceRoundsModel returns a model for the database table.
func NewPriceRoundsModel(conn sqlx.SqlConn, c cache.CacheConf, opts ...cache.Option) PriceRoundsModel {
	return &customPriceRoundsModel{
		defaultPriceRoundsModel: newPriceRoundsModel(conn, c, opts...),
	}
}

// NewPriceRoundsModelWithCache builds the model over an existing cache.
func NewPriceRoundsModelWithCache(conn sqlx.SqlConn, c cache.Cache) PriceRoundsModel {
	return &customPriceRoundsModel{
		defaultPriceRoundsModel: &defaultPriceRoundsModel{
			CachedConn: sqlc.NewConnWithCache(conn, c),
			table:      `"public"."price_rounds"`,
		},
	}
}

func (m *customPriceRoundsModel) Recent(ctx context.Context, feed string, limit int) ([]*PriceRounds, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf("select %s from %s where feed_key = $1 order by round_id desc limit $2", priceRoundsRows, m.tableName())
	var resp []*PriceRounds
	if err := m.QueryRowsNoCacheCtx(ctx, &resp, query, feed, limit); err != nil {
		return nil, err
	}
	return resp, nil
}
