package prices

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/logic"
	"perpstate/internal/svc"
	"perpstate/internal/types"
	"perpstate/pkg/fixed"
)

type UpdatePricesLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewUpdatePricesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *UpdatePricesLogic {
	return &UpdatePricesLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// UpdatePrices appends a batch of rounds atomically.
func (l *UpdatePricesLogic) UpdatePrices(req *types.PriceBatchReq) (resp *types.PriceBatchResp, err error) {
	oracle := l.svcCtx.Oracle
	prices := make([]fixed.Amount, len(req.Prices))
	for i, raw := range req.Prices {
		p, err := oracle.ParseAmount(raw)
		if err != nil {
			return nil, logic.BadRequest(fmt.Errorf("prices[%d]: %w", i, err))
		}
		prices[i] = p
	}
	ids, err := oracle.UpdatePrices(l.ctx, req.Key, prices, req.Timestamps)
	if err != nil {
		return nil, err
	}
	l.Infof("price batch appended feed=%s rounds=%v", req.Key, ids)
	return &types.PriceBatchResp{Key: req.Key, RoundIds: ids}, nil
}
