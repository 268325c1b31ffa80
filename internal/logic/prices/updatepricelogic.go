package prices

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/logic"
	"perpstate/internal/svc"
	"perpstate/internal/types"
)

type UpdatePriceLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewUpdatePriceLogic(ctx context.Context, svcCtx *svc.ServiceContext) *UpdatePriceLogic {
	return &UpdatePriceLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// UpdatePrice appends one round; the timestamp defaults to the service clock.
func (l *UpdatePriceLogic) UpdatePrice(req *types.PriceUpdateReq) (resp *types.PriceUpdateResp, err error) {
	oracle := l.svcCtx.Oracle
	price, err := oracle.ParseAmount(req.Price)
	if err != nil {
		return nil, logic.BadRequest(err)
	}
	ts := logic.TimestampOr(req.Timestamp, oracle.Now())
	id, err := oracle.UpdatePrice(l.ctx, req.Key, price, ts)
	if err != nil {
		return nil, err
	}
	l.Infof("price appended feed=%s round=%d price=%s ts=%d", req.Key, id, req.Price, ts)
	return &types.PriceUpdateResp{Key: req.Key, RoundId: id}, nil
}
