package prices

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/svc"
	"perpstate/internal/types"
)

type PriceTWAPLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewPriceTWAPLogic(ctx context.Context, svcCtx *svc.ServiceContext) *PriceTWAPLogic {
	return &PriceTWAPLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// PriceTWAP averages req.Key over [at-interval, at]; at defaults to now.
func (l *PriceTWAPLogic) PriceTWAP(req *types.PriceTWAPReq) (resp *types.TWAPResp, err error) {
	oracle := l.svcCtx.Oracle
	at := req.At
	if at == 0 {
		at = oracle.Now()
	}
	price, err := oracle.TWAP(req.Key, req.Interval, at)
	if err != nil {
		return nil, err
	}
	return &types.TWAPResp{
		Key:      req.Key,
		Interval: req.Interval,
		At:       at,
		Price:    price.Format(oracle.Decimals()),
	}, nil
}
