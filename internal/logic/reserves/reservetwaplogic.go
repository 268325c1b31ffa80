package reserves

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/svc"
	"perpstate/internal/types"
)

type ReserveTWAPLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewReserveTWAPLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ReserveTWAPLogic {
	return &ReserveTWAPLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// ReserveTWAP averages the vAMM spot price over [at-interval, at].
func (l *ReserveTWAPLogic) ReserveTWAP(req *types.TWAPReq) (resp *types.TWAPResp, err error) {
	oracle := l.svcCtx.Oracle
	at := req.At
	if at == 0 {
		at = oracle.Now()
	}
	price, err := oracle.ReserveTWAP(req.Interval, at)
	if err != nil {
		return nil, err
	}
	return &types.TWAPResp{Interval: req.Interval, At: at, Price: price.Format(oracle.Decimals())}, nil
}
