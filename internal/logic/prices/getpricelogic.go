package prices

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/logic"
	"perpstate/internal/svc"
	"perpstate/internal/types"
)

type GetPriceLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetPriceLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetPriceLogic {
	return &GetPriceLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetPriceLogic) GetPrice(req *types.PriceReq) (resp *types.RoundResp, err error) {
	obs, err := l.svcCtx.Oracle.Price(req.Key)
	if err != nil {
		return nil, err
	}
	return logic.RoundResp(req.Key, obs, l.svcCtx.Oracle.Decimals()), nil
}
