package prices

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/logic"
	"perpstate/internal/svc"
	"perpstate/internal/types"
)

type GetRoundLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetRoundLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetRoundLogic {
	return &GetRoundLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetRoundLogic) GetRound(req *types.RoundReq) (resp *types.RoundResp, err error) {
	obs, err := l.svcCtx.Oracle.Round(req.Key, req.Round)
	if err != nil {
		return nil, err
	}
	return logic.RoundResp(req.Key, obs, l.svcCtx.Oracle.Decimals()), nil
}
