package prices

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/logic"
	"perpstate/internal/svc"
	"perpstate/internal/types"
)

type PreviousPriceLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewPreviousPriceLogic(ctx context.Context, svcCtx *svc.ServiceContext) *PreviousPriceLogic {
	return &PreviousPriceLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// PreviousPrice returns the round req.Rounds before the latest.
func (l *PreviousPriceLogic) PreviousPrice(req *types.PreviousPriceReq) (resp *types.RoundResp, err error) {
	obs, err := l.svcCtx.Oracle.PreviousPrice(req.Key, req.Rounds)
	if err != nil {
		return nil, err
	}
	return logic.RoundResp(req.Key, obs, l.svcCtx.Oracle.Decimals()), nil
}
