package reserves

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/logic"
	"perpstate/internal/svc"
	"perpstate/internal/types"
)

type GetSnapshotLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetSnapshotLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetSnapshotLogic {
	return &GetSnapshotLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetSnapshotLogic) GetSnapshot(req *types.SnapshotReq) (resp *types.SnapshotResp, err error) {
	oracle := l.svcCtx.Oracle
	snap, err := oracle.Snapshot(req.Counter)
	if err != nil {
		return nil, err
	}
	return logic.SnapshotResp(req.Counter, snap, oracle.Unit(), oracle.Decimals()), nil
}
