package reserves

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/logic"
	"perpstate/internal/svc"
	"perpstate/internal/types"
)

type CurrentSnapshotLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewCurrentSnapshotLogic(ctx context.Context, svcCtx *svc.ServiceContext) *CurrentSnapshotLogic {
	return &CurrentSnapshotLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *CurrentSnapshotLogic) CurrentSnapshot() (resp *types.SnapshotResp, err error) {
	oracle := l.svcCtx.Oracle
	snap, n, err := oracle.CurrentSnapshot()
	if err != nil {
		return nil, err
	}
	return logic.SnapshotResp(n, snap, oracle.Unit(), oracle.Decimals()), nil
}
