package reserves

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/logic"
	"perpstate/internal/svc"
	"perpstate/internal/types"
	"perpstate/pkg/fixed"
	"perpstate/pkg/vamm"
)

type ArchiveSnapshotsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewArchiveSnapshotsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ArchiveSnapshotsLogic {
	return &ArchiveSnapshotsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ArchiveSnapshotsLogic) ArchiveSnapshots(req *types.ArchiveSnapshotsReq) (resp *types.ArchiveSnapshotsResp, err error) {
	if l.svcCtx.ReserveSnapshotsModel == nil {
		return nil, logic.ErrArchiveDisabled
	}
	rows, err := l.svcCtx.ReserveSnapshotsModel.Recent(l.ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	oracle := l.svcCtx.Oracle
	resp = &types.ArchiveSnapshotsResp{Snapshots: make([]types.SnapshotResp, 0, len(rows))}
	for _, row := range rows {
		quote, qerr := fixed.Parse(row.QuoteAssetReserve)
		base, berr := fixed.Parse(row.BaseAssetReserve)
		if qerr != nil || berr != nil {
			l.Errorf("archive snapshot counter=%d has unreadable reserves", row.Counter)
			continue
		}
		snap := vamm.ReserveSnapshot{
			QuoteAssetReserve: quote,
			BaseAssetReserve:  base,
			Timestamp:         uint64(row.Ts),
			BlockHeight:       uint64(row.BlockHeight),
		}
		resp.Snapshots = append(resp.Snapshots, *logic.SnapshotResp(uint64(row.Counter), snap, oracle.Unit(), oracle.Decimals()))
	}
	return resp, nil
}
