package reserves

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/logic"
	"perpstate/internal/svc"
	"perpstate/internal/types"
	"perpstate/pkg/vamm"
)

type RecordSnapshotLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewRecordSnapshotLogic(ctx context.Context, svcCtx *svc.ServiceContext) *RecordSnapshotLogic {
	return &RecordSnapshotLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// RecordSnapshot writes the pool reserves observed at a block. Mode append
// always takes a new counter, amend overwrites the current one and auto
// amends only when the block height matches the current snapshot.
func (l *RecordSnapshotLogic) RecordSnapshot(req *types.ReserveRecordReq) (resp *types.ReserveRecordResp, err error) {
	oracle := l.svcCtx.Oracle
	quote, err := oracle.ParseAmount(req.QuoteAssetReserve)
	if err != nil {
		return nil, logic.BadRequest(fmt.Errorf("quoteAssetReserve: %w", err))
	}
	base, err := oracle.ParseAmount(req.BaseAssetReserve)
	if err != nil {
		return nil, logic.BadRequest(fmt.Errorf("baseAssetReserve: %w", err))
	}
	snap := vamm.ReserveSnapshot{
		QuoteAssetReserve: quote,
		BaseAssetReserve:  base,
		Timestamp:         logic.TimestampOr(req.Timestamp, oracle.Now()),
		BlockHeight:       req.BlockHeight,
	}

	var (
		n       uint64
		amended bool
	)
	switch req.Mode {
	case "append":
		n, err = oracle.AppendSnapshot(l.ctx, snap)
	case "amend":
		n, err = oracle.AmendSnapshot(l.ctx, snap)
		amended = err == nil
	case "", "auto":
		n, amended, err = oracle.RecordSnapshot(l.ctx, snap)
	default:
		return nil, logic.BadRequest(fmt.Errorf("unknown mode %q", req.Mode))
	}
	if err != nil {
		return nil, err
	}
	l.Infof("reserve snapshot counter=%d amended=%t height=%d", n, amended, snap.BlockHeight)
	return &types.ReserveRecordResp{Counter: n, Amended: amended}, nil
}
