package prices

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/logic"
	"perpstate/internal/svc"
	"perpstate/internal/types"
	"perpstate/pkg/fixed"
)

type ArchiveRoundsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewArchiveRoundsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ArchiveRoundsLogic {
	return &ArchiveRoundsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// ArchiveRounds lists the newest archived rounds of a feed from Postgres.
func (l *ArchiveRoundsLogic) ArchiveRounds(req *types.ArchiveRoundsReq) (resp *types.ArchiveRoundsResp, err error) {
	if l.svcCtx.PriceRoundsModel == nil {
		return nil, logic.ErrArchiveDisabled
	}
	rows, err := l.svcCtx.PriceRoundsModel.Recent(l.ctx, req.Key, req.Limit)
	if err != nil {
		return nil, err
	}
	decimals := l.svcCtx.Oracle.Decimals()
	resp = &types.ArchiveRoundsResp{Key: req.Key, Rounds: make([]types.RoundResp, 0, len(rows))}
	for _, row := range rows {
		price, err := fixed.Parse(row.Price)
		if err != nil {
			l.Errorf("archive round feed=%s round=%d has unreadable price %q: %v", row.FeedKey, row.RoundId, row.Price, err)
			continue
		}
		resp.Rounds = append(resp.Rounds, types.RoundResp{
			Key:       row.FeedKey,
			RoundId:   uint64(row.RoundId),
			Price:     price.Format(decimals),
			Timestamp: uint64(row.Ts),
		})
	}
	return resp, nil
}
