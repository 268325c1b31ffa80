package prices

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/svc"
	"perpstate/internal/types"
)

type ListFeedsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewListFeedsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ListFeedsLogic {
	return &ListFeedsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ListFeedsLogic) ListFeeds() (resp *types.FeedsResp, err error) {
	feeds, err := l.svcCtx.Oracle.Feeds()
	if err != nil {
		return nil, err
	}
	if feeds == nil {
		feeds = []string{}
	}
	return &types.FeedsResp{Feeds: feeds}, nil
}
