// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package prices

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"perpstate/internal/logic"
	"perpstate/internal/logic/prices"
	"perpstate/internal/svc"
	"perpstate/internal/types"
)

func ArchiveRoundsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ArchiveRoundsReq
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, logic.BadRequest(err))
			return
		}

		l := prices.NewArchiveRoundsLogic(r.Context(), svcCtx)
		resp, err := l.ArchiveRounds(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
