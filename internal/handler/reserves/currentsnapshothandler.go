// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package reserves

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"perpstate/internal/logic/reserves"
	"perpstate/internal/svc"
)

func CurrentSnapshotHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := reserves.NewCurrentSnapshotLogic(r.Context(), svcCtx)
		resp, err := l.CurrentSnapshot()
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
