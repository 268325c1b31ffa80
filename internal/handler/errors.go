package handler

import (
	"context"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/logic"
	"perpstate/internal/types"
)

// ErrorHandler renders domain errors with their HTTP status. Install it with
// httpx.SetErrorHandlerCtx before serving.
func ErrorHandler(ctx context.Context, err error) (int, any) {
	status := logic.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.WithContext(ctx).Errorf("request failed: %v", err)
	}
	return status, &types.ErrorResp{Code: status, Message: err.Error()}
}
