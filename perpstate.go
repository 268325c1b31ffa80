// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package main

import (
	"flag"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/rest"
	"github.com/zeromicro/go-zero/rest/httpx"

	cachekeys "perpstate/internal/cache"
	"perpstate/internal/cli"
	"perpstate/internal/config"
	"perpstate/internal/handler"
	"perpstate/internal/refresher"
	"perpstate/internal/svc"
)

var configFile = flag.String("f", "etc/perpstate.yaml", "the config file")

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)

	server := rest.MustNewServer(cfg.RestConf)
	defer server.Stop()

	cli.LogConfigSummary(cfg)

	ctx := svc.NewServiceContext(*cfg)
	defer ctx.Close()

	httpx.SetErrorHandlerCtx(handler.ErrorHandler)
	handler.RegisterHandlers(server, ctx)

	stop, err := startRefresher(cfg, ctx)
	if err != nil {
		logx.Must(err)
	}
	defer stop()

	fmt.Printf("Starting server at %s:%d...\n", cfg.Host, cfg.Port)
	server.Start()
}

func startRefresher(cfg *config.Config, ctx *svc.ServiceContext) (func(), error) {
	rc := refresher.Config{
		Oracle: ctx.Oracle,
		Feeds:  ctx.OracleConfig,
		Cache:  ctx.Cache,
		TTL:    ctx.TTL,
	}
	if cfg.CacheEnabled() {
		rc.Locker = refresher.NewRedisLocker(redis.MustNewRedis(cfg.Redis), cachekeys.RefreshLockKey(), cachekeys.RefreshLockTTL(ctx.TTL))
	}
	r, err := refresher.New(rc)
	if err != nil {
		return nil, err
	}
	return r.Start(ctx.OracleConfig.Refresh.Schedule, ctx.OracleConfig.Refresh.Timeout)
}
