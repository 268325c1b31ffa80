package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"

	cachekeys "perpstate/internal/cache"
	"perpstate/internal/cli"
	"perpstate/internal/config"
	"perpstate/internal/refresher"
	"perpstate/internal/svc"
	"perpstate/pkg/ledger"
	"perpstate/pkg/oracle"
)

var (
	configFile = flag.String("f", "etc/perpstate.yaml", "the config file")
	once       = flag.Bool("once", false, "run a single refresh pass and exit")
)

// The standalone refresher follows the API server's journal into its own
// in-memory ledger and publishes TWAPs to the shared cache.
func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)
	logx.MustSetup(cfg.Log)
	defer logx.Close()

	cli.LogConfigSummary(cfg)

	oracleCfg := cfg.OracleConfig()
	if oracleCfg.Journal.Path == "" {
		logx.Must(errors.New("cron: oracle journal.path is required to follow the server"))
	}

	db, err := ledger.Open(ledger.Config{Backend: ledger.BackendMemory})
	logx.Must(err)
	defer db.Close()

	o, err := oracle.NewService(db, oracle.Options{Decimals: oracleCfg.Decimals})
	logx.Must(err)

	cache, err := svc.NewCache(*cfg)
	logx.Must(err)

	ttl := cachekeys.NewTTLSet(cfg.TTL)
	follower := refresher.NewFollower(oracleCfg.Journal.Path, o)
	rc := refresher.Config{
		Oracle: o,
		Feeds:  oracleCfg,
		Cache:  cache,
		TTL:    ttl,
		Sync:   follower.Sync,
	}
	if cfg.CacheEnabled() {
		rc.Locker = refresher.NewRedisLocker(redis.MustNewRedis(cfg.Redis), cachekeys.RefreshLockKey(), cachekeys.RefreshLockTTL(ttl))
	} else {
		logx.Infof("cron: redis not configured, TWAPs stay in this process")
	}
	r, err := refresher.New(rc)
	logx.Must(err)

	if *once {
		report, err := r.RunOnce(context.Background())
		logx.Must(err)
		logx.Infof("cron: single pass done published=%d skipped=%d failed=%d", report.Published, report.Skipped, report.Failed)
		return
	}

	stop, err := r.Start(oracleCfg.Refresh.Schedule, oracleCfg.Refresh.Timeout)
	logx.Must(err)
	logx.Infof("cron: refreshing on %q from %s", oracleCfg.Refresh.Schedule, oracleCfg.Journal.Path)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	logx.Info("cron: shutdown signal received, waiting for the running pass")
	stop()
	logx.Info("cron: stopped")
}
