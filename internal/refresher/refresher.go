// Package refresher publishes TWAPs for every configured feed and window to
// the read cache on a cron schedule.
package refresher

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"

	cachekeys "perpstate/internal/cache"
	"perpstate/pkg/oracle"
	"perpstate/pkg/pricefeed"
	"perpstate/pkg/twap"
	"perpstate/pkg/vamm"
)

const defaultTimeout = 30 * time.Second

// Locker keeps concurrent refreshers from publishing over each other.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Config wires a Refresher.
type Config struct {
	Oracle *oracle.Service
	Feeds  *oracle.Config
	Cache  gocache.Cache
	TTL    cachekeys.TTLSet
	// Sync runs before each pass; the journal follower plugs in here.
	Sync   func(ctx context.Context) error
	Locker Locker
}

// Payload is the cached form of a published TWAP.
type Payload struct {
	Price    string `json:"price"`
	Interval uint64 `json:"interval"`
	At       uint64 `json:"at"`
}

// Report summarises one pass.
type Report struct {
	Published int
	Skipped   int
	Failed    int
}

type Refresher struct {
	cfg Config
}

func New(cfg Config) (*Refresher, error) {
	if cfg.Oracle == nil || cfg.Feeds == nil || cfg.Cache == nil {
		return nil, errors.New("refresher: oracle, feeds and cache are required")
	}
	return &Refresher{cfg: cfg}, nil
}

// RunOnce computes and publishes every configured TWAP at the oracle clock.
// Windows without enough history are skipped, not failed.
func (r *Refresher) RunOnce(ctx context.Context) (Report, error) {
	var report Report
	if r.cfg.Locker != nil {
		ok, err := r.cfg.Locker.TryLock(ctx)
		if err != nil {
			return report, err
		}
		if !ok {
			logx.WithContext(ctx).Infof("refresher: another instance holds the lock, skipping")
			return report, nil
		}
		defer func() {
			if err := r.cfg.Locker.Unlock(ctx); err != nil {
				logx.WithContext(ctx).Errorf("refresher: unlock: %v", err)
			}
		}()
	}
	if r.cfg.Sync != nil {
		if err := r.cfg.Sync(ctx); err != nil {
			return report, err
		}
	}

	o := r.cfg.Oracle
	now := o.Now()
	ttl := cachekeys.TWAPTTL(r.cfg.TTL)
	for _, feed := range r.cfg.Feeds.Feeds {
		for _, window := range feed.TWAPIntervals {
			interval := uint64(window / time.Second)
			price, err := o.TWAP(feed.Key, interval, now)
			r.publish(ctx, &report, cachekeys.PriceTWAPKey(feed.Key, window), price.Format(o.Decimals()), interval, now, ttl, err)
		}
	}
	for _, window := range r.cfg.Feeds.Reserves.TWAPIntervals {
		interval := uint64(window / time.Second)
		price, err := o.ReserveTWAP(interval, now)
		r.publish(ctx, &report, cachekeys.ReserveTWAPKey(window), price.Format(o.Decimals()), interval, now, ttl, err)
	}
	logx.WithContext(ctx).Infof("refresher: published=%d skipped=%d failed=%d at=%d",
		report.Published, report.Skipped, report.Failed, now)
	return report, nil
}

func (r *Refresher) publish(ctx context.Context, report *Report, key, price string, interval, at uint64, ttl time.Duration, err error) {
	switch {
	case err == nil:
	case skippable(err):
		report.Skipped++
		return
	default:
		report.Failed++
		logx.WithContext(ctx).Errorf("refresher: twap key=%s err=%v", key, err)
		return
	}
	payload := Payload{Price: price, Interval: interval, At: at}
	if err := r.cfg.Cache.SetWithExpireCtx(ctx, key, payload, ttl); err != nil {
		report.Failed++
		logx.WithContext(ctx).Errorf("refresher: cache key=%s err=%v", key, err)
		return
	}
	report.Published++
}

func skippable(err error) bool {
	return errors.Is(err, twap.ErrNoPriceData) ||
		errors.Is(err, twap.ErrIntervalTooLarge) ||
		errors.Is(err, vamm.ErrNoSnapshot) ||
		errors.Is(err, pricefeed.ErrNotFound)
}

// Start schedules RunOnce on schedule and returns a stop function that waits
// for a running pass to finish.
func (r *Refresher) Start(schedule string, timeout time.Duration) (func(), error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := r.RunOnce(ctx); err != nil {
			logx.WithContext(ctx).Errorf("refresher: run: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logx.Debugv(append([]any{msg}, keysAndValues...))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logx.Errorf("cron: %s: %v %v", msg, err, keysAndValues)
}
