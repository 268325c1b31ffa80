// Package oraclepersist archives committed oracle state to Postgres.
package oraclepersist

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"

	cachekeys "perpstate/internal/cache"
	"perpstate/internal/model"
	"perpstate/pkg/oracle"
	"perpstate/pkg/pricefeed"
	"perpstate/pkg/vamm"
)

var _ oracle.Persistence = (*Service)(nil)

var errOutOfRange = errors.New("oraclepersist: value exceeds bigint range")

// Service mirrors committed oracle transitions into Postgres and refreshes
// the read-side cache.
type Service struct {
	rounds    model.PriceRoundsModel
	snapshots model.ReserveSnapshotsModel
	cache     gocache.Cache
	ttl       cachekeys.TTLSet
}

// Config enumerates dependencies required to archive oracle state.
type Config struct {
	RoundsModel    model.PriceRoundsModel
	SnapshotsModel model.ReserveSnapshotsModel
	Cache          gocache.Cache
	TTL            cachekeys.TTLSet
}

// NewService wires an archive. Returns nil when the models are missing.
func NewService(cfg Config) *Service {
	if cfg.RoundsModel == nil || cfg.SnapshotsModel == nil {
		return nil
	}
	return &Service{
		rounds:    cfg.RoundsModel,
		snapshots: cfg.SnapshotsModel,
		cache:     cfg.Cache,
		ttl:       cfg.TTL,
	}
}

// RecordRound archives one round. Replaying a round that is already stored
// is not an error.
func (s *Service) RecordRound(ctx context.Context, feed string, obs pricefeed.Observation) error {
	if s == nil {
		return nil
	}
	round, err := toInt64(obs.Round)
	if err != nil {
		return err
	}
	ts, err := toInt64(obs.Timestamp)
	if err != nil {
		return err
	}
	_, err = s.rounds.Insert(ctx, &model.PriceRounds{
		FeedKey: feed,
		RoundId: round,
		Price:   obs.Price.String(),
		Ts:      ts,
	})
	if err != nil && !isUniqueViolation(err) {
		return err
	}
	s.cacheRound(ctx, feed, obs)
	return nil
}

// RecordSnapshot archives the snapshot at counter, overwriting an amended row.
func (s *Service) RecordSnapshot(ctx context.Context, counter uint64, snap vamm.ReserveSnapshot) error {
	if s == nil {
		return nil
	}
	n, err := toInt64(counter)
	if err != nil {
		return err
	}
	ts, err := toInt64(snap.Timestamp)
	if err != nil {
		return err
	}
	height, err := toInt64(snap.BlockHeight)
	if err != nil {
		return err
	}
	if err := s.snapshots.Upsert(ctx, &model.ReserveSnapshots{
		Counter:           n,
		QuoteAssetReserve: snap.QuoteAssetReserve.String(),
		BaseAssetReserve:  snap.BaseAssetReserve.String(),
		Ts:                ts,
		BlockHeight:       height,
	}); err != nil {
		return err
	}
	s.cacheSnapshot(ctx, counter, snap)
	return nil
}

func (s *Service) cacheRound(ctx context.Context, feed string, obs pricefeed.Observation) {
	if s.cache == nil {
		return
	}
	payload := roundPayload(obs)
	if ttl := cachekeys.PriceTTL(s.ttl); ttl > 0 {
		key := cachekeys.PriceLatestKey(feed)
		if err := s.cache.SetWithExpireCtx(ctx, key, payload, ttl); err != nil {
			logx.WithContext(ctx).Errorf("oraclepersist: cache price key=%s err=%v", key, err)
		}
	}
	if ttl := cachekeys.PriceRoundTTL(s.ttl); ttl > 0 {
		key := cachekeys.PriceRoundKey(feed, obs.Round)
		if err := s.cache.SetWithExpireCtx(ctx, key, payload, ttl); err != nil {
			logx.WithContext(ctx).Errorf("oraclepersist: cache round key=%s err=%v", key, err)
		}
	}
}

func (s *Service) cacheSnapshot(ctx context.Context, counter uint64, snap vamm.ReserveSnapshot) {
	if s.cache == nil {
		return
	}
	ttl := cachekeys.ReserveTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	payload := SnapshotPayload{Counter: counter, ReserveSnapshot: snap}
	// The amended slot and the current pointer must not disagree.
	for _, key := range []string{cachekeys.ReserveCurrentKey(), cachekeys.ReserveSnapshotKey(counter)} {
		if err := s.cache.SetWithExpireCtx(ctx, key, payload, ttl); err != nil {
			logx.WithContext(ctx).Errorf("oraclepersist: cache snapshot key=%s err=%v", key, err)
		}
	}
}

// RoundPayload is the cached form of a price round.
type RoundPayload struct {
	Round     uint64 `json:"round"`
	Price     string `json:"price"`
	Timestamp uint64 `json:"timestamp"`
}

// SnapshotPayload is the cached form of a reserve snapshot.
type SnapshotPayload struct {
	Counter uint64 `json:"counter"`
	vamm.ReserveSnapshot
}

func roundPayload(obs pricefeed.Observation) RoundPayload {
	return RoundPayload{Round: obs.Round, Price: obs.Price.String(), Timestamp: obs.Timestamp}
}

func toInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d", errOutOfRange, v)
	}
	return int64(v), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
