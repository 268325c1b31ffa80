package svc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethdb"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "perpstate/internal/cache"
	"perpstate/internal/config"
	"perpstate/internal/model"
	oraclepersist "perpstate/internal/persistence/oracle"
	"perpstate/pkg/journal"
	"perpstate/pkg/ledger"
	oraclepkg "perpstate/pkg/oracle"
)

const localCacheLimit = 50000

type ServiceContext struct {
	Config       config.Config
	OracleConfig *oraclepkg.Config

	Ledger  ethdb.KeyValueStore
	Journal *journal.Writer
	Metrics *oraclepkg.Metrics
	Oracle  *oraclepkg.Service

	// Read cache shared by the archive mirror and the TWAP refresher:
	// Redis when configured, in process otherwise.
	Cache gocache.Cache
	TTL   cachekeys.TTLSet

	// Optional archive, injected only when a DSN is configured.
	DBConn                sqlx.SqlConn
	PriceRoundsModel      model.PriceRoundsModel
	ReserveSnapshotsModel model.ReserveSnapshotsModel
	Persistence           *oraclepersist.Service
}

// NewServiceContext wires every collaborator and exits on failure.
func NewServiceContext(c config.Config) *ServiceContext {
	svc, err := New(c, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to build service context: %v", err)
	}
	return svc
}

// New wires the service context, registering oracle metrics with reg.
func New(c config.Config, reg prometheus.Registerer) (*ServiceContext, error) {
	svc := &ServiceContext{
		Config:       c,
		OracleConfig: c.OracleConfig(),
		TTL:          cachekeys.NewTTLSet(c.TTL),
	}

	cache, err := NewCache(c)
	if err != nil {
		return nil, err
	}
	svc.Cache = cache

	// Only inject DB models when DSN provided.
	if c.MirrorEnabled() {
		db, err := sql.Open("pgx", c.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(c.Postgres.MaxOpen)
		db.SetMaxIdleConns(c.Postgres.MaxIdle)
		conn := sqlx.NewSqlConnFromDB(db)
		svc.DBConn = conn
		if c.CacheEnabled() {
			cacheConf := redisCacheConf(c)
			svc.PriceRoundsModel = model.NewPriceRoundsModel(conn, cacheConf)
			svc.ReserveSnapshotsModel = model.NewReserveSnapshotsModel(conn, cacheConf)
		} else {
			svc.PriceRoundsModel = model.NewPriceRoundsModelWithCache(conn, cache)
			svc.ReserveSnapshotsModel = model.NewReserveSnapshotsModelWithCache(conn, cache)
		}
		svc.Persistence = oraclepersist.NewService(oraclepersist.Config{
			RoundsModel:    svc.PriceRoundsModel,
			SnapshotsModel: svc.ReserveSnapshotsModel,
			Cache:          cache,
			TTL:            svc.TTL,
		})
	}

	db, err := ledger.Open(c.Ledger)
	if err != nil {
		return nil, err
	}
	svc.Ledger = db

	if path := svc.OracleConfig.Journal.Path; path != "" {
		w, err := journal.Open(path)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		svc.Journal = w
	}

	svc.Metrics = oraclepkg.NewMetrics(reg)
	opts := oraclepkg.Options{
		Decimals: svc.OracleConfig.Decimals,
		Journal:  svc.Journal,
		Metrics:  svc.Metrics,

		// A memory ledger is only as durable as its journal.
		WriteAhead: isMemoryLedger(c.Ledger),
	}
	if svc.Persistence != nil {
		opts.Persistence = svc.Persistence
	}
	oracle, err := oraclepkg.NewService(db, opts)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Oracle = oracle

	if svc.Journal != nil && isMemoryLedger(c.Ledger) {
		if err := restoreFromJournal(svc); err != nil {
			svc.Close()
			return nil, err
		}
	}
	return svc, nil
}

// Close releases the journal and the ledger.
func (s *ServiceContext) Close() {
	if s.Journal != nil {
		if err := s.Journal.Close(); err != nil {
			logx.Errorf("svc: close journal: %v", err)
		}
	}
	if s.Ledger != nil {
		if err := s.Ledger.Close(); err != nil {
			logx.Errorf("svc: close ledger: %v", err)
		}
	}
}

// NewCache returns the Redis cache when configured and an in-process one
// otherwise.
func NewCache(c config.Config) (gocache.Cache, error) {
	if c.CacheEnabled() {
		return gocache.New(redisCacheConf(c), syncx.NewSingleFlight(), gocache.NewStat("perpstate"), model.ErrNotFound), nil
	}
	expiry := time.Duration(c.TTL.Long) * time.Second
	if expiry <= 0 {
		expiry = 5 * time.Minute
	}
	return cachekeys.NewLocal("perpstate", expiry, localCacheLimit, model.ErrNotFound)
}

func redisCacheConf(c config.Config) gocache.CacheConf {
	return gocache.CacheConf{{RedisConf: c.Redis, Weight: 100}}
}

func isMemoryLedger(c ledger.Config) bool {
	backend := strings.ToLower(strings.TrimSpace(c.Backend))
	return backend == "" || backend == ledger.BackendMemory
}

// restoreFromJournal rebuilds an in-memory ledger from the journal the
// service is about to append to.
func restoreFromJournal(s *ServiceContext) error {
	ctx := context.Background()
	var applied int
	err := journal.Replay(s.Journal.Path(), func(e journal.Entry) error {
		applied++
		return s.Oracle.Apply(ctx, e)
	})
	switch {
	case err == nil, errors.Is(err, os.ErrNotExist):
	case errors.Is(err, io.ErrUnexpectedEOF):
		logx.Errorf("svc: journal %s ends with a partial entry, restored up to it", s.Journal.Path())
	default:
		return fmt.Errorf("restore from journal: %w", err)
	}
	logx.Infof("svc: restored %d journal entries from %s", applied, s.Journal.Path())
	return nil
}
