package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/config"
	"perpstate/pkg/journal"
	"perpstate/pkg/ledger"
	"perpstate/pkg/oracle"
)

var (
	configFile  = flag.String("f", "etc/perpstate.yaml", "the config file")
	journalPath = flag.String("journal", "", "journal to replay (defaults to the oracle journal.path)")
	outPath     = flag.String("out", "", "leveldb directory to rebuild into (must not exist)")
)

type stats struct {
	Entries   int
	Rounds    int
	Snapshots int
	LastSeq   uint64
}

// Rebuilds a leveldb ledger from a transition journal.
func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)
	logx.MustSetup(cfg.Log)
	defer logx.Close()

	oracleCfg := cfg.OracleConfig()
	path := *journalPath
	if path == "" {
		path = oracleCfg.Journal.Path
	}
	if path == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -journal <file> -out <dir>")
		os.Exit(2)
	}
	if _, err := os.Stat(*outPath); err == nil {
		logx.Must(fmt.Errorf("replay: %s already exists", *outPath))
	}

	out := ledger.Config{Backend: ledger.BackendLevelDB, Path: *outPath, CacheMB: cfg.Ledger.CacheMB, Handles: cfg.Ledger.Handles}
	st, err := rebuild(context.Background(), path, out, oracleCfg.Decimals)
	logx.Must(err)
	logx.Infof("replay: %d entries (%d rounds, %d snapshot writes) up to seq %d into %s",
		st.Entries, st.Rounds, st.Snapshots, st.LastSeq, *outPath)
}

func rebuild(ctx context.Context, path string, out ledger.Config, decimals int32) (stats, error) {
	var st stats
	if _, err := os.Stat(path); err != nil {
		return st, fmt.Errorf("replay: %w", err)
	}
	db, err := ledger.Open(out)
	if err != nil {
		return st, err
	}
	defer db.Close()

	o, err := oracle.NewService(db, oracle.Options{Decimals: decimals})
	if err != nil {
		return st, err
	}
	err = journal.Replay(path, func(e journal.Entry) error {
		if st.LastSeq != 0 && e.Seq != st.LastSeq+1 {
			return fmt.Errorf("replay: sequence gap after %d (next %d)", st.LastSeq, e.Seq)
		}
		if err := o.Apply(ctx, e); err != nil {
			return err
		}
		st.Entries++
		st.LastSeq = e.Seq
		switch e.Kind {
		case journal.KindPriceAppend:
			st.Rounds++
		case journal.KindReserveAppend, journal.KindReserveAmend:
			st.Snapshots++
		}
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return st, err
	}
	return st, nil
}
