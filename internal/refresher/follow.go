package refresher

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/pkg/journal"
	"perpstate/pkg/oracle"
)

// Follower mirrors a journal written by another process into a local
// oracle. Each Sync applies only the entries it has not seen yet.
type Follower struct {
	mu      sync.Mutex
	path    string
	oracle  *oracle.Service
	applied uint64
}

func NewFollower(path string, o *oracle.Service) *Follower {
	return &Follower{path: path, oracle: o}
}

// Applied returns the sequence number of the last applied entry.
func (f *Follower) Applied() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied
}

// Sync applies new entries. A missing journal or a torn trailing entry
// (the writer is mid-append) ends the pass without error.
func (f *Follower) Sync(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	before := f.applied
	err := journal.Replay(f.path, func(e journal.Entry) error {
		if e.Seq <= f.applied {
			return nil
		}
		if err := f.oracle.Apply(ctx, e); err != nil {
			return err
		}
		f.applied = e.Seq
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist), errors.Is(err, io.ErrUnexpectedEOF):
	default:
		return err
	}
	if f.applied > before {
		logx.WithContext(ctx).Infof("refresher: applied journal entries %d..%d", before+1, f.applied)
	}
	return nil
}
