package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMiss = errors.New("miss")

type payload struct {
	Price string `json:"price"`
	Round uint64 `json:"round"`
}

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal("test", time.Minute, 16, errMiss)
	require.NoError(t, err)
	return l
}

func TestNewLocalValidation(t *testing.T) {
	_, err := NewLocal("x", 0, 0, errMiss)
	require.Error(t, err)
	_, err = NewLocal("x", time.Second, 0, nil)
	require.Error(t, err)
}

func TestLocalSetGetDel(t *testing.T) {
	ctx := context.Background()
	l := newTestLocal(t)

	var got payload
	err := l.GetCtx(ctx, "k", &got)
	require.ErrorIs(t, err, errMiss)
	assert.True(t, l.IsNotFound(err))

	want := payload{Price: "100", Round: 3}
	require.NoError(t, l.SetWithExpireCtx(ctx, "k", want, time.Minute))
	require.NoError(t, l.Get("k", &got))
	assert.Equal(t, want, got)

	require.NoError(t, l.Del("k"))
	assert.True(t, l.IsNotFound(l.Get("k", &got)))
}

func TestLocalTakeCachesQueryResult(t *testing.T) {
	l := newTestLocal(t)
	var calls int32
	query := func(v any) error {
		atomic.AddInt32(&calls, 1)
		*v.(*payload) = payload{Price: "7", Round: 1}
		return nil
	}

	for i := 0; i < 3; i++ {
		var got payload
		require.NoError(t, l.Take(&got, "round", query))
		assert.Equal(t, "7", got.Price)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLocalTakeDoesNotCacheErrors(t *testing.T) {
	l := newTestLocal(t)
	boom := errors.New("boom")

	var got payload
	err := l.TakeWithExpire(&got, "k", func(any, time.Duration) error { return boom })
	require.ErrorIs(t, err, boom)

	require.NoError(t, l.TakeWithExpire(&got, "k", func(v any, expire time.Duration) error {
		assert.Equal(t, time.Minute, expire)
		v.(*payload).Round = 9
		return nil
	}))
	assert.Equal(t, uint64(9), got.Round)
}

func TestLocalTakeConcurrent(t *testing.T) {
	l := newTestLocal(t)
	var calls int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got payload
			err := l.Take(&got, "shared", func(v any) error {
				atomic.AddInt32(&calls, 1)
				time.Sleep(10 * time.Millisecond)
				v.(*payload).Price = "1"
				return nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "1", got.Price)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(8))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}
