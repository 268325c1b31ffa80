package cache

import (
	"context"
	"errors"
	"time"

	"github.com/zeromicro/go-zero/core/collection"
	"github.com/zeromicro/go-zero/core/jsonx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/syncx"
)

const defaultLocalLimit = 10000

var _ gocache.Cache = (*Local)(nil)

// Local is an in-process gocache.Cache for deployments without Redis.
// Values are stored JSON encoded so reads never alias the writer's memory.
type Local struct {
	store       *collection.Cache
	barrier     syncx.SingleFlight
	expiry      time.Duration
	errNotFound error
}

// NewLocal builds a Local cache. Entries expire after expiry unless written
// with an explicit duration; lookups that miss return errNotFound.
func NewLocal(name string, expiry time.Duration, limit int, errNotFound error) (*Local, error) {
	if expiry <= 0 {
		return nil, errors.New("cache: local expiry must be positive")
	}
	if errNotFound == nil {
		return nil, errors.New("cache: local cache needs a not-found error")
	}
	if limit <= 0 {
		limit = defaultLocalLimit
	}
	store, err := collection.NewCache(expiry, collection.WithName(name), collection.WithLimit(limit))
	if err != nil {
		return nil, err
	}
	return &Local{
		store:       store,
		barrier:     syncx.NewSingleFlight(),
		expiry:      expiry,
		errNotFound: errNotFound,
	}, nil
}

func (l *Local) Del(keys ...string) error {
	return l.DelCtx(context.Background(), keys...)
}

func (l *Local) DelCtx(_ context.Context, keys ...string) error {
	for _, key := range keys {
		l.store.Del(key)
	}
	return nil
}

func (l *Local) Get(key string, val any) error {
	return l.GetCtx(context.Background(), key, val)
}

func (l *Local) GetCtx(_ context.Context, key string, val any) error {
	raw, ok := l.store.Get(key)
	if !ok {
		return l.errNotFound
	}
	data, ok := raw.([]byte)
	if !ok {
		l.store.Del(key)
		return l.errNotFound
	}
	return jsonx.Unmarshal(data, val)
}

func (l *Local) IsNotFound(err error) bool {
	return errors.Is(err, l.errNotFound)
}

func (l *Local) Set(key string, val any) error {
	return l.SetCtx(context.Background(), key, val)
}

func (l *Local) SetCtx(ctx context.Context, key string, val any) error {
	return l.SetWithExpireCtx(ctx, key, val, l.expiry)
}

func (l *Local) SetWithExpire(key string, val any, expire time.Duration) error {
	return l.SetWithExpireCtx(context.Background(), key, val, expire)
}

func (l *Local) SetWithExpireCtx(_ context.Context, key string, val any, expire time.Duration) error {
	data, err := jsonx.Marshal(val)
	if err != nil {
		return err
	}
	if expire <= 0 {
		expire = l.expiry
	}
	l.store.SetWithExpire(key, data, expire)
	return nil
}

func (l *Local) Take(val any, key string, query func(val any) error) error {
	return l.TakeCtx(context.Background(), val, key, query)
}

func (l *Local) TakeCtx(ctx context.Context, val any, key string, query func(val any) error) error {
	return l.TakeWithExpireCtx(ctx, val, key, func(val any, _ time.Duration) error {
		return query(val)
	})
}

func (l *Local) TakeWithExpire(val any, key string, query func(val any, expire time.Duration) error) error {
	return l.TakeWithExpireCtx(context.Background(), val, key, query)
}

// TakeWithExpireCtx serves key from memory or runs query once per key across
// concurrent callers and caches the result. Query errors are not cached.
func (l *Local) TakeWithExpireCtx(ctx context.Context, val any, key string, query func(val any, expire time.Duration) error) error {
	if err := l.GetCtx(ctx, key, val); err == nil {
		return nil
	} else if !l.IsNotFound(err) {
		return err
	}

	data, err := l.barrier.Do(key, func() (any, error) {
		if raw, ok := l.store.Get(key); ok {
			if data, ok := raw.([]byte); ok {
				return data, nil
			}
		}
		if err := query(val, l.expiry); err != nil {
			return nil, err
		}
		data, err := jsonx.Marshal(val)
		if err != nil {
			return nil, err
		}
		l.store.SetWithExpire(key, data, l.expiry)
		return data, nil
	})
	if err != nil {
		return err
	}
	return jsonx.Unmarshal(data.([]byte), val)
}
