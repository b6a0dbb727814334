package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// fakeRedis is an in-memory RedisClient; expirations are recorded, not enforced.
type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	gets   int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Ping(context.Context) error { return nil }

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = stringify(value)
	f.ttls[key] = exp
	return nil
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, exp time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = stringify(value)
	f.ttls[key] = exp
	return true, nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	fmt.Sscan(f.data[key], &n)
	n++
	f.data[key] = fmt.Sprint(n)
	return n, nil
}

func (f *fakeRedis) Expire(_ context.Context, key string, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls[key] = exp
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRedis) DelIfEquals(_ context.Context, key, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[key] != value {
		return false, nil
	}
	delete(f.data, key)
	return true, nil
}

func (f *fakeRedis) Close() error { return nil }

func stringify(v interface{}) string {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case string:
		return t
	}
	return fmt.Sprint(v)
}
