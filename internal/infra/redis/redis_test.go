//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/infra/db/memory"
	"telegram-channel-subscription/internal/infra/logging"
)

func TestPromptRepo(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRedis()
	repo := NewPromptRepo(fr)

	if _, err := repo.GetPrompt(ctx, 1); !errors.Is(err, domain.ErrNoPendingPrompt) {
		t.Fatalf("expected ErrNoPendingPrompt, got %v", err)
	}
	in := &model.PendingPrompt{Kind: model.PromptAwaitingPlans, ChannelID: -100, ChannelName: "Premium"}
	if err := repo.SetPrompt(ctx, 1, in); err != nil {
		t.Fatalf("SetPrompt: %v", err)
	}
	if fr.ttls["admin_prompt:1"] != 15*time.Minute {
		t.Errorf("expected 15m ttl, got %s", fr.ttls["admin_prompt:1"])
	}
	got, err := repo.GetPrompt(ctx, 1)
	if err != nil || got.ChannelID != -100 || got.Kind != model.PromptAwaitingPlans {
		t.Errorf("unexpected prompt %+v %v", got, err)
	}
	_ = repo.ClearPrompt(ctx, 1)
	if _, err := repo.GetPrompt(ctx, 1); !errors.Is(err, domain.ErrNoPendingPrompt) {
		t.Errorf("expected cleared prompt, got %v", err)
	}
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(newFakeRedis())
	key := UserCommandKey(7, "start")
	for i := 1; i <= 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("hit %d should pass: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := rl.Allow(ctx, key, 3, time.Minute); ok {
		t.Error("fourth hit in the window must be refused")
	}
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocker(newFakeRedis())
	l.backoff = time.Millisecond

	tok, err := l.TryLock(ctx, "lock:x", time.Minute)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if _, err := l.TryLock(ctx, "lock:x", time.Minute); !errors.Is(err, domain.ErrSweepInProgress) {
		t.Errorf("expected ErrSweepInProgress, got %v", err)
	}
	if err := l.Unlock(ctx, "lock:x", tok); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if _, err := l.TryLock(ctx, "lock:x", time.Minute); err != nil {
		t.Errorf("expected free lock, got %v", err)
	}
}

func TestChannelRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewChannelRepo()
	fr := newFakeRedis()
	repo := NewChannelRepoCacheDecorator(inner, fr, time.Hour, logging.Nop())

	ch, _ := model.NewChannel(-100, "Premium", 1)
	if err := repo.Save(ctx, ch); err != nil {
		t.Fatalf("Save: %v", err)
	}

	t.Run("miss populates the cache", func(t *testing.T) {
		if _, err := repo.FindByID(ctx, -100); err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if _, ok := fr.data["channel:-100"]; !ok {
			t.Fatal("expected channel cached after miss")
		}
	})

	t.Run("plan replacement invalidates", func(t *testing.T) {
		cat, _ := model.NewCatalog(map[int]string{30: "99"})
		if err := repo.ReplacePlans(ctx, -100, cat); err != nil {
			t.Fatalf("ReplacePlans: %v", err)
		}
		if _, ok := fr.data["channel:-100"]; ok {
			t.Fatal("expected cache entry dropped")
		}
		got, _ := repo.FindByID(ctx, -100)
		if len(got.Plans) != 1 || got.Plans[0].Price != "99" {
			t.Errorf("expected fresh plans, got %+v", got.Plans)
		}
	})

	t.Run("redis outage falls back to the store", func(t *testing.T) {
		fr.getErr = errors.New("dial tcp: connection refused")
		defer func() { fr.getErr = nil }()
		got, err := repo.FindByID(ctx, -100)
		if err != nil || got.Name != "Premium" {
			t.Errorf("expected store read, got %+v %v", got, err)
		}
	})

	t.Run("not found is not cached", func(t *testing.T) {
		if _, err := repo.FindByID(ctx, -999); !errors.Is(err, domain.ErrChannelNotFound) {
			t.Errorf("expected ErrChannelNotFound, got %v", err)
		}
		if _, ok := fr.data["channel:-999"]; ok {
			t.Error("misses must not be cached")
		}
	})
}
