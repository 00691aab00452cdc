//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/hhaamed74/promanager-api/internal/testutil"
)

func newCacheTestEnv(t *testing.T) (context.Context, *Cache) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	c, err := New(ctx, DefaultOptions(redisURL))
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return ctx, c
}

func TestIntegrationCache_AccountSnapshot(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	acc := testutil.NewTestAccount(t, "cached")

	got, err := c.GetAccount(ctx, acc.ID)
	if err != nil || got != nil {
		t.Fatalf("expected miss, got %+v, %v", got, err)
	}

	lease, err := c.LeaseAccount(ctx, acc.ID)
	if err != nil || lease == "" {
		t.Fatalf("LeaseAccount = %q, %v", lease, err)
	}
	if ok, err := c.SetAccount(ctx, acc, lease); err != nil || !ok {
		t.Fatalf("SetAccount = %v, %v", ok, err)
	}

	got, err = c.GetAccount(ctx, acc.ID)
	if err != nil || got == nil {
		t.Fatalf("expected hit, got %+v, %v", got, err)
	}
	if got.Email != acc.Email || got.PasswordHash != "" {
		t.Errorf("unexpected snapshot: %+v", got)
	}

	ttl, err := c.Client().TTL(ctx, accountCachePrefix+acc.ID).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > accountCacheTTL {
		t.Errorf("TTL = %s, want (0, %s]", ttl, accountCacheTTL)
	}

	if err := c.DeleteAccount(ctx, acc.ID); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	if got, _ := c.GetAccount(ctx, acc.ID); got != nil {
		t.Error("expected miss after delete")
	}
}

func TestIntegrationCache_AccountLeaseRevokedByDelete(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	acc := testutil.NewTestAccount(t, "leased")

	lease, err := c.LeaseAccount(ctx, acc.ID)
	if err != nil || lease == "" {
		t.Fatalf("LeaseAccount = %q, %v", lease, err)
	}

	// Only one lookup may fill at a time.
	if second, err := c.LeaseAccount(ctx, acc.ID); err != nil || second != "" {
		t.Fatalf("second LeaseAccount = %q, %v; want empty", second, err)
	}

	// An invalidation between the database read and the fill wins.
	if err := c.DeleteAccount(ctx, acc.ID); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	ok, err := c.SetAccount(ctx, acc, lease)
	if err != nil {
		t.Fatalf("SetAccount failed: %v", err)
	}
	if ok {
		t.Error("SetAccount with a revoked lease should not write")
	}
	if got, _ := c.GetAccount(ctx, acc.ID); got != nil {
		t.Errorf("expected miss, got %+v", got)
	}

	// A fresh lease fills normally and is released.
	fresh, err := c.LeaseAccount(ctx, acc.ID)
	if err != nil || fresh == "" || fresh == lease {
		t.Fatalf("fresh LeaseAccount = %q, %v", fresh, err)
	}
	if ok, err := c.SetAccount(ctx, acc, fresh); err != nil || !ok {
		t.Fatalf("SetAccount with fresh lease = %v, %v", ok, err)
	}
	if n, _ := c.Client().Exists(ctx, accountLeasePrefix+acc.ID).Result(); n != 0 {
		t.Error("lease should be released after a fill")
	}
}

func TestIntegrationCache_CheckRateLimitBurst(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	key := "principal:" + testutil.UniqueID("rl")
	const burst = 3

	for i := 0; i < burst; i++ {
		res, err := c.CheckRateLimit(ctx, key, 60, burst)
		if err != nil {
			t.Fatalf("CheckRateLimit failed: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	res, err := c.CheckRateLimit(ctx, key, 60, burst)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if res.Allowed {
		t.Error("request beyond burst should be rejected")
	}
	if res.RetryAfter < time.Second {
		t.Errorf("RetryAfter = %s, want >= 1s", res.RetryAfter)
	}
}

func TestIntegrationCache_CheckRateLimitUnlimited(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	for i := 0; i < 10; i++ {
		res, err := c.CheckRateLimit(ctx, "principal:unlimited", 0, 1)
		if err != nil || !res.Allowed {
			t.Fatalf("unlimited bucket rejected request %d: %v", i, err)
		}
	}
}

func TestIntegrationCache_CheckRateLimitCountsDown(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	key := "ip:" + testutil.UniqueID("rl")
	for want := int64(4); want >= 0; want-- {
		res, err := c.CheckRateLimit(ctx, key, 5, 5)
		if err != nil {
			t.Fatalf("CheckRateLimit failed: %v", err)
		}
		if res.Remaining != want {
			t.Errorf("Remaining = %d, want %d", res.Remaining, want)
		}
		if !res.ResetAt.After(time.Now()) {
			t.Error("ResetAt should be in the future once tokens are spent")
		}
	}
}

func TestIntegrationCache_CheckRateLimitReturnsErrors(t *testing.T) {
	_, c := newCacheTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.CheckRateLimit(ctx, "principal:cancelled", 60, 1); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}
