package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hhaamed74/promanager-api/internal/model"
)

const (
	// accountCachePrefix is the Redis key prefix for account snapshots.
	accountCachePrefix = "account:snap:"
	// accountCacheTTL bounds how long a toggled or deleted account can stay
	// authenticated if an invalidation is lost.
	accountCacheTTL = 5 * time.Minute

	// accountLeasePrefix is the Redis key prefix for fill leases.
	accountLeasePrefix = "account:lease:"
	// accountLeaseTTL bounds how long a lookup may take between leasing and filling.
	accountLeaseTTL = 10 * time.Second
)

// fillAccountScript writes a snapshot only while the caller still holds the
// fill lease. DeleteAccount drops the lease, so a lookup that read the
// database before an invalidation cannot write its stale copy back.
var fillAccountScript = redis.NewScript(`
	local lease = KEYS[1]
	local snap = KEYS[2]

	if redis.call('GET', lease) ~= ARGV[1] then
		return 0
	end

	redis.call('SET', snap, ARGV[2], 'PX', ARGV[3])
	redis.call('DEL', lease)
	return 1
`)

// accountSnapshot is the cached subset of an account.
// The password hash is deliberately absent.
type accountSnapshot struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	Avatar    string     `json:"avatar"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// GetAccount retrieves a cached account snapshot.
// Returns nil if not found (cache miss).
func (c *Cache) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	data, err := c.client.Get(ctx, accountCachePrefix+id).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var snap accountSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return snap.toAccount(), nil
}

// LeaseAccount reserves the right to fill the snapshot of an account.
// It must be called before the database read. An empty lease means another
// lookup is already filling; the caller should skip SetAccount.
func (c *Cache) LeaseAccount(ctx context.Context, id string) (string, error) {
	lease := uuid.NewString()
	ok, err := c.client.SetNX(ctx, accountLeasePrefix+id, lease, accountLeaseTTL).Result()
	if err != nil {
		return "", fmt.Errorf("lease account snapshot: %w", err)
	}
	if !ok {
		return "", nil
	}
	return lease, nil
}

// SetAccount caches an account snapshot if lease is still held.
// Returns false when the lease was lost to an invalidation or expired.
func (c *Cache) SetAccount(ctx context.Context, a *model.Account, lease string) (bool, error) {
	if lease == "" {
		return false, nil
	}

	data, err := json.Marshal(newAccountSnapshot(a))
	if err != nil {
		return false, fmt.Errorf("marshal account snapshot: %w", err)
	}

	keys := []string{accountLeasePrefix + a.ID, accountCachePrefix + a.ID}
	n, err := fillAccountScript.Run(ctx, c.client, keys, lease, data, accountCacheTTL.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("fill account snapshot: %w", err)
	}
	return n == 1, nil
}

// DeleteAccount removes a cached account snapshot and revokes any
// outstanding fill lease.
// Called whenever the account's profile, active flag or existence changes.
func (c *Cache) DeleteAccount(ctx context.Context, id string) error {
	return c.client.Del(ctx, accountCachePrefix+id, accountLeasePrefix+id).Err()
}

func newAccountSnapshot(a *model.Account) accountSnapshot {
	return accountSnapshot{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		Avatar:    a.Avatar,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (s accountSnapshot) toAccount() *model.Account {
	return &model.Account{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		Role:      s.Role,
		Avatar:    s.Avatar,
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
