package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AuditLockTTL bounds how long a crashed process can keep a lead locked.
// It must exceed the longest possible crawl budget.
const AuditLockTTL = 5 * time.Minute

// AuditLocker serializes audits per lead across processes with a
// SETNX-style lock. Each locker instance has its own owner token, so a
// locker never releases a lock another instance holds.
type AuditLocker struct {
	client *redis.Client
	owner  string
}

// NewAuditLocker creates a distributed audit locker on the cache's client.
func NewAuditLocker(cache *Cache) *AuditLocker {
	return &AuditLocker{
		client: cache.Client(),
		owner:  uuid.NewString(),
	}
}

// Acquire attempts to take the lead's audit lock. Returns false when
// another process already holds it.
func (l *AuditLocker) Acquire(ctx context.Context, leadID uuid.UUID) (bool, error) {
	return l.client.SetNX(ctx, PrefixAuditLock+leadID.String(), l.owner, AuditLockTTL).Result()
}

// releaseScript deletes the lock only when this locker still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Release frees the lead's audit lock if this locker owns it.
func (l *AuditLocker) Release(ctx context.Context, leadID uuid.UUID) error {
	return releaseScript.Run(ctx, l.client, []string{PrefixAuditLock + leadID.String()}, l.owner).Err()
}
