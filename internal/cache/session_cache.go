package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"preflight/internal/model"
)

// ErrSessionLocked means another request held the session lock for the
// whole wait.
var ErrSessionLocked = errors.New("wizard session is locked")

const (
	lockTTL   = 30 * time.Second
	lockRetry = 20 * time.Millisecond
)

// Only the holder's token may release a lock; an expired lock may already
// belong to someone else.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Unlock releases a session lock
type Unlock func(ctx context.Context) error

// SessionCache parks wizard state between HTTP requests
type SessionCache interface {
	// Lock serializes writers of one session. It polls for up to wait and
	// returns ErrSessionLocked if the lock never frees up.
	Lock(ctx context.Context, sessionID string, wait time.Duration) (Unlock, error)
	Set(ctx context.Context, state *model.WizardState) error
	// Get returns nil, nil when the session expired or never existed
	Get(ctx context.Context, sessionID string) (*model.WizardState, error)
	Delete(ctx context.Context, sessionID string) error
	// ListByOwner returns the ids of the owner's live sessions
	ListByOwner(ctx context.Context, ownerID string) ([]string, error)
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client, ttl time.Duration) SessionCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &sessionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *sessionCache) sessionKey(sessionID string) string {
	return fmt.Sprintf("wizard:%s", sessionID)
}

func (c *sessionCache) ownerKey(ownerID string) string {
	return fmt.Sprintf("owner:%s:wizards", ownerID)
}

func (c *sessionCache) lockKey(sessionID string) string {
	return fmt.Sprintf("wizard:%s:lock", sessionID)
}

func (c *sessionCache) Lock(ctx context.Context, sessionID string, wait time.Duration) (Unlock, error) {
	key := c.lockKey(sessionID)
	token := uuid.New().String()
	deadline := time.Now().Add(wait)
	for {
		ok, err := c.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func(ctx context.Context) error {
				return unlockScript.Run(ctx, c.client, []string{key}, token).Err()
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrSessionLocked
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetry):
		}
	}
}

func (c *sessionCache) Set(ctx context.Context, state *model.WizardState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.sessionKey(state.SessionID), data, c.ttl)
	pipe.SAdd(ctx, c.ownerKey(state.OwnerID), state.SessionID)
	pipe.Expire(ctx, c.ownerKey(state.OwnerID), c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *sessionCache) Get(ctx context.Context, sessionID string) (*model.WizardState, error) {
	data, err := c.client.Get(ctx, c.sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state model.WizardState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *sessionCache) Delete(ctx context.Context, sessionID string) error {
	state, err := c.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.sessionKey(sessionID))
	if state != nil {
		pipe.SRem(ctx, c.ownerKey(state.OwnerID), sessionID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// ListByOwner also prunes ids whose session key has expired
func (c *sessionCache) ListByOwner(ctx context.Context, ownerID string) ([]string, error) {
	ids, err := c.client.SMembers(ctx, c.ownerKey(ownerID)).Result()
	if err != nil {
		return nil, err
	}
	live := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := c.client.Exists(ctx, c.sessionKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			c.client.SRem(ctx, c.ownerKey(ownerID), id)
			continue
		}
		live = append(live, id)
	}
	return live, nil
}
