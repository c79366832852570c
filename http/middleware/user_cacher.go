package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fartinmartin/convexauth"
)

const (
	DefaultUserCacheTTL = 30 * time.Second
	userCachePrefix     = "convexauth:user:"
)

var (
	_ UserCacher = (*UserMap)(nil)
	_ UserCacher = UserRedis{}
)

// A UserCacher pairs users to the JWTs they were resolved with,
// sparing a Convex query on repeated requests.
//
// Only users actually resolved are cached; a rejected JWT is never a hit.
type UserCacher interface {
	Get(ctx context.Context, tok string) (*convexauth.User, bool)
	Set(ctx context.Context, tok string, u *convexauth.User)
}

// A UserMap stores users in a map.
//
// Server restarts reset this map.
// A UserMap ought not be used when running more than one server.
type UserMap struct {
	ttl time.Duration
	now func() time.Time

	mu  sync.Mutex
	val map[string]userMapVal
}

type userMapVal struct {
	user convexauth.User
	at   time.Time
}

// NewUserMap constructs a UserMap whose entries live for ttl.
func NewUserMap(ttl time.Duration) *UserMap {
	if ttl <= 0 {
		ttl = DefaultUserCacheTTL
	}

	return &UserMap{ttl: ttl, now: time.Now, val: make(map[string]userMapVal)}
}

// Get retrieves the user paired to tok, unless it expired.
func (m *UserMap) Get(ctx context.Context, tok string) (*convexauth.User, bool) {
	if tok == "" || ctx.Err() != nil {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.val[tok]
	if !ok || m.now().Sub(v.at) > m.ttl {
		return nil, false
	}

	u := v.user
	return &u, true
}

// Set pairs u to tok.
//
// For each call to Set, expired entries are evicted.
func (m *UserMap) Set(ctx context.Context, tok string, u *convexauth.User) {
	if tok == "" || u == nil || ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, v := range m.val {
		if now.Sub(v.at) > m.ttl {
			delete(m.val, k)
		}
	}

	m.val[tok] = userMapVal{user: *u, at: now}
}

// UserCacheKey is the Redis key the user resolved with tok is cached under.
// Keys carry a SHA-256 of tok, never the JWT itself.
func UserCacheKey(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return userCachePrefix + hex.EncodeToString(sum[:])
}

// A UserRedis connects to a Redis backend
// for the purposes of caching users.
type UserRedis struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewUserRedis constructs a UserRedis with the options passed in.
func NewUserRedis(opts *redis.Options, ttl time.Duration) UserRedis {
	return NewUserRedisClient(redis.NewClient(opts), ttl)
}

// NewUserRedisClient constructs a UserRedis over an existing client.
func NewUserRedisClient(client redis.Cmdable, ttl time.Duration) UserRedis {
	if ttl <= 0 {
		ttl = DefaultUserCacheTTL
	}

	return UserRedis{client: client, ttl: ttl}
}

// Get retrieves the user paired to tok from the connected Redis backend.
func (c UserRedis) Get(ctx context.Context, tok string) (*convexauth.User, bool) {
	if tok == "" {
		return nil, false
	}

	b, err := c.client.Get(ctx, UserCacheKey(tok)).Bytes()
	if err != nil {
		return nil, false
	}

	u := new(convexauth.User)
	if err := json.Unmarshal(b, u); err != nil {
		return nil, false
	}

	return u, true
}

// Set saves u by pairing it to tok in the Redis backend.
func (c UserRedis) Set(ctx context.Context, tok string, u *convexauth.User) {
	if tok == "" || u == nil {
		return
	}

	b, err := json.Marshal(u)
	if err != nil {
		return
	}

	c.client.Set(ctx, UserCacheKey(tok), b, c.ttl)
}
