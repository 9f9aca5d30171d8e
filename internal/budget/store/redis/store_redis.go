// Package redis provides the Redis-backed budget store. The reserve runs as
// one server-side Lua script, so the check and the debit execute atomically
// even across engine replicas sharing the ledger.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"privacygate/internal/budget"
	"privacygate/pkg/domain"
	dErrors "privacygate/pkg/domain-errors"
)

const (
	keyPrefix  = "privacygate:budget:"
	sourcesKey = "privacygate:budget-sources"
)

// reserveScript creates the account lazily, then checks and debits in one
// atomic step. Returns {status, allowance, consumed, window_start}.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local sources = KEYS[2]
local src = ARGV[1]
local eps = tonumber(ARGV[2])
local allowance = tonumber(ARGV[3])
local now = ARGV[4]

if redis.call('EXISTS', key) == 0 then
	redis.call('HSET', key, 'allowance', allowance, 'consumed', '0', 'window_start', now)
	redis.call('SADD', sources, src)
end

local a = tonumber(redis.call('HGET', key, 'allowance'))
local c = tonumber(redis.call('HGET', key, 'consumed'))
local ws = redis.call('HGET', key, 'window_start')

if c + eps > a then
	return {'insufficient', tostring(a), tostring(c), ws}
end

c = c + eps
redis.call('HSET', key, 'consumed', tostring(c))
return {'ok', tostring(a), tostring(c), ws}
`)

// resetScript zeroes consumed budget when (and only when) the window has
// elapsed, so a sweep never clobbers a window a concurrent reserve just
// started.
var resetScript = redis.NewScript(`
local key = KEYS[1]
local windowNanos = tonumber(ARGV[1])
local nowNanos = tonumber(ARGV[2])

if redis.call('EXISTS', key) == 0 then
	return 0
end
local ws = tonumber(redis.call('HGET', key, 'window_start'))
if nowNanos - ws < windowNanos then
	return 0
end
redis.call('HSET', key, 'consumed', '0', 'window_start', tostring(nowNanos))
return 1
`)

type Store struct {
	client redis.UniversalClient
}

func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func accountKey(src domain.DataSourceID) string {
	return keyPrefix + src.String()
}

func (s *Store) Reserve(ctx context.Context, src domain.DataSourceID, epsilon, allowance float64, now time.Time) (*budget.Account, error) {
	res, err := reserveScript.Run(ctx, s.client,
		[]string{accountKey(src), sourcesKey},
		src.String(),
		epsilon,
		allowance,
		strconv.FormatInt(now.UnixNano(), 10),
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("run reserve script: %w", err)
	}
	if len(res) != 4 {
		return nil, fmt.Errorf("reserve script returned %d values, want 4", len(res))
	}

	acct, err := parseAccount(src, res[1], res[2], res[3])
	if err != nil {
		return nil, err
	}
	if res[0] != "ok" {
		return nil, dErrors.Newf(dErrors.CodeInsufficientBudget,
			"data source %q has %.4f epsilon remaining, requested %.4f", src, acct.Remaining(), epsilon)
	}
	return acct, nil
}

func (s *Store) Get(ctx context.Context, src domain.DataSourceID) (*budget.Account, error) {
	fields, err := s.client.HGetAll(ctx, accountKey(src)).Result()
	if err != nil {
		return nil, fmt.Errorf("get budget account: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return parseAccount(src, fields["allowance"], fields["consumed"], fields["window_start"])
}

func (s *Store) List(ctx context.Context) ([]*budget.Account, error) {
	sources, err := s.client.SMembers(ctx, sourcesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list budget sources: %w", err)
	}

	out := make([]*budget.Account, 0, len(sources))
	for _, raw := range sources {
		acct, err := s.Get(ctx, domain.DataSourceID(raw))
		if err != nil {
			return nil, err
		}
		if acct != nil {
			out = append(out, acct)
		}
	}
	return out, nil
}

func (s *Store) ResetExpired(ctx context.Context, window time.Duration, now time.Time) (int, error) {
	sources, err := s.client.SMembers(ctx, sourcesKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list budget sources: %w", err)
	}

	reset := 0
	for _, raw := range sources {
		n, err := resetScript.Run(ctx, s.client,
			[]string{accountKey(domain.DataSourceID(raw))},
			window.Nanoseconds(),
			now.UnixNano(),
		).Int()
		if err != nil {
			return reset, fmt.Errorf("reset budget account %q: %w", raw, err)
		}
		reset += n
	}
	return reset, nil
}

func parseAccount(src domain.DataSourceID, allowance, consumed, windowStart string) (*budget.Account, error) {
	a, err := strconv.ParseFloat(allowance, 64)
	if err != nil {
		return nil, fmt.Errorf("parse allowance %q: %w", allowance, err)
	}
	c, err := strconv.ParseFloat(consumed, 64)
	if err != nil {
		return nil, fmt.Errorf("parse consumed %q: %w", consumed, err)
	}
	wsNanos, err := strconv.ParseInt(windowStart, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse window_start %q: %w", windowStart, err)
	}
	return &budget.Account{
		DataSourceID: src,
		Allowance:    a,
		Consumed:     c,
		WindowStart:  time.Unix(0, wsNanos),
	}, nil
}
