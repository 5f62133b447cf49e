/**
 * @description
 * Per-asset admission control for payout creation, shared by all API
 * instances through Redis. The limiter owns the policy (limit and window)
 * and only counts requests it admits, so a rejected burst cannot keep
 * extending the block on an asset.
 */

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// payoutAdmissionScript checks the asset's window before counting: a request
// over the limit is rejected without touching the counter. Replies with
// {admitted, remaining window in ms}.
var payoutAdmissionScript = redis.NewScript(`
local admitted = tonumber(redis.call("GET", KEYS[1]) or "0")
if admitted >= tonumber(ARGV[1]) then
  local remaining = redis.call("PTTL", KEYS[1])
  if remaining < 0 then
    remaining = tonumber(ARGV[2])
  end
  return {0, remaining}
end
if redis.call("INCR", KEYS[1]) == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return {1, 0}
`)

const payoutAdmissionKeyPrefix = "masspayout:payout_admission:"

// PayoutAdmission enforces the per-asset payout-creation rate limit.
type PayoutAdmission struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
}

// NewPayoutAdmission creates a limiter admitting at most limit payout
// creations per asset within each window. A non-positive limit disables
// enforcement.
func NewPayoutAdmission(client redis.UniversalClient, limit int, window time.Duration) *PayoutAdmission {
	if window < time.Second {
		window = time.Second
	}
	return &PayoutAdmission{
		client: client,
		limit:  limit,
		window: window,
	}
}

// AllowPayoutCreation reports whether another payout may be created for the
// asset in the current window and, when it may not, how long to wait.
func (p *PayoutAdmission) AllowPayoutCreation(ctx context.Context, assetID uuid.UUID) (allowed bool, retryAfter time.Duration, err error) {
	if p == nil || p.client == nil || p.limit <= 0 {
		return true, 0, nil
	}

	key := payoutAdmissionKeyPrefix + assetID.String()
	raw, err := payoutAdmissionScript.Run(ctx, p.client, []string{key}, p.limit, p.window.Milliseconds()).Result()
	if err != nil {
		return false, 0, err
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 2 {
		return false, 0, fmt.Errorf("unexpected admission reply shape: %T", raw)
	}
	verdict, verdictOK := reply[0].(int64)
	remainingMs, remainingOK := reply[1].(int64)
	if !verdictOK || !remainingOK {
		return false, 0, fmt.Errorf("unexpected admission reply types: %T, %T", reply[0], reply[1])
	}

	if verdict == 1 {
		return true, 0, nil
	}
	if remainingMs < 0 {
		remainingMs = p.window.Milliseconds()
	}
	retryAfter = time.Duration(remainingMs) * time.Millisecond
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return false, retryAfter, nil
}
