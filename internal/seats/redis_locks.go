package seats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"reservely/internal/shared/constants"
)

// SeatLocker holds seats for a pending reservation until the passcode is
// verified or the pending TTL lapses. Locks are what keep two initiations
// for the same seat from both succeeding.
type SeatLocker struct {
	redis *redis.Client
}

// NewSeatLocker creates a new seat lock handler
func NewSeatLocker(redisClient *redis.Client) *SeatLocker {
	return &SeatLocker{redis: redisClient}
}

// Lua script for atomic seat locking - either every requested seat is
// locked or none is, and a conflicting seat is reported back.
const luaAtomicSeatLock = `
-- KEYS[1] = pending seats set key
-- ARGV[1] = temp_id
-- ARGV[2] = ttl_seconds
-- ARGV[3..N] = seat lock keys

local pending_key = KEYS[1]
local temp_id = ARGV[1]
local ttl = tonumber(ARGV[2])

-- Check that no requested seat is already locked
for i = 3, #ARGV do
    if redis.call("EXISTS", ARGV[i]) == 1 then
        return {0, ARGV[i]}
    end
end

-- Lock each seat and remember the set for release
for i = 3, #ARGV do
    redis.call("SETEX", ARGV[i], ttl, temp_id)
    redis.call("SADD", pending_key, ARGV[i])
end
redis.call("EXPIRE", pending_key, ttl)

return {1, "success"}
`

// Lua script for atomic lock release
const luaAtomicSeatUnlock = `
-- KEYS[1] = pending seats set key
-- ARGV[1] = temp_id

local pending_key = KEYS[1]
local temp_id = ARGV[1]

local seat_keys = redis.call("SMEMBERS", pending_key)
local released = 0

for i = 1, #seat_keys do
    -- Only delete locks this pending reservation still owns
    if redis.call("GET", seat_keys[i]) == temp_id then
        redis.call("DEL", seat_keys[i])
        released = released + 1
    end
end

redis.call("DEL", pending_key)
return released
`

func seatLockKey(date string, number int) string {
	return fmt.Sprintf("%s%s:%d", constants.KeySeatLock, date, number)
}

func pendingSeatsKey(tempID string) string {
	return constants.KeyPendingSeats + tempID
}

// Lock atomically locks the given seat numbers for tempID. Returns a
// conflict description when any seat is already locked by another pending
// reservation.
func (l *SeatLocker) Lock(ctx context.Context, date string, numbers []int, tempID string, ttl time.Duration) error {
	if l.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	keys := []string{pendingSeatsKey(tempID)}
	args := []interface{}{tempID, strconv.Itoa(int(ttl.Seconds()))}
	for _, n := range numbers {
		args = append(args, seatLockKey(date, n))
	}

	result, err := l.redis.Eval(ctx, luaAtomicSeatLock, keys, args...).Result()
	if err != nil {
		return fmt.Errorf("failed to execute atomic seat lock: %w", err)
	}

	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) != 2 {
		return fmt.Errorf("unexpected result format from lock script")
	}

	success, ok := resultArray[0].(int64)
	if !ok {
		return fmt.Errorf("invalid success flag in lock script result")
	}

	if success == 0 {
		if conflictKey, ok := resultArray[1].(string); ok {
			return &LockConflictError{SeatKey: conflictKey}
		}
		return fmt.Errorf("failed to lock seats")
	}

	return nil
}

// Unlock releases every seat still locked by tempID. Releasing an expired
// or unknown pending reservation is a no-op.
func (l *SeatLocker) Unlock(ctx context.Context, tempID string) (int, error) {
	if l.redis == nil {
		return 0, fmt.Errorf("redis client not available")
	}

	result, err := l.redis.Eval(ctx, luaAtomicSeatUnlock, []string{pendingSeatsKey(tempID)}, tempID).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to execute atomic seat unlock: %w", err)
	}

	released, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("invalid released count in unlock script result")
	}
	return int(released), nil
}

// LockedNumbers reports which of the given seat numbers currently carry a
// lock for the date. A single MGET covers the whole inventory.
func (l *SeatLocker) LockedNumbers(ctx context.Context, date string, numbers []int) (map[int]bool, error) {
	locked := make(map[int]bool)
	if l.redis == nil || len(numbers) == 0 {
		return locked, nil
	}

	keys := make([]string, len(numbers))
	for i, n := range numbers {
		keys[i] = seatLockKey(date, n)
	}

	values, err := l.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read seat locks: %w", err)
	}

	for i, v := range values {
		if v != nil {
			locked[numbers[i]] = true
		}
	}
	return locked, nil
}

// PreloadScripts loads the Lua scripts into Redis at startup
func (l *SeatLocker) PreloadScripts(ctx context.Context) error {
	if l.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	if _, err := l.redis.ScriptLoad(ctx, luaAtomicSeatLock).Result(); err != nil {
		return fmt.Errorf("failed to load seat lock script: %w", err)
	}
	if _, err := l.redis.ScriptLoad(ctx, luaAtomicSeatUnlock).Result(); err != nil {
		return fmt.Errorf("failed to load seat unlock script: %w", err)
	}
	return nil
}

// LockConflictError reports the first seat that was already locked.
type LockConflictError struct {
	SeatKey string
}

func (e *LockConflictError) Error() string {
	return fmt.Sprintf("seat already locked: %s", e.SeatKey)
}
