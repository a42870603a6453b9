package constants

// Redis key prefixes. Every key the application writes goes through one of
// these so a flush or migration can reason about the whole keyspace.
const (
	// Cache keys
	CacheKeySettings   = "reservely:cache:settings"
	CacheKeySeatsByDay = "reservely:cache:seats:" // + YYYY-MM-DD

	// Pending reservation keys
	KeyPendingReservation = "reservely:pending:"      // + tempId -> pending metadata hash
	KeySeatLock           = "reservely:seat_lock:"    // + date:seatNumber -> tempId
	KeyPendingSeats       = "reservely:pending_seats:" // + tempId -> set of locked seat keys
	KeyEmailPending       = "reservely:email_pending:" // + email -> tempId (resend lookup)

	// Verification keys
	KeyOTP         = "reservely:otp:"          // + tempId -> passcode
	KeyOTPCooldown = "reservely:otp:cooldown:" // + tempId -> resend cooldown marker

	// Rate limit keys
	KeyRateLimit = "reservely:ratelimit:" // + ip:type -> sliding window zset
)
