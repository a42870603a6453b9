package workflow

// State is the reservation session's position in the flow. Transitions only
// move through Advance-style methods on Session so every path stays legal.
type State string

const (
	StateSelectingDate        State = "selecting_date"
	StateSelectingSeats       State = "selecting_seats"
	StateEnteringDetails      State = "entering_details"
	StateAwaitingVerification State = "awaiting_verification"
	StateConfirmed            State = "confirmed"
	StateCancelled            State = "cancelled"

	// StateFailed is recoverable: the session keeps everything the user
	// entered and Recover returns to the state the failure interrupted.
	StateFailed State = "failed"
)

// Pending mirrors the in-flight operations a UI needs to disable controls
// for. At most one is true at a time.
type Pending struct {
	SettingsLoading bool `json:"settingsLoading"`
	SeatsLoading    bool `json:"seatsLoading"`
	Submitting      bool `json:"submitting"`
	Verifying       bool `json:"verifying"`
}
