// Package actigraphy classifies a wearer's wake/sleep state in real time
// from a continuous stream of tri-axial accelerometer samples. The pipeline
// is allocation-free after construction and sized for a single-core,
// memory-constrained wearable: the caller feeds samples at a fixed cadence
// and receives a synchronous callback whenever the classified state changes.
package actigraphy

// State is the classified physiological state delivered to callbacks.
// The wire codes match the device firmware: 0 is wake, 1 is sleep. The
// sentinel StateUnknown is the pre-classification value and is never
// delivered through a callback.
type State uint8

const (
	StateWake    State = 0
	StateSleep   State = 1
	StateUnknown State = 255
)

func (s State) String() string {
	switch s {
	case StateWake:
		return "wake"
	case StateSleep:
		return "sleep"
	case StateUnknown:
		return "unknown"
	}
	return "invalid"
}

// StateCallback receives the new state each time the classification changes
// from its previously announced value. Callbacks run synchronously on the
// caller's goroutine, inside UpdateAccel.
type StateCallback func(State)

// SleepTracker abstracts the classification algorithm. Any implementation
// that reduces an ordered stream of tri-axial samples to a binary
// wake/sleep state qualifies; the callback contract is bound at
// construction time by the concrete type.
//
// The caller is solely responsible for invoking UpdateAccel in strict
// chronological order at the tracker's configured sample rate. The
// algorithm has no internal clock: every call is assumed to represent
// exactly one sample period.
type SleepTracker interface {
	// UpdateAccel consumes one tri-axial acceleration sample. It may
	// synchronously invoke the bound state-change callback before
	// returning.
	UpdateAccel(x, y, z float64)

	// State returns the most recently classified state, or StateUnknown
	// until the first classification completes.
	State() State
}

// Verify at compile time that *VanHeesTracker implements SleepTracker.
var _ SleepTracker = (*VanHeesTracker)(nil)
