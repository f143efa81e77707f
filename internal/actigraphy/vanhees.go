package actigraphy

import "math"

// Default tuning values, matching the wearable firmware build. The defaults
// implement the low-cost variant of the van Hees 2015 wrist-angle method:
// an exponential moving average stands in for the rolling median of the
// paper, which trades some outlier robustness for constant memory.
const (
	DefaultSampleRate       = 10    // Hz, accelerometer update rate
	DefaultSecondsPerUpdate = 5     // window length in seconds
	DefaultEta              = 0.005 // moving-average decay factor
	DefaultHistoryWindows   = 60    // trailing windows scanned per classification
	DefaultThresholdDegrees = 5.0   // arm-angle change considered a wake event
)

// Params are the tuning parameters of the VanHees tracker. Values at or
// below zero fall back to the firmware defaults, so a partially populated
// struct is safe.
type Params struct {
	SampleRate       int     // samples per second the caller will deliver
	SecondsPerUpdate int     // seconds of samples per evaluation window
	Eta              float64 // per-axis exponential moving average factor
	HistoryWindows   int     // change-history depth in windows
	ThresholdDegrees float64 // per-window angle change that forces wake
}

// DefaultParams returns the firmware tuning.
func DefaultParams() Params {
	return Params{
		SampleRate:       DefaultSampleRate,
		SecondsPerUpdate: DefaultSecondsPerUpdate,
		Eta:              DefaultEta,
		HistoryWindows:   DefaultHistoryWindows,
		ThresholdDegrees: DefaultThresholdDegrees,
	}
}

func (p Params) normalized() Params {
	d := DefaultParams()
	if p.SampleRate < 1 {
		p.SampleRate = d.SampleRate
	}
	if p.SecondsPerUpdate < 1 {
		p.SecondsPerUpdate = d.SecondsPerUpdate
	}
	if p.Eta <= 0 {
		p.Eta = d.Eta
	}
	if p.HistoryWindows < 1 {
		p.HistoryWindows = d.HistoryWindows
	}
	if p.ThresholdDegrees <= 0 {
		p.ThresholdDegrees = d.ThresholdDegrees
	}
	return p
}

// WindowSamples returns the evaluation window length in samples.
func (p Params) WindowSamples() int {
	return p.SampleRate * p.SecondsPerUpdate
}

// VanHeesTracker classifies sleep from smoothed arm-angle estimates.
//
// Each sample updates a per-axis moving average and appends an arm-angle
// estimate to a window-sized ring. At each window boundary the mean angle
// of the window is compared against the previous window's mean, and the
// absolute change is recorded in a longer change-history ring. Once that
// history has filled once (the warm-up), the tracker classifies sleep when
// no change in the trailing history exceeds the threshold; a single
// excursion anywhere in the history forces wake.
//
// One quirk is preserved from the shipped firmware: the sample counter is
// checked against the window length before being reset and incremented, so
// evaluations actually occur every WindowSamples()+1 calls. The angle ring
// still holds exactly the last window of estimates at each evaluation.
// Changing this would shift every transition time, so replay compatibility
// requires keeping it.
type VanHeesTracker struct {
	params   Params
	callback StateCallback

	iteration int        // sample counter within the current window
	warmup    int        // windows remaining before classification may run
	accelAvgs [3]float64 // per-axis exponential moving averages

	angleHist  *RingBuffer[float64] // last window of arm-angle estimates
	changeHist *RingBuffer[float64] // last HistoryWindows window-mean deltas

	prevWindowMean float64 // NaN until the first window completes
	state          State
}

// NewVanHeesTracker creates a tracker with the firmware default tuning.
// The callback must be non-nil: constructing a tracker without a state
// consumer is a programming error, and panicking here keeps the
// notification contract intact rather than silently dropping transitions.
func NewVanHeesTracker(callback StateCallback) *VanHeesTracker {
	return NewVanHeesTrackerWithParams(DefaultParams(), callback)
}

// NewVanHeesTrackerWithParams creates a tracker with explicit tuning.
// Non-positive fields in params fall back to the defaults. Panics if
// callback is nil.
func NewVanHeesTrackerWithParams(params Params, callback StateCallback) *VanHeesTracker {
	if callback == nil {
		panic("actigraphy: state callback must be bound at construction")
	}
	p := params.normalized()
	return &VanHeesTracker{
		params:         p,
		callback:       callback,
		warmup:         p.HistoryWindows,
		angleHist:      NewRingBuffer[float64](p.WindowSamples()),
		changeHist:     NewRingBuffer[float64](p.HistoryWindows),
		prevWindowMean: math.NaN(),
		state:          StateUnknown,
	}
}

// Params returns the tracker's effective tuning.
func (t *VanHeesTracker) Params() Params {
	return t.params
}

// State returns the most recently classified state, or StateUnknown until
// warm-up completes.
func (t *VanHeesTracker) State() State {
	return t.state
}

// UpdateAccel consumes one tri-axial acceleration sample. Inputs are
// accepted unconditionally: a sample with near-zero horizontal magnitude
// drives the angle estimate toward ±90° rather than erroring, and a
// non-finite sample propagates through the moving averages until they
// recover. The bound callback fires synchronously when the classified
// state changes.
func (t *VanHeesTracker) UpdateAccel(x, y, z float64) {
	// update averages
	t.accelAvgs[0] = ema(x, t.accelAvgs[0], t.params.Eta)
	t.accelAvgs[1] = ema(y, t.accelAvgs[1], t.params.Eta)
	t.accelAvgs[2] = ema(z, t.accelAvgs[2], t.params.Eta)

	// estimate arm angle from the smoothed triple and record it
	t.angleHist.Advance()
	t.angleHist.Write(0, ArmAngle(t.accelAvgs[0], t.accelAvgs[1], t.accelAvgs[2]))

	w := t.params.WindowSamples()
	if t.iteration == w {
		// mean arm angle over the just-completed window
		var mean float64
		for i := 0; i < w; i++ {
			mean += t.angleHist.Read(i)
		}
		mean /= float64(w)

		if !math.IsNaN(t.prevWindowMean) {
			change := math.Abs(mean - t.prevWindowMean)

			t.changeHist.Advance()
			t.changeHist.Write(0, change)

			if t.warmup > 0 {
				// hold off until the change history has filled once
				t.warmup--
			} else {
				// sleep unless any trailing window moved more than the
				// threshold
				newState := StateSleep
				for i := 0; i < t.params.HistoryWindows; i++ {
					if t.changeHist.Read(i) > t.params.ThresholdDegrees {
						newState = StateWake
						break
					}
				}

				if newState != t.state {
					t.callback(newState)
				}
				t.state = newState
			}
		}

		t.prevWindowMean = mean
		t.iteration = 0
	}

	t.iteration++
}

func ema(x, y, eta float64) float64 {
	return y + eta*(x-y)
}

// ArmAngle estimates arm inclination in degrees from a smoothed
// acceleration triple. Zero horizontal magnitude yields ±90°.
func ArmAngle(x, y, z float64) float64 {
	return math.Atan(z/math.Sqrt(x*x+y*y)) * 180 / math.Pi
}
