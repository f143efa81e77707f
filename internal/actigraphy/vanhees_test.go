package actigraphy

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// windowPeriod is the number of UpdateAccel calls between evaluations.
// The firmware checks the sample counter before resetting and
// incrementing it, so the period is one sample longer than the window.
func windowPeriod(p Params) int {
	return p.WindowSamples() + 1
}

// firstClassificationSample returns the 1-based call count at which the
// first classification runs: one evaluation to seed the previous window
// mean, HistoryWindows evaluations to drain the warm-up counter, then one
// more to classify.
func firstClassificationSample(p Params) int {
	return (p.HistoryWindows + 2) * windowPeriod(p)
}

func feedConstant(tr SleepTracker, x, y, z float64, n int) {
	for i := 0; i < n; i++ {
		tr.UpdateAccel(x, y, z)
	}
}

func TestNilCallbackPanics(t *testing.T) {
	require.Panics(t, func() { NewVanHeesTracker(nil) })
	require.Panics(t, func() { NewVanHeesTrackerWithParams(DefaultParams(), nil) })
}

func TestParamsNormalization(t *testing.T) {
	tr := NewVanHeesTrackerWithParams(Params{}, func(State) {})
	require.Equal(t, DefaultParams(), tr.Params())

	tr = NewVanHeesTrackerWithParams(Params{SampleRate: 25, Eta: 0.01}, func(State) {})
	require.Equal(t, 25, tr.Params().SampleRate)
	require.Equal(t, 0.01, tr.Params().Eta)
	require.Equal(t, DefaultHistoryWindows, tr.Params().HistoryWindows)
	require.Equal(t, 125, tr.Params().WindowSamples())
}

// Still wrist: no callback until warm-up completes, then a single sleep
// announcement. The constant (0,0,1) input pins the angle estimate at
// exactly +90°, so every window delta is zero.
func TestStillWristClassifiesSleepAfterWarmup(t *testing.T) {
	var calls []State
	tr := NewVanHeesTracker(func(s State) { calls = append(calls, s) })

	boundary := firstClassificationSample(DefaultParams())

	feedConstant(tr, 0, 0, 1, boundary-1)
	require.Empty(t, calls, "no callback may fire during warm-up")
	require.Equal(t, StateUnknown, tr.State(), "state stays sentinel during warm-up")

	tr.UpdateAccel(0, 0, 1)
	require.Equal(t, []State{StateSleep}, calls, "first classification announces sleep")
	require.Equal(t, StateSleep, tr.State())

	// Continued stillness re-classifies every window but never re-announces.
	feedConstant(tr, 0, 0, 1, 5*windowPeriod(DefaultParams()))
	require.Equal(t, []State{StateSleep}, calls)
}

// Rotating the wrist to horizontal drags the smoothed angle away from 90°
// fast enough to exceed the threshold within one window, forcing a single
// wake announcement. The violation then sits in the change history without
// re-announcing.
func TestWristRotationForcesWake(t *testing.T) {
	var calls []State
	tr := NewVanHeesTracker(func(s State) { calls = append(calls, s) })

	p := DefaultParams()
	feedConstant(tr, 0, 0, 1, firstClassificationSample(p))
	require.Equal(t, []State{StateSleep}, calls)

	feedConstant(tr, 1, 0, 0, 2*windowPeriod(p))
	require.Equal(t, []State{StateSleep, StateWake}, calls,
		"one wake announcement at the violating window boundary, none after")
	require.Equal(t, StateWake, tr.State())
}

// A single violating window anywhere in the trailing history holds the
// state at wake; sleep requires the full history to be calm again.
func TestSleepRequiresCalmHistory(t *testing.T) {
	var calls []State
	tr := NewVanHeesTracker(func(s State) { calls = append(calls, s) })

	p := DefaultParams()
	feedConstant(tr, 0, 0, 1, firstClassificationSample(p))
	feedConstant(tr, 1, 0, 0, windowPeriod(p)) // one disturbed window

	// Settle on the new orientation. The EMA keeps the angle drifting for
	// a while, but well before HistoryWindows of calm have elapsed the
	// per-window deltas drop under the threshold. The state must stay
	// wake until the last violation ages out of the history.
	feedConstant(tr, 1, 0, 0, (p.HistoryWindows-1)*windowPeriod(p))
	require.Equal(t, StateWake, tr.State(), "violation still in trailing history")

	// Long after the deltas flatten out, the history drains and sleep
	// returns.
	feedConstant(tr, 1, 0, 0, 3*p.HistoryWindows*windowPeriod(p))
	require.Equal(t, StateSleep, tr.State())
	require.Equal(t, []State{StateSleep, StateWake, StateSleep}, calls)
}

func TestStateBeforeFirstWindowIsUnknown(t *testing.T) {
	tr := NewVanHeesTracker(func(State) { t.Fatal("callback must not fire") })
	feedConstant(tr, 0.2, -0.4, 0.9, DefaultParams().HistoryWindows*windowPeriod(DefaultParams()))
	require.Equal(t, StateUnknown, tr.State())
}

// Replaying an identical sample stream through a fresh tracker yields an
// identical transition sequence.
func TestDeterministicReplay(t *testing.T) {
	run := func() []State {
		var transitions []State
		tr := NewVanHeesTracker(func(s State) { transitions = append(transitions, s) })

		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 20000; i++ {
			// Alternate calm and agitated stretches.
			if (i/3000)%2 == 0 {
				tr.UpdateAccel(0.01*rng.Float64(), 0.01*rng.Float64(), 1)
			} else {
				tr.UpdateAccel(rng.Float64()*2-1, rng.Float64()*2-1, rng.Float64()*2-1)
			}
		}
		return transitions
	}

	first := run()
	second := run()
	require.NotEmpty(t, first)
	require.Equal(t, first, second)
}

// Non-finite samples poison the averages but must not crash or announce;
// the estimate recovers once finite samples resume.
func TestNonFiniteInputPropagates(t *testing.T) {
	var calls []State
	tr := NewVanHeesTracker(func(s State) { calls = append(calls, s) })

	tr.UpdateAccel(math.NaN(), 0, 1)
	feedConstant(tr, 0, 0, 1, 10)
	require.Empty(t, calls)
	require.Equal(t, StateUnknown, tr.State())
}

func TestArmAngleDegenerateOrientation(t *testing.T) {
	// Zero horizontal magnitude drives the estimate to ±90°.
	require.Equal(t, 90.0, ArmAngle(0, 0, 0.5))
	require.Equal(t, -90.0, ArmAngle(0, 0, -0.5))

	// Flat orientation sits at 0°.
	require.Equal(t, 0.0, ArmAngle(1, 0, 0))

	require.InDelta(t, 45.0, ArmAngle(1, 0, 1), 1e-12)
}

func TestEMAConvergesTowardInput(t *testing.T) {
	avg := 0.0
	for i := 0; i < 2000; i++ {
		avg = ema(1, avg, DefaultEta)
	}
	require.InDelta(t, 1.0, avg, 1e-4)
}
