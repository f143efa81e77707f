// Package replay drives a sleep tracker from recorded accelerometer
// streams and scores its output against labeled ground truth. Recordings
// are the line-oriented interchange format used by the firmware test rig:
// one whitespace-delimited "TIME X Y Z TRUTH" row per sample at the fixed
// sample rate.
package replay

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/slumber.report/internal/actigraphy"
)

// Sample is one row of a recording.
type Sample struct {
	Time    float64 // seconds since recording start
	X, Y, Z float64 // tri-axial acceleration
	Truth   float64 // labeled sleep stage; 0 is wake, >0 is asleep
}

// Transition is one announced state change during a replay run.
type Transition struct {
	SampleIndex int
	Time        float64
	State       actigraphy.State
}

// TrackerFactory builds a fresh tracker bound to the given callback. The
// replay runner is tracker-agnostic so alternative classifiers can be
// evaluated against the same recordings.
type TrackerFactory func(actigraphy.StateCallback) actigraphy.SleepTracker

// ParseRecording reads whitespace-delimited TIME X Y Z TRUTH rows. Blank
// lines and lines starting with '#' are skipped.
func ParseRecording(r io.Reader) ([]Sample, error) {
	var samples []Sample

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, fmt.Errorf("line %d: expected 5 fields (TIME X Y Z TRUTH), got %d", lineNo, len(fields))
		}

		var vals [5]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: field %d: %v", lineNo, i+1, err)
			}
			vals[i] = v
		}

		samples = append(samples, Sample{
			Time:  vals[0],
			X:     vals[1],
			Y:     vals[2],
			Z:     vals[3],
			Truth: vals[4],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	return samples, nil
}

// Run feeds the samples in order into a freshly built tracker and collects
// the announced transitions. Replaying identical input always yields an
// identical transition sequence.
func Run(samples []Sample, factory TrackerFactory) []Transition {
	var transitions []Transition

	idx := 0
	tracker := factory(func(s actigraphy.State) {
		transitions = append(transitions, Transition{
			SampleIndex: idx,
			Time:        samples[idx].Time,
			State:       s,
		})
	})

	for idx = 0; idx < len(samples); idx++ {
		s := samples[idx]
		tracker.UpdateAccel(s.X, s.Y, s.Z)
	}

	return transitions
}

// Predicted expands a transition sequence into a per-sample state series
// by zero-order hold. Samples before the first transition are
// StateUnknown.
func Predicted(n int, transitions []Transition) []actigraphy.State {
	states := make([]actigraphy.State, n)
	for i := range states {
		states[i] = actigraphy.StateUnknown
	}

	for t := 0; t < len(transitions); t++ {
		end := n
		if t+1 < len(transitions) {
			end = transitions[t+1].SampleIndex
		}
		for i := transitions[t].SampleIndex; i < end && i < n; i++ {
			states[i] = transitions[t].State
		}
	}
	return states
}
