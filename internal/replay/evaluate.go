package replay

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/slumber.report/internal/actigraphy"
)

// Report summarizes a replay run against ground truth. Sleep is the
// positive class. Samples before the first classification are excluded
// from scoring, since the tracker is still warming up.
type Report struct {
	Samples int // total samples in the recording
	Scored  int // samples with both a prediction and a label

	TruePositive  int // predicted sleep, truth sleep
	TrueNegative  int // predicted wake, truth wake
	FalsePositive int // predicted sleep, truth wake
	FalseNegative int // predicted wake, truth sleep

	Accuracy    float64 // scored-sample agreement fraction
	Sensitivity float64 // sleep recall
	Specificity float64 // wake recall
	Phi         float64 // Matthews/phi correlation of prediction vs truth
}

// TruthAsleep reports whether a ground-truth label counts as sleep.
// Recordings label wake as 0 and sleep stages as positive integers, so any
// positive label collapses to sleep.
func TruthAsleep(truth float64) bool {
	return truth > 0
}

// Evaluate scores the transitions produced by a replay run against the
// recording's labels.
func Evaluate(samples []Sample, transitions []Transition) Report {
	r := Report{Samples: len(samples)}

	predicted := Predicted(len(samples), transitions)

	var agreement, predSeries, truthSeries []float64
	for i, s := range samples {
		if predicted[i] == actigraphy.StateUnknown {
			continue
		}
		r.Scored++

		predSleep := predicted[i] == actigraphy.StateSleep
		truthSleep := TruthAsleep(s.Truth)

		switch {
		case predSleep && truthSleep:
			r.TruePositive++
		case !predSleep && !truthSleep:
			r.TrueNegative++
		case predSleep && !truthSleep:
			r.FalsePositive++
		default:
			r.FalseNegative++
		}

		agree := 0.0
		if predSleep == truthSleep {
			agree = 1.0
		}
		agreement = append(agreement, agree)
		predSeries = append(predSeries, boolToFloat(predSleep))
		truthSeries = append(truthSeries, boolToFloat(truthSleep))
	}

	if r.Scored > 0 {
		r.Accuracy = stat.Mean(agreement, nil)
	}
	if p := r.TruePositive + r.FalseNegative; p > 0 {
		r.Sensitivity = float64(r.TruePositive) / float64(p)
	}
	if n := r.TrueNegative + r.FalsePositive; n > 0 {
		r.Specificity = float64(r.TrueNegative) / float64(n)
	}
	// Pearson correlation on binary series is the phi coefficient. It is
	// NaN when either series is constant; report it as-is in that case.
	if r.Scored > 1 {
		r.Phi = stat.Correlation(predSeries, truthSeries, nil)
	}

	return r
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// String renders the report in the fixed-width layout printed by the
// replay tool's -eval flag.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "samples:      %d (%d scored)\n", r.Samples, r.Scored)
	fmt.Fprintf(&b, "accuracy:     %.4f\n", r.Accuracy)
	fmt.Fprintf(&b, "sensitivity:  %.4f (sleep recall)\n", r.Sensitivity)
	fmt.Fprintf(&b, "specificity:  %.4f (wake recall)\n", r.Specificity)
	fmt.Fprintf(&b, "phi:          %.4f\n", r.Phi)
	fmt.Fprintf(&b, "confusion:    tp=%d tn=%d fp=%d fn=%d", r.TruePositive, r.TrueNegative, r.FalsePositive, r.FalseNegative)
	return b.String()
}
