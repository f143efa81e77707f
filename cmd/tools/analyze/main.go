// Command analyze renders an HTML report for a labeled accelerometer
// recording: a hypnogram of predicted vs labeled sleep, a per-window
// activity trace, and bout statistics. Useful for eyeballing where the
// classifier disagrees with the ground truth.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/slumber.report/internal/actigraphy"
	"github.com/banshee-data/slumber.report/internal/config"
	"github.com/banshee-data/slumber.report/internal/replay"
)

var (
	outFlag    = flag.String("o", "report.html", "Output HTML file")
	configFlag = flag.String("config", "", "Path to JSON config file with classifier tuning")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] INFILE\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.Empty()
	if *configFlag != "" {
		var err error
		cfg, err = config.Load(*configFlag)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	params := cfg.TrackerParams()

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("unable to open %q: %v", flag.Arg(0), err)
	}
	defer f.Close()

	samples, err := replay.ParseRecording(f)
	if err != nil {
		log.Fatalf("failed to parse recording: %v", err)
	}

	transitions := replay.Run(samples, func(cb actigraphy.StateCallback) actigraphy.SleepTracker {
		return actigraphy.NewVanHeesTrackerWithParams(params, cb)
	})
	report := replay.Evaluate(samples, transitions)
	fmt.Fprintln(os.Stderr, report)

	predicted := replay.Predicted(len(samples), transitions)

	// Downsample everything to one point per evaluation window so a full
	// night stays a few thousand chart points.
	w := params.WindowSamples()
	var (
		xAxis      []string
		predSeries []opts.LineData
		truthData  []opts.LineData
		angleData  []opts.LineData
		actData    []opts.LineData
		avgs       [3]float64
	)
	for start := 0; start+w <= len(samples); start += w {
		xAxis = append(xAxis, fmt.Sprintf("%.0f", samples[start].Time))

		predSeries = append(predSeries, opts.LineData{Value: stateValue(predicted[start])})

		truth := 0.0
		if replay.TruthAsleep(samples[start].Truth) {
			truth = 1.0
		}
		truthData = append(truthData, opts.LineData{Value: truth})

		window := samples[start : start+w]
		angleData = append(angleData, opts.LineData{Value: windowAngleMean(window, params.Eta, &avgs)})
		actData = append(actData, opts.LineData{Value: windowActivity(window)})
	}

	hypnogram := charts.NewLine()
	hypnogram.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Sleep Report", Theme: "dark", Width: "1400px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Hypnogram", Subtitle: fmt.Sprintf("accuracy=%.3f sensitivity=%.3f specificity=%.3f", report.Accuracy, report.Sensitivity, report.Specificity)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: -0.1, Max: 1.1, Name: "asleep"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time (s)"}),
	)
	hypnogram.SetXAxis(xAxis).
		AddSeries("predicted", predSeries, charts.WithLineChartOpts(opts.LineChart{Step: "end"})).
		AddSeries("truth", truthData, charts.WithLineChartOpts(opts.LineChart{Step: "end"}))

	angle := charts.NewLine()
	angle.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "1400px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Window-mean arm angle", Subtitle: fmt.Sprintf("exponential smoothing eta=%g", params.Eta)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: -95, Max: 95, Name: "degrees"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time (s)"}),
	)
	angle.SetXAxis(xAxis).
		AddSeries("arm angle", angleData)

	activity := charts.NewLine()
	activity.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "1400px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Per-window activity", Subtitle: "standard deviation of acceleration magnitude"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time (s)"}),
	)
	activity.SetXAxis(xAxis).
		AddSeries("activity", actData)

	printBoutStats(predicted, params.SampleRate)

	page := components.NewPage()
	page.AddCharts(hypnogram, angle, activity)

	out, err := os.Create(*outFlag)
	if err != nil {
		log.Fatalf("unable to create %q: %v", *outFlag, err)
	}
	defer out.Close()

	if err := page.Render(out); err != nil {
		log.Fatalf("failed to render report: %v", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", *outFlag)
}

// stateValue maps a predicted state onto the hypnogram axis; unknown
// renders as a gap.
func stateValue(s actigraphy.State) interface{} {
	switch s {
	case actigraphy.StateSleep:
		return 1
	case actigraphy.StateWake:
		return 0
	}
	return "-"
}

// windowAngleMean smooths the window's samples through the classifier's
// per-axis moving average, carried across windows in avgs, and returns the
// mean arm-angle estimate.
func windowAngleMean(window []replay.Sample, eta float64, avgs *[3]float64) float64 {
	var sum float64
	for _, s := range window {
		avgs[0] += eta * (s.X - avgs[0])
		avgs[1] += eta * (s.Y - avgs[1])
		avgs[2] += eta * (s.Z - avgs[2])
		sum += actigraphy.ArmAngle(avgs[0], avgs[1], avgs[2])
	}
	return sum / float64(len(window))
}

// windowActivity is the standard deviation of the acceleration magnitude
// across one window, a cheap movement proxy for the report.
func windowActivity(window []replay.Sample) float64 {
	mags := make([]float64, len(window))
	for i, s := range window {
		mags[i] = math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
	}
	return stat.StdDev(mags, nil)
}

// printBoutStats summarizes contiguous sleep bouts in the prediction.
func printBoutStats(predicted []actigraphy.State, sampleRate int) {
	var bouts []float64
	run := 0
	for _, s := range predicted {
		if s == actigraphy.StateSleep {
			run++
			continue
		}
		if run > 0 {
			bouts = append(bouts, float64(run)/float64(sampleRate)/60)
			run = 0
		}
	}
	if run > 0 {
		bouts = append(bouts, float64(run)/float64(sampleRate)/60)
	}

	if len(bouts) == 0 {
		fmt.Fprintln(os.Stderr, "sleep bouts:  none")
		return
	}
	fmt.Fprintf(os.Stderr, "sleep bouts:  %d (mean %.1f min, stddev %.1f min)\n",
		len(bouts), stat.Mean(bouts, nil), stat.StdDev(bouts, nil))
}
