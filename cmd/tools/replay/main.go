// Command replay runs a recorded accelerometer stream through the sleep
// classifier and prints one "TIME STATE" line per detected transition.
// This is the file-based counterpart of the live gateway, used to evaluate
// tuning changes against labeled recordings.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/slumber.report/internal/actigraphy"
	"github.com/banshee-data/slumber.report/internal/config"
	"github.com/banshee-data/slumber.report/internal/db"
	"github.com/banshee-data/slumber.report/internal/replay"
)

var (
	evalFlag   = flag.Bool("eval", false, "Print an accuracy report against the recording's TRUTH column")
	dbFlag     = flag.String("db", "", "Record the run as a session in the given sqlite database")
	configFlag = flag.String("config", "", "Path to JSON config file with classifier tuning")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [flags] INFILE

Where INFILE is a whitespace-delimited file where each row holds:
  TIME X Y Z TRUTH
The input sample rate must match the configured rate (default 10 Hz), with
one row per sample. Output is one line for each change in state in format:
  TIME STATE
Where STATE is 0 or 1 for wake or sleep.

Flags:
`, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
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

	infile := flag.Arg(0)
	f, err := os.Open(infile)
	if err != nil {
		log.Fatalf("unable to open %q: %v", infile, err)
	}
	defer f.Close()

	samples, err := replay.ParseRecording(f)
	if err != nil {
		log.Fatalf("failed to parse %q: %v", infile, err)
	}

	transitions := replay.Run(samples, func(cb actigraphy.StateCallback) actigraphy.SleepTracker {
		return actigraphy.NewVanHeesTrackerWithParams(params, cb)
	})

	for _, tr := range transitions {
		fmt.Printf("%g %d\n", tr.Time, tr.State)
	}

	if *evalFlag {
		fmt.Fprintln(os.Stderr, replay.Evaluate(samples, transitions))
	}

	if *dbFlag != "" {
		database, err := db.NewDB(*dbFlag)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer database.Close()

		sessionID, err := database.BeginSession(params.SampleRate, "replay "+filepath.Base(infile))
		if err != nil {
			log.Fatalf("failed to begin session: %v", err)
		}
		for _, tr := range transitions {
			if err := database.RecordTransition(sessionID, int64(tr.SampleIndex), tr.Time, uint8(tr.State)); err != nil {
				log.Fatalf("failed to record transition: %v", err)
			}
		}
		fmt.Fprintf(os.Stderr, "recorded %d transitions as session %s\n", len(transitions), sessionID)
	}
}
