package monitoring

import (
	"fmt"
	"sync"
	"testing"
)

func TestSetLoggerNilInstallsNoop(t *testing.T) {
	defer SetLogger(nil)

	var captured string
	SetLogger(func(format string, v ...interface{}) {
		captured = fmt.Sprintf(format, v...)
	})
	Logf("samples=%d", 7)
	if captured != "samples=7" {
		t.Errorf("captured %q", captured)
	}

	SetLogger(nil)
	Logf("should not panic")
}

func TestPipelineStatsConcurrent(t *testing.T) {
	var stats PipelineStats

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				stats.AddSample()
			}
			stats.AddTransition()
		}()
	}
	wg.Wait()

	if got := stats.SamplesSeen(); got != 8000 {
		t.Errorf("SamplesSeen() = %d, want 8000", got)
	}

	snap := stats.Snapshot()
	if snap["samples_seen"] != 8000 || snap["transitions_announced"] != 8 {
		t.Errorf("unexpected snapshot: %v", snap)
	}
}
