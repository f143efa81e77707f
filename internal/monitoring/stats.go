// Package monitoring carries the gateway's diagnostic logger and the
// atomic counters surfaced by the /api/state endpoint.
package monitoring

import "sync/atomic"

// PipelineStats counts pipeline activity. All methods are safe for
// concurrent use; the counters are written from the sample loop and read
// from HTTP handlers.
type PipelineStats struct {
	samplesSeen           atomic.Int64
	parseErrors           atomic.Int64
	transitionsAnnounced  atomic.Int64
	transitionsPublished  atomic.Int64
	transitionsPublishErr atomic.Int64
}

func (s *PipelineStats) AddSample()            { s.samplesSeen.Add(1) }
func (s *PipelineStats) AddParseError()        { s.parseErrors.Add(1) }
func (s *PipelineStats) AddTransition()        { s.transitionsAnnounced.Add(1) }
func (s *PipelineStats) AddPublished()         { s.transitionsPublished.Add(1) }
func (s *PipelineStats) AddPublishError()      { s.transitionsPublishErr.Add(1) }
func (s *PipelineStats) SamplesSeen() int64    { return s.samplesSeen.Load() }
func (s *PipelineStats) ParseErrors() int64    { return s.parseErrors.Load() }
func (s *PipelineStats) Transitions() int64    { return s.transitionsAnnounced.Load() }

// Snapshot returns the counters as a JSON-friendly map.
func (s *PipelineStats) Snapshot() map[string]int64 {
	return map[string]int64{
		"samples_seen":           s.samplesSeen.Load(),
		"parse_errors":           s.parseErrors.Load(),
		"transitions_announced":  s.transitionsAnnounced.Load(),
		"transitions_published":  s.transitionsPublished.Load(),
		"transition_publish_err": s.transitionsPublishErr.Load(),
	}
}
