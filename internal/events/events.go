// Package events carries results from the background loops to a foreground
// poller.
package events

import (
	"time"

	"github.com/strrl/dayflow/internal/store"
	"github.com/strrl/dayflow/internal/timeline"
)

const (
	SourceCapture   = "capture"
	SourceAnalysis  = "analysis"
	SourceRetention = "retention"
)

// Event is one of SampleCaptured, CaptureFailed, AnalysisDone,
// AnalysisFailed, RetentionDone or RetentionFailed.
type Event interface {
	Source() string
	isEvent()
}

type SampleCaptured struct {
	Sample timeline.Sample
}

type CaptureFailed struct {
	At  time.Time
	Err error
}

type AnalysisDone struct {
	Day     string
	BatchID string
	Cards   int
	Dropped int
}

type AnalysisFailed struct {
	Day     string
	BatchID string
	Err     error
}

type RetentionDone struct {
	Reason  string // "limit" or "age"
	Removed store.Removal
}

type RetentionFailed struct {
	Reason string
	Err    error
}

func (SampleCaptured) Source() string  { return SourceCapture }
func (CaptureFailed) Source() string   { return SourceCapture }
func (AnalysisDone) Source() string    { return SourceAnalysis }
func (AnalysisFailed) Source() string  { return SourceAnalysis }
func (RetentionDone) Source() string   { return SourceRetention }
func (RetentionFailed) Source() string { return SourceRetention }

func (SampleCaptured) isEvent()  {}
func (CaptureFailed) isEvent()   {}
func (AnalysisDone) isEvent()    {}
func (AnalysisFailed) isEvent()  {}
func (RetentionDone) isEvent()   {}
func (RetentionFailed) isEvent() {}
