// Package capture acquires one sample at a time: it asks which window is
// focused, records media to a timestamped file and persists the result.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/strrl/dayflow/internal/media"
	"github.com/strrl/dayflow/internal/timeline"
)

// ErrCapture marks a failed window lookup or media acquisition.
var ErrCapture = errors.New("capture error")

const (
	StageWindow  = "window"
	StageMedia   = "media"
	StageAcquire = "acquire"
)

type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrCapture }

// Sampler records media into path and returns the number of bytes written.
type Sampler interface {
	Ext() string
	Acquire(ctx context.Context, path string) (int64, error)
}

type SampleInserter interface {
	InsertSample(ctx context.Context, sample timeline.Sample) (int64, error)
}

type Capturer struct {
	Sampler  Sampler
	Windows  WindowQuery
	Store    SampleInserter
	MediaDir string
	Location *time.Location
	Now      func() time.Time
}

// CaptureOnce runs one window lookup, acquisition and insert. It does not
// retry. When acquisition fails after leaving a partial file behind, the
// file is recorded as a failed sample so retention can reclaim it, and the
// capture error is still returned.
func (c *Capturer) CaptureOnce(ctx context.Context) (timeline.Sample, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	capturedAt := now()

	win, err := c.Windows.ActiveWindow(ctx)
	if err != nil {
		return timeline.Sample{}, &Error{Stage: StageWindow, Err: err}
	}

	path := media.Path(c.MediaDir, capturedAt, c.Location, c.Sampler.Ext())
	if err := media.Prepare(path); err != nil {
		return timeline.Sample{}, &Error{Stage: StageMedia, Err: err}
	}

	sample := timeline.Sample{
		CapturedAt:  capturedAt,
		MediaRef:    path,
		WindowTitle: win.Title,
		ProcessName: win.Process,
		Status:      timeline.SampleCompleted,
	}

	size, acqErr := c.Sampler.Acquire(ctx, path)
	if acqErr != nil {
		partial, _ := media.Size(path)
		if partial > 0 {
			sample.MediaSize = partial
			sample.Status = timeline.SampleFailed
			if _, err := c.Store.InsertSample(ctx, sample); err != nil {
				return timeline.Sample{}, errors.Join(&Error{Stage: StageAcquire, Err: acqErr}, err)
			}
		}
		return timeline.Sample{}, &Error{Stage: StageAcquire, Err: acqErr}
	}
	if size <= 0 {
		os.Remove(path)
		return timeline.Sample{}, &Error{Stage: StageAcquire, Err: fmt.Errorf("empty media file %s", path)}
	}
	sample.MediaSize = size

	id, err := c.Store.InsertSample(ctx, sample)
	if err != nil {
		return timeline.Sample{}, err
	}
	sample.ID = id
	return sample, nil
}
