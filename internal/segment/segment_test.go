package segment

import (
	"testing"
	"time"

	"github.com/strrl/dayflow/internal/timeline"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func sampleAt(offset int, process, title string) timeline.Sample {
	return timeline.Sample{
		CapturedAt:  base.Add(time.Duration(offset) * time.Second),
		ProcessName: process,
		WindowTitle: title,
		Status:      timeline.SampleCompleted,
	}
}

func TestBuild_MergesSameKey(t *testing.T) {
	samples := []timeline.Sample{
		sampleAt(0, "Code", "main.go"),
		sampleAt(10, "Code", "main.go"),
		sampleAt(20, "Code", "main.go"),
	}

	segs := Build(samples, 10)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].SampleCount != 3 {
		t.Errorf("SampleCount = %d, want 3", segs[0].SampleCount)
	}
	if segs[0].DurationSeconds != 30 {
		t.Errorf("DurationSeconds = %d, want 30", segs[0].DurationSeconds)
	}
}

func TestBuild_SplitsDifferentKeys(t *testing.T) {
	samples := []timeline.Sample{
		sampleAt(0, "Code", "main.go"),
		sampleAt(10, "Firefox", "Docs"),
	}

	segs := Build(samples, 10)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].ProcessName != "Code" || segs[0].WindowTitle != "main.go" {
		t.Errorf("segment 0 = %s/%s", segs[0].ProcessName, segs[0].WindowTitle)
	}
	if segs[1].ProcessName != "Firefox" || segs[1].WindowTitle != "Docs" {
		t.Errorf("segment 1 = %s/%s", segs[1].ProcessName, segs[1].WindowTitle)
	}
}

func TestBuild_ClampsIdleGap(t *testing.T) {
	samples := []timeline.Sample{
		sampleAt(0, "Code", "main.go"),
		sampleAt(600, "Code", "main.go"),
	}

	segs := Build(samples, 10)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].DurationSeconds != 30 {
		t.Errorf("first DurationSeconds = %d, want 30", segs[0].DurationSeconds)
	}
	if segs[1].DurationSeconds != 10 {
		t.Errorf("last DurationSeconds = %d, want 10", segs[1].DurationSeconds)
	}
}

func TestBuild_MaxGapFollowsInterval(t *testing.T) {
	// 2 x 60s beats the 30s floor, so a 100s gap still merges.
	samples := []timeline.Sample{
		sampleAt(0, "Code", "main.go"),
		sampleAt(100, "Code", "main.go"),
	}

	segs := Build(samples, 60)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].DurationSeconds != 160 {
		t.Errorf("DurationSeconds = %d, want 160", segs[0].DurationSeconds)
	}
}

func TestBuild_ToleratesJitter(t *testing.T) {
	// Second sample lands 4s after the first one's clamped end.
	samples := []timeline.Sample{
		sampleAt(0, "Code", "main.go"),
		sampleAt(34, "Code", "main.go"),
	}

	segs := Build(samples, 10)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].DurationSeconds != 44 {
		t.Errorf("DurationSeconds = %d, want 44", segs[0].DurationSeconds)
	}
}

func TestBuild_NormalizesKey(t *testing.T) {
	samples := []timeline.Sample{
		sampleAt(0, "Code", "main.go   - project"),
		sampleAt(10, "code", "MAIN.GO - project"),
	}

	segs := Build(samples, 10)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].WindowTitle != "main.go - project" {
		t.Errorf("WindowTitle = %q", segs[0].WindowTitle)
	}
}

func TestBuild_DefaultsBlankNames(t *testing.T) {
	samples := []timeline.Sample{
		sampleAt(0, "", "  "),
		sampleAt(10, "unknown", "Real Window"),
	}

	segs := Build(samples, 10)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].ProcessName != UnknownProcess || segs[0].WindowTitle != UnknownWindow {
		t.Errorf("segment 0 = %q/%q", segs[0].ProcessName, segs[0].WindowTitle)
	}
}

func TestBuild_SortsInput(t *testing.T) {
	samples := []timeline.Sample{
		sampleAt(20, "Code", "main.go"),
		sampleAt(0, "Code", "main.go"),
		sampleAt(10, "Code", "main.go"),
	}

	segs := Build(samples, 10)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if !segs[0].Start.Equal(base) {
		t.Errorf("Start = %v, want %v", segs[0].Start, base)
	}
	if !samples[0].CapturedAt.Equal(base.Add(20 * time.Second)) {
		t.Error("input slice was reordered")
	}
}

func TestBuild_DuplicateTimestamps(t *testing.T) {
	samples := []timeline.Sample{
		sampleAt(0, "Code", "main.go"),
		sampleAt(0, "Code", "main.go"),
	}

	segs := Build(samples, 10)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].SampleCount != 2 {
		t.Errorf("SampleCount = %d, want 2", segs[0].SampleCount)
	}
	if segs[0].DurationSeconds != 10 {
		t.Errorf("DurationSeconds = %d, want 10", segs[0].DurationSeconds)
	}
}

func TestBuild_Empty(t *testing.T) {
	if segs := Build(nil, 10); len(segs) != 0 {
		t.Fatalf("expected no segments, got %d", len(segs))
	}
}

func TestBuild_SubSecondIntervalUsesOneSecond(t *testing.T) {
	segs := Build([]timeline.Sample{sampleAt(0, "Code", "main.go")}, 0.2)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].DurationSeconds != 1 {
		t.Errorf("DurationSeconds = %d, want 1", segs[0].DurationSeconds)
	}
}
