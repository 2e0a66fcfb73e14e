package scheduler

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Property 1: while every capture finishes within the interval, deadlines
// land exactly on start + k*interval.
func TestProperty1_DeadlinesStayOnGrid(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		interval := time.Duration(rapid.IntRange(1, 300).Draw(rt, "interval_s")) * time.Second
		n := rapid.IntRange(1, 200).Draw(rt, "ticks")

		start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		next := start
		for k := 1; k <= n; k++ {
			latency := time.Duration(rapid.Int64Range(0, int64(interval-Epsilon)).Draw(rt, "latency"))
			now := next.Add(latency)
			next = nextDeadline(next, now, interval)
			if want := start.Add(time.Duration(k) * interval); !next.Equal(want) {
				rt.Fatalf("tick %d deadline %v, want %v", k, next, want)
			}
		}
	})
}

// Property 2: the next deadline is never earlier than now + Epsilon and
// never later than max(prev + interval, now + Epsilon).
func TestProperty2_DeadlineBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		interval := time.Duration(rapid.IntRange(1, 300).Draw(rt, "interval_s")) * time.Second
		prev := time.Unix(rapid.Int64Range(0, 1<<32).Draw(rt, "prev"), 0)
		now := prev.Add(time.Duration(rapid.Int64Range(0, int64(10*interval)).Draw(rt, "elapsed")))

		next := nextDeadline(prev, now, interval)
		if next.Before(now.Add(Epsilon)) {
			rt.Fatalf("deadline %v earlier than now+epsilon %v", next, now.Add(Epsilon))
		}
		upper := prev.Add(interval)
		if floor := now.Add(Epsilon); floor.After(upper) {
			upper = floor
		}
		if next.After(upper) {
			rt.Fatalf("deadline %v later than %v", next, upper)
		}
	})
}

// Property 3: with variable latency below the interval, the mean gap over
// many ticks equals the interval.
func TestProperty3_MeanGapConverges(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		interval := time.Duration(rapid.IntRange(1, 60).Draw(rt, "interval_s")) * time.Second
		n := rapid.IntRange(10, 300).Draw(rt, "ticks")

		start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		next := start
		for k := 0; k < n; k++ {
			latency := time.Duration(rapid.Int64Range(0, int64(interval)/2).Draw(rt, "latency"))
			next = nextDeadline(next, next.Add(latency), interval)
		}

		mean := next.Sub(start) / time.Duration(n)
		if mean != interval {
			rt.Fatalf("mean gap %v, want %v", mean, interval)
		}
	})
}
