// Package silence turns a detected silence map into the spans of media worth
// keeping.
package silence

import (
	"math"
	"sort"
)

// Interval is a half-open time span in seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Length returns End-Start, or zero for inverted spans.
func (iv Interval) Length() float64 {
	if iv.End <= iv.Start {
		return 0
	}
	return iv.End - iv.Start
}

// Options tune padding and merging around speech.
type Options struct {
	PrePad     float64 // seconds added before each kept span
	PostPad    float64 // seconds added after each kept span
	MinSegment float64 // padded spans shorter than this are dropped
	GapMerge   float64 // spans separated by at most this gap are merged
}

func DefaultOptions() Options {
	return Options{
		PrePad:     0.3,
		PostPad:    0.4,
		MinSegment: 0.3,
		GapMerge:   0.5,
	}
}

// ComputeKeepIntervals returns the sorted, non-overlapping spans of
// [0, totalDuration] that survive silence removal. Silences may arrive in any
// order and may overlap. An empty result means nothing is worth keeping.
func ComputeKeepIntervals(
	silences []Interval,
	totalDuration float64,
	opts Options,
) []Interval {
	if totalDuration <= 0 || math.IsNaN(totalDuration) {
		return nil
	}

	sorted := make([]Interval, len(silences))
	copy(sorted, silences)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	raw := make([]Interval, 0, len(sorted)+1)
	cursor := 0.0
	for _, s := range sorted {
		if s.Start > cursor {
			raw = append(raw, Interval{Start: cursor, End: math.Min(s.Start, totalDuration)})
		}
		// overlapping silences must never move the cursor backwards
		if s.End > cursor {
			cursor = s.End
		}
	}
	if cursor < totalDuration {
		raw = append(raw, Interval{Start: cursor, End: totalDuration})
	}

	padded := make([]Interval, 0, len(raw))
	for _, iv := range raw {
		p := Interval{
			Start: math.Max(0, iv.Start-opts.PrePad),
			End:   math.Min(totalDuration, iv.End+opts.PostPad),
		}
		if p.End-p.Start < opts.MinSegment || p.End <= p.Start {
			continue
		}
		padded = append(padded, p)
	}

	sort.SliceStable(padded, func(i, j int) bool {
		return padded[i].Start < padded[j].Start
	})

	var merged []Interval
	for _, iv := range padded {
		if len(merged) == 0 {
			merged = append(merged, iv)
			continue
		}
		last := &merged[len(merged)-1]
		if iv.Start <= last.End+opts.GapMerge {
			last.End = math.Max(last.End, iv.End)
			continue
		}
		merged = append(merged, iv)
	}

	return merged
}

// TotalLength sums the lengths of the given intervals.
func TotalLength(intervals []Interval) float64 {
	var total float64
	for _, iv := range intervals {
		total += iv.Length()
	}
	return total
}
