// Package segment turns keep intervals into an ordered cut-and-concatenate
// plan for the encoder.
package segment

import (
	"fmt"
	"math"

	"github.com/mgpai22/trimcap/internal/silence"
)

// CutSpec is one span of the source to re-encode and append to the output.
type CutSpec struct {
	Index  int     `json:"index"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Source string  `json:"source"`
}

// Duration returns the length of the cut in seconds.
func (c CutSpec) Duration() float64 {
	return c.End - c.Start
}

// Plan lists the cuts in output order. An empty plan is valid and means
// nothing is worth keeping; callers pass the source through instead.
type Plan struct {
	Source         string    `json:"source"`
	SourceDuration float64   `json:"source_duration"`
	Cuts           []CutSpec `json:"cuts"`
}

func (p Plan) Empty() bool {
	return len(p.Cuts) == 0
}

// KeptDuration is the expected length of the concatenated output.
func (p Plan) KeptDuration() float64 {
	var total float64
	for _, c := range p.Cuts {
		total += c.Duration()
	}
	return total
}

// BuildCutPlan clamps each interval to [0, totalDuration] and emits the cuts
// in interval order. Intervals that clamp to nothing are skipped. Intervals
// must already be sorted and non-overlapping; a violation is an error rather
// than a silently reordered plan.
func BuildCutPlan(
	keep []silence.Interval,
	source string,
	totalDuration float64,
) (Plan, error) {
	if source == "" {
		return Plan{}, fmt.Errorf("source media is required")
	}
	if totalDuration <= 0 || math.IsNaN(totalDuration) || math.IsInf(totalDuration, 0) {
		return Plan{}, fmt.Errorf("invalid source duration %v", totalDuration)
	}

	plan := Plan{
		Source:         source,
		SourceDuration: totalDuration,
		Cuts:           make([]CutSpec, 0, len(keep)),
	}

	prevEnd := 0.0
	for i, iv := range keep {
		start := clamp(iv.Start, 0, totalDuration)
		end := clamp(iv.End, 0, totalDuration)
		if end <= start {
			continue
		}
		if start < prevEnd {
			return Plan{}, fmt.Errorf(
				"keep interval %d [%.3f, %.3f] overlaps or precedes previous end %.3f",
				i, iv.Start, iv.End, prevEnd,
			)
		}
		plan.Cuts = append(plan.Cuts, CutSpec{
			Index:  len(plan.Cuts),
			Start:  start,
			End:    end,
			Source: source,
		})
		prevEnd = end
	}

	return plan, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
