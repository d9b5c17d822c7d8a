package scene

import (
	"time"

	"github.com/montanaflynn/stats"
)

// FrameStats summarizes recent frame durations, in milliseconds.
type FrameStats struct {
	Frames int     `json:"frames"`
	Mean   float64 `json:"meanMs"`
	P95    float64 `json:"p95Ms"`
	Max    float64 `json:"maxMs"`
	Last   float64 `json:"lastMs"`
}

func (s *Scene) Stats() FrameStats {
	durations := s.frames.Get()
	out := FrameStats{Frames: len(durations)}
	if len(durations) == 0 {
		return out
	}
	data := make(stats.Float64Data, len(durations))
	for i, d := range durations {
		data[i] = float64(d) / float64(time.Millisecond)
	}
	out.Mean, _ = stats.Mean(data)
	out.P95, _ = stats.Percentile(data, 95)
	out.Max, _ = stats.Max(data)
	out.Last = data[len(data)-1]
	return out
}
