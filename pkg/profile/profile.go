// Package profile condenses decoded temperature frames into scalar
// summaries for logging, metrics and downstream consumers.
package profile

import (
	"fmt"
	"math"

	"github.com/HatiCode/dtstail/pkg/xt"
)

// Summary holds per-frame statistics. Temperatures are celsius, positions
// meters along the external fiber.
type Summary struct {
	Channel        int     `json:"channel"`
	Points         int     `json:"points"`
	Dz             float64 `json:"dz"`
	ExternalLength float64 `json:"externalLength"`
	MinC           float64 `json:"minC"`
	MaxC           float64 `json:"maxC"`
	MeanC          float64 `json:"meanC"`
	MinAtMeters    float64 `json:"minAtMeters"`
	MaxAtMeters    float64 `json:"maxAtMeters"`
	DateTime       string  `json:"dateTime,omitempty"`
}

// Summarize reduces a frame decoded by xt.Parse to scalar statistics,
// converting the kelvin readings to celsius. Non-finite samples are ignored;
// a frame with no finite sample is an error.
func Summarize(frame *xt.ParsedFrame) (Summary, error) {
	if frame == nil || len(frame.Temp) == 0 {
		return Summary{}, fmt.Errorf("frame has no temperature samples")
	}

	minIdx, maxIdx := -1, -1
	sum := 0.0
	count := 0
	for i, v := range frame.Temp {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		sum += f
		count++
		if minIdx < 0 || f < float64(frame.Temp[minIdx]) {
			minIdx = i
		}
		if maxIdx < 0 || f > float64(frame.Temp[maxIdx]) {
			maxIdx = i
		}
	}
	if count == 0 {
		return Summary{}, fmt.Errorf("frame has no finite temperature samples")
	}

	m := frame.Metadata
	return Summary{
		Channel:        m.Channel,
		Points:         len(frame.Temp),
		Dz:             m.Dz,
		ExternalLength: m.ExternalLength,
		MinC:           float64(frame.Temp[minIdx]) - xt.KelvinOffset,
		MaxC:           float64(frame.Temp[maxIdx]) - xt.KelvinOffset,
		MeanC:          sum/float64(count) - xt.KelvinOffset,
		MinAtMeters:    frame.Distance[minIdx],
		MaxAtMeters:    frame.Distance[maxIdx],
		DateTime:       m.DateTime,
	}, nil
}
