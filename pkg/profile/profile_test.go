package profile

import (
	"math"
	"testing"

	"github.com/HatiCode/dtstail/pkg/xt"
)

func TestSummarize_Statistics(t *testing.T) {
	frame := &xt.ParsedFrame{
		Metadata: xt.Metadata{
			Channel:        1,
			Dz:             0.5,
			ExternalLength: 2.0,
			DateTime:       "2024/06/01 12:00:00",
		},
		Temp:     []float32{300, 280, 310, 290},
		Distance: []float64{0, 0.5, 1.0, 1.5},
	}

	s, err := Summarize(frame)
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if s.Points != 4 || s.Channel != 1 || s.Dz != 0.5 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if math.Abs(s.MinC-6.85) > 1e-9 {
		t.Fatalf("MinC = %v, want 6.85", s.MinC)
	}
	if math.Abs(s.MaxC-36.85) > 1e-9 {
		t.Fatalf("MaxC = %v, want 36.85", s.MaxC)
	}
	if math.Abs(s.MeanC-21.85) > 1e-9 {
		t.Fatalf("MeanC = %v, want 21.85", s.MeanC)
	}
	if s.MinAtMeters != 0.5 || s.MaxAtMeters != 1.0 {
		t.Fatalf("extremum positions = %v and %v, want 0.5 and 1.0", s.MinAtMeters, s.MaxAtMeters)
	}
	if s.DateTime != "2024/06/01 12:00:00" {
		t.Fatalf("date time = %q", s.DateTime)
	}
}

func TestSummarize_SkipsNonFinite(t *testing.T) {
	frame := &xt.ParsedFrame{
		Temp:     []float32{float32(math.NaN()), 300, float32(math.Inf(1))},
		Distance: []float64{0, 1, 2},
	}

	s, err := Summarize(frame)
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if s.Points != 3 {
		t.Fatalf("Points = %d, want 3", s.Points)
	}
	if math.Abs(s.MinC-26.85) > 1e-9 || math.Abs(s.MaxC-26.85) > 1e-9 || math.Abs(s.MeanC-26.85) > 1e-9 {
		t.Fatalf("stats should come from the single finite sample: %+v", s)
	}
	if s.MinAtMeters != 1 || s.MaxAtMeters != 1 {
		t.Fatalf("extremum positions = %v and %v, want both 1", s.MinAtMeters, s.MaxAtMeters)
	}
}

func TestSummarize_NoUsableSamples(t *testing.T) {
	if _, err := Summarize(nil); err == nil {
		t.Fatalf("expected error for nil frame")
	}
	if _, err := Summarize(&xt.ParsedFrame{}); err == nil {
		t.Fatalf("expected error for empty frame")
	}
	frame := &xt.ParsedFrame{
		Temp:     []float32{float32(math.NaN())},
		Distance: []float64{0},
	}
	if _, err := Summarize(frame); err == nil {
		t.Fatalf("expected error for all-NaN frame")
	}
}
