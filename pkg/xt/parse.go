package xt

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Options control how a frame is decoded.
type Options struct {
	// ChannelPoints maps the 1-based instrument channel to the number of
	// external sensing points on that channel's fiber. Nil means
	// DefaultChannelPoints.
	ChannelPoints map[int]int

	// IncludeRaw attaches the decoded Stokes buffers to the result.
	// Extraction and shape validation run regardless.
	IncludeRaw bool

	// Trim restricts Temp and Distance to the external sensing region,
	// dropping the instrument's internal fiber lead.
	Trim bool

	// Source labels the frame's origin (device code or file name).
	Source string
}

// DefaultOptions returns the options used when tailing a live device:
// trimmed to the external region, raw buffers left out.
func DefaultOptions() Options {
	return Options{Trim: true}
}

// Metadata describes the geometry of a decoded frame. Lengths are meters.
type Metadata struct {
	Channel            int
	Dz                 float64
	FirstExternalPoint int
	NExternalPoints    int
	ExternalLength     float64
	TotalLength        float64
	Source             string
	DateTime           string
}

// ParsedFrame is one decoded measurement frame. Temp holds kelvin readings;
// Distance holds the position of each reading along the fiber in meters.
// Temp and Distance always have equal length.
type ParsedFrame struct {
	Metadata Metadata
	Temp     []float32
	Distance []float64
	Raw      *RawData
}

// RawData holds the decoded Stokes buffers of a frame.
type RawData struct {
	Forward *RawSignal
	Reverse *RawSignal
}

// RawSignal is a decoded raw buffer laid out as Rows x Cols samples in
// row-major order. Single-channel buffers have Rows == 1.
type RawSignal struct {
	Data []float32
	Rows int
	Cols int
}

// At returns the sample at row r, column c.
func (s *RawSignal) At(r, c int) float32 {
	return s.Data[r*s.Cols+c]
}

// Row returns the samples of row r. The returned slice aliases Data.
func (s *RawSignal) Row(r int) []float32 {
	return s.Data[r*s.Cols : (r+1)*s.Cols]
}

// Parse decodes a measurement frame into typed arrays and derived metadata.
// It is a pure function of its inputs. Failures are reported as
// *MissingFieldError, *DecodeError or *ShapeError.
func Parse(frame *Frame, opts Options) (*ParsedFrame, error) {
	if frame == nil || frame.Processed == nil {
		return nil, &MissingFieldError{Field: "processed data"}
	}
	pd := frame.Processed
	td := pd.Temperature
	if td == nil {
		return nil, &MissingFieldError{Field: "resampled temperature data"}
	}
	if td.Dz == nil {
		return nil, &MissingFieldError{Field: "dz"}
	}
	if td.FirstExternalPoint == nil {
		return nil, &MissingFieldError{Field: "first external point"}
	}
	if td.Signal == nil || td.Signal.Data == "" {
		return nil, &MissingFieldError{Field: "resampled temperature data.signal.Data"}
	}

	points := opts.ChannelPoints
	if points == nil {
		points = DefaultChannelPoints()
	}

	// The instrument reports the forward channel 0-based; absent means
	// channel 1.
	channel := 1
	if pd.ForwardChannel != nil {
		channel = *pd.ForwardChannel + 1
	}
	n, ok := points[channel]
	if !ok {
		return nil, &MissingFieldError{Field: fmt.Sprintf("channel points[%d]", channel)}
	}

	dz := *td.Dz
	fep := int(*td.FirstExternalPoint)

	meta := Metadata{
		Channel:            channel,
		Dz:                 dz,
		FirstExternalPoint: fep,
		NExternalPoints:    n,
		ExternalLength:     float64(n) * dz,
		Source:             opts.Source,
		DateTime:           frame.DateTime,
	}
	meta.TotalLength = meta.ExternalLength + float64(fep)*dz

	temp, err := decodeSignal("resampled temperature data", td.Signal.Data)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedFrame{Metadata: meta}
	if opts.Trim {
		if fep < 0 || fep+n > len(temp) {
			return nil, &DecodeError{
				Field: "resampled temperature data",
				Err:   fmt.Errorf("buffer holds %d samples, external region needs [%d, %d)", len(temp), fep, fep+n),
			}
		}
		parsed.Temp = temp[fep : fep+n]
		parsed.Distance = spacedDistances(n, dz)
	} else {
		parsed.Temp = temp
		parsed.Distance = spacedDistances(len(temp), dz)
	}

	// Raw buffers are validated even when the caller does not want them;
	// a malformed frame must not pass silently.
	raw, err := extractRaw(pd, len(temp))
	if err != nil {
		return nil, err
	}
	if opts.IncludeRaw {
		parsed.Raw = raw
	}
	return parsed, nil
}

// extractRaw decodes the optional Stokes buffers. A buffer longer than the
// temperature buffer interleaves one row per instrument channel; the reverse
// buffer follows the forward buffer's row count.
func extractRaw(pd *ProcessedData, tempLen int) (*RawData, error) {
	var fwd, rev *RawSignal

	if pd.ForwardRaw != nil {
		const field = "resampled forward raw data"
		if pd.ForwardRaw.Signal == nil || pd.ForwardRaw.Signal.Data == "" {
			return nil, &MissingFieldError{Field: field + ".signal.Data"}
		}
		data, err := decodeSignal(field, pd.ForwardRaw.Signal.Data)
		if err != nil {
			return nil, err
		}
		rows := 1
		if len(data) > tempLen {
			rows = 2
			if pd.NumberOfChannels != nil {
				rows = *pd.NumberOfChannels
			}
		}
		if fwd, err = newRawSignal(field, data, rows); err != nil {
			return nil, err
		}
	}

	if pd.ReverseRaw != nil {
		const field = "resampled reverse raw data"
		if pd.ReverseRaw.Signal == nil || pd.ReverseRaw.Signal.Data == "" {
			return nil, &MissingFieldError{Field: field + ".signal.Data"}
		}
		data, err := decodeSignal(field, pd.ReverseRaw.Signal.Data)
		if err != nil {
			return nil, err
		}
		rows := 1
		if fwd != nil && len(data) > tempLen {
			rows = fwd.Rows
		}
		if rev, err = newRawSignal(field, data, rows); err != nil {
			return nil, err
		}
	}

	if fwd == nil && rev == nil {
		return nil, nil
	}
	return &RawData{Forward: fwd, Reverse: rev}, nil
}

func newRawSignal(field string, data []float32, rows int) (*RawSignal, error) {
	if rows <= 0 || len(data)%rows != 0 {
		return nil, &ShapeError{Field: field, Length: len(data), Rows: rows}
	}
	return &RawSignal{Data: data, Rows: rows, Cols: len(data) / rows}, nil
}

// decodeSignal reinterprets a base64 payload as little-endian float32
// samples. The float bits pass through untouched.
func decodeSignal(field, encoded string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &DecodeError{Field: field, Err: err}
	}
	if len(raw)%4 != 0 {
		return nil, &DecodeError{Field: field, Err: errors.New("byte length not divisible by 4")}
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

func spacedDistances(n int, dz float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * dz
	}
	return out
}
