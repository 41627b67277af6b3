// Package xt decodes the JSON measurement frames produced by XT-series
// distributed temperature sensing instruments.
//
// A frame carries one resampled temperature profile along the sensing fiber
// plus optional raw Stokes signals. Numeric buffers travel base64-encoded as
// little-endian float32, and temperatures are kelvin on the wire. The field
// names below, spaces included, are the instrument's own.
package xt

// CommandFramePrefix starts every device log line that carries a getData
// response. The instrument emits the envelope with exactly this key order
// and spacing, so a plain prefix match is sufficient to recognize one.
const CommandFramePrefix = `{"Cmd":"getData",`

// KelvinOffset converts between the instrument's kelvin readings and celsius.
const KelvinOffset = 273.15

// DefaultChannelPoints returns the number of external sensing points per
// 1-based instrument channel for the standard two-channel deployment.
func DefaultChannelPoints() map[int]int {
	return map[int]int{1: 2206, 2: 1561}
}

// CommandFrame is the envelope the instrument wraps around a measurement
// frame in its device log.
type CommandFrame struct {
	Cmd  string `json:"Cmd"`
	Resp *Frame `json:"Resp"`
}

// Frame is the measurement body of a getData response. Files downloaded
// straight off the instrument hold a Frame at the top level.
type Frame struct {
	DateTime  string         `json:"date time"`
	Processed *ProcessedData `json:"processed data"`
}

// ProcessedData groups the resampled signal blocks of a frame.
type ProcessedData struct {
	ForwardChannel   *int           `json:"forward channel"`
	NumberOfChannels *int           `json:"number of channels"`
	Temperature      *ResampledData `json:"resampled temperature data"`
	ForwardRaw       *ResampledData `json:"resampled forward raw data"`
	ReverseRaw       *ResampledData `json:"resampled reverse raw data"`
}

// ResampledData is one resampled signal block. Dz and FirstExternalPoint
// accompany the temperature block only.
type ResampledData struct {
	Dz                 *float64 `json:"dz"`
	FirstExternalPoint *float64 `json:"first external point"`
	Signal             *Signal  `json:"signal"`
}

// Signal carries one base64-encoded buffer of little-endian float32 samples.
type Signal struct {
	Data string `json:"Data"`
}
