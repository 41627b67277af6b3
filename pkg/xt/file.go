package xt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReadFile reads a .xt file from disk and decodes it. Files exported through
// the raw data service wrap the frame in a getData envelope; files pulled
// straight off the instrument hold the frame at the top level. Both are
// accepted. Temperatures are converted to celsius; raw buffers are left
// untouched.
func ReadFile(path string, opts Options) (*ParsedFrame, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading xt file: %w", err)
	}

	var envelope CommandFrame
	if err := json.Unmarshal(buf, &envelope); err != nil {
		return nil, fmt.Errorf("parsing xt file %s: %w", filepath.Base(path), err)
	}
	frame := envelope.Resp
	if frame == nil {
		frame = &Frame{}
		if err := json.Unmarshal(buf, frame); err != nil {
			return nil, fmt.Errorf("parsing xt file %s: %w", filepath.Base(path), err)
		}
	}

	if opts.Source == "" {
		opts.Source = filepath.Base(path)
	}
	parsed, err := Parse(frame, opts)
	if err != nil {
		return nil, err
	}
	for i := range parsed.Temp {
		parsed.Temp[i] -= KelvinOffset
	}
	return parsed, nil
}
