package xt

import "fmt"

// MissingFieldError reports a frame that lacks a field the decoder requires.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// DecodeError reports a signal buffer that could not be decoded.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ShapeError reports a raw buffer whose length is incompatible with the
// frame's channel count.
type ShapeError struct {
	Field  string
	Length int
	Rows   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("raw signal %s: length %d does not divide into %d rows", e.Field, e.Length, e.Rows)
}
