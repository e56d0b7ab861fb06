// Package disasmerr defines the error taxonomy the decoder and trace
// engine raise.
package disasmerr

import "errors"

// Sentinel errors. Callers compare with errors.Is; the worker wraps
// these with github.com/pkg/errors at the point it catches them so the
// log line carries a stack trace back to the failing item.
var (
	// EndOfImage is returned by the byte cursor when a read runs past
	// the end of the available bytes.
	EndOfImage = errors.New("end of image")

	// DecodeMiss means no opcode in the decode tree matched the byte
	// stream at the current address.
	DecodeMiss = errors.New("decode miss: unknown opcode")

	// Overlap means a new decoding would cover an address already
	// claimed by a different entity.
	Overlap = errors.New("overlap: address already claimed by another entity")

	// InvalidAddress means a branch or data reference points outside
	// the image.
	InvalidAddress = errors.New("invalid address")

	// DecodeException means a malformed operand tripped the decoder
	// partway through an instruction.
	DecodeException = errors.New("decode exception")

	// DataAnalyzeFailure means data analysis at an address failed.
	DataAnalyzeFailure = errors.New("data analysis failure")

	// AlreadyRunning is returned by Start when a worker is already
	// active for this engine.
	AlreadyRunning = errors.New("trace engine already running")

	// NotRunning is returned by Stop when no worker is active.
	NotRunning = errors.New("trace engine not running")
)
