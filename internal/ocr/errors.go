package ocr

import (
	"errors"
	"net/http"
)

// Kind classifies a processing failure.
type Kind int

const (
	// KindInternal is an unexpected failure.
	KindInternal Kind = iota
	// KindInvalidInput covers missing fields, missing files and undecodable images.
	KindInvalidInput
	// KindRecognition is a failure reported by the OCR engine.
	KindRecognition
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindRecognition:
		return "recognition"
	default:
		return "internal"
	}
}

// Error is returned by Service for every expected failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Messages surfaced to clients.
const (
	MsgExactlyOne   = "must provide exactly one of image_path or image_base64"
	MsgFileNotFound = "File not found"
	MsgSuccess      = "success"
)

// ErrorStatus maps err to the HTTP status used for it.
func ErrorStatus(err error) int {
	var oe *Error
	if errors.As(err, &oe) {
		switch oe.Kind {
		case KindInvalidInput, KindRecognition:
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// ErrorKind returns the Kind of err, or KindInternal for foreign errors.
func ErrorKind(err error) Kind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindInternal
}
