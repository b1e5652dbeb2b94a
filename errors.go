// Copyright (c) 2024–2026 The bristol671 developers. All rights reserved.
// Project site: https://github.com/gotmc/bristol671
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package bristol671

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Error kinds reported by the driver. Use errors.Is to test for them.
var (
	ErrParse                 = errors.New("unable to parse instrument response")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrUnrecognizedCode      = errors.New("unrecognized SCPI error code")
	ErrQueueNotTerminated    = errors.New("error queue did not terminate with NO_ERROR")
	ErrActiveErrors          = errors.New("SCPI error queue contains active errors")
	ErrUnsupportedConversion = errors.New("unit conversion not supported")
)

// ErrorCode is a SCPI error code reported by SYSTEM:ERROR?.
type ErrorCode int

// Error codes reported by the Bristol 671 firmware.
const (
	NoError            ErrorCode = 0
	InvalidCharacter   ErrorCode = -101
	SyntaxError        ErrorCode = -102
	InvalidSeparator   ErrorCode = -103
	DataTypeError      ErrorCode = -104
	ParameterError     ErrorCode = -220
	SettingsConflict   ErrorCode = -221
	DataOutOfRange     ErrorCode = -222
	DataCorruptOrStale ErrorCode = -230
)

var errorCodeNames = map[ErrorCode]string{
	NoError:            "NO_ERROR",
	InvalidCharacter:   "INVALID_CHARACTER",
	SyntaxError:        "SYNTAX_ERROR",
	InvalidSeparator:   "INVALID_SEPARATOR",
	DataTypeError:      "DATA_TYPE_ERROR",
	ParameterError:     "PARAMETER_ERROR",
	SettingsConflict:   "SETTINGS_CONFLICT",
	DataOutOfRange:     "DATA_OUT_OF_RANGE",
	DataCorruptOrStale: "DATA_CORRUPT_OR_STALE",
}

func (code ErrorCode) String() string {
	if s, ok := errorCodeNames[code]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(code))
}

// LookupErrorCode returns the ErrorCode for the given integer. Codes outside
// the known set are reported with ErrUnrecognizedCode; they are never mapped to
// a nearby member.
func LookupErrorCode(code int) (ErrorCode, error) {
	ec := ErrorCode(code)
	if _, ok := errorCodeNames[ec]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnrecognizedCode, code)
	}
	return ec, nil
}

// ParseError is returned when an instrument response cannot be decoded. Raw
// always holds the complete response line as received.
type ParseError struct {
	Context string
	Raw     string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s response %q: %s", e.Context, e.Raw, e.Err)
	}
	return fmt.Sprintf("invalid %s response %q", e.Context, e.Raw)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.Err }

// Is reports ErrParse so callers need not type-assert.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// InstrumentError is a single entry read from the instrument's error queue.
type InstrumentError struct {
	Code    ErrorCode
	Message string
}

func (e *InstrumentError) Error() string {
	return fmt.Sprintf("%d: %s", int(e.Code), e.Message)
}

// QueueError is returned by DrainErrorQueue when raiseOnError is set and the
// drained queue contained active errors. Entries holds every entry drained,
// including the terminating NO_ERROR.
type QueueError struct {
	Entries []QueueEntry
	err     error
}

func newQueueError(entries []QueueEntry) *QueueError {
	qe := &QueueError{Entries: entries}
	for _, e := range entries {
		if e.Code != NoError {
			qe.err = multierr.Append(qe.err, &InstrumentError{Code: e.Code, Message: e.Message})
		}
	}
	return qe
}

func (e *QueueError) Error() string {
	errs := multierr.Errors(e.err)
	details := make([]string, len(errs))
	for i, err := range errs {
		details[i] = err.Error()
	}
	return fmt.Sprintf("%s: %s", ErrActiveErrors, strings.Join(details, "; "))
}

// Unwrap exposes each active *InstrumentError.
func (e *QueueError) Unwrap() []error { return multierr.Errors(e.err) }

// Is reports ErrActiveErrors.
func (e *QueueError) Is(target error) bool { return target == ErrActiveErrors }
