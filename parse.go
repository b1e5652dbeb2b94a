// Copyright (c) 2024–2026 The bristol671 developers. All rights reserved.
// Project site: https://github.com/gotmc/bristol671
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package bristol671

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Environment holds the reply to FETCH/READ/MEASURE:ENVIRONMENT?.
type Environment struct {
	Temperature float64 `json:"temperature"` // °C
	Pressure    float64 `json:"pressure"`    // mmHg
}

// WavemeterData holds the reply to FETCH/READ/MEASURE:ALL?. Power is in mW
// or dBm, depending on the instrument's UNIT:POWER setting.
type WavemeterData struct {
	ScanIndex        int     `json:"scan_index"`
	InstrumentStatus int     `json:"instrument_status"`
	Wavelength       float64 `json:"wavelength"` // nm
	Power            float64 `json:"power"`
}

const (
	temperatureSuffix = "C"
	pressureSuffix    = "MMHG"
)

// splitFields splits a comma separated response into exactly n trimmed
// fields.
func splitFields(line string, n int, context string) ([]string, error) {
	parts := strings.Split(line, ",")
	if len(parts) != n {
		return nil, &ParseError{
			Context: context,
			Raw:     line,
			Err:     fmt.Errorf("expected %d comma-separated values, got %d", n, len(parts)),
		}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

// quantityField parses a field of the form "<float> <suffix>" or
// "<float><suffix>". The suffix is case sensitive.
func quantityField(field, suffix string) (float64, error) {
	num, ok := strings.CutSuffix(field, suffix)
	if !ok {
		return 0, fmt.Errorf("field %q lacks unit suffix %q", field, suffix)
	}
	num = strings.TrimSpace(num)
	if num == "" {
		return 0, fmt.Errorf("field %q has no numeric value", field)
	}
	return parseDecimal(num)
}

// parseDecimal parses a float in plain decimal or exponent notation. Hex
// floats, underscores, NaN and Inf are rejected.
func parseDecimal(s string) (float64, error) {
	if strings.TrimLeft(s, "+-.0123456789eE") != "" {
		return 0, fmt.Errorf("%q is not a decimal number", s)
	}
	return strconv.ParseFloat(s, 64)
}

// ParseEnvironment parses an ENVIRONMENT reply such as "25.4 C, 755.2 MMHG".
func ParseEnvironment(line string) (Environment, error) {
	const context = "ENVIRONMENT"
	parts, err := splitFields(line, 2, context)
	if err != nil {
		return Environment{}, err
	}
	t, err := quantityField(parts[0], temperatureSuffix)
	if err != nil {
		return Environment{}, &ParseError{Context: context, Raw: line, Err: err}
	}
	p, err := quantityField(parts[1], pressureSuffix)
	if err != nil {
		return Environment{}, &ParseError{Context: context, Raw: line, Err: err}
	}
	return Environment{Temperature: t, Pressure: p}, nil
}

// ParseScanRecord parses an ALL reply: scan index, instrument status,
// wavelength and power, in that order.
func ParseScanRecord(line string) (WavemeterData, error) {
	const context = "ALL"
	parts, err := splitFields(line, 4, context)
	if err != nil {
		return WavemeterData{}, err
	}
	var (
		d    WavemeterData
		errs []error
	)
	d.ScanIndex, err = strconv.Atoi(parts[0])
	errs = append(errs, err)
	d.InstrumentStatus, err = strconv.Atoi(parts[1])
	errs = append(errs, err)
	d.Wavelength, err = parseDecimal(parts[2])
	errs = append(errs, err)
	d.Power, err = parseDecimal(parts[3])
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return WavemeterData{}, &ParseError{Context: context, Raw: line, Err: err}
	}
	return d, nil
}

// ParseAverageState parses the reply to SENSE:AVERAGE:STATE?, which must be
// exactly "ON" or "OFF".
func ParseAverageState(token string) (bool, error) {
	switch token {
	case "ON":
		return true, nil
	case "OFF":
		return false, nil
	}
	return false, &ParseError{
		Context: "AVERAGE:STATE",
		Raw:     token,
		Err:     fmt.Errorf("state %q is neither ON nor OFF", token),
	}
}

// ParseSystemError splits a SYSTEM:ERROR? reply into its code and message.
// Only the first comma separates the two; one layer of double quotes around
// the message is removed.
func ParseSystemError(line string) (int, string, error) {
	const context = "SYSTEM:ERROR"
	codeStr, msg, found := strings.Cut(line, ",")
	if !found {
		return 0, "", &ParseError{Context: context, Raw: line, Err: errors.New("missing comma")}
	}
	code, err := strconv.Atoi(strings.TrimSpace(codeStr))
	if err != nil {
		return 0, "", &ParseError{Context: context, Raw: line, Err: err}
	}
	msg = strings.TrimSpace(msg)
	if len(msg) >= 2 && msg[0] == '"' && msg[len(msg)-1] == '"' {
		msg = msg[1 : len(msg)-1]
	}
	return code, msg, nil
}

// ErrorCodeFromInt maps an integer code to an ErrorCode, reporting unknown
// codes as a *ParseError wrapping ErrUnrecognizedCode.
func ErrorCodeFromInt(code int) (ErrorCode, error) {
	ec, err := LookupErrorCode(code)
	if err != nil {
		return 0, &ParseError{Context: "SYSTEM:ERROR", Raw: strconv.Itoa(code), Err: err}
	}
	return ec, nil
}

// ParseQueueEntry parses one SYSTEM:ERROR? reply into a QueueEntry.
func ParseQueueEntry(line string) (QueueEntry, error) {
	code, msg, err := ParseSystemError(line)
	if err != nil {
		return QueueEntry{}, err
	}
	ec, err := LookupErrorCode(code)
	if err != nil {
		return QueueEntry{}, &ParseError{Context: "SYSTEM:ERROR", Raw: line, Err: err}
	}
	return QueueEntry{Code: ec, Message: msg}, nil
}

// ParseFloat parses a single floating point reply. context names the query
// in the error message.
func ParseFloat(context, s string) (float64, error) {
	f, err := parseDecimal(strings.TrimSpace(s))
	if err != nil {
		return 0, &ParseError{Context: context, Raw: s, Err: err}
	}
	return f, nil
}

// ParseInt parses a single integer reply. context names the query in the
// error message.
func ParseInt(context, s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &ParseError{Context: context, Raw: s, Err: err}
	}
	return i, nil
}
