// Copyright (c) 2024–2026 The bristol671 developers. All rights reserved.
// Project site: https://github.com/gotmc/bristol671
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package bristol671

import "fmt"

// DefaultMaxErrorReads bounds DrainErrorQueue when no limit is configured.
const DefaultMaxErrorReads = 32

// QueueEntry is one entry of the instrument's FIFO error queue.
type QueueEntry struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e QueueEntry) String() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, int(e.Code), e.Message)
}

// DrainErrorQueue calls next until it yields a NO_ERROR entry, returning every
// entry read, the terminating NO_ERROR included. next performs one
// SYSTEM:ERROR? round trip.
//
// A transport error or a malformed entry stops the drain immediately. If
// maxReads entries are read without reaching NO_ERROR, the error wraps
// ErrQueueNotTerminated. When raiseOnError is set and the completed drain
// holds any entry other than NO_ERROR, the entries are returned together with
// a *QueueError.
func DrainErrorQueue(next func() (string, error), maxReads int, raiseOnError bool) ([]QueueEntry, error) {
	if maxReads <= 0 {
		return nil, fmt.Errorf("%w: maxReads must be > 0, got %d", ErrInvalidArgument, maxReads)
	}
	var entries []QueueEntry
	done := false
	for i := 0; i < maxReads && !done; i++ {
		line, err := next()
		if err != nil {
			return entries, fmt.Errorf("reading error queue: %w", err)
		}
		entry, err := ParseQueueEntry(line)
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
		done = entry.Code == NoError
	}
	if !done {
		return entries, fmt.Errorf("%w within %d reads", ErrQueueNotTerminated, maxReads)
	}
	if raiseOnError {
		for _, e := range entries {
			if e.Code != NoError {
				return entries, newQueueError(entries)
			}
		}
	}
	return entries, nil
}
