// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"chatlog.dev/errors"
	"chatlog.dev/record"
)

// BacklogOptions configures a call to Backlog.
type BacklogOptions struct {
	// Count caps the number of records returned, newest first. Zero
	// means unlimited.
	Count int
	// Day, if non-nil, restricts the result to records that fall on
	// the given local day.
	Day *record.Day
}

// BacklogOption mutates a BacklogOptions value.
type BacklogOption func(*BacklogOptions)

// WithCount limits Backlog to returning at most n records.
func WithCount(n int) BacklogOption {
	return func(o *BacklogOptions) { o.Count = n }
}

// WithDay restricts Backlog to records on local day d.
func WithDay(d record.Day) BacklogOption {
	return func(o *BacklogOptions) { o.Day = &d }
}

// Backlog returns up to opts' Count most recent records for a
// conversation, newest first. It is a pure reverse scan of the log file;
// the index is never consulted.
func (s *Store) Backlog(account, key string, opts ...BacklogOption) ([]record.Record, error) {
	const op = "store.Backlog"
	s.maybeRepair(account)

	var o BacklogOptions
	for _, opt := range opts {
		opt(&o)
	}

	var out []record.Record
	err := walk(logPath(s.root, account, key), func(rec record.Record) bool {
		if o.Day != nil {
			delta := int(record.LocalDay(rec.Time, s.location)) - int(*o.Day)
			switch {
			case delta > 0:
				// Record is newer than the target day; keep scanning
				// back toward it.
				return true
			case delta < 0:
				// Scanned past the target day into older records: done.
				return false
			}
		}
		out = append(out, rec)
		return o.Count == 0 || len(out) < o.Count
	})
	if err != nil {
		return nil, errors.E(op, errors.Account(account), errors.Conversation(key), err)
	}
	return out, nil
}

// DistinctDates returns every local day for which a conversation has at
// least one record, newest first. The scan walks the log newest-first
// and appends a record's date whenever it differs from the last date
// collected, so the result comes out newest-first and deduplicated
// without a separate sort pass.
func (s *Store) DistinctDates(account, key string) ([]record.Day, error) {
	const op = "store.DistinctDates"
	s.maybeRepair(account)

	var days []record.Day
	err := walk(logPath(s.root, account, key), func(rec record.Record) bool {
		d := record.LocalDay(rec.Time, s.location)
		if len(days) == 0 || days[len(days)-1] != d {
			days = append(days, d)
		}
		return true
	})
	if err != nil {
		return nil, errors.E(op, errors.Account(account), errors.Conversation(key), err)
	}
	return days, nil
}

// RecordCount returns the number of records stored for a conversation.
func (s *Store) RecordCount(account, key string) (int, error) {
	const op = "store.RecordCount"
	s.maybeRepair(account)

	n := 0
	err := walk(logPath(s.root, account, key), func(record.Record) bool {
		n++
		return true
	})
	if err != nil {
		return 0, errors.E(op, errors.Account(account), errors.Conversation(key), err)
	}
	return n, nil
}
