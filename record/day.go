// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import "time"

// Day is a local-calendar day number: the integer count of local days
// since the Unix epoch, stored as an unsigned 16-bit integer in the
// on-disk index.
type Day uint16

// LocalDay returns the local-calendar day number of t in loc. loc is
// injectable so tests can pin the zone instead of depending on the
// machine's configured timezone; production callers pass time.Local.
//
// The bucket is floor((unix − offset)/86400), where offset is the
// zone's seconds east of UTC in effect at t itself, not at the time
// LocalDay is called. This is the format's historical convention and is
// part of the on-disk contract: index files written by different
// implementations must agree byte for byte. Two logs written in
// different zones will therefore disagree on day boundaries for
// otherwise-identical records; this is a known, preserved property of
// the format (see the store package's design notes).
func LocalDay(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	_, offset := t.In(loc).Zone()
	d := floorDiv(t.Unix()-int64(offset), 86_400)
	return Day(uint16(d))
}

// floorDiv is integer division rounding toward negative infinity, unlike
// Go's built-in / which truncates toward zero. The day formula needs
// floor semantics so that instants just before an offset-adjusted
// midnight land in the previous day rather than wrapping to zero.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
