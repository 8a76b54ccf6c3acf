// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"testing"
	"time"
)

func TestLocalDayUTC(t *testing.T) {
	// 2023-11-14T22:13:20Z
	tm := time.Unix(1_700_000_000, 0)
	got := LocalDay(tm, time.UTC)
	want := Day(1_700_000_000 / 86_400)
	if got != want {
		t.Errorf("LocalDay = %d, want %d", got, want)
	}
}

func TestLocalDayNonUTCOffset(t *testing.T) {
	// The format subtracts the zone's east-of-UTC offset, so five hours
	// west of Greenwich a late-evening UTC instant buckets into the
	// following day. Verify the zone-aware path actually folds the
	// offset into the bucket rather than silently computing the UTC day.
	loc := time.FixedZone("UTC-5", -5*3600)
	// 2023-11-14T23:30:00Z.
	tm := time.Unix(1_700_004_600, 0)
	_, offset := tm.In(loc).Zone()

	got := LocalDay(tm, loc)
	want := Day(floorDiv(tm.Unix()-int64(offset), 86_400))
	if got != want {
		t.Errorf("LocalDay = %d, want %d", got, want)
	}
	utcDay := LocalDay(tm, time.UTC)
	if got != utcDay+1 {
		t.Errorf("LocalDay in UTC-5 = %d, want %d (the day after the UTC day)", got, utcDay+1)
	}
}

func TestLocalDayNilLocationDefaultsToLocal(t *testing.T) {
	tm := time.Unix(1_700_000_000, 0)
	if got, want := LocalDay(tm, nil), LocalDay(tm, time.Local); got != want {
		t.Errorf("LocalDay(nil) = %d, want %d", got, want)
	}
}

func TestFloorDiv(t *testing.T) {
	cases := []struct{ a, b, want int64 }{
		{10, 3, 3},
		{-10, 3, -4},
		{-9, 3, -3},
		{9, 3, 3},
		{0, 3, 0},
	}
	for _, c := range cases {
		if got := floorDiv(c.a, c.b); got != c.want {
			t.Errorf("floorDiv(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
