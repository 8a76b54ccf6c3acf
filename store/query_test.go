// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"fmt"
	"testing"
	"time"

	"chatlog.dev/record"
)

// TestReverseScanChunkBoundary: a log whose record boundaries do not
// align with the scanner's chunk size yields the same sequence and
// count as a forward decode of the same file.
func TestReverseScanChunkBoundary(t *testing.T) {
	s := setup(t)
	conv := Conversation{Key: "k", DisplayName: "K"}

	const n = 4000 // encoded records average ~30 bytes; well past chunkSize
	var want []record.Record
	for i := 0; i < n; i++ {
		r := rec(1_700_000_000+int64(i), record.Message, "u", fmt.Sprintf("message number %d", i))
		if err := s.Append("acct", conv, r); err != nil {
			t.Fatal(err)
		}
		want = append(want, r)
	}

	got, err := s.Backlog("acct", conv.Key)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i, g := range got {
		w := want[len(want)-1-i]
		if !g.Time.Equal(w.Time) || g.Text != w.Text {
			t.Fatalf("record %d: got %+v, want %+v", i, g, w)
		}
	}
}

func TestBacklogCount(t *testing.T) {
	s := setup(t)
	conv := Conversation{Key: "k", DisplayName: "K"}
	for i := 0; i < 5; i++ {
		if err := s.Append("acct", conv, rec(1_700_000_000+int64(i), record.Message, "u", fmt.Sprintf("m%d", i))); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Backlog("acct", conv.Key, WithCount(1))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].Text != "m4" {
		t.Errorf("got[0].Text = %q, want %q", got[0].Text, "m4")
	}
}

// TestBacklogDate: Backlog restricted to a day returns exactly the
// records whose local day matches, newest-first.
func TestBacklogDate(t *testing.T) {
	s := setup(t)
	conv := Conversation{Key: "k", DisplayName: "K"}

	day0 := int64(1_700_000_000)
	day1 := day0 + 86_400

	recs := []record.Record{
		rec(day0, record.Message, "a", "day0-first"),
		rec(day0+10, record.Message, "a", "day0-second"),
		rec(day1, record.Message, "a", "day1-first"),
		rec(day1+10, record.Message, "a", "day1-second"),
	}
	if err := s.Append("acct", conv, recs...); err != nil {
		t.Fatal(err)
	}

	target := record.LocalDay(time.Unix(day0, 0), time.UTC)
	got, err := s.Backlog("acct", conv.Key, WithDay(target))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].Text != "day0-second" || got[1].Text != "day0-first" {
		t.Errorf("got = %+v", got)
	}
}

func TestDistinctDates(t *testing.T) {
	s := setup(t)
	conv := Conversation{Key: "k", DisplayName: "K"}

	day0 := int64(1_700_000_000)
	day1 := day0 + 86_400
	recs := []record.Record{
		rec(day0, record.Message, "a", "x"),
		rec(day0+10, record.Message, "a", "y"),
		rec(day1, record.Message, "a", "z"),
	}
	if err := s.Append("acct", conv, recs...); err != nil {
		t.Fatal(err)
	}

	days, err := s.DistinctDates("acct", conv.Key)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 {
		t.Fatalf("len(days) = %d, want 2", len(days))
	}
	d0 := record.LocalDay(time.Unix(day0, 0), time.UTC)
	d1 := record.LocalDay(time.Unix(day1, 0), time.UTC)
	if days[0] != d1 || days[1] != d0 {
		t.Errorf("days = %v, want [%d %d]", days, d1, d0)
	}
}

func TestRecordCount(t *testing.T) {
	s := setup(t)
	conv := Conversation{Key: "k", DisplayName: "K"}
	for i := 0; i < 7; i++ {
		if err := s.Append("acct", conv, rec(int64(i), record.Message, "a", "x")); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.RecordCount("acct", conv.Key)
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 {
		t.Errorf("RecordCount = %d, want 7", n)
	}
}

func TestBacklogMissingConversationIsEmpty(t *testing.T) {
	s := setup(t)
	got, err := s.Backlog("nobody", "nothing")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records for a missing conversation, want 0", len(got))
	}
}
