// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"testing"

	"chatlog.dev/record"
)

func TestIndexAppendForDayFirstEntryIncludesHeader(t *testing.T) {
	ix := newIndex("Display Name")
	buf, err := ix.appendForDay(record.Day(100), 0, maxOffset)
	if err != nil {
		t.Fatal(err)
	}
	wantLen := 1 + len("Display Name") + entrySize
	if len(buf) != wantLen {
		t.Fatalf("len(buf) = %d, want %d", len(buf), wantLen)
	}
	off, ok := ix.offsetForDay(100)
	if !ok || off != 0 {
		t.Errorf("offsetForDay(100) = (%d, %v), want (0, true)", off, ok)
	}
}

func TestIndexAppendForDaySameDayWritesNothing(t *testing.T) {
	ix := newIndex("D")
	if _, err := ix.appendForDay(record.Day(5), 0, maxOffset); err != nil {
		t.Fatal(err)
	}
	buf, err := ix.appendForDay(record.Day(5), 42, maxOffset)
	if err != nil {
		t.Fatal(err)
	}
	if buf != nil {
		t.Errorf("appendForDay for a repeated day returned %d bytes, want nil", len(buf))
	}
}

func TestIndexAppendForDayNewDayWritesOneEntry(t *testing.T) {
	ix := newIndex("D")
	if _, err := ix.appendForDay(record.Day(5), 0, maxOffset); err != nil {
		t.Fatal(err)
	}
	buf, err := ix.appendForDay(record.Day(6), 123, maxOffset)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != entrySize {
		t.Fatalf("len(buf) = %d, want %d", len(buf), entrySize)
	}
	off, ok := ix.offsetForDay(6)
	if !ok || off != 123 {
		t.Errorf("offsetForDay(6) = (%d, %v), want (123, true)", off, ok)
	}
}

func TestIndexAppendForDayRejectsOverflow(t *testing.T) {
	ix := newIndex("D")
	_, err := ix.appendForDay(record.Day(1), maxOffset+1, maxOffset)
	if err == nil {
		t.Fatal("expected an overflow error, got nil")
	}
}

func TestIndexRoundTrip(t *testing.T) {
	ix := newIndex("Conversation Name")
	var buf []byte
	b1, err := ix.appendForDay(1, 0, maxOffset)
	if err != nil {
		t.Fatal(err)
	}
	buf = append(buf, b1...)
	b2, err := ix.appendForDay(2, 17, maxOffset)
	if err != nil {
		t.Fatal(err)
	}
	buf = append(buf, b2...)

	decoded, err := decodeIndex(buf)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.DisplayName != "Conversation Name" {
		t.Errorf("DisplayName = %q, want %q", decoded.DisplayName, "Conversation Name")
	}
	if off, ok := decoded.offsetForDay(1); !ok || off != 0 {
		t.Errorf("offsetForDay(1) = (%d, %v), want (0, true)", off, ok)
	}
	if off, ok := decoded.offsetForDay(2); !ok || off != 17 {
		t.Errorf("offsetForDay(2) = (%d, %v), want (17, true)", off, ok)
	}
}

func TestDecodeIndexEmptyFile(t *testing.T) {
	ix, err := decodeIndex(nil)
	if err != nil {
		t.Fatal(err)
	}
	if ix.DisplayName != "" {
		t.Errorf("DisplayName = %q, want empty", ix.DisplayName)
	}
}

func TestPutAndDecodeUint40(t *testing.T) {
	for _, v := range []int64{0, 1, 255, 256, 1 << 20, maxOffset} {
		b := make([]byte, 5)
		putUint40(b, v)
		if got := decodeUint40(b); got != v {
			t.Errorf("decodeUint40(putUint40(%d)) = %d", v, got)
		}
	}
}
