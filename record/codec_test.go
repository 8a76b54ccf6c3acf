// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"testing"
	"time"

	"chatlog.dev/errors"
)

func TestEncodeDecodeForward(t *testing.T) {
	r := Record{
		Time:   time.Unix(1_700_000_000, 0),
		Kind:   Message,
		Sender: "alice",
		Text:   "hi",
	}
	buf, err := Encode(r)
	if err != nil {
		t.Fatal(err)
	}
	got, n, err := DecodeForward(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Errorf("consumed %d bytes, want %d", n, len(buf))
	}
	if !got.Time.Equal(r.Time) || got.Kind != r.Kind || got.Sender != r.Sender || got.Text != r.Text {
		t.Errorf("DecodeForward = %+v, want %+v", got, r)
	}
}

func TestEncodeDecodeTail(t *testing.T) {
	r := Record{Time: time.Unix(1_700_000_100, 0), Kind: Action, Sender: "bob", Text: "waves"}
	buf, err := Encode(r)
	if err != nil {
		t.Fatal(err)
	}
	got, start, err := DecodeTail(buf, len(buf))
	if err != nil {
		t.Fatal(err)
	}
	if start != 0 {
		t.Errorf("start = %d, want 0", start)
	}
	if got.Sender != r.Sender || got.Text != r.Text {
		t.Errorf("DecodeTail = %+v, want %+v", got, r)
	}
}

func TestEventHasNoSender(t *testing.T) {
	r := Record{Time: time.Now(), Kind: Event, Sender: "ignored", Text: "joined"}
	buf, err := Encode(r)
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := DecodeForward(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Sender != "" {
		t.Errorf("Sender = %q, want empty for Event", got.Sender)
	}
}

func TestEncodeRejectsOversizeFields(t *testing.T) {
	big := make([]byte, MaxTextLen+1)
	for i := range big {
		big[i] = 'a'
	}
	_, err := Encode(Record{Time: time.Now(), Kind: Message, Sender: "x", Text: string(big)})
	if !errors.Is(errors.Encoding, err) {
		t.Fatalf("err = %v, want Encoding kind", err)
	}
}

func TestDecodeForwardFramingError(t *testing.T) {
	r := Record{Time: time.Now(), Kind: Message, Sender: "a", Text: "b"}
	buf, err := Encode(r)
	if err != nil {
		t.Fatal(err)
	}
	buf[len(buf)-1] ^= 0xFF // corrupt the size marker
	_, _, err = DecodeForward(buf)
	if !errors.Is(errors.Framing, err) {
		t.Fatalf("err = %v, want Framing kind", err)
	}
}

func TestMarkerMatchesTable(t *testing.T) {
	r := Record{Time: time.Unix(1_700_000_000, 0), Kind: Message, Sender: "alice", Text: "hi"}
	buf, err := Encode(r)
	if err != nil {
		t.Fatal(err)
	}
	wantTotal := FixedSize + len("alice") + len("hi")
	if len(buf) != wantTotal {
		t.Errorf("len(buf) = %d, want %d", len(buf), wantTotal)
	}
	marker := int(buf[len(buf)-2]) | int(buf[len(buf)-1])<<8
	if marker != wantTotal-2 {
		t.Errorf("marker = %d, want %d", marker, wantTotal-2)
	}
}
