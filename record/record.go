// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package record defines the wire format of a single chat-log message and
// the pure functions that encode and decode it. It has no knowledge of
// files, directories, or accounts; those live in package store.
package record

import (
	"strconv"
	"time"
)

// Kind is the kind of a logged message. The numeric values are part of
// the on-disk format and must never be renumbered.
type Kind uint8

// Kinds of messages. Readers accept and preserve values outside this
// range, since the wire format reserves a full byte for Kind but only
// these seven are currently assigned.
const (
	Message   Kind = 0
	Action    Kind = 1
	Ad        Kind = 2
	Roll      Kind = 3
	Warn      Kind = 4
	Event     Kind = 5
	Broadcast Kind = 6
)

func (k Kind) String() string {
	switch k {
	case Message:
		return "message"
	case Action:
		return "action"
	case Ad:
		return "ad"
	case Roll:
		return "roll"
	case Warn:
		return "warn"
	case Event:
		return "event"
	case Broadcast:
		return "broadcast"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Record is one logged chat message.
type Record struct {
	// Time is the wall-clock instant the message was sent, at
	// seconds resolution. Only the Unix-seconds value survives a
	// round trip through Encode/Decode; sub-second precision and the
	// original location are not preserved.
	Time time.Time

	// Kind classifies the message.
	Kind Kind

	// Sender is the display name of the message's sender. It must be
	// empty when Kind is Event; Encode enforces this regardless of
	// the field's runtime value.
	Sender string

	// Text is the message body.
	Text string
}

// MaxSenderLen is the largest encodable length of Sender, in bytes.
const MaxSenderLen = 255

// MaxTextLen is the largest length of Text the text_len field can hold,
// in bytes. Encode also rejects a record whose total length leaves its
// size marker outside 16 bits, so a text this long is never encodable.
const MaxTextLen = 65535

// FixedSize is the number of bytes in an encoded record that are not
// part of Sender or Text: 4 (time) + 1 (kind) + 1 (name_len) + 2
// (text_len) + 2 (size marker).
const FixedSize = 10

// MaxEncodedLen is the encoded size of a record with Sender and Text both
// at their field limits. Encode never produces a record longer than
// 65,537 bytes, so a buffer this long is always enough to decode one
// record from any valid offset.
const MaxEncodedLen = FixedSize + MaxSenderLen + MaxTextLen
