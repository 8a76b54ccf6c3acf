// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"encoding/binary"
	"math"
	"time"
	"unicode/utf8"

	"chatlog.dev/errors"
)

// Encode marshals r into a new byte slice laid out as:
//
//	offset                  size  field
//	0                       4     time, seconds, little-endian
//	4                       1     kind
//	5                       1     name_len
//	6                       name_len  sender, UTF-8
//	6+name_len              2     text_len, little-endian
//	8+name_len              text_len  text, UTF-8
//	8+name_len+text_len     2     size marker = total-2, little-endian
//
// When r.Kind is Event, the sender is encoded as empty regardless of
// r.Sender, matching the decode side's behavior. A record whose size
// marker would not fit in 16 bits (total longer than 65,537 bytes) is
// rejected with an Encoding error.
func Encode(r Record) ([]byte, error) {
	const op = "record.Encode"

	sender := r.Sender
	if r.Kind == Event {
		sender = ""
	}
	if len(sender) > MaxSenderLen {
		return nil, errors.E(op, errors.Encoding, errors.Errorf("sender name too long: %d bytes", len(sender)))
	}
	if len(r.Text) > MaxTextLen {
		return nil, errors.E(op, errors.Encoding, errors.Errorf("text too long: %d bytes", len(r.Text)))
	}
	if !utf8.ValidString(sender) {
		return nil, errors.E(op, errors.Encoding, errors.Str("sender is not valid UTF-8"))
	}
	if !utf8.ValidString(r.Text) {
		return nil, errors.E(op, errors.Encoding, errors.Str("text is not valid UTF-8"))
	}

	total := FixedSize + len(sender) + len(r.Text)
	if total-2 > math.MaxUint16 {
		return nil, errors.E(op, errors.Encoding, errors.Errorf("record too long: %d bytes, size marker cannot exceed %d", total, math.MaxUint16))
	}
	buf := make([]byte, total)

	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.Time.Unix()))
	buf[4] = byte(r.Kind)
	buf[5] = byte(len(sender))
	n := copy(buf[6:], sender)
	textOff := 6 + n
	binary.LittleEndian.PutUint16(buf[textOff:textOff+2], uint16(len(r.Text)))
	copy(buf[textOff+2:], r.Text)
	binary.LittleEndian.PutUint16(buf[total-2:total], uint16(total-2))

	return buf, nil
}

// DecodeForward parses one record starting at the beginning of buf. It
// returns the record and the number of bytes it consumed. The trailing
// size marker must equal the number of bytes consumed minus two, or a
// Framing error is returned.
func DecodeForward(buf []byte) (Record, int, error) {
	const op = "record.DecodeForward"
	var rec Record

	if len(buf) < FixedSize {
		return rec, 0, errors.E(op, errors.Framing, errors.Str("buffer shorter than a minimal record"))
	}
	nameLen := int(buf[5])
	headerAndName := 6 + nameLen
	if len(buf) < headerAndName+2 {
		return rec, 0, errors.E(op, errors.Framing, errors.Str("buffer too short for sender and text length"))
	}
	textLen := int(binary.LittleEndian.Uint16(buf[headerAndName : headerAndName+2]))
	total := headerAndName + 2 + textLen + 2
	if len(buf) < total {
		return rec, 0, errors.E(op, errors.Framing, errors.Str("buffer too short for declared text length"))
	}

	marker := binary.LittleEndian.Uint16(buf[total-2 : total])
	if int(marker) != total-2 {
		return rec, 0, errors.E(op, errors.Framing, errors.Errorf("size marker %d does not match parsed length %d", marker, total-2))
	}

	seconds := binary.LittleEndian.Uint32(buf[0:4])
	rec.Time = time.Unix(int64(seconds), 0)
	rec.Kind = Kind(buf[4])
	rec.Sender = string(buf[6:headerAndName])
	rec.Text = string(buf[headerAndName+2 : headerAndName+2+textLen])

	return rec, total, nil
}

// DecodeTail parses the record that ends at position end within buf. It
// returns the record and the offset within buf at which the record
// begins. The marker is read from the two bytes before end and
// cross-checked against the lengths parsed from the record itself;
// mismatch is a Framing error.
func DecodeTail(buf []byte, end int) (Record, int, error) {
	const op = "record.DecodeTail"

	if end < 2 || end > len(buf) {
		return Record{}, 0, errors.E(op, errors.Framing, errors.Str("end out of range"))
	}
	marker := binary.LittleEndian.Uint16(buf[end-2 : end])
	total := int(marker) + 2
	start := end - total
	if start < 0 {
		return Record{}, 0, errors.E(op, errors.Framing, errors.Str("record length exceeds available buffer"))
	}

	rec, n, err := DecodeForward(buf[start:end])
	if err != nil {
		return Record{}, 0, err
	}
	if n != total {
		return Record{}, 0, errors.E(op, errors.Framing, errors.Errorf("decoded length %d does not match marker-derived length %d", n, total))
	}
	return rec, start, nil
}
