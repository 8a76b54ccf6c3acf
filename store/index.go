// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"encoding/binary"
	"os"

	"chatlog.dev/errors"
	"chatlog.dev/record"
)

// maxOffset is the largest offset encodable in the index's 5-byte
// little-endian offset field: 2^40 - 1, about 1 TiB.
const maxOffset = 1<<40 - 1

// entrySize is the size, in bytes, of one (day, offset) index entry.
const entrySize = 7 // 2 bytes day + 5 bytes offset

// Index is the in-memory representation of a conversation's day->offset
// map, as loaded from (or destined for) its .idx file.
type Index struct {
	DisplayName string

	// offsets holds the offset of the first record of each indexed
	// day, in the order days were first encountered.
	offsets []int64

	// dayPos maps a day number to its position in offsets. It is set
	// only the first time a day is encountered, per the append
	// invariant in the store's data model.
	dayPos map[record.Day]int
}

// newIndex returns an empty index for a conversation with the given
// display name.
func newIndex(displayName string) *Index {
	return &Index{DisplayName: displayName, dayPos: map[record.Day]int{}}
}

// loadIndex reads a conversation's index file in full. It returns
// (nil, nil) if the file does not exist.
func loadIndex(path string) (*Index, error) {
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.E("store.loadIndex", errors.IO, err)
	}
	return decodeIndex(buf)
}

// decodeIndex parses the full contents of an index file.
func decodeIndex(buf []byte) (*Index, error) {
	const op = "store.decodeIndex"
	if len(buf) == 0 {
		return newIndex(""), nil
	}
	nameLen := int(buf[0])
	if len(buf) < 1+nameLen {
		return nil, errors.E(op, errors.Framing, errors.Str("index header truncated"))
	}
	ix := newIndex(string(buf[1 : 1+nameLen]))
	body := buf[1+nameLen:]
	for len(body) >= entrySize {
		d := record.Day(binary.LittleEndian.Uint16(body[0:2]))
		off := decodeUint40(body[2:entrySize])
		// Last-wins on a duplicate day: this engine never produces
		// duplicates, but a corrupted or externally-written index
		// might, and the store tolerates it rather than erroring.
		if pos, ok := ix.dayPos[d]; ok {
			ix.offsets[pos] = off
		} else {
			ix.dayPos[d] = len(ix.offsets)
			ix.offsets = append(ix.offsets, off)
		}
		body = body[entrySize:]
	}
	return ix, nil
}

// headerBytes returns the on-disk header for this index: a one-byte
// name length followed by the display name itself.
func (ix *Index) headerBytes() []byte {
	name := ix.DisplayName
	b := make([]byte, 1+len(name))
	b[0] = byte(len(name))
	copy(b[1:], name)
	return b
}

// appendForDay is the pure incremental-update function of the index
// component: given the local day of a new record and the pre-append log
// size, it returns the bytes that must be appended to the index file (or
// nil if no index write is needed) and mutates ix in place. maxOff caps
// the accepted offset; callers pass the codec's maxOffset unless a
// store configuration overrides it for testing.
//
// ix must be non-nil; callers create one with newIndex on first append
// to a conversation.
func (ix *Index) appendForDay(d record.Day, preAppendSize, maxOff int64) ([]byte, error) {
	if preAppendSize < 0 || preAppendSize > maxOff {
		return nil, errors.E("store.Index.appendForDay", errors.Overflow, errors.Errorf("offset %d exceeds %d-bit limit", preAppendSize, 40))
	}
	if _, ok := ix.dayPos[d]; ok {
		return nil, nil
	}
	ix.dayPos[d] = len(ix.offsets)
	ix.offsets = append(ix.offsets, preAppendSize)

	entry := make([]byte, entrySize)
	binary.LittleEndian.PutUint16(entry[0:2], uint16(d))
	putUint40(entry[2:entrySize], preAppendSize)

	if len(ix.offsets) == 1 {
		// First entry for this conversation: the index file doesn't
		// exist yet, so the write must include the header.
		return append(ix.headerBytes(), entry...), nil
	}
	return entry, nil
}

// offsetForDay returns the offset of the first record of day d and
// whether that day is present in the index.
func (ix *Index) offsetForDay(d record.Day) (int64, bool) {
	pos, ok := ix.dayPos[d]
	if !ok {
		return 0, false
	}
	return ix.offsets[pos], true
}

func putUint40(b []byte, v int64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	copy(b, tmp[:5])
}

func decodeUint40(b []byte) int64 {
	var tmp [8]byte
	copy(tmp[:5], b[:5])
	return int64(binary.LittleEndian.Uint64(tmp[:]))
}
