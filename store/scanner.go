// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"encoding/binary"
	"io"
	"os"

	"chatlog.dev/log"
	"chatlog.dev/record"
)

// chunkSize is the size of the reverse scanner's read window, bounding a
// scan's memory to fixed-size reads regardless of log size. A record
// longer than one chunk (the codec permits up to 65,537 bytes) widens
// the window just far enough to cover that one record.
const chunkSize = 65536

// Scanner walks a log file from tail to head, yielding records
// newest-first. It keeps one read window in memory, sliding it toward
// the start of the file as records are consumed; the window always ends
// at the unconsumed boundary, so bytes already yielded are dropped
// rather than accumulated.
//
// This is the pull-iterator rendering of the store's reverse-scan
// design: callers loop on Next instead of passing in a callback, but
// the underlying chunk/cursor/straddle bookkeeping is the same either
// way. One file handle and one buffer live for exactly as long as the
// scan does.
type Scanner struct {
	f        *os.File
	winStart int64 // absolute offset of win[0]
	win      []byte
	cur      int64 // absolute offset; records before cur are unconsumed
	done     bool
}

// NewScanner opens path for reverse scanning. If the file does not
// exist, it returns a Scanner whose first Next call reports no more
// records, matching the component's "no result" contract for a missing
// log.
func NewScanner(path string) (*Scanner, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &Scanner{done: true}, nil
	}
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	sc := &Scanner{f: f, cur: fi.Size()}
	if err := sc.slide(0); err != nil {
		f.Close()
		return nil, err
	}
	return sc, nil
}

// Close releases the scanner's file handle. It is safe to call more
// than once.
func (sc *Scanner) Close() error {
	if sc.f == nil {
		return nil
	}
	err := sc.f.Close()
	sc.f = nil
	return err
}

// Next returns the next record in newest-first order along with true,
// or a zero Record and false when the scan is exhausted or has hit an
// unrecoverable framing or I/O error. Per the component's error-recovery
// contract, Next never returns an error to the caller: any I/O or
// framing problem ends the scan as if it had reached the head of the
// file, after logging the cause.
func (sc *Scanner) Next() (record.Record, bool) {
	for {
		if sc.done {
			return record.Record{}, false
		}
		if sc.cur == 0 {
			sc.done = true
			return record.Record{}, false
		}
		relEnd := sc.cur - sc.winStart
		if relEnd < 2 {
			if sc.winStart == 0 {
				log.Error.Printf("store: scanner: %d stray byte(s) at start of file", sc.cur)
				sc.done = true
				return record.Record{}, false
			}
			if !sc.slideOrFail(2) {
				return record.Record{}, false
			}
			continue
		}

		marker := binary.LittleEndian.Uint16(sc.win[relEnd-2 : relEnd])
		total := int64(marker) + 2
		relStart := relEnd - total
		if relStart < 0 {
			// The record straddles the window's left edge; slide the
			// window back far enough to cover it whole.
			if sc.winStart == 0 {
				log.Error.Printf("store: scanner: record ending at offset %d extends before start of file", sc.cur)
				sc.done = true
				return record.Record{}, false
			}
			if !sc.slideOrFail(total) {
				return record.Record{}, false
			}
			continue
		}

		rec, n, err := record.DecodeForward(sc.win[relStart:relEnd])
		if err != nil || int64(n) != total {
			log.Error.Printf("store: scanner: framing error at offset %d: %v", sc.cur, err)
			sc.done = true
			return record.Record{}, false
		}
		sc.cur = sc.winStart + relStart
		return rec, true
	}
}

// slide repositions the window to end at cur, covering at least need
// bytes (one full chunk, if need is smaller). Bytes at or past cur have
// already been consumed and are never re-read, so a scan's memory stays
// bounded by one chunk, or one record if a record exceeds the chunk.
func (sc *Scanner) slide(need int64) error {
	size := int64(chunkSize)
	if need > size {
		size = need
	}
	start := sc.cur - size
	if start < 0 {
		start = 0
	}
	buf := make([]byte, sc.cur-start)
	if _, err := sc.f.ReadAt(buf, start); err != nil && err != io.EOF {
		return err
	}
	sc.win = buf
	sc.winStart = start
	return nil
}

// slideOrFail is slide with the scan-terminating error handling Next
// needs on both of its straddle paths.
func (sc *Scanner) slideOrFail(need int64) bool {
	if err := sc.slide(need); err != nil {
		log.Error.Printf("store: scanner: reading window ending at offset %d: %v", sc.cur, err)
		sc.done = true
		return false
	}
	return true
}

// walk drives fn with every record from tail to head, stopping early if
// fn returns false. It is the internal helper the query facades (F) are
// built on; it exists so each facade doesn't repeat the "open, loop
// Next, close" boilerplate.
func walk(path string, fn func(record.Record) bool) error {
	sc, err := NewScanner(path)
	if err != nil {
		return err
	}
	defer sc.Close()
	for {
		rec, ok := sc.Next()
		if !ok {
			return nil
		}
		if !fn(rec) {
			return nil
		}
	}
}
