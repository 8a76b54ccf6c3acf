// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"encoding/binary"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"chatlog.dev/errors"
	"chatlog.dev/log"
	"chatlog.dev/record"
)

// RepairReport summarizes one call to Repair.
type RepairReport struct {
	// ConversationsRepaired is the number of conversations whose index
	// was rebuilt or whose log was truncated.
	ConversationsRepaired int
	// EntriesReindexed is the total number of (day, offset) entries in
	// the indexes rebuilt by the forward walk, summed over every
	// conversation walked, including those whose index file was already
	// correct and so was not rewritten.
	EntriesReindexed int
	// BytesTruncated is the total number of trailing bytes removed
	// from logs with a torn final record.
	BytesTruncated int64
	// OrphansDeleted is the number of files deleted because their
	// counterpart (log without .idx, or .idx without log) was missing.
	OrphansDeleted int
	// Errors holds one entry per conversation that could not be fully
	// repaired. A conversation failing does not stop the pass over the
	// rest.
	Errors []error
}

// Repair rebuilds the index and truncates any torn tail for every
// conversation belonging to account, and deletes log or index files
// whose counterpart is missing. It is safe to call repeatedly;
// repairing an already-healthy conversation is a no-op beyond the
// forward re-verification scan.
func (s *Store) Repair(account string) (RepairReport, error) {
	const op = "store.Repair"
	var report RepairReport

	keys, orphans, err := sweepOrphans(s.root, account)
	if err != nil {
		return report, errors.E(op, errors.Account(account), errors.IO, err)
	}
	report.OrphansDeleted = orphans

	// Both the orphan sweep and the per-conversation rebuild below can
	// invalidate indexes loaded before this call.
	if s.cachedAccount == account {
		s.cachedIndexes = map[string]*Index{}
	}

	for _, key := range keys {
		n, truncated, repaired, err := repairConversation(s.root, account, key, s.location)
		if err != nil {
			log.Error.Printf("store: repair: %s/%s: %v", account, key, err)
			report.Errors = append(report.Errors, errors.E(errors.Account(account), errors.Conversation(key), err))
			continue
		}
		if repaired {
			report.ConversationsRepaired++
		}
		report.EntriesReindexed += n
		report.BytesTruncated += truncated
	}

	log.Info.Printf("store: repair: account %q: %d conversation(s) repaired, %d entries reindexed, %d bytes truncated, %d orphan(s) deleted",
		account, report.ConversationsRepaired, report.EntriesReindexed, report.BytesTruncated, report.OrphansDeleted)
	return report, nil
}

// sweepOrphans deletes files whose counterpart is missing: an .idx file
// with no log, and a log file with no .idx. A log stripped of its index
// has lost the conversation's display name, so the pair is treated as
// corrupt and removed rather than reconstructed under a guessed name.
// It returns the conversation keys that still have both files, sorted,
// and the number of files deleted.
func sweepOrphans(root, account string) (keys []string, deleted int, err error) {
	entries, err := os.ReadDir(logsDir(root, account))
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	logNames := map[string]bool{}
	idxNames := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, idxSuffix) {
			idxNames[strings.TrimSuffix(name, idxSuffix)] = true
		} else {
			logNames[name] = true
		}
	}

	for key := range idxNames {
		if logNames[key] {
			continue
		}
		if err := os.Remove(indexPath(root, account, key)); err != nil && !os.IsNotExist(err) {
			return nil, deleted, err
		}
		deleted++
	}
	for key := range logNames {
		if idxNames[key] {
			keys = append(keys, key)
			continue
		}
		if err := os.Remove(logPath(root, account, key)); err != nil && !os.IsNotExist(err) {
			return keys, deleted, err
		}
		deleted++
	}
	sort.Strings(keys)
	return keys, deleted, nil
}

// repairConversation rebuilds the index for one conversation by
// forward-walking its log, verifying each record's trailing marker and
// truncating the log at the first torn or undecodable record. The walk
// reads through one fixed-size buffer large enough for any single
// record, so repair memory does not scale with log size. The caller
// guarantees both files exist. It returns the number of entries in the
// rebuilt index (whether or not the index file had to be rewritten), the
// number of bytes truncated from the log, and whether anything actually
// changed on disk.
func repairConversation(root, account, key string, loc *time.Location) (entries int, truncated int64, repaired bool, err error) {
	lp := logPath(root, account, key)
	ip := indexPath(root, account, key)

	oldIdx, err := loadIndex(ip)
	if err != nil {
		return 0, 0, false, err
	}
	displayName := ""
	if oldIdx != nil {
		displayName = oldIdx.DisplayName
	}

	f, err := os.Open(lp)
	if err != nil {
		return 0, 0, false, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return 0, 0, false, err
	}
	size := fi.Size()

	fresh := newIndex(displayName)

	buf := make([]byte, record.MaxEncodedLen)
	var lastDay record.Day
	haveDay := false
	var pos int64
	for pos < size {
		n, rerr := f.ReadAt(buf, pos)
		if rerr != nil && rerr != io.EOF {
			return 0, 0, false, rerr
		}
		rec, consumed, derr := record.DecodeForward(buf[:n])
		if derr != nil {
			break
		}
		d := record.LocalDay(rec.Time, loc)
		if !haveDay || d > lastDay {
			fresh.dayPos[d] = len(fresh.offsets)
			fresh.offsets = append(fresh.offsets, pos)
			lastDay = d
			haveDay = true
		}
		pos += int64(consumed)
	}

	entries = len(fresh.offsets)
	truncated = size - pos

	newIdxBytes := append(fresh.headerBytes(), encodeEntries(fresh)...)
	oldIdxBytes, _ := os.ReadFile(ip)
	idxChanged := string(oldIdxBytes) != string(newIdxBytes)

	if idxChanged {
		if err := os.WriteFile(ip, newIdxBytes, 0600); err != nil {
			return entries, truncated, false, err
		}
	}
	if truncated > 0 {
		if err := os.Truncate(lp, pos); err != nil {
			return entries, truncated, false, err
		}
	}
	repaired = idxChanged || truncated > 0
	return entries, truncated, repaired, nil
}

// encodeEntries renders an index's (day, offset) pairs in insertion
// order, without its header.
func encodeEntries(ix *Index) []byte {
	buf := make([]byte, 0, len(ix.offsets)*entrySize)
	order := make([]record.Day, len(ix.offsets))
	for d, pos := range ix.dayPos {
		order[pos] = d
	}
	for i, d := range order {
		entry := make([]byte, entrySize)
		binary.LittleEndian.PutUint16(entry[0:2], uint16(d))
		putUint40(entry[2:entrySize], ix.offsets[i])
		buf = append(buf, entry...)
	}
	return buf
}
