// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"chatlog.dev/config"
	"chatlog.dev/errors"
	"chatlog.dev/log"
	"chatlog.dev/record"
)

// backupStampFormat names one reconciliation run's backup directory.
const backupStampFormat = "20060102_150405"

// Target selects which replica(s) a Merge installs its result into.
type Target int

const (
	TargetA Target = iota
	TargetB
	TargetBoth
)

// MergeReport summarizes one call to Merge.
type MergeReport struct {
	// FromA and FromB count the records contributed by each replica to
	// the merged union (a record present in both counts toward FromA,
	// matching the "A wins on identical key" rule).
	FromA, FromB int
	// TotalRecords is the size of the merged conversation.
	TotalRecords int
	// BackupDir is the YYYYMMDD_HHMMSS name of the directory the
	// pre-merge replica files were copied into, under the backups
	// directory of each selected replica's own root.
	BackupDir string
	// Installed lists the replica roots the merged result was written
	// into.
	Installed []string
}

// recordKey is the identity tuple two records are considered the same
// logical message under: (time, kind, sender, text).
type recordKey struct {
	Time   int64
	Kind   record.Kind
	Sender string
	Text   string
}

func keyOf(r record.Record) recordKey {
	return recordKey{Time: r.Time.Unix(), Kind: r.Kind, Sender: r.Sender, Text: r.Text}
}

// Merge reconciles a conversation between two replica store roots,
// identifying identical messages by (time, kind, sender, text) and
// installing the sorted union into the replica(s) named by target.
// Before anything is touched, every selected replica's log and index
// files for this conversation are copied into a timestamped backup
// directory under that replica's own root; a failure at any point
// before install leaves both replicas exactly as they were.
func Merge(account string, conv Conversation, replicaA, replicaB string, target Target) (MergeReport, error) {
	const op = "store.Merge"
	var report MergeReport

	stamp := time.Now().UTC().Format(backupStampFormat)

	g, _ := errgroup.WithContext(context.Background())
	if target == TargetA || target == TargetBoth {
		g.Go(func() error { return backupReplica(replicaA, account, conv.Key, stamp, "A") })
	}
	if target == TargetB || target == TargetBoth {
		g.Go(func() error { return backupReplica(replicaB, account, conv.Key, stamp, "B") })
	}
	if err := g.Wait(); err != nil {
		return report, errors.E(op, errors.Account(account), errors.Conversation(conv.Key), errors.Backup, err)
	}
	report.BackupDir = stamp

	var recsA, recsB []record.Record
	lg, _ := errgroup.WithContext(context.Background())
	lg.Go(func() error {
		var err error
		recsA, err = loadFullBacklog(replicaA, account, conv.Key)
		return err
	})
	lg.Go(func() error {
		var err error
		recsB, err = loadFullBacklog(replicaB, account, conv.Key)
		return err
	})
	if err := lg.Wait(); err != nil {
		return report, errors.E(op, errors.Account(account), errors.Conversation(conv.Key), err)
	}

	merged, fromA, fromB := union(recsA, recsB)
	report.FromA, report.FromB, report.TotalRecords = fromA, fromB, len(merged)

	scratchRoot := mergeScratchRoot(replicaA)
	if err := buildScratch(scratchRoot, account, conv, merged); err != nil {
		return report, errors.E(op, errors.Account(account), errors.Conversation(conv.Key), err)
	}
	defer os.RemoveAll(scratchRoot)

	scratchLog := logPath(scratchRoot, account, conv.Key)
	scratchIdx := indexPath(scratchRoot, account, conv.Key)

	if target == TargetA || target == TargetBoth {
		if err := installReplica(scratchLog, scratchIdx, replicaA, account, conv.Key); err != nil {
			return report, errors.E(op, errors.Account(account), errors.Conversation(conv.Key), err)
		}
		report.Installed = append(report.Installed, replicaA)
	}
	if target == TargetB || target == TargetBoth {
		if err := installReplica(scratchLog, scratchIdx, replicaB, account, conv.Key); err != nil {
			return report, errors.E(op, errors.Account(account), errors.Conversation(conv.Key), err)
		}
		report.Installed = append(report.Installed, replicaB)
	}

	for _, root := range report.Installed {
		pruneBackups(root, stamp)
	}

	log.Info.Printf("store: merge: account %q conversation %q: %d from A, %d from B, %d total, installed into %v",
		account, conv.Key, report.FromA, report.FromB, report.TotalRecords, report.Installed)
	return report, nil
}

// pruneBackups removes backup directories older than the replica's
// configured backup_retention, measured in days against the current
// run's own stamp so the comparison needs no clock beyond the one the
// stamp was minted from. A retention of zero keeps everything. Pruning
// is best-effort: a replica whose backups cannot be read or removed
// keeps them, and the merge that already succeeded is not disturbed.
func pruneBackups(replicaRoot, nowStamp string) {
	cfg, err := config.Load(filepath.Join(replicaRoot, config.FileName))
	if err != nil || cfg.BackupRetention <= 0 {
		return
	}
	now, err := time.Parse(backupStampFormat, nowStamp)
	if err != nil {
		return
	}
	cutoff := now.AddDate(0, 0, -cfg.BackupRetention)

	dir := filepath.Join(replicaRoot, backupsDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		stamp, err := time.Parse(backupStampFormat, e.Name())
		if err != nil {
			// Not one of ours; leave it alone.
			continue
		}
		if !stamp.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			log.Error.Printf("store: merge: pruning backup %s under %s: %v", e.Name(), replicaRoot, err)
			continue
		}
		log.Debug.Printf("store: merge: pruned backup %s under %s", e.Name(), replicaRoot)
	}
}

// backupReplica copies a replica's log and index files for (account,
// key) into backups/<stamp>/<tag>/<account>/<key>[.idx] under the
// replica's own root. Missing files are silently skipped.
func backupReplica(replicaRoot, account, key, stamp, tag string) error {
	dstDir := backupDir(replicaRoot, stamp, tag)
	if err := os.MkdirAll(filepath.Join(dstDir, account), 0700); err != nil {
		return err
	}
	srcLog := logPath(replicaRoot, account, key)
	srcIdx := indexPath(replicaRoot, account, key)
	dstLog := filepath.Join(dstDir, account, key)
	dstIdx := dstLog + idxSuffix
	if err := copyIfExists(srcLog, dstLog); err != nil {
		return err
	}
	return copyIfExists(srcIdx, dstIdx)
}

func copyIfExists(src, dst string) error {
	in, err := os.Open(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// loadFullBacklog opens replicaRoot as a store and returns every record
// for (account, key), oldest first (the reconciler works in chronological
// order, the reverse of Backlog's newest-first contract).
func loadFullBacklog(replicaRoot, account, key string) ([]record.Record, error) {
	s, err := Open(replicaRoot)
	if err != nil {
		return nil, err
	}
	recs, err := s.Backlog(account, key)
	if err != nil {
		return nil, err
	}
	reverse(recs)
	return recs, nil
}

func reverse(recs []record.Record) {
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
}

// union computes the sorted union of two chronologically-ordered record
// sets, keyed by (time, kind, sender, text). When both sides have a
// record with the same key, A's copy is kept. The result is sorted
// ascending by time, with ties broken by kind, then sender, then text
// using root-locale collation (falling back to a raw byte comparison to
// guarantee a strict total order when collation keys tie).
func union(a, b []record.Record) (merged []record.Record, fromA, fromB int) {
	seen := make(map[recordKey]record.Record, len(a)+len(b))
	order := make([]recordKey, 0, len(a)+len(b))

	for _, r := range a {
		k := keyOf(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = r
		order = append(order, k)
		fromA++
	}
	for _, r := range b {
		k := keyOf(r)
		if _, ok := seen[k]; ok {
			continue // A already wins this key
		}
		seen[k] = r
		order = append(order, k)
		fromB++
	}

	col := collate.New(language.Und)
	sort.Slice(order, func(i, j int) bool {
		ki, kj := order[i], order[j]
		if ki.Time != kj.Time {
			return ki.Time < kj.Time
		}
		if ki.Kind != kj.Kind {
			return ki.Kind < kj.Kind
		}
		if c := col.CompareString(ki.Sender, kj.Sender); c != 0 {
			return c < 0
		}
		if c := col.CompareString(ki.Text, kj.Text); c != 0 {
			return c < 0
		}
		if ki.Sender != kj.Sender {
			return ki.Sender < kj.Sender
		}
		return ki.Text < kj.Text
	})

	merged = make([]record.Record, 0, len(order))
	for _, k := range order {
		merged = append(merged, seen[k])
	}
	return merged, fromA, fromB
}

// buildScratch writes merged into a fresh conversation at
// scratchRoot/account/key, replacing anything already there.
func buildScratch(scratchRoot, account string, conv Conversation, merged []record.Record) error {
	if err := os.RemoveAll(scratchRoot); err != nil {
		return err
	}
	s, err := Open(scratchRoot)
	if err != nil {
		return err
	}
	return s.Append(account, conv, merged...)
}

// installReplica replaces target's log and index files with the scratch
// files, each by writing alongside the target and renaming over it. The
// scratch files themselves are left in place.
func installReplica(scratchLog, scratchIdx, targetRoot, account, key string) error {
	if err := ensureLogsDir(targetRoot, account); err != nil {
		return err
	}
	dstLog := logPath(targetRoot, account, key)
	dstIdx := indexPath(targetRoot, account, key)
	if err := installFile(scratchLog, dstLog); err != nil {
		return err
	}
	return installFile(scratchIdx, dstIdx)
}

// installFile copies src's contents into a temp file beside dst, then
// renames it over dst. The rename is atomic on the same filesystem,
// so a reader never observes a partially-written dst.
func installFile(src, dst string) error {
	tmp := dst + ".tmp"
	if err := copyIfExists(src, tmp); err != nil {
		return err
	}
	if _, err := os.Stat(tmp); os.IsNotExist(err) {
		// Source didn't exist (e.g. the conversation had no index yet);
		// nothing to install.
		return nil
	}
	return os.Rename(tmp, dst)
}
