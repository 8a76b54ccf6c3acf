// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"os"

	"chatlog.dev/errors"
	"chatlog.dev/log"
	"chatlog.dev/record"
)

// Conversation identifies a conversation: key is the stable on-disk
// identifier, displayName is the human-readable label stored once in
// the index header.
type Conversation struct {
	Key         string
	DisplayName string
}

// append writes one record to the conversation's log, updating its
// index first if a new day is encountered. The index is taken from the
// Store's cache, and created there if this is the first record ever
// written for the conversation; the log and index files are opened
// afresh for each record.
func (s *Store) append(account string, conv Conversation, rec record.Record) error {
	const op = "store.Append"

	buf, err := record.Encode(rec)
	if err != nil {
		return errors.E(op, errors.Account(account), errors.Conversation(conv.Key), err)
	}

	lp := logPath(s.root, account, conv.Key)
	size, err := fileSize(lp)
	if err != nil {
		return errors.E(op, errors.Account(account), errors.Conversation(conv.Key), errors.IO, err)
	}

	idx, err := s.indexFor(account, conv.Key, conv.DisplayName)
	if err != nil {
		return errors.E(op, errors.Account(account), errors.Conversation(conv.Key), err)
	}

	day := record.LocalDay(rec.Time, s.location)
	idxBuf, err := idx.appendForDay(day, size, s.maxOffset())
	if err != nil {
		return errors.E(op, errors.Account(account), errors.Conversation(conv.Key), err)
	}

	if err := ensureLogsDir(s.root, account); err != nil {
		return errors.E(op, errors.Account(account), errors.Conversation(conv.Key), errors.IO, err)
	}

	if idxBuf != nil {
		ip := indexPath(s.root, account, conv.Key)
		if err := appendFile(ip, idxBuf); err != nil {
			log.Error.Printf("store: append: writing index for %s/%s: %v", account, conv.Key, err)
			return errors.E(op, errors.Account(account), errors.Conversation(conv.Key), errors.IO, err)
		}
	}
	if err := appendFile(lp, buf); err != nil {
		log.Error.Printf("store: append: writing log for %s/%s: %v", account, conv.Key, err)
		return errors.E(op, errors.Account(account), errors.Conversation(conv.Key), errors.IO, err)
	}

	log.Debug.Printf("store: appended %d bytes to %s/%s (new index entry: %t)", len(buf), account, conv.Key, idxBuf != nil)
	return nil
}

// fileSize returns the size of the file at path, or 0 if it does not
// exist.
func fileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// appendFile opens path in append-create mode and writes buf to it.
func appendFile(path string, buf []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(buf)
	return err
}
