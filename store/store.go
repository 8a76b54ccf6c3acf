// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"chatlog.dev/config"
	"chatlog.dev/errors"
	"chatlog.dev/log"
	"chatlog.dev/record"
)

// Store is the façade over the chat-log engine: path layout, the
// append-only log and index files, the reverse scanner, query facades,
// repair, and reconciliation. A *Store is safe for sequential use only:
// it does no locking, and the index cache below is shared by every
// conversation, so callers must not use one Store from two goroutines
// concurrently.
type Store struct {
	root     string
	location *time.Location

	// repairOnOpen, when true, causes Conversations, Backlog,
	// DistinctDates and RecordCount to run Repair for an account the
	// first time one of them touches that account in this Store's
	// lifetime.
	repairOnOpen bool
	repaired     map[string]bool

	// config is the configuration this Store was opened with, loaded
	// from <root>/chatlog.yaml if present.
	config config.Config

	// cachedAccount and cachedIndexes implement the account-keyed
	// index loader described in the store's design: only one
	// account's indexes are held in memory at a time, and switching
	// accounts invalidates the cache.
	cachedAccount string
	cachedIndexes map[string]*Index
}

// Option configures a Store at Open time.
type Option func(*Store)

// WithLocation overrides the time.Location used to compute local-day
// buckets. The default is time.Local. Tests should pin this for
// determinism.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.location = loc }
}

// WithRepairOnOpen enables or disables automatically repairing an
// account the first time the Store touches it. The default is taken
// from the store's on-disk configuration file, or false if there is
// none.
func WithRepairOnOpen(enabled bool) Option {
	return func(s *Store) { s.repairOnOpen = enabled }
}

// Open returns a Store rooted at root, creating root if it does not
// exist. If root contains a configuration file (see package config), its
// settings are applied before opts, so opts always take precedence.
func Open(root string, opts ...Option) (*Store, error) {
	const op = "store.Open"
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, errors.E(op, err)
	}
	if err := log.SetLevel(cfg.LogLevel.String()); err != nil {
		log.Error.Printf("store: ignoring invalid configured log level: %v", err)
	}
	s := &Store{
		root:          root,
		location:      time.Local,
		repairOnOpen:  cfg.RepairOnOpen,
		config:        cfg,
		repaired:      map[string]bool{},
		cachedIndexes: map[string]*Index{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the configuration this Store was opened with.
func (s *Store) Config() config.Config { return s.config }

// maxOffset returns the largest pre-append log size this Store will
// accept, honoring a configured test-only override if one is set.
func (s *Store) maxOffset() int64 {
	if s.config.MaxLogSize > 0 {
		return s.config.MaxLogSize
	}
	return maxOffset
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// indexFor returns the index for (account, key), loading it from disk or
// the cache as needed, and creating a new empty one (with displayName)
// if neither exists yet. Switching the account invalidates the cache for
// the previous account.
func (s *Store) indexFor(account, key, displayName string) (*Index, error) {
	if s.cachedAccount != account {
		s.cachedAccount = account
		s.cachedIndexes = map[string]*Index{}
	}
	if idx, ok := s.cachedIndexes[key]; ok {
		return idx, nil
	}
	idx, err := loadIndex(indexPath(s.root, account, key))
	if err != nil {
		return nil, err
	}
	if idx == nil {
		idx = newIndex(displayName)
	}
	s.cachedIndexes[key] = idx
	return idx, nil
}

// forgetIndex drops a cached index; Clear uses it. (Repair drops the
// whole account's cache itself.)
func (s *Store) forgetIndex(account, key string) {
	if s.cachedAccount == account {
		delete(s.cachedIndexes, key)
	}
}

// maybeRepair runs Repair for account once per Store lifetime, if
// repairOnOpen is enabled and it has not already run for this account.
func (s *Store) maybeRepair(account string) {
	if !s.repairOnOpen || s.repaired[account] {
		return
	}
	s.repaired[account] = true
	if _, err := s.Repair(account); err != nil {
		log.Error.Printf("store: repair-on-open failed for account %q: %v", account, err)
	}
}

// Accounts returns the set of account names with data in the store.
func (s *Store) Accounts() ([]string, error) {
	accounts, err := listAccounts(s.root)
	if err != nil {
		return nil, errors.E("store.Accounts", errors.IO, err)
	}
	sort.Strings(accounts)
	return accounts, nil
}

// Conversations returns every conversation for account, paired with its
// display name read from the conversation's index header.
func (s *Store) Conversations(account string) ([]Conversation, error) {
	const op = "store.Conversations"
	s.maybeRepair(account)

	keys, err := listConversationKeys(s.root, account)
	if err != nil {
		return nil, errors.E(op, errors.Account(account), errors.IO, err)
	}
	convs := make([]Conversation, 0, len(keys))
	for _, key := range keys {
		idx, err := loadIndex(indexPath(s.root, account, key))
		if err != nil {
			return nil, errors.E(op, errors.Account(account), errors.Conversation(key), err)
		}
		name := key
		if idx != nil {
			name = idx.DisplayName
		}
		convs = append(convs, Conversation{Key: key, DisplayName: name})
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].Key < convs[j].Key })
	return convs, nil
}

// Append writes one or more records to the end of a conversation's log,
// in order, maintaining its index as it goes. The conversation directory
// and files are created lazily on first use.
func (s *Store) Append(account string, conv Conversation, records ...record.Record) error {
	for _, rec := range records {
		if err := s.append(account, conv, rec); err != nil {
			return err
		}
	}
	return nil
}

// Clear permanently deletes a conversation's log and index files.
func (s *Store) Clear(account, key string) error {
	const op = "store.Clear"
	s.forgetIndex(account, key)
	for _, p := range []string{logPath(s.root, account, key), indexPath(s.root, account, key)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.E(op, errors.Account(account), errors.Conversation(key), errors.IO, err)
		}
	}
	return nil
}
