// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"path/filepath"
	"testing"
	"time"
)

func TestPathLayout(t *testing.T) {
	root := "/store"
	if got, want := logPath(root, "alice", "g1"), filepath.Join(root, "alice", "logs", "g1"); got != want {
		t.Errorf("logPath = %q, want %q", got, want)
	}
	if got, want := indexPath(root, "alice", "g1"), filepath.Join(root, "alice", "logs", "g1")+".idx"; got != want {
		t.Errorf("indexPath = %q, want %q", got, want)
	}
}

func TestListConversationKeysExcludesIndexFiles(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, WithLocation(time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	conv := Conversation{Key: "g1", DisplayName: "G1"}
	if err := s.Append("alice", conv, rec(1, 0, "a", "x")); err != nil {
		t.Fatal(err)
	}
	keys, err := listConversationKeys(root, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != "g1" {
		t.Errorf("listConversationKeys = %v, want [g1]", keys)
	}
}

func TestListAccountsExcludesReservedDirs(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, WithLocation(time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Append("alice", Conversation{Key: "g1", DisplayName: "G1"}, rec(1, 0, "a", "x")); err != nil {
		t.Fatal(err)
	}
	// Simulate the reserved backups/temp directories a real store would
	// accumulate; they must never be reported as accounts.
	for _, reserved := range []string{backupsDirName, tempDirName} {
		if err := ensureLogsDir(root, reserved); err != nil {
			t.Fatal(err)
		}
	}
	accounts, err := listAccounts(root)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"alice": true}
	if len(accounts) != len(want) {
		t.Fatalf("accounts = %v", accounts)
	}
	for _, a := range accounts {
		if !want[a] {
			t.Errorf("unexpected account %q", a)
		}
	}
}
