// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Chatlogctl is a utility for operating on a chat-log store from the
// command line.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"chatlog.dev/log"
	"chatlog.dev/record"
	"chatlog.dev/store"
)

var root = flag.String("root", "", "store root `directory`")

var commands = map[string]func(*State, ...string){
	"backlog": (*State).backlog,
	"dates":   (*State).dates,
	"count":   (*State).count,
	"clear":   (*State).clear,
	"repair":  (*State).repair,
	"merge":   (*State).merge,
}

// State carries the open store and the subcommand name across a
// chatlogctl invocation.
type State struct {
	op string
	s  *store.Store
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	op := strings.ToLower(flag.Arg(0))
	fn := commands[op]
	if fn == nil {
		fmt.Fprintf(os.Stderr, "chatlogctl: no such command %q\n", flag.Arg(0))
		usage()
	}

	if *root == "" {
		log.Fatal("chatlogctl: -root is required")
	}
	s, err := store.Open(*root)
	if err != nil {
		log.Fatalf("chatlogctl: opening store at %q: %v", *root, err)
	}

	state := &State{op: op, s: s}
	fn(state, flag.Args()[1:]...)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage of chatlogctl:\n")
	fmt.Fprintf(os.Stderr, "\tchatlogctl -root=dir <command> [flags] [args]\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	var names []string
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "\t%s\n", name)
	}
	fmt.Fprintf(os.Stderr, "Global flags:\n")
	flag.PrintDefaults()
	os.Exit(2)
}

func (s *State) exitf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "chatlogctl: %s: %s\n", s.op, fmt.Sprintf(format, args...))
	os.Exit(1)
}

func (s *State) subUsage(fs *flag.FlagSet, msg string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage: chatlogctl -root=dir %s\n", msg)
		n := 0
		fs.VisitAll(func(*flag.Flag) { n++ })
		if n > 0 {
			fmt.Fprintf(os.Stderr, "Flags:\n")
			fs.PrintDefaults()
		}
		os.Exit(2)
	}
}

func (s *State) backlog(args ...string) {
	fs := flag.NewFlagSet("backlog", flag.ExitOnError)
	count := fs.Int("count", 0, "limit to the N most recent records (0 = all)")
	date := fs.String("date", "", "restrict to local day, as a decimal day number")
	fs.Usage = s.subUsage(fs, "backlog [-count=N] [-date=D] account key")
	fs.Parse(args)
	if fs.NArg() != 2 {
		fs.Usage()
	}
	account, key := fs.Arg(0), fs.Arg(1)

	var opts []store.BacklogOption
	if *count > 0 {
		opts = append(opts, store.WithCount(*count))
	}
	if *date != "" {
		d, err := strconv.Atoi(*date)
		if err != nil {
			s.exitf("invalid -date %q: %v", *date, err)
		}
		opts = append(opts, store.WithDay(record.Day(d)))
	}

	recs, err := s.s.Backlog(account, key, opts...)
	if err != nil {
		s.exitf("%v", err)
	}
	for _, r := range recs {
		fmt.Printf("%d\t%s\t%s\t%s\n", r.Time.Unix(), r.Kind, r.Sender, r.Text)
	}
}

func (s *State) dates(args ...string) {
	fs := flag.NewFlagSet("dates", flag.ExitOnError)
	fs.Usage = s.subUsage(fs, "dates account key")
	fs.Parse(args)
	if fs.NArg() != 2 {
		fs.Usage()
	}
	days, err := s.s.DistinctDates(fs.Arg(0), fs.Arg(1))
	if err != nil {
		s.exitf("%v", err)
	}
	for _, d := range days {
		fmt.Println(int(d))
	}
}

func (s *State) count(args ...string) {
	fs := flag.NewFlagSet("count", flag.ExitOnError)
	fs.Usage = s.subUsage(fs, "count account key")
	fs.Parse(args)
	if fs.NArg() != 2 {
		fs.Usage()
	}
	n, err := s.s.RecordCount(fs.Arg(0), fs.Arg(1))
	if err != nil {
		s.exitf("%v", err)
	}
	fmt.Println(n)
}

func (s *State) clear(args ...string) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	fs.Usage = s.subUsage(fs, "clear account key")
	fs.Parse(args)
	if fs.NArg() != 2 {
		fs.Usage()
	}
	if err := s.s.Clear(fs.Arg(0), fs.Arg(1)); err != nil {
		s.exitf("%v", err)
	}
}

func (s *State) repair(args ...string) {
	fs := flag.NewFlagSet("repair", flag.ExitOnError)
	fs.Usage = s.subUsage(fs, "repair account")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
	}
	report, err := s.s.Repair(fs.Arg(0))
	if err != nil {
		s.exitf("%v", err)
	}
	fmt.Printf("conversations repaired: %d\nentries reindexed: %d\nbytes truncated: %d\norphans deleted: %d\n",
		report.ConversationsRepaired, report.EntriesReindexed, report.BytesTruncated, report.OrphansDeleted)
	for _, e := range report.Errors {
		fmt.Fprintf(os.Stderr, "chatlogctl: repair: %v\n", e)
	}
}

func (s *State) merge(args ...string) {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	replicaB := fs.String("b", "", "second replica store `root`")
	displayName := fs.String("name", "", "conversation display name")
	targetFlag := fs.String("target", "both", "which replica(s) to install into: a, b, or both")
	fs.Usage = s.subUsage(fs, "merge -b=replicaB [-target=a|b|both] account key")
	fs.Parse(args)
	if fs.NArg() != 2 {
		fs.Usage()
	}
	if *replicaB == "" {
		s.exitf("-b is required")
	}
	account, key := fs.Arg(0), fs.Arg(1)

	var target store.Target
	switch strings.ToLower(*targetFlag) {
	case "a":
		target = store.TargetA
	case "b":
		target = store.TargetB
	case "both":
		target = store.TargetBoth
	default:
		s.exitf("invalid -target %q", *targetFlag)
	}

	conv := store.Conversation{Key: key, DisplayName: *displayName}
	report, err := store.Merge(account, conv, s.s.Root(), *replicaB, target)
	if err != nil {
		s.exitf("%v", err)
	}
	fmt.Printf("from A: %d\nfrom B: %d\ntotal: %d\nbackup: %s\ninstalled: %v\n",
		report.FromA, report.FromB, report.TotalRecords, report.BackupDir, report.Installed)
}
