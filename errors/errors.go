// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors defines the error handling used throughout the chatlog
// store: a single Error type built from typed arguments, so call sites
// don't have to choose between fmt.Errorf and a bespoke struct.
package errors

import (
	"bytes"
	"fmt"
	"runtime"
	"strings"

	"chatlog.dev/log"
)

// Error is the type that implements the error interface.
// It contains a number of fields, each of different type.
// An Error value may leave some values unset.
type Error struct {
	// Account is the account (character) owning the conversation being
	// accessed, if relevant.
	Account string
	// Conversation is the conversation key being accessed, if relevant.
	Conversation string
	// Op is the operation being performed, usually the name of the
	// method being invoked (Append, Backlog, Repair, Merge, etc.).
	Op string
	// Kind is the class of error, such as permission failure, or Other
	// if its class is unknown or irrelevant.
	Kind Kind
	// The underlying error that triggered this one, if any.
	Err error
}

var (
	_       error = (*Error)(nil)
	zeroErr Error
)

// Separator is the string used to separate nested errors. By default, to
// make errors easier on the eye, nested errors are indented on a new
// line. A server may instead choose to keep each error on a single line
// by modifying the separator string, perhaps to ":: ".
var Separator = ":\n\t"

// Kind defines the kind of error this is, so callers can branch on error
// class without parsing message text.
type Kind uint8

// Kinds of errors, matching the taxonomy of the store's error handling
// design: reads are tolerant of NotFound and FramingError, writes and
// reconciliation are strict about everything else.
const (
	Other       Kind = iota // Unclassified error.
	Invalid                 // Invalid operation or argument.
	IO                      // Underlying filesystem error.
	NotFound                // No log file exists for the conversation.
	Framing                 // Trailing size marker disagreed with parsed length.
	Encoding                // A field or record exceeded its encodable size or was not valid UTF-8.
	Overflow                // Pre-append log size reached the 2^40 offset cap.
	Backup                  // Reconciliation could not write its backup.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case Invalid:
		return "invalid operation"
	case IO:
		return "I/O error"
	case NotFound:
		return "not found"
	case Framing:
		return "framing error"
	case Encoding:
		return "encoding error"
	case Overflow:
		return "offset overflow"
	case Backup:
		return "backup error"
	}
	return "unknown error kind"
}

// E builds an error value from its arguments.
// The type of each argument determines its meaning.
// If more than one argument of a given type is presented,
// only the last one is recorded.
//
// The types are:
//	account (use Account(s))
//		The account owning the conversation being accessed.
//	conversation (use Conversation(s))
//		The conversation key being accessed.
//	string
//		The operation being performed, usually the method being invoked.
//	errors.Kind
//		The class of error, such as a framing failure.
//	error
//		The underlying error that triggered this one.
//
// If the error is printed, only those items that have been set to
// non-zero values will appear in the result.
//
// If Kind is not specified or Other, we set it to the Kind of the
// underlying error.
func E(args ...interface{}) error {
	if len(args) == 0 {
		return nil
	}
	e := &Error{}
	for _, arg := range args {
		switch arg := arg.(type) {
		case Account:
			e.Account = string(arg)
		case Conversation:
			e.Conversation = string(arg)
		case string:
			e.Op = arg
		case Kind:
			e.Kind = arg
		case *Error:
			// Make a copy.
			e.Err = &Error{
				Account:      arg.Account,
				Conversation: arg.Conversation,
				Op:           arg.Op,
				Kind:         arg.Kind,
				Err:          arg.Err,
			}
		case error:
			e.Err = arg
		default:
			_, file, line, _ := runtime.Caller(1)
			log.Printf("errors.E: bad call from %s:%d: %v", file, line, args)
			return Errorf("unknown type %T, value %v in error call", arg, arg)
		}
	}
	prev, ok := e.Err.(*Error)
	if !ok {
		return e
	}

	// The previous error was also one of ours. Suppress duplications so
	// the message won't contain the same kind, account, or conversation
	// twice.
	if prev.Account == e.Account {
		prev.Account = ""
	}
	if prev.Conversation == e.Conversation {
		prev.Conversation = ""
	}
	if prev.Kind == e.Kind {
		prev.Kind = Other
	}
	// If this error has Kind unset or Other, pull up the inner one.
	if e.Kind == Other {
		e.Kind = prev.Kind
		prev.Kind = Other
	}
	return e
}

// Account is the type to use when passing an account name to E.
type Account string

// Conversation is the type to use when passing a conversation key to E.
type Conversation string

// pad appends str to the buffer if the buffer already has some data.
func pad(b *bytes.Buffer, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Error() string {
	b := new(bytes.Buffer)
	if e.Account != "" {
		b.WriteString("account ")
		b.WriteString(e.Account)
	}
	if e.Conversation != "" {
		pad(b, ", ")
		b.WriteString("conversation ")
		b.WriteString(e.Conversation)
	}
	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(e.Op)
	}
	if e.Kind != 0 {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		// Indent on new line if we are cascading non-empty errors.
		if prevErr, ok := e.Err.(*Error); ok {
			if *prevErr != zeroErr {
				pad(b, Separator)
				b.WriteString(e.Err.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

// Is reports whether err is an *Error of the given Kind, unwrapping
// nested *Error values as needed.
func Is(kind Kind, err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	if e.Kind != Other {
		return e.Kind == kind
	}
	if e.Err != nil {
		return Is(kind, e.Err)
	}
	return false
}

// Str returns an error that formats as the given text. It is intended to
// be used as the error-typed argument to the E function.
func Str(text string) error {
	return &errorString{text}
}

// errorString is a trivial implementation of error.
type errorString struct {
	s string
}

func (e *errorString) Error() string {
	return e.s
}

// Errorf is equivalent to fmt.Errorf, but allows clients to import only
// this package for all error handling.
func Errorf(format string, args ...interface{}) error {
	return &errorString{fmt.Sprintf(format, args...)}
}

// Match reports whether err is of the given kind: either its message
// contains the kind's text, or Is reports it as that kind. A nil err
// never matches. It is primarily useful in tests.
func Match(kind Kind, err error) bool {
	if err == nil {
		return false
	}
	if strings.Contains(err.Error(), kind.String()) {
		return true
	}
	return Is(kind, err)
}
