// Copyright 2026 The Chatlog Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads a store's on-disk configuration file.
package config

import (
	"fmt"
	"io"
	"os"

	yaml "gopkg.in/yaml.v2"

	"chatlog.dev/errors"
	"chatlog.dev/log"
)

// FileName is the name of the configuration file a Store looks for at
// its root.
const FileName = "chatlog.yaml"

// Config holds a store's configurable behavior. Default returns no
// repair on open, no backup pruning, info-level logging, and the
// default offset cap; the zero Config is the same except that its
// LogLevel is debug.
type Config struct {
	RepairOnOpen    bool
	BackupRetention int // days; 0 disables pruning
	LogLevel        log.Level
	MaxLogSize      int64 // 0 means use the codec default
}

// Default returns the configuration applied when no file is present.
func Default() Config {
	return Config{
		RepairOnOpen:    false,
		BackupRetention: 0,
		LogLevel:        log.InfoLevel,
		MaxLogSize:      0,
	}
}

// known keys. All others are a hard error: a typo'd key should fail
// loudly, not be silently ignored.
const (
	keyRepairOnOpen    = "repair_on_open"
	keyBackupRetention = "backup_retention"
	keyLogLevel        = "log_level"
	keyMaxLogSize      = "max_log_size"
)

// Load reads and parses name. If name does not exist, Load returns the
// default configuration and a nil error.
func Load(name string) (Config, error) {
	const op = "config.Load"
	f, err := os.Open(name)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, errors.E(op, errors.IO, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a configuration from r.
func Parse(r io.Reader) (Config, error) {
	const op = "config.Parse"
	cfg := Default()

	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, errors.E(op, errors.IO, err)
	}
	if len(data) == 0 {
		return cfg, nil
	}

	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, raw); err != nil {
		return Config{}, errors.E(op, errors.Invalid, errors.Errorf("parsing YAML: %v", err))
	}

	for k, v := range raw {
		switch k {
		case keyRepairOnOpen:
			b, err := asBool(v)
			if err != nil {
				return Config{}, errors.E(op, errors.Invalid, errors.Errorf("%s: %v", k, err))
			}
			cfg.RepairOnOpen = b
		case keyBackupRetention:
			n, err := asInt(v)
			if err != nil {
				return Config{}, errors.E(op, errors.Invalid, errors.Errorf("%s: %v", k, err))
			}
			cfg.BackupRetention = n
		case keyLogLevel:
			s, ok := v.(string)
			if !ok {
				return Config{}, errors.E(op, errors.Invalid, errors.Errorf("%s: expected a string, got %T", k, v))
			}
			lvl, err := log.ParseLevel(s)
			if err != nil {
				return Config{}, errors.E(op, errors.Invalid, errors.Errorf("%s: %v", k, err))
			}
			cfg.LogLevel = lvl
		case keyMaxLogSize:
			n, err := asInt(v)
			if err != nil {
				return Config{}, errors.E(op, errors.Invalid, errors.Errorf("%s: %v", k, err))
			}
			cfg.MaxLogSize = int64(n)
		default:
			return Config{}, errors.E(op, errors.Invalid, errors.Errorf("unrecognized key %q", k))
		}
	}
	return cfg, nil
}

func asBool(v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected a boolean, got %T", v)
	}
	return b, nil
}

func asInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	}
	return 0, fmt.Errorf("expected an integer, got %T", v)
}
