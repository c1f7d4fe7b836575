// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package tracelog

import (
	"fmt"
	"strings"
)

// Op is a one-letter operation code.
type Op byte

const (
	OpRead   Op = 'r'
	OpWrite  Op = 'w'
	OpMove   Op = 'm'
	OpDelete Op = 'd'
	OpQuery  Op = 'q'
	OpTouch  Op = 't'
)

// allOps lists the closed set in its canonical order.
var allOps = [...]Op{OpRead, OpWrite, OpMove, OpDelete, OpQuery, OpTouch}

// AllOps holds every known op.
const AllOps OpSet = 1<<len(allOps) - 1

func (op Op) String() string { return string(rune(op)) }

// Valid reports whether op belongs to the closed set.
func (op Op) Valid() bool {
	return op.bit() != 0
}

func (op Op) bit() OpSet {
	for index, known := range allOps {
		if op == known {
			return 1 << index
		}
	}
	return 0
}

// OpSet is a set of operation codes. The zero set means "no
// restriction" wherever it is used as a filter.
type OpSet uint8

// NewOpSet returns a set holding ops.
func NewOpSet(ops ...Op) OpSet {
	var set OpSet
	for _, op := range ops {
		set |= op.bit()
	}
	return set
}

// ParseOpSet parses a string of op letters such as "rw". Every letter
// must be a known op code. The empty string yields the empty set.
func ParseOpSet(letters string) (OpSet, error) {
	var set OpSet
	for index := range len(letters) {
		op := Op(letters[index])
		if !op.Valid() {
			return 0, fmt.Errorf("unknown operation %q in %q (valid: %s)", letters[index], letters, AllOps)
		}
		set |= op.bit()
	}
	return set, nil
}

// Empty reports whether the set has no members.
func (s OpSet) Empty() bool { return s == 0 }

// Contains reports whether op is in the set.
func (s OpSet) Contains(op Op) bool {
	bit := op.bit()
	return bit != 0 && s&bit != 0
}

// Allows reports whether an entry with op passes a filter built from
// s: every op passes the empty set.
func (s OpSet) Allows(op Op) bool {
	return s.Empty() || s.Contains(op)
}

// Complement returns the set of known ops not in s.
func (s OpSet) Complement() OpSet {
	return ^s & AllOps
}

// String returns the member letters in canonical order.
func (s OpSet) String() string {
	var builder strings.Builder
	for _, op := range allOps {
		if s.Contains(op) {
			builder.WriteByte(byte(op))
		}
	}
	return builder.String()
}
