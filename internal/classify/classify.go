// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package classify recognizes the two header names body-framing detection
// (spec §4.4) needs to act on — content-length and transfer-encoding —
// without allocating per header. It is a narrowed adaptation of the
// teacher's (intuitivelabs/httpsp, parse_headers.go) hdrNameLookup /
// hashHdrName bucket technique: the teacher classifies a dozen header names
// into a typed HdrT for a fixed-field message struct; here the full header
// set is arbitrary user-visible map keys, so only the two names the framing
// state machine must special-case are worth a hash bucket at all.
package classify

import "github.com/intuitivelabs/bytescase"

// Kind identifies a recognized header name.
type Kind uint8

const (
	Other Kind = iota
	ContentLength
	TransferEncoding
)

type entry struct {
	name []byte
	kind Kind
}

var known = [...]entry{
	{name: []byte("content-length"), kind: ContentLength},
	{name: []byte("transfer-encoding"), kind: TransferEncoding},
}

const (
	bitsLen   uint = 1 // one length bit (64 buckets in all) keeps the 2 known names apart; re-check by hand if more are added
	bitsFChar uint = 5
)

var buckets [1 << (bitsLen + bitsFChar)][]entry

func hash(n []byte) int {
	const (
		mC = (1 << bitsFChar) - 1
		mL = (1 << bitsLen) - 1
	)
	return (int(bytescase.ByteToLower(n[0])) & mC) |
		((len(n) & mL) << bitsFChar)
}

func init() {
	for _, e := range known {
		i := hash(e.name)
		buckets[i] = append(buckets[i], e)
	}
}

// HeaderName returns the Kind of name, or Other if it is not one of the
// names body-framing detection special-cases. name must already be
// trimmed of leading/trailing whitespace.
func HeaderName(name []byte) Kind {
	if len(name) == 0 {
		return Other
	}
	for _, e := range buckets[hash(name)] {
		if bytescase.CmpEq(name, e.name) {
			return e.kind
		}
	}
	return Other
}
