// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpcodec

import (
	"context"
	"io"
)

// Source is the minimal byte-source contract (spec §6): a blocking partial
// read returning up to len(p) bytes, io.EOF signaling end of input. This
// realizes the "stock_readpartial" adapter variant of spec §4.1; any
// io.Reader qualifies.
type Source interface {
	Read(p []byte) (int, error)
}

// ContextSource is an optional capability a Source may additionally
// implement: an event-loop-backed read that honors cancellation. When a
// Parser method is called with a non-nil context and the Parser's Source
// implements ContextSource, this is preferred over plain Read. It realizes spec §4.1's "backend_read"/"backend_recv"
// variants, which are otherwise identical apart from the EOF-raise flag the
// original adapter distinguished; Go unifies both on io.EOF.
type ContextSource interface {
	ReadContext(ctx context.Context, p []byte) (int, error)
}

// SourceFunc adapts a callable of the shape described in spec §4.1's "call"
// variant (a source that is itself a callable returning up to N bytes per
// invocation, nil slice signaling EOF) to the Source interface.
type SourceFunc func(maxLen int) ([]byte, error)

// call-variant sentinel buffer size when no explicit max is known from the
// destination slice length; Read always knows len(p), so this is unused in
// practice but documents the variant's contract.
const defaultCallMax = MaxHeadersReadLength

// Read implements Source by invoking the callable with the destination
// capacity as the max length, then copying the returned bytes (if any) into
// p. A nil returned slice (with a nil error) signals EOF, matching spec
// §4.1's "call" variant semantics.
func (f SourceFunc) Read(p []byte) (int, error) {
	b, err := f(len(p))
	if err != nil {
		return 0, err
	}
	if b == nil {
		return 0, io.EOF
	}
	n := copy(p, b)
	return n, nil
}

// readFrom performs one read from src into p, preferring src's
// ReadContext when ctx is non-nil and src implements ContextSource.
func readFrom(ctx context.Context, src Source, p []byte) (int, error) {
	if ctx != nil {
		if cs, ok := src.(ContextSource); ok {
			return cs.ReadContext(ctx, p)
		}
	}
	return src.Read(p)
}
