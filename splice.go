// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpcodec

import (
	"context"
	"errors"
	"io"
)

// spliceCopyBufSize bounds the stack buffer used by the generic splice
// fallback loop, keeping a single splice call's footprint well under the
// 1 MiB body-read cap (spec §6 MaxBodyReadLength).
const spliceCopyBufSize = 32 * 1024

// splice transfers up to max bytes from src to sink without routing them
// through the Parser's read buffer (spec §4.1/§4.5). It returns the number
// of bytes moved; zero (with a nil error) signals EOF.
//
// Three dispatch tiers, in the style of hayabusa-cloud-framer's
// Reader.WriteTo fast-path selection:
//  1. if src implements io.WriterTo, let it drive the transfer directly
//     into sink's underlying io.Writer (true zero-copy when the source
//     supports e.g. sendfile internally);
//  2. else if sink wraps an io.ReaderFrom, let it pull directly from src;
//  3. else fall back to a bounded copy loop over a reusable stack buffer.
func splice(ctx context.Context, src Source, sink Sink, max int64) (int64, error) {
	if max <= 0 {
		return 0, nil
	}
	w, hasWriter := underlyingWriter(sink)
	if hasWriter {
		if wt, ok := src.(io.WriterTo); ok {
			lw := &limitedWriter{w: w, remaining: max}
			n, err := wt.WriteTo(lw)
			if err == errSpliceLimitReached {
				err = nil
			}
			return n, err
		}
		if rf, ok := w.(io.ReaderFrom); ok {
			return rf.ReadFrom(io.LimitReader(readerOf(src), max))
		}
	}

	var buf [spliceCopyBufSize]byte
	var moved int64
	for moved < max {
		want := int64(len(buf))
		if rem := max - moved; rem < want {
			want = rem
		}
		n, err := readFrom(ctx, src, buf[:want])
		if n > 0 {
			if _, werr := sink.WriteV(buf[:n]); werr != nil {
				return moved + int64(n), werr
			}
			moved += int64(n)
		}
		if err != nil {
			if err == io.EOF {
				return moved, nil
			}
			return moved, err
		}
		if n == 0 {
			return moved, nil
		}
	}
	return moved, nil
}

// errSpliceLimitReached is limitedWriter's sentinel for "max bytes already
// written", caught and silenced by splice before returning.
var errSpliceLimitReached = errors.New("httpcodec: splice limit reached")

// limitedWriter wraps w, accepting at most remaining bytes total. The
// standard library has io.LimitReader but no writer counterpart, so this
// is a small local equivalent for splice's io.WriterTo fast path.
type limitedWriter struct {
	w         io.Writer
	remaining int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.remaining <= 0 {
		return 0, errSpliceLimitReached
	}
	truncated := false
	if int64(len(p)) > lw.remaining {
		p = p[:lw.remaining]
		truncated = true
	}
	n, err := lw.w.Write(p)
	lw.remaining -= int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err == nil && truncated {
		// fewer bytes were written than the caller's original p, so
		// io.Writer's contract requires a non-nil error here too.
		err = errSpliceLimitReached
	}
	return n, err
}

// readerOf adapts a Source to io.Reader for use with io.LimitReader/io.Copy
// helpers; Source is already shaped like io.Reader so this is a no-op cast
// when possible.
func readerOf(src Source) io.Reader {
	if r, ok := src.(io.Reader); ok {
		return r
	}
	return readerFunc(func(p []byte) (int, error) { return src.Read(p) })
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
