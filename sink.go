// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpcodec

import "io"

// Sink is the byte-sink contract (spec §4.6/§6): a write accepting one or
// more byte slices, written in order, in a single logical call.
// Implementations may coalesce them into one underlying write (e.g. via
// net.Buffers) — this realizes spec §4.1's "backend_write"/"backend_send"
// distinction, which Go's io.Writer naturally unifies.
type Sink interface {
	WriteV(bufs ...[]byte) (int, error)
}

// writerSink adapts a plain io.Writer to Sink by issuing one Write call per
// buffer in order. This is the default adapter used by NewWriterSink; hosts
// whose transport supports vectored/gather writes (e.g. net.Buffers) should
// provide their own Sink implementation instead to get true coalescing.
type writerSink struct{ w io.Writer }

// NewWriterSink adapts an io.Writer to the Sink interface used by
// SendResponse, SendChunkedResponse, and SpliceBodyTo.
func NewWriterSink(w io.Writer) Sink { return writerSink{w: w} }

func (s writerSink) WriteV(bufs ...[]byte) (int, error) {
	var total int
	for _, b := range bufs {
		if len(b) == 0 {
			continue
		}
		n, err := s.w.Write(b)
		total += n
		if err != nil {
			return total, err
		}
		if n < len(b) {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

// underlyingWriter returns the io.Writer backing s if it is a writerSink,
// for splice's io.ReaderFrom fast-path detection.
func underlyingWriter(s Sink) (io.Writer, bool) {
	ws, ok := s.(writerSink)
	if !ok {
		return nil, false
	}
	return ws.w, true
}
