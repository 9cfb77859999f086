// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Test utils

package httpcodec

import (
	"bytes"
	"io"
	"math/rand"

	"github.com/intuitivelabs/bytescase"
)

func randWS() string {
	ws := [...]string{"", " ", "\t"}
	var s string
	n := rand.Intn(5) // max 4 whitespace "tokens"
	for i := 0; i < n; i++ {
		s += ws[rand.Intn(len(ws))]
	}
	return s
}

// randomize case in a string
func randCase(s string) string {
	r := make([]byte, len(s))
	for i, b := range []byte(s) {
		switch rand.Intn(3) {
		case 0:
			r[i] = bytescase.ByteToLower(b)
		case 1:
			r[i] = bytescase.ByteToUpper(b)
		default:
			r[i] = b
		}
	}
	return string(r)
}

// fragmentedSource splits data into chunks of at most maxChunk bytes per
// Read call, to exercise the buffer's fill/grow/trim logic the way a real
// socket delivering a pipelined stream in arbitrary TCP segments would.
type fragmentedSource struct {
	data     []byte
	maxChunk int
}

func newFragmentedSource(data []byte, maxChunk int) *fragmentedSource {
	return &fragmentedSource{data: data, maxChunk: maxChunk}
}

func (s *fragmentedSource) Read(p []byte) (int, error) {
	if len(s.data) == 0 {
		return 0, io.EOF
	}
	n := len(p)
	if n > s.maxChunk {
		n = s.maxChunk
	}
	if n > len(s.data) {
		n = len(s.data)
	}
	copy(p, s.data[:n])
	s.data = s.data[n:]
	return n, nil
}

// bufSink collects every WriteV call into one buffer, for asserting on the
// exact bytes a SendResponse/SendChunkedResponse call produced.
type bufSink struct {
	buf bytes.Buffer
}

func (s *bufSink) WriteV(bufs ...[]byte) (int, error) {
	var total int
	for _, b := range bufs {
		n, _ := s.buf.Write(b)
		total += n
	}
	return total, nil
}
