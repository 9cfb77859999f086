// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpcodec

import (
	"context"
	"io"

	"github.com/intuitivelabs/httpcodec/internal/classify"
)

// bodyFraming identifies how the current message's body is delimited
// (spec §3's body-framing tag).
type bodyFraming uint8

const (
	framingUnknown bodyFraming = iota
	framingContentLength
	framingChunked
)

// detectBodyReadMode inspects p.headers to determine body framing (spec
// §4.4), grounded directly on the reference detect_body_read_mode: a
// present content-length wins, then a chunked transfer-encoding, else the
// message has no body and is immediately complete.
func (p *Parser) detectBodyReadMode() error {
	if p.headers == nil {
		return nil
	}
	var contentLengthKey, transferEncodingKey string
	for key := range p.headers {
		switch classify.HeaderName([]byte(key)) {
		case classify.ContentLength:
			contentLengthKey = key
		case classify.TransferEncoding:
			transferEncodingKey = key
		}
	}
	if contentLengthKey != "" {
		cl := p.headers[contentLengthKey]
		s, ok := cl.(string)
		if !ok {
			if arr, isArr := cl.([]string); isArr && len(arr) > 0 {
				s = arr[len(arr)-1]
			}
		}
		n, err := parseUnsignedDecimal(s)
		if err != nil {
			p.framing = framingUnknown
			return ErrInvalidContentLen
		}
		p.framing = framingContentLength
		p.bodyLeft = n
		p.completed = n == 0
		return nil
	}
	if transferEncodingKey != "" && isChunkedEncoding(p.headers.Get(transferEncodingKey)) {
		p.framing = framingChunked
		p.completed = false
		return nil
	}
	p.completed = true
	return nil
}

func isChunkedEncoding(te string) bool {
	return asciiEqualFold(te, "chunked")
}

func asciiEqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lowerByte(a[i]) != lowerByte(b[i]) {
			return false
		}
	}
	return true
}

func lowerByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func parseUnsignedDecimal(s string) (int64, error) {
	if s == "" {
		return 0, ErrInvalidContentLen
	}
	var v int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, ErrInvalidContentLen
		}
		v = v*10 + int64(c-'0')
	}
	if v < 0 {
		return 0, ErrInvalidContentLen
	}
	return v, nil
}

// ensureBodyMode runs detectBodyReadMode once, lazily, the first time any
// body or completion call is made after headers are parsed — spec §4.4/§9:
// "complete? before any body call also triggers detection."
func (p *Parser) ensureBodyMode() error {
	if p.framing != framingUnknown || p.headers == nil {
		return nil
	}
	// framingUnknown also covers "no body" (never switched away from
	// unknown); p.bodyDetected makes detectBodyReadMode run at most once
	// per message.
	if p.bodyDetected {
		return nil
	}
	p.bodyDetected = true
	return p.detectBodyReadMode()
}

// Complete reports whether no further bytes belong to the current message
// (spec §3/§8). Calling it repeatedly after completion is a no-op that
// keeps returning true.
func (p *Parser) Complete() (bool, error) {
	if err := p.ensureBodyMode(); err != nil {
		return false, err
	}
	return p.completed, nil
}

// ReadBody reads until the message body ends and returns it as one byte
// slice (spec §4.5's read_body, grounded on read_body_with_content_length /
// read_body_with_chunked_encoding called with read_entire_body=1).
func (p *Parser) ReadBody(ctx context.Context) ([]byte, error) {
	return p.readBody(ctx, true, false)
}

// ReadBodyChunk returns the next available slice of body data. If
// bufferedOnly is true, only bytes already resident in the Parser's buffer
// are returned, without invoking the source (spec §4.5's
// read_body_chunk(buffered_only)).
func (p *Parser) ReadBodyChunk(ctx context.Context, bufferedOnly bool) ([]byte, error) {
	return p.readBody(ctx, false, bufferedOnly)
}

func (p *Parser) readBody(ctx context.Context, entireBody, bufferedOnly bool) ([]byte, error) {
	if err := p.ensureBodyMode(); err != nil {
		return nil, err
	}
	switch p.framing {
	case framingChunked:
		return p.readChunkedBody(ctx, entireBody, bufferedOnly)
	default:
		return p.readContentLengthBody(ctx, entireBody, bufferedOnly)
	}
}

// readContentLengthBody drains up to bodyLeft bytes from the buffer first,
// then — unless bufferedOnly — loops reading up to
// min(bodyLeft, MaxBodyReadLength) per iteration until bodyLeft reaches
// zero (spec §4.5).
func (p *Parser) readContentLengthBody(ctx context.Context, entireBody, bufferedOnly bool) ([]byte, error) {
	if p.bodyLeft <= 0 {
		return nil, nil
	}
	var body []byte
	if avail := p.buf.unread(); avail > 0 {
		n := avail
		if int64(n) > p.bodyLeft {
			n = int(p.bodyLeft)
		}
		body = append(body, p.buf.bytes()[:n]...)
		p.buf.advance(n)
		p.rx += int64(n)
		p.bodyLeft -= int64(n)
		if p.bodyLeft == 0 {
			p.completed = true
		}
	}
	if bufferedOnly {
		p.injectRx()
		return body, nil
	}
	for p.bodyLeft > 0 {
		maxLen := p.bodyLeft
		if maxLen > MaxBodyReadLength {
			maxLen = MaxBodyReadLength
		}
		chunk := make([]byte, maxLen)
		n, err := readFrom(ctx, p.src, chunk)
		if n > 0 {
			body = append(body, chunk[:n]...)
			p.rx += int64(n)
			p.bodyLeft -= int64(n)
			if p.bodyLeft == 0 {
				p.completed = true
			}
		}
		if err != nil {
			if err == io.EOF {
				return body, ErrIncompleteBody
			}
			return body, err
		}
		if n == 0 {
			return body, ErrIncompleteBody
		}
		if !entireBody {
			break
		}
	}
	p.injectRx()
	return body, nil
}

// readChunkedBody implements spec §4.5's chunked strategy: trim, ensure at
// least one byte buffered, then loop parsing a chunk size, reading/
// forwarding that many data bytes, and consuming the postfix, terminating
// on a zero-size chunk. When entireBody is false, it returns after the
// first data chunk (or the terminating zero chunk).
func (p *Parser) readChunkedBody(ctx context.Context, entireBody, bufferedOnly bool) ([]byte, error) {
	p.buf.trim()
	if p.buf.unread() == 0 {
		n, err := p.buf.fill(ctx, p.src)
		if n == 0 {
			if err == nil || err == io.EOF {
				return nil, ErrIncompleteRequestBody
			}
			return nil, err
		}
	}
	var body []byte
	for {
		consumed, size, err := p.parseChunkSize(ctx)
		if err != nil {
			if err == io.EOF {
				return body, ErrIncompleteRequestBody
			}
			return body, err
		}
		p.buf.advance(consumed)
		p.rx += int64(consumed)

		if size > 0 {
			if derr := p.readChunkData(ctx, size, bufferedOnly, &body); derr != nil {
				return body, derr
			}
		} else {
			p.completed = true
		}

		pConsumed, perr := p.parseChunkPostfix(ctx)
		if perr != nil {
			if perr == io.EOF {
				return body, ErrIncompleteRequestBody
			}
			return body, perr
		}
		p.buf.advance(pConsumed)
		p.rx += int64(pConsumed)

		if size == 0 || !entireBody {
			break
		}
	}
	p.injectRx()
	return body, nil
}

// readChunkData reads exactly size bytes of chunk data, appending to
// *body, draining the buffer first and then reading from the source
// (grounded on read_body_chunk_with_chunked_encoding).
func (p *Parser) readChunkData(ctx context.Context, size int64, bufferedOnly bool, body *[]byte) error {
	left := size
	if avail := p.buf.unread(); avail > 0 {
		n := avail
		if int64(n) > left {
			n = int(left)
		}
		*body = append(*body, p.buf.bytes()[:n]...)
		p.buf.advance(n)
		p.rx += int64(n)
		left -= int64(n)
	}
	if bufferedOnly {
		return nil
	}
	for left > 0 {
		maxLen := left
		if maxLen > MaxBodyReadLength {
			maxLen = MaxBodyReadLength
		}
		chunk := make([]byte, maxLen)
		n, err := readFrom(ctx, p.src, chunk)
		if n > 0 {
			*body = append(*body, chunk[:n]...)
			p.rx += int64(n)
			left -= int64(n)
		}
		if err != nil {
			if err == io.EOF {
				return ErrMalformedBody
			}
			return err
		}
		if n == 0 {
			return ErrMalformedBody
		}
	}
	return nil
}

// SpliceBodyTo transfers the body bytes directly to sink via the IO
// Adapter's splice capability, using the Parser's buffer only for the
// buffered prefix (spec §4.5's splice_body_to).
func (p *Parser) SpliceBodyTo(ctx context.Context, sink Sink) error {
	if err := p.ensureBodyMode(); err != nil {
		return err
	}
	if p.framing == framingChunked {
		return p.spliceChunkedBody(ctx, sink)
	}
	return p.spliceContentLengthBody(ctx, sink)
}

func (p *Parser) spliceContentLengthBody(ctx context.Context, sink Sink) error {
	if p.bodyLeft <= 0 {
		return nil
	}
	if avail := p.buf.unread(); avail > 0 {
		n := avail
		if int64(n) > p.bodyLeft {
			n = int(p.bodyLeft)
		}
		if _, err := sink.WriteV(p.buf.bytes()[:n]); err != nil {
			return err
		}
		p.buf.advance(n)
		p.rx += int64(n)
		p.bodyLeft -= int64(n)
		if p.bodyLeft == 0 {
			p.completed = true
		}
	}
	for p.bodyLeft > 0 {
		n, err := splice(ctx, p.src, sink, p.bodyLeft)
		if n > 0 {
			p.rx += n
			p.bodyLeft -= n
			if p.bodyLeft == 0 {
				p.completed = true
			}
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrIncompleteBody
		}
	}
	p.injectRx()
	return nil
}

func (p *Parser) spliceChunkedBody(ctx context.Context, sink Sink) error {
	p.buf.trim()
	for {
		consumed, size, err := p.parseChunkSize(ctx)
		if err != nil {
			if err == io.EOF {
				return ErrIncompleteRequestBody
			}
			return err
		}
		p.buf.advance(consumed)
		p.rx += int64(consumed)

		if size > 0 {
			if err := p.spliceChunkData(ctx, sink, size); err != nil {
				return err
			}
		} else {
			p.completed = true
		}

		pConsumed, perr := p.parseChunkPostfix(ctx)
		if perr != nil {
			if perr == io.EOF {
				return ErrIncompleteRequestBody
			}
			return perr
		}
		p.buf.advance(pConsumed)
		p.rx += int64(pConsumed)

		if size == 0 {
			break
		}
	}
	p.injectRx()
	return nil
}

func (p *Parser) spliceChunkData(ctx context.Context, sink Sink, size int64) error {
	left := size
	if avail := p.buf.unread(); avail > 0 {
		n := avail
		if int64(n) > left {
			n = int(left)
		}
		if _, err := sink.WriteV(p.buf.bytes()[:n]); err != nil {
			return err
		}
		p.buf.advance(n)
		p.rx += int64(n)
		left -= int64(n)
	}
	for left > 0 {
		n, err := splice(ctx, p.src, sink, left)
		if n > 0 {
			p.rx += n
			left -= n
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrMalformedBody
		}
	}
	return nil
}

// injectRx updates the :rx pseudo-header to the running received-byte
// count (spec §3/§8). Every successful body read calls it before returning,
// so :rx is current once the body finishes.
func (p *Parser) injectRx() {
	if p.headers != nil {
		p.headers[PseudoRx] = int(p.rx)
	}
}
