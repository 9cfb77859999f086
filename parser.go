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

// Mode selects whether a Parser reads request lines or status lines (spec
// §3).
type Mode uint8

const (
	// ModeServer parses requests, as a server reading from a client.
	ModeServer Mode = iota
	// ModeClient parses responses, as a client reading from a server.
	ModeClient
)

// Option configures a Parser at construction time (functional options).
type Option func(*Parser)

// WithLimits overrides the default token-length and header-count ceilings.
// Values are normalized against the package's hard maxima.
func WithLimits(l Limits) Option {
	return func(p *Parser) { p.limits = l.normalize() }
}

// Parser incrementally parses one HTTP/1.x message at a time from src, and
// optionally emits responses to sink (spec §3). A Parser is not
// safe for concurrent use; pipelined messages on one connection are parsed
// one after another by reusing the same Parser.
type Parser struct {
	src  Source
	sink Sink
	mode Mode

	limits Limits
	buf    buffer

	headers Headers

	framing      bodyFraming
	bodyLeft     int64
	bodyDetected bool
	completed    bool

	rx int64
}

// NewParser constructs a Parser reading from src and, if it will also emit
// messages, writing to sink. sink may be nil for a read-only Parser.
func NewParser(src Source, sink Sink, mode Mode, opts ...Option) *Parser {
	p := &Parser{
		src:    src,
		sink:   sink,
		mode:   mode,
		limits: DefaultLimits,
		buf:    newBuffer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseHeaders parses one request-line/status-line plus the following
// header block into a fresh Headers value (spec §4.4). It returns (nil,
// nil) when the source is exhausted before any byte of a new message
// arrives — a clean end of connection, not an error — and also when the
// source is exhausted partway through a message, in which case whatever
// had been parsed so far is discarded rather than returned partially
// populated.
func (p *Parser) ParseHeaders(ctx context.Context) (Headers, error) {
	p.buf.trim()
	p.headers = nil
	p.framing = framingUnknown
	p.bodyDetected = false
	p.bodyLeft = 0
	p.completed = false
	p.rx = 0

	if p.buf.unread() == 0 {
		n, err := p.buf.fill(ctx, p.src)
		if n == 0 {
			if err == nil || err == io.EOF {
				return nil, nil
			}
			return nil, err
		}
	}

	h := make(Headers)
	var consumed int
	var err error
	switch p.mode {
	case ModeClient:
		var protocol, statusMsg string
		var status int
		consumed, protocol, status, statusMsg, err = p.parseStatusLine(ctx)
		if err == nil {
			h[PseudoProtocol] = protocol
			h[PseudoStatus] = status
			h[PseudoStatusMessage] = statusMsg
		}
	default:
		var method, target, protocol string
		consumed, method, target, protocol, err = p.parseRequestLine(ctx)
		if err == nil {
			h[PseudoMethod] = method
			h[PseudoPath] = target
			h[PseudoProtocol] = protocol
		}
	}
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	p.buf.advance(consumed)
	p.rx += int64(consumed)

	count := 0
	for {
		lineConsumed, res, herr := p.parseHeaderLine(ctx)
		if herr != nil {
			if herr == io.EOF {
				return nil, nil
			}
			return nil, herr
		}
		p.buf.advance(lineConsumed)
		p.rx += int64(lineConsumed)
		if res.end {
			break
		}
		count++
		if count > p.limits.MaxHeaderCount {
			return nil, ErrTooManyHeaders
		}
		h.add(res.key, res.value)
	}

	h[PseudoRx] = int(p.rx)
	p.headers = h
	return h, nil
}
