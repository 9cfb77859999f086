// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpcodec

import (
	"context"
	"io"
	"strconv"

	"github.com/intuitivelabs/bytescase"
)

// httpSlash1 is the literal protocol prefix, matched case-insensitively on
// "HTTP" per spec §4.3 (the "/1" and optional ".0"/".1" are literal).
var httpSlash1 = []byte("HTTP/1")

const (
	cr = '\r'
	lf = '\n'
	sp = ' '
)

// byteAt returns the byte i positions past the buffer's unconsumed start,
// filling from src as needed. It never advances pos; callers advance once
// a full token has been recognized. An io.EOF (possibly wrapping
// io.ErrUnexpectedEOF semantics via the caller) signals that fewer than
// i+1 bytes are, and ever will be, available.
func (p *Parser) byteAt(ctx context.Context, i int) (byte, error) {
	for p.buf.unread() <= i {
		n, err := p.buf.fill(ctx, p.src)
		if n == 0 {
			if err == nil {
				err = io.EOF
			}
			return 0, err
		}
	}
	return p.buf.bytes()[i], nil
}

// eolLen returns 2 if buf[i:i+2] is CRLF, 1 if buf[i] is a bare LF, 0 if
// buf[i] is CR not followed by LF (malformed) or neither. bareLFOK controls
// whether a standalone LF is accepted; every caller in this package passes
// true, including the chunk postfix (see parseChunkPostfix).
func (p *Parser) eolLen(ctx context.Context, i int, bareLFOK bool) (int, error) {
	b, err := p.byteAt(ctx, i)
	if err != nil {
		return 0, err
	}
	switch b {
	case lf:
		if !bareLFOK {
			return 0, nil
		}
		return 1, nil
	case cr:
		nb, err := p.byteAt(ctx, i+1)
		if err != nil {
			return 0, err
		}
		if nb != lf {
			return 0, nil
		}
		return 2, nil
	default:
		return 0, nil
	}
}

// scanToken consumes bytes from i until sp, cr, or lf is seen (none of
// which are copied), enforcing max length. It returns the token bytes and
// the index of the terminator.
func (p *Parser) scanToken(ctx context.Context, start, max int, badErr *ParseError) (string, int, error) {
	i := start
	for {
		b, err := p.byteAt(ctx, i)
		if err != nil {
			return "", i, err
		}
		if b == sp || b == cr || b == lf {
			break
		}
		i++
		if i-start > max {
			return "", i, badErr
		}
	}
	if i == start {
		return "", i, badErr
	}
	return string(p.snapshot(start, i)), i, nil
}

// snapshot materializes buf[start:end] (relative to the unconsumed region)
// as a freshly allocated, immutable string-backing slice — the "safer
// default" of spec §9 (tokens are copied rather than kept as views into a
// buffer that may be trimmed or grown).
func (p *Parser) snapshot(start, end int) []byte {
	b := make([]byte, end-start)
	copy(b, p.buf.bytes()[start:end])
	return b
}

// parseRequestLine scans "METHOD SP TARGET SP PROTOCOL CRLF" (spec §4.3).
// On success it returns the consumed length (to be advanced on the buffer)
// and the three parsed values.
func (p *Parser) parseRequestLine(ctx context.Context) (consumed int, method, target, protocol string, err error) {
	i := 0
	methodStr, i, err := p.scanToken(ctx, i, p.limits.MaxMethodLength, ErrInvalidMethod)
	if err != nil {
		return 0, "", "", "", err
	}
	// tolerate multiple spaces between METHOD and TARGET
	for {
		b, err := p.byteAt(ctx, i)
		if err != nil {
			return 0, "", "", "", err
		}
		if b != sp {
			break
		}
		i++
	}
	targetStr, i, err := p.scanToken(ctx, i, p.limits.MaxPathLength, ErrInvalidRequestTarget)
	if err != nil {
		return 0, "", "", "", err
	}
	// the reference implementation tolerates extra spaces before the
	// protocol token the same way it does before the target
	for {
		b, err := p.byteAt(ctx, i)
		if err != nil {
			return 0, "", "", "", err
		}
		if b != sp {
			break
		}
		i++
	}
	protoStart := i
	for {
		b, err := p.byteAt(ctx, i)
		if err != nil {
			return 0, "", "", "", err
		}
		if b == cr || b == lf {
			break
		}
		i++
		if i-protoStart > 8 {
			return 0, "", "", "", ErrInvalidProtocol
		}
	}
	protoStr, err := p.validateProtocol(protoStart, i)
	if err != nil {
		return 0, "", "", "", err
	}
	n, err := p.eolLen(ctx, i, true)
	if err != nil {
		return 0, "", "", "", err
	}
	if n == 0 {
		return 0, "", "", "", ErrInvalidProtocol
	}
	i += n
	return i, upperASCII(methodStr), targetStr, protoStr, nil
}

// validateProtocol checks buf[start:end] (relative) against "HTTP/1"
// (case-insensitive) optionally followed by ".0" or ".1", length 6..8, and
// returns it lowercased.
func (p *Parser) validateProtocol(start, end int) (string, error) {
	l := end - start
	if l < 6 || l > 8 {
		return "", ErrInvalidProtocol
	}
	raw := p.buf.bytes()[start:end]
	if _, ok := bytescase.Prefix(httpSlash1, raw); !ok {
		return "", ErrInvalidProtocol
	}
	if l > 6 {
		suffix := raw[6:]
		if len(suffix) != 2 || suffix[0] != '.' || (suffix[1] != '0' && suffix[1] != '1') {
			return "", ErrInvalidProtocol
		}
	}
	return lowerASCIICopy(raw), nil
}

// parseStatusLine scans "PROTOCOL SP STATUS [SP MESSAGE] CRLF" (spec §4.3).
func (p *Parser) parseStatusLine(ctx context.Context) (consumed int, protocol string, status int, statusMsg string, err error) {
	i := 0
	protoStart := i
	for {
		b, err := p.byteAt(ctx, i)
		if err != nil {
			return 0, "", 0, "", err
		}
		if b == sp {
			break
		}
		i++
		if i-protoStart > 8 {
			return 0, "", 0, "", ErrInvalidProtocol
		}
	}
	protoStr, err := p.validateProtocol(protoStart, i)
	if err != nil {
		return 0, "", 0, "", err
	}
	i++ // skip SP
	statusStart := i
	for {
		b, err := p.byteAt(ctx, i)
		if err != nil {
			return 0, "", 0, "", err
		}
		if b == sp || b == cr || b == lf {
			break
		}
		if b < '0' || b > '9' {
			return 0, "", 0, "", ErrInvalidStatus
		}
		i++
		if i-statusStart > 4 {
			return 0, "", 0, "", ErrInvalidStatus
		}
	}
	if i == statusStart {
		return 0, "", 0, "", ErrInvalidStatus
	}
	statusVal, convErr := strconv.Atoi(string(p.snapshot(statusStart, i)))
	if convErr != nil {
		return 0, "", 0, "", ErrInvalidStatus
	}
	var msg string
	b, err := p.byteAt(ctx, i)
	if err != nil {
		return 0, "", 0, "", err
	}
	if b == sp {
		i++
		msgStart := i
		for {
			b, err := p.byteAt(ctx, i)
			if err != nil {
				return 0, "", 0, "", err
			}
			if b == cr || b == lf {
				break
			}
			i++
			if i-msgStart > p.limits.MaxStatusMessageLength {
				return 0, "", 0, "", ErrInvalidStatus
			}
		}
		msg = string(p.snapshot(msgStart, i))
	}
	n, err := p.eolLen(ctx, i, true)
	if err != nil {
		return 0, "", 0, "", err
	}
	if n == 0 {
		return 0, "", 0, "", ErrInvalidStatus
	}
	i += n
	return i, protoStr, statusVal, msg, nil
}

// headerLineResult is what parseHeaderLine found.
type headerLineResult struct {
	end   bool // true: empty line, end of header block
	key   string
	value string
}

// parseHeaderLine scans one "KEY ':' [SP*] VALUE CRLF" line, or a bare
// CRLF/LF terminating the header block (spec §4.3).
func (p *Parser) parseHeaderLine(ctx context.Context) (consumed int, res headerLineResult, err error) {
	// empty line check first
	if n, eerr := p.eolLen(ctx, 0, true); eerr == nil && n > 0 {
		return n, headerLineResult{end: true}, nil
	} else if eerr != nil {
		return 0, headerLineResult{}, eerr
	}
	i := 0
	keyStart := i
	for {
		b, err := p.byteAt(ctx, i)
		if err != nil {
			return 0, headerLineResult{}, err
		}
		if b == ':' {
			break
		}
		if b == sp || b == cr || b == lf {
			// a space (or line end) before ':' is a bad request
			return 0, headerLineResult{}, ErrInvalidHeaderKey
		}
		i++
		if i-keyStart > p.limits.MaxHeaderKeyLength {
			return 0, headerLineResult{}, ErrInvalidHeaderKey
		}
	}
	if i == keyStart {
		return 0, headerLineResult{}, ErrInvalidHeaderKey
	}
	key := lowerASCIICopy(p.buf.bytes()[keyStart:i])
	i++ // skip ':'
	for {
		b, err := p.byteAt(ctx, i)
		if err != nil {
			return 0, headerLineResult{}, err
		}
		if b != sp {
			break
		}
		i++
	}
	valStart := i
	valLen := 0
	for {
		b, err := p.byteAt(ctx, i)
		if err != nil {
			return 0, headerLineResult{}, err
		}
		if b == cr || b == lf {
			break
		}
		seqLen := utf8SeqLen(b)
		// make sure the whole sequence is buffered before counting/advancing
		for k := 1; k < seqLen; k++ {
			if _, err := p.byteAt(ctx, i+k); err != nil {
				return 0, headerLineResult{}, err
			}
		}
		i += seqLen
		valLen += seqLen
		if valLen > p.limits.MaxHeaderValueLength {
			return 0, headerLineResult{}, ErrInvalidHeaderValue
		}
	}
	if i == valStart {
		return 0, headerLineResult{}, ErrInvalidHeaderValue
	}
	value := string(p.snapshot(valStart, i))
	n, err := p.eolLen(ctx, i, true)
	if err != nil {
		return 0, headerLineResult{}, err
	}
	if n == 0 {
		return 0, headerLineResult{}, ErrInvalidHeaderValue
	}
	i += n
	return i, headerLineResult{key: key, value: value}, nil
}

// parseChunkSize scans 1..MaxChunkSizeLength hex digits terminated by CRLF
// or a bare LF (spec §4.3).
func (p *Parser) parseChunkSize(ctx context.Context) (consumed int, size int64, err error) {
	i := 0
	for {
		b, err := p.byteAt(ctx, i)
		if err != nil {
			return 0, 0, err
		}
		if b == cr || b == lf {
			break
		}
		// stop at chunk-extension separator; extensions are ignored
		if b == ';' {
			break
		}
		if !isHexDigit(b) {
			return 0, 0, ErrInvalidChunkSize
		}
		i++
		if i > p.limits.MaxChunkSizeLength {
			return 0, 0, ErrInvalidChunkSize
		}
	}
	if i == 0 {
		return 0, 0, ErrInvalidChunkSize
	}
	size, ok := parseHex(p.buf.bytes()[:i])
	if !ok {
		return 0, 0, ErrInvalidChunkSize
	}
	// skip any chunk-extension text up to the line terminator
	for {
		b, err := p.byteAt(ctx, i)
		if err != nil {
			return 0, 0, err
		}
		if b == cr || b == lf {
			break
		}
		i++
	}
	n, err := p.eolLen(ctx, i, true)
	if err != nil {
		return 0, 0, err
	}
	if n == 0 {
		return 0, 0, ErrInvalidChunkSize
	}
	i += n
	return i, size, nil
}

// parseChunkPostfix consumes the single line terminator after a chunk's
// data (or the final zero-size chunk). Spec §9 flags the choice between a
// bare-LF/CRLF asymmetry here as an open question; the original h1p source
// (see DESIGN.md) accepts a bare LF uniformly across every terminator,
// including this one, so this implementation aligns with that instead of
// introducing an asymmetry the reference implementation does not have.
func (p *Parser) parseChunkPostfix(ctx context.Context) (consumed int, err error) {
	n, err := p.eolLen(ctx, 0, true)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrInvalidChunk
	}
	return n, nil
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func parseHex(b []byte) (int64, bool) {
	var v int64
	for _, c := range b {
		var d int64
		switch {
		case c >= '0' && c <= '9':
			d = int64(c - '0')
		case c >= 'a' && c <= 'f':
			d = int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int64(c-'A') + 10
		default:
			return 0, false
		}
		v = v<<4 | d
	}
	return v, true
}

// utf8SeqLen implements spec §4.3's UTF-8 width accounting for header
// value length counting: a byte of the form 1111xxxx, 1110xxxx, or 110xxxxx
// begins a 4-, 3-, or 2-byte sequence; anything else counts as 1.
func utf8SeqLen(b byte) int {
	switch {
	case b&0xF0 == 0xF0: // 1111xxxx
		return 4
	case b&0xF0 == 0xE0: // 1110xxxx
		return 3
	case b&0xE0 == 0xC0: // 110xxxxx
		return 2
	default:
		return 1
	}
}

func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		b[i] = bytescase.ByteToUpper(c)
	}
	return string(b)
}

func lowerASCIICopy(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = bytescase.ByteToLower(c)
	}
	return string(out)
}
