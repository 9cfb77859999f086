// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpcodec

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestParseHeadersSimpleRequest(t *testing.T) {
	raw := "GET /foo HTTP/1.1\r\nHost: example.com\r\nX-A: 1\r\n\r\n"
	p := NewParser(bytes.NewBufferString(raw), nil, ModeServer)
	h, err := p.ParseHeaders(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h == nil {
		t.Fatal("expected headers, got nil")
	}
	if h.Get(PseudoMethod) != "GET" {
		t.Errorf("method = %q, want GET", h.Get(PseudoMethod))
	}
	if h.Get(PseudoPath) != "/foo" {
		t.Errorf("path = %q, want /foo", h.Get(PseudoPath))
	}
	if h.Get(PseudoProtocol) != "http/1.1" {
		t.Errorf("protocol = %q, want http/1.1", h.Get(PseudoProtocol))
	}
	if h.Get("host") != "example.com" {
		t.Errorf("host = %q, want example.com", h.Get("host"))
	}
	if h.Get("x-a") != "1" {
		t.Errorf("x-a = %q, want 1", h.Get("x-a"))
	}
	complete, err := p.Complete()
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !complete {
		t.Error("expected request with no body to be complete")
	}
}

func TestParseHeadersRepeatedHeader(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nX-Multi: a\r\nX-Multi: b\r\nX-Multi: c\r\n\r\n"
	p := NewParser(bytes.NewBufferString(raw), nil, ModeServer)
	h, err := p.ParseHeaders(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := h.GetAll("x-multi")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("GetAll = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetAll[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseHeadersStatusLine(t *testing.T) {
	raw := "HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n"
	p := NewParser(bytes.NewBufferString(raw), nil, ModeClient)
	h, err := p.ParseHeaders(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Status() != 404 {
		t.Errorf("status = %d, want 404", h.Status())
	}
	if h.Get(PseudoStatusMessage) != "Not Found" {
		t.Errorf("status message = %q, want Not Found", h.Get(PseudoStatusMessage))
	}
}

func TestParseHeadersEOFBeforeAnyByte(t *testing.T) {
	p := NewParser(bytes.NewBufferString(""), nil, ModeServer)
	h, err := p.ParseHeaders(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != nil {
		t.Errorf("expected nil headers at clean EOF, got %v", h)
	}
}

func TestParseHeadersEOFMidMessage(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: exam"
	p := NewParser(bytes.NewBufferString(raw), nil, ModeServer)
	h, err := p.ParseHeaders(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != nil {
		t.Errorf("expected nil headers on mid-message EOF, got %v", h)
	}
}

func TestParseHeadersBadMethod(t *testing.T) {
	raw := " /foo HTTP/1.1\r\n\r\n"
	p := NewParser(bytes.NewBufferString(raw), nil, ModeServer)
	_, err := p.ParseHeaders(context.Background())
	if !errors.Is(err, ErrInvalidMethod) {
		t.Errorf("err = %v, want ErrInvalidMethod", err)
	}
}

func TestParseHeadersMultipleSpacesTolerated(t *testing.T) {
	raw := "GET  /foo   HTTP/1.1\r\n\r\n"
	p := NewParser(bytes.NewBufferString(raw), nil, ModeServer)
	h, err := p.ParseHeaders(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Get(PseudoPath) != "/foo" {
		t.Errorf("path = %q, want /foo", h.Get(PseudoPath))
	}
}

func TestParseHeadersTooManyHeaders(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("GET / HTTP/1.1\r\n")
	for i := 0; i <= DefaultLimits.MaxHeaderCount+1; i++ {
		buf.WriteString("X-N: v\r\n")
	}
	buf.WriteString("\r\n")
	p := NewParser(&buf, nil, ModeServer)
	_, err := p.ParseHeaders(context.Background())
	if !errors.Is(err, ErrTooManyHeaders) {
		t.Errorf("err = %v, want ErrTooManyHeaders", err)
	}
}

func TestParseHeadersFragmentedSource(t *testing.T) {
	raw := "POST /submit HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"
	p := NewParser(newFragmentedSource([]byte(raw), 3), nil, ModeServer)
	h, err := p.ParseHeaders(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, err := p.ReadBody(context.Background())
	if err != nil {
		t.Fatalf("ReadBody: %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("body = %q, want hello", body)
	}
	complete, _ := p.Complete()
	if !complete {
		t.Error("expected complete after reading full content-length body")
	}
	_ = h
}

func TestParsePipeliningTrimsBuffer(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 100; i++ {
		buf.WriteString("GET /x HTTP/1.1\r\nX-Pad: 0123456789012345678901234567890123456789\r\n\r\n")
	}
	p := NewParser(&buf, nil, ModeServer)
	ctx := context.Background()
	count := 0
	for {
		h, err := p.ParseHeaders(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h == nil {
			break
		}
		count++
	}
	if count != 100 {
		t.Errorf("parsed %d messages, want 100", count)
	}
}
