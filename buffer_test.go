// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpcodec

import (
	"bytes"
	"context"
	"testing"
)

func TestBufferFillAndAdvance(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 100)
	b := newBuffer()
	src := bytes.NewBuffer(data)
	n, err := b.fill(context.Background(), src)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if n != 100 {
		t.Errorf("filled %d bytes, want 100", n)
	}
	if b.unread() != 100 {
		t.Errorf("unread = %d, want 100", b.unread())
	}
	b.advance(40)
	if b.unread() != 60 {
		t.Errorf("unread after advance = %d, want 60", b.unread())
	}
}

func TestBufferTrimPolicy(t *testing.T) {
	b := newBuffer()
	b.len = fillChunkSize
	b.pos = fillChunkSize/2 + 100 // pos >= 2048, and (len-pos) < pos
	for i := range b.data {
		b.data[i] = byte(i)
	}
	oldUnread := b.unread()
	b.trim()
	if b.pos != 0 {
		t.Errorf("pos after trim = %d, want 0", b.pos)
	}
	if b.len != oldUnread {
		t.Errorf("len after trim = %d, want %d", b.len, oldUnread)
	}
}

func TestBufferTrimSkippedWhenNotWorthwhile(t *testing.T) {
	b := newBuffer()
	b.len = fillChunkSize
	b.pos = fillChunkSize / 2 // (len-pos) == pos, not < pos
	b.trim()
	if b.pos != fillChunkSize/2 {
		t.Errorf("trim should not have fired, pos = %d", b.pos)
	}
}

func TestBufferGrowBeyondInitialCapacity(t *testing.T) {
	b := newBuffer()
	b.len = cap(b.data)
	b.grow()
	if cap(b.data) < b.len+fillChunkSize {
		t.Errorf("grow did not extend capacity: cap=%d len=%d", cap(b.data), b.len)
	}
}
