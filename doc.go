// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package httpcodec implements an incremental HTTP/1.x message codec: a
// parser that reads request or response messages from an arbitrary byte
// source, and a response emitter that writes well-formed HTTP/1 messages to
// an arbitrary byte sink.
//
// The parser operates in two modes: ModeServer parses requests, ModeClient
// parses responses. Bodies may be delimited by Content-Length or by chunked
// transfer encoding; a splice path can forward body bytes from the source to
// a sink without routing them through the parser's read buffer.
//
// The codec consumes byte I/O through the Source and Sink interfaces; it
// does not open sockets, perform TLS, parse URIs beyond the raw request
// target, or dispatch requests. A Parser is bound to one Source at
// construction and is meant to be reused across successive messages on the
// same connection.
package httpcodec
