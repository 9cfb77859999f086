// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Command httpcodec-proxy accepts connections on one address, parses each
// request's headers and body, and relays an equivalent request to an
// upstream address, splicing the response body back without buffering it
// in full. It demonstrates the library's intended usage against a real
// net.Conn transport: Parser reading directly from the connection, and
// SpliceBodyTo/SendHeadersVerbatim driving the connection as a Sink.
package main

import (
	"context"
	"flag"
	"log"
	"net"

	"github.com/intuitivelabs/httpcodec"
)

func main() {
	listen := flag.String("listen", ":8080", "address to accept client connections on")
	upstream := flag.String("upstream", "localhost:8081", "address to relay requests to")
	flag.Parse()

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	log.Printf("httpcodec-proxy listening on %s, relaying to %s", *listen, *upstream)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("accept: %v", err)
			continue
		}
		go handleConn(conn, *upstream)
	}
}

func handleConn(client net.Conn, upstream string) {
	defer client.Close()

	backend, err := net.Dial("tcp", upstream)
	if err != nil {
		log.Printf("dial upstream: %v", err)
		return
	}
	defer backend.Close()

	ctx := context.Background()
	clientSink := httpcodec.NewWriterSink(client)
	backendSink := httpcodec.NewWriterSink(backend)

	req := httpcodec.NewParser(client, backendSink, httpcodec.ModeServer)
	for {
		headers, err := req.ParseHeaders(ctx)
		if err != nil {
			log.Printf("parse request: %v", err)
			return
		}
		if headers == nil {
			return
		}
		if err := forwardRequestLine(backendSink, headers); err != nil {
			log.Printf("forward request line: %v", err)
			return
		}
		if err := req.SpliceBodyTo(ctx, backendSink); err != nil {
			log.Printf("splice request body: %v", err)
			return
		}

		resp := httpcodec.NewParser(backend, clientSink, httpcodec.ModeClient)
		respHeaders, err := resp.ParseHeaders(ctx)
		if err != nil {
			log.Printf("parse response: %v", err)
			return
		}
		if respHeaders == nil {
			return
		}
		if _, err := resp.SendHeadersVerbatim(respHeaders); err != nil {
			log.Printf("forward response headers: %v", err)
			return
		}
		if err := resp.SpliceBodyTo(ctx, clientSink); err != nil {
			log.Printf("splice response body: %v", err)
			return
		}
	}
}

// forwardRequestLine re-emits the request line and headers already parsed
// off the client connection onto the backend connection, as the Parser
// stored them: header keys and the protocol are lowercase, and headers are
// written in map iteration order, not arrival order.
func forwardRequestLine(sink httpcodec.Sink, headers httpcodec.Headers) error {
	line := headers.Get(httpcodec.PseudoMethod) + " " +
		headers.Get(httpcodec.PseudoPath) + " " +
		headers.Get(httpcodec.PseudoProtocol) + "\r\n"
	if _, err := sink.WriteV([]byte(line)); err != nil {
		return err
	}
	for k, v := range headers {
		if len(k) > 0 && k[0] == ':' {
			continue
		}
		switch val := v.(type) {
		case string:
			if _, err := sink.WriteV([]byte(k + ": " + val + "\r\n")); err != nil {
				return err
			}
		case []string:
			for _, s := range val {
				if _, err := sink.WriteV([]byte(k + ": " + s + "\r\n")); err != nil {
					return err
				}
			}
		}
	}
	_, err := sink.WriteV([]byte("\r\n"))
	return err
}
