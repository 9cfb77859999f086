// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package httpcodec

// Pseudo-header keys, spec §3/§6. Requests carry :method, :path, :protocol
// and :rx; responses carry :protocol, :status, :status_message and :rx.
const (
	PseudoMethod        = ":method"
	PseudoPath          = ":path"
	PseudoProtocol      = ":protocol"
	PseudoRx            = ":rx"
	PseudoStatus        = ":status"
	PseudoStatusMessage = ":status_message"
)

// Headers is the parsed headers mapping (spec §3). A key maps to either a
// string (a header seen once) or a []string (a repeated header, values in
// arrival order). Pseudo-keys (":method", ":path", ...) hold their
// documented scalar types: :status is an int, :rx is an int, the rest are
// strings.
type Headers map[string]any

// Get returns the single string value for key, or "" if absent. If key
// holds a repeated ([]string) value, Get returns the first one — use GetAll
// for all of them.
func (h Headers) Get(key string) string {
	switch v := h[key].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// GetAll returns all values stored for key, in arrival order, whether key
// was seen once or repeated.
func (h Headers) GetAll(key string) []string {
	switch v := h[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	}
	return nil
}

// add inserts value for key, upgrading an existing scalar value to an
// ordered []string on the first repeat and appending on further repeats,
// per spec §4.3's "Repeated keys" rule.
func (h Headers) add(key, value string) {
	switch existing := h[key].(type) {
	case nil:
		h[key] = value
	case string:
		h[key] = []string{existing, value}
	case []string:
		h[key] = append(existing, value)
	}
}

// Status returns the :status pseudo-header as an int, or 0 if absent (not
// a response, or not yet parsed).
func (h Headers) Status() int {
	if v, ok := h[PseudoStatus].(int); ok {
		return v
	}
	return 0
}

// Rx returns the :rx pseudo-header (bytes consumed for this message,
// headers + body), or 0 if absent.
func (h Headers) Rx() int {
	if v, ok := h[PseudoRx].(int); ok {
		return v
	}
	return 0
}
