// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package feed

import (
	"encoding/base64"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// CursorState is the resume point of a pagination session.
//
// LastScore and LastID form the composite key of the last returned item;
// GenerationBound is the ordering fence fixed at the first page, keeping
// videos uploaded mid-session out of every later page; SeenCount counts the
// items returned so far.
//
// The encoded token is opaque and fully self-describing: the server keeps no
// pagination state. A checksum guards against silent corruption, not against
// tampering; a tamperer only corrupts their own feed position.
type CursorState struct {
	LastScore       float64   `json:"s"`
	LastID          uuid.UUID `json:"id"`
	GenerationBound time.Time `json:"gb"`
	SeenCount       int       `json:"n"`
}

// cursorEnvelope wraps the state with its integrity checksum on the wire.
type cursorEnvelope struct {
	State    CursorState `json:"c"`
	Checksum uint32      `json:"x"`
}

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// EncodeCursor encodes a cursor state into an opaque URL-safe token.
// EncodeCursor(s) round-trips through DecodeCursor for every valid state.
func EncodeCursor(state CursorState) string {
	payload, err := json.Marshal(state)
	if err != nil {
		// Unreachable for a plain struct; an empty token degrades to
		// first-page semantics rather than corrupting the session.
		return ""
	}

	envelope := cursorEnvelope{
		State:    state,
		Checksum: crc32.Checksum(payload, crcTable),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor decodes a token back into a cursor state. It never panics on
// adversarial input: any structural failure, including a checksum mismatch,
// yields ErrMalformedCursor and callers fall back to the first page.
func DecodeCursor(token string) (CursorState, error) {
	if token == "" {
		return CursorState{}, fmt.Errorf("%w: empty token", ErrMalformedCursor)
	}

	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return CursorState{}, fmt.Errorf("%w: invalid encoding: %v", ErrMalformedCursor, err)
	}

	var envelope cursorEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return CursorState{}, fmt.Errorf("%w: invalid structure: %v", ErrMalformedCursor, err)
	}

	payload, err := json.Marshal(envelope.State)
	if err != nil {
		return CursorState{}, fmt.Errorf("%w: state not re-encodable", ErrMalformedCursor)
	}
	if crc32.Checksum(payload, crcTable) != envelope.Checksum {
		return CursorState{}, fmt.Errorf("%w: checksum mismatch", ErrMalformedCursor)
	}

	if envelope.State.GenerationBound.IsZero() {
		return CursorState{}, fmt.Errorf("%w: missing generation bound", ErrMalformedCursor)
	}
	if envelope.State.SeenCount < 0 {
		return CursorState{}, fmt.Errorf("%w: negative seen count", ErrMalformedCursor)
	}

	return envelope.State, nil
}
