// Package rpcutil carries the Connect plumbing shared by every service: the
// JSON codec for the plain-struct messages, the actor interceptor and the
// mapping from domain errors to Connect codes.
package rpcutil

import (
	"encoding/json"
	"fmt"
)

// JSONCodec encodes plain Go structs. Connect's built-in JSON codec only
// accepts protobuf messages.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("failed to decode request: %w", err)
	}
	return nil
}
