// Package rpc defines the caltrack.v1 Connect API: message types, procedure
// names, and handler/client constructors.
//
// Messages are plain Go structs carried by a JSON codec registered under the
// name "json", so both the Connect protocol's application/json content type
// and curl work without generated protobuf code.
package rpc

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// Codec marshals messages with encoding/json.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("invalid JSON message: %w", err)
	}
	return nil
}

// WithJSON installs the codec on a handler or client.
func WithJSON() connect.Option {
	return connect.WithCodec(Codec{})
}
