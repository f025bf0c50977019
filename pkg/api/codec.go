// Package api defines the groupcal Connect services: procedure names, request and response
// messages, handler constructors and clients.
//
// Messages are plain Go structs carried as JSON, so both sides use Codec instead of the
// protobuf codecs Connect registers by default.
package api

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// CodecName is sent as the Content-Type suffix (application/json).
const CodecName = "json"

// Codec marshals messages with encoding/json.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return CodecName }

func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, msg any) error {
	// An empty body is a valid empty message.
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}
