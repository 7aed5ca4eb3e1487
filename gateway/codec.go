package gateway

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes frames for the wire. The auth frame is always
// JSON; the negotiated codec applies from the auth response onward.
type Codec interface {
	Encode(f *Frame) ([]byte, error)
	Decode(data []byte) (*Frame, error)
	Name() string
}

const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// GetCodec returns the codec for the given format name. Unknown
// formats fall back to JSON.
func GetCodec(format string) Codec {
	switch format {
	case FormatMsgpack:
		return MsgpackCodec{}
	default:
		return JSONCodec{}
	}
}

// JSONCodec encodes frames as JSON. The default.
type JSONCodec struct{}

func (JSONCodec) Encode(f *Frame) ([]byte, error) { return json.Marshal(f) }

func (JSONCodec) Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (JSONCodec) Name() string { return FormatJSON }

// MsgpackCodec encodes frames as MessagePack, for clients that opt in
// during auth.
type MsgpackCodec struct{}

func (MsgpackCodec) Encode(f *Frame) ([]byte, error) { return msgpack.Marshal(f) }

func (MsgpackCodec) Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (MsgpackCodec) Name() string { return FormatMsgpack }
