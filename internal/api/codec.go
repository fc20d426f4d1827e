package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns events into WebSocket frames and back. Every frame is an
// envelope {"event": name, "data": payload}.
type Codec interface {
	Name() string
	FrameType() int
	Encode(event string, data interface{}) ([]byte, error)
	Decode(frame []byte) (Inbound, error)
	Unmarshal(data []byte, v interface{}) error
}

// Inbound is a decoded client message whose payload is bound lazily,
// once the event name has picked the target type.
type Inbound struct {
	Event string
	data  []byte
	codec Codec
}

// Bind decodes the payload into v.
func (in Inbound) Bind(v interface{}) error {
	if len(in.data) == 0 {
		return fmt.Errorf("event %q has no data", in.Event)
	}
	return in.codec.Unmarshal(in.data, v)
}

// CodecFor picks a codec by name; anything unknown falls back to JSON.
func CodecFor(name string) Codec {
	if name == "msgpack" {
		return MsgpackCodec{}
	}
	return JSONCodec{}
}

// JSONCodec speaks text frames, for browsers.
type JSONCodec struct{}

type jsonEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (JSONCodec) Name() string   { return "json" }
func (JSONCodec) FrameType() int { return websocket.TextMessage }

func (JSONCodec) Encode(event string, data interface{}) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
}

func (c JSONCodec) Decode(frame []byte) (Inbound, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Inbound{}, fmt.Errorf("invalid json frame: %w", err)
	}
	if env.Event == "" {
		return Inbound{}, fmt.Errorf("frame has no event name")
	}
	return Inbound{Event: env.Event, data: env.Data, codec: c}, nil
}

func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// MsgpackCodec speaks binary frames. Field names follow the json tags so
// both codecs carry the same keys.
type MsgpackCodec struct{}

type msgpackEnvelope struct {
	Event string             `json:"event"`
	Data  msgpack.RawMessage `json:"data,omitempty"`
}

func (MsgpackCodec) Name() string   { return "msgpack" }
func (MsgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (MsgpackCodec) Encode(event string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	err := enc.Encode(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c MsgpackCodec) Decode(frame []byte) (Inbound, error) {
	var env msgpackEnvelope
	if err := c.Unmarshal(frame, &env); err != nil {
		return Inbound{}, fmt.Errorf("invalid msgpack frame: %w", err)
	}
	if env.Event == "" {
		return Inbound{}, fmt.Errorf("frame has no event name")
	}
	return Inbound{Event: env.Event, data: env.Data, codec: c}, nil
}

func (MsgpackCodec) Unmarshal(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
