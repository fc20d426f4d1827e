package api

import (
	"math"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/jafish/Networked-Games-Testbed/internal/game"
)

func TestCodecRoundTrip(t *testing.T) {
	for _, c := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(c.Name(), func(t *testing.T) {
			frame, err := c.Encode(game.EventPlayerUpdate, game.PaddleUpdate{X: 12.5, Y: 400, Rotation: -0.25, Timestamp: 99})
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}

			in, err := c.Decode(frame)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if in.Event != game.EventPlayerUpdate {
				t.Errorf("event = %q", in.Event)
			}

			var u game.PaddleUpdate
			if err := in.Bind(&u); err != nil {
				t.Fatalf("Bind: %v", err)
			}
			if u.X != 12.5 || u.Y != 400 || u.Rotation != -0.25 || u.Timestamp != 99 {
				t.Errorf("decoded = %+v", u)
			}
		})
	}
}

func TestCodecFrameTypes(t *testing.T) {
	if CodecFor("").FrameType() != websocket.TextMessage {
		t.Error("default codec should use text frames")
	}
	if CodecFor("msgpack").FrameType() != websocket.BinaryMessage {
		t.Error("msgpack should use binary frames")
	}
	if CodecFor("xml").Name() != "json" {
		t.Error("unknown codecs fall back to json")
	}
}

func TestCodecRejectsBadFrames(t *testing.T) {
	tests := []struct {
		name  string
		codec Codec
		frame []byte
	}{
		{"json garbage", JSONCodec{}, []byte("{not json")},
		{"json no event", JSONCodec{}, []byte(`{"data":1}`)},
		{"msgpack garbage", MsgpackCodec{}, []byte{0xc1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.codec.Decode(tt.frame); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestBindNameShapes(t *testing.T) {
	tests := []struct {
		frame string
		want  string
		ok    bool
	}{
		{`{"event":"playerName","data":"bob"}`, "bob", true},
		{`{"event":"playerName","data":{"name":"alice"}}`, "alice", true},
		{`{"event":"playerName","data":[1,2]}`, "", false},
		{`{"event":"playerName"}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.frame, func(t *testing.T) {
			in, err := JSONCodec{}.Decode([]byte(tt.frame))
			if err != nil {
				t.Fatal(err)
			}
			got, ok := bindName(in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("bindName = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

// msgpack carries IEEE floats verbatim, so NaN decodes without error and
// must be caught by PaddleUpdate.Finite before it reaches the engine.
func TestMsgpackDecodesNonFinitePose(t *testing.T) {
	frame, err := msgpack.Marshal(map[string]interface{}{
		"event": "playerUpdate",
		"data":  map[string]interface{}{"x": math.NaN(), "y": 400.0, "paddleRotation": math.Inf(1)},
	})
	if err != nil {
		t.Fatal(err)
	}

	in, err := MsgpackCodec{}.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var u game.PaddleUpdate
	if err := in.Bind(&u); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if u.Finite() {
		t.Errorf("update %+v should not be finite", u)
	}
}
