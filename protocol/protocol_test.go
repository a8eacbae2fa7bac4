package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEncodeRoundTrip(t *testing.T) {
	env, err := Encode(SpriteMove, "client-1", 1.5, map[string]any{"sprite_id": "s1", "x": 10.0})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if env.Type != SpriteMove || env.ClientID != "client-1" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	var decoded map[string]any
	if err := json.Unmarshal(env.Data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["sprite_id"] != "s1" {
		t.Fatalf("decoded payload = %+v", decoded)
	}
}

func TestDispatcherRoutesToRegisteredHandler(t *testing.T) {
	d := NewDispatcher(nil)
	var got json.RawMessage
	d.Register(SpriteMove, func(data json.RawMessage) error {
		got = data
		return nil
	})
	env, _ := Encode(SpriteMove, "", 0, map[string]string{"sprite_id": "s1"})
	if err := d.Dispatch(env); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got == nil {
		t.Fatal("handler was not invoked")
	}
}

func TestDispatcherIgnoresUnknownType(t *testing.T) {
	d := NewDispatcher(nil)
	env, _ := Encode(MessageType("SOME_UNKNOWN_TYPE"), "", 0, nil)
	if err := d.Dispatch(env); err != nil {
		t.Fatalf("Dispatch on unknown type should not error, got %v", err)
	}
}

func TestDispatcherPropagatesHandlerError(t *testing.T) {
	d := NewDispatcher(nil)
	want := errors.New("boom")
	d.Register(Ping, func(json.RawMessage) error { return want })
	env, _ := Encode(Ping, "", 0, nil)
	if err := d.Dispatch(env); !errors.Is(err, want) {
		t.Fatalf("Dispatch error = %v, want %v", err, want)
	}
}

func TestHubBroadcastDeliversToJoinedSessions(t *testing.T) {
	h := NewHub(nil)
	sess := &Session{UserID: "u1", send: make(chan Envelope, 4)}
	h.Join("t1", sess)

	h.Broadcast("t1", string(FogUpdate), map[string]any{"hide_count": 2})
	select {
	case env := <-sess.send:
		if env.Type != FogUpdate {
			t.Fatalf("env.Type = %v, want FOG_UPDATE", env.Type)
		}
	default:
		t.Fatal("expected a broadcast envelope in the session's send buffer")
	}
}

func TestHubBroadcastSkipsOtherTables(t *testing.T) {
	h := NewHub(nil)
	sess := &Session{UserID: "u1", send: make(chan Envelope, 4)}
	h.Join("t1", sess)

	h.Broadcast("t2", string(FogUpdate), nil)
	select {
	case env := <-sess.send:
		t.Fatalf("unexpected delivery to a session on a different table: %+v", env)
	default:
	}
}

func TestHubLeaveStopsDelivery(t *testing.T) {
	h := NewHub(nil)
	sess := &Session{UserID: "u1", send: make(chan Envelope, 4)}
	h.Join("t1", sess)
	h.Leave("t1", sess)

	h.Broadcast("t1", string(FogUpdate), nil)
	select {
	case env := <-sess.send:
		t.Fatalf("unexpected delivery after Leave: %+v", env)
	default:
	}
}
